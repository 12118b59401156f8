package main

import "github.com/zhantong1994/screencamera/cmd/screencamera-receive/cmd"

func main() {
	cmd.Execute()
}
