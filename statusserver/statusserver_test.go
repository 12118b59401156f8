package statusserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhantong1994/screencamera/pipeline"
)

func TestHealthzReturnsOK(t *testing.T) {
	s := New()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestStatusReflectsLatestObservation(t *testing.T) {
	s := New()
	sid := uuid.New()
	s.Observe(pipeline.Status{
		SessionID:        sid,
		CurrentIndex:     42,
		LastSuccessIndex: 40,
		FrameTotal:       100,
		ProcessedCount:   12,
		Stage:            pipeline.Accumulating,
	})

	req := httptest.NewRequest(http.MethodGet, "/status", nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var got Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, sid.String(), got.SessionID)
	assert.Equal(t, 42, got.CurrentIndex)
	assert.Equal(t, 40, got.LastSuccessIndex)
	assert.Equal(t, "Accumulating", got.State)
}

func TestStatusDefaultsToUnknownBeforeAnyObservation(t *testing.T) {
	s := New()
	assert.Equal(t, "Unknown", s.Snapshot().State)
	assert.Equal(t, "", s.Snapshot().SessionID)
}
