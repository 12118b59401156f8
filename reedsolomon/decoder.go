package reedsolomon

import (
	"fmt"

	screencamera "github.com/zhantong1994/screencamera"
)

// ErrReedSolomon indicates a Reed-Solomon decoding failure. It wraps
// screencamera.ErrReedSolomonUncorrectable, so errors.Is matches either.
var ErrReedSolomon = fmt.Errorf("reedsolomon: decoding error: %w", screencamera.ErrReedSolomonUncorrectable)

// Decoder performs Reed-Solomon error correction decoding.
type Decoder struct {
	field *GenericGF
}

// NewDecoder creates a new Decoder for the given field.
func NewDecoder(field *GenericGF) *Decoder {
	return &Decoder{field: field}
}

// Decode corrects errors in received in-place and returns the number of
// errors corrected. twoS is the number of error-correction codewords.
func (d *Decoder) Decode(received []int, twoS int) (int, error) {
	return d.DecodeWithErasures(received, twoS, nil)
}

// DecodeWithErasures corrects errors and known erasures in received
// in-place, returning the total number of positions repaired. twoS is the
// number of ECC symbols (k); erasurePositions names symbol indices already
// known to be wrong (e.g. cells the grid sampler could not read), consuming
// one ECC symbol each instead of two. Capacity: floor((twoS-e)/2) random
// errors alongside e erasures, e <= twoS.
//
// This generalizes the zero-erasure Euclidean algorithm below via the
// standard generalized key equation: build the erasure locator
// Lambda(x) = prod(1 - X_e*x) over erasure positions, form the modified
// syndrome T(x) = S(x)*Lambda(x) mod x^twoS, and run the same Euclidean
// search with its stopping threshold raised to twoS+e (it runs while
// 2*deg(r) >= twoS+e, so tau(x) has degree <= (twoS-e)/2). The search now
// produces tau(x); the full error locator is sigma(x) = Lambda(x)*tau(x),
// and the Euclidean remainder is already the error evaluator omega(x) for
// that combined sigma, so Forney's algorithm runs unchanged over all
// positions (erasures and newly located errors alike).
func (d *Decoder) DecodeWithErasures(received []int, twoS int, erasurePositions []int) (int, error) {
	if len(erasurePositions) > twoS {
		return 0, ErrReedSolomon
	}

	poly := newGenericGFPoly(d.field, received)
	syndromeCoefficients := make([]int, twoS)
	noError := true
	for i := 0; i < twoS; i++ {
		eval := poly.EvaluateAt(d.field.Exp(i + d.field.GeneratorBase()))
		syndromeCoefficients[twoS-1-i] = eval
		if eval != 0 {
			noError = false
		}
	}
	if noError && len(erasurePositions) == 0 {
		return 0, nil
	}

	syndrome := newGenericGFPoly(d.field, syndromeCoefficients)

	erasureLocator := d.field.One()
	for _, pos := range erasurePositions {
		x := d.field.Exp(len(received) - 1 - pos)
		factor := newGenericGFPoly(d.field, []int{x, 1})
		erasureLocator = erasureLocator.MultiplyPoly(factor)
	}

	modifiedSyndrome := truncateModXN(syndrome.MultiplyPoly(erasureLocator), twoS)

	threshold := twoS + len(erasurePositions)
	tauOmega, err := d.runEuclideanAlgorithm(d.field.BuildMonomial(twoS, 1), modifiedSyndrome, threshold)
	if err != nil {
		return 0, err
	}
	tau := tauOmega[0]
	omega := tauOmega[1]

	sigma := erasureLocator.MultiplyPoly(tau)
	errorLocations, err := d.findErrorLocations(sigma)
	if err != nil {
		return 0, err
	}
	errorMagnitudes := d.findErrorMagnitudes(omega, errorLocations)
	for i := 0; i < len(errorLocations); i++ {
		position := len(received) - 1 - d.field.Log(errorLocations[i])
		if position < 0 || position >= len(received) {
			return 0, ErrReedSolomon
		}
		received[position] = AddOrSubtract(received[position], errorMagnitudes[i])
	}
	return len(errorLocations), nil
}

// truncateModXN drops terms of degree >= n, i.e. reduces p mod x^n.
func truncateModXN(p *GenericGFPoly, n int) *GenericGFPoly {
	coeffs := p.Coefficients()
	if len(coeffs) <= n {
		return p
	}
	return newGenericGFPoly(p.field, coeffs[len(coeffs)-n:])
}

func (d *Decoder) runEuclideanAlgorithm(a, b *GenericGFPoly, R int) ([2]*GenericGFPoly, error) {
	if a.Degree() < b.Degree() {
		a, b = b, a
	}

	rLast := a
	r := b
	tLast := d.field.Zero()
	t := d.field.One()

	for 2*r.Degree() >= R {
		rLastLast := rLast
		tLastLast := tLast
		rLast = r
		tLast = t

		if rLast.IsZero() {
			return [2]*GenericGFPoly{}, ErrReedSolomon
		}
		r = rLastLast
		q := d.field.Zero()
		denominatorLeadingTerm := rLast.GetCoefficient(rLast.Degree())
		dltInverse := d.field.Inverse(denominatorLeadingTerm)
		for r.Degree() >= rLast.Degree() && !r.IsZero() {
			degreeDiff := r.Degree() - rLast.Degree()
			scale := d.field.Multiply(r.GetCoefficient(r.Degree()), dltInverse)
			q = q.AddOrSubtractPoly(d.field.BuildMonomial(degreeDiff, scale))
			r = r.AddOrSubtractPoly(rLast.MultiplyByMonomial(degreeDiff, scale))
		}

		t = q.MultiplyPoly(tLast).AddOrSubtractPoly(tLastLast)

		if r.Degree() >= rLast.Degree() {
			return [2]*GenericGFPoly{}, ErrReedSolomon
		}
	}

	sigmaTildeAtZero := t.GetCoefficient(0)
	if sigmaTildeAtZero == 0 {
		return [2]*GenericGFPoly{}, ErrReedSolomon
	}

	inverse := d.field.Inverse(sigmaTildeAtZero)
	sigma := t.MultiplyScalar(inverse)
	omega := r.MultiplyScalar(inverse)
	return [2]*GenericGFPoly{sigma, omega}, nil
}

func (d *Decoder) findErrorLocations(errorLocator *GenericGFPoly) ([]int, error) {
	numErrors := errorLocator.Degree()
	if numErrors == 1 {
		return []int{errorLocator.GetCoefficient(1)}, nil
	}
	result := make([]int, 0, numErrors)
	for i := 1; i < d.field.Size() && len(result) < numErrors; i++ {
		if errorLocator.EvaluateAt(i) == 0 {
			result = append(result, d.field.Inverse(i))
		}
	}
	if len(result) != numErrors {
		return nil, ErrReedSolomon
	}
	return result, nil
}

func (d *Decoder) findErrorMagnitudes(errorEvaluator *GenericGFPoly, errorLocations []int) []int {
	s := len(errorLocations)
	result := make([]int, s)
	for i := 0; i < s; i++ {
		xiInverse := d.field.Inverse(errorLocations[i])
		denominator := 1
		for j := 0; j < s; j++ {
			if i != j {
				term := d.field.Multiply(errorLocations[j], xiInverse)
				termPlus1 := term | 1
				if term&1 != 0 {
					termPlus1 = term &^ 1
				}
				denominator = d.field.Multiply(denominator, termPlus1)
			}
		}
		result[i] = d.field.Multiply(errorEvaluator.EvaluateAt(xiInverse), d.field.Inverse(denominator))
		if d.field.GeneratorBase() != 0 {
			result[i] = d.field.Multiply(result[i], xiInverse)
		}
	}
	return result
}
