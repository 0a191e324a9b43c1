// Finrec - Financial Product Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/finrec

package scoring

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/tomtom215/finrec/internal/recommend"
)

// ErrNotTrained is returned by Predict before a model is fitted or loaded.
var ErrNotTrained = errors.New("scorer not trained")

// ErrInsufficientSamples is returned when Fit receives too few samples.
var ErrInsufficientSamples = errors.New("insufficient training samples")

// minSamples is the smallest training set Fit accepts.
const minSamples = NumFeatures + 1

// Sample is one labeled training example.
type Sample struct {
	Profile recommend.UserProfile
	Product recommend.ProductDefinition

	// Label is the observed conversion rate in [0,1].
	Label float64
}

// LinearState is the serializable state of a LinearScorer.
type LinearState struct {
	Weights   []float64
	Intercept float64
	Means     []float64
	Scales    []float64
	Lambda    float64
	Samples   int
	TrainedAt time.Time
}

// LinearScorer is a ridge regression over standardized features.
// It is safe for concurrent use; Fit takes an exclusive lock and Predict a
// shared one.
type LinearScorer struct {
	mu     sync.RWMutex
	lambda float64
	state  *LinearState
}

var _ Scorer = (*LinearScorer)(nil)

// NewLinearScorer creates an untrained scorer with the given L2 penalty.
func NewLinearScorer(lambda float64) *LinearScorer {
	if lambda <= 0 {
		lambda = 1.0
	}
	return &LinearScorer{lambda: lambda}
}

// NewLinearScorerFromState restores a fitted scorer.
func NewLinearScorerFromState(state *LinearState) (*LinearScorer, error) {
	if state == nil || len(state.Weights) != NumFeatures || len(state.Means) != NumFeatures || len(state.Scales) != NumFeatures {
		return nil, fmt.Errorf("restore scorer: state has wrong dimensions")
	}
	s := *state
	return &LinearScorer{lambda: state.Lambda, state: &s}, nil
}

// IsTrained reports whether the scorer has a fitted state.
func (l *LinearScorer) IsTrained() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state != nil
}

// State returns a copy of the fitted state, or nil.
func (l *LinearScorer) State() *LinearState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.state == nil {
		return nil
	}
	s := *l.state
	s.Weights = append([]float64(nil), l.state.Weights...)
	s.Means = append([]float64(nil), l.state.Means...)
	s.Scales = append([]float64(nil), l.state.Scales...)
	return &s
}

// Fit trains the scorer on labeled samples.
func (l *LinearScorer) Fit(ctx context.Context, samples []Sample) error {
	if len(samples) < minSamples {
		return fmt.Errorf("fit scorer: %w: have %d, need %d", ErrInsufficientSamples, len(samples), minSamples)
	}

	n := len(samples)
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := range samples {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("fit scorer: %w", err)
			}
		}
		X[i] = Features(&samples[i].Profile, &samples[i].Product)
		y[i] = clamp01(samples[i].Label)
	}

	means, scales := standardize(X)
	yMean := 0.0
	for _, v := range y {
		yMean += v
	}
	yMean /= float64(n)

	// Normal equations (XᵀX + λI) w = Xᵀ(y - ȳ)
	A := make([][]float64, NumFeatures)
	for i := range A {
		A[i] = make([]float64, NumFeatures)
	}
	b := make([]float64, NumFeatures)
	for r := 0; r < n; r++ {
		for i := 0; i < NumFeatures; i++ {
			b[i] += X[r][i] * (y[r] - yMean)
			for j := 0; j <= i; j++ {
				A[i][j] += X[r][i] * X[r][j]
			}
		}
	}
	for i := 0; i < NumFeatures; i++ {
		for j := 0; j < i; j++ {
			A[j][i] = A[i][j]
		}
		A[i][i] += l.lambda
	}

	w, err := choleskySolve(A, b)
	if err != nil {
		return fmt.Errorf("fit scorer: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = &LinearState{
		Weights:   w,
		Intercept: yMean,
		Means:     means,
		Scales:    scales,
		Lambda:    l.lambda,
		Samples:   n,
		TrainedAt: time.Now(),
	}
	return nil
}

// Predict implements Scorer. Predictions are clipped to [0,1].
func (l *LinearScorer) Predict(ctx context.Context, p *recommend.UserProfile, prod *recommend.ProductDefinition) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.state == nil {
		return 0, ErrNotTrained
	}

	x := Features(p, prod)
	out := l.state.Intercept
	for i, v := range x {
		out += l.state.Weights[i] * (v - l.state.Means[i]) / l.state.Scales[i]
	}
	return clamp01(out), nil
}

// standardize centers and scales X in place, returning the column means and
// scales. Constant columns get a scale of 1.
func standardize(X [][]float64) (means, scales []float64) {
	n := float64(len(X))
	means = make([]float64, NumFeatures)
	scales = make([]float64, NumFeatures)
	for _, row := range X {
		for j, v := range row {
			means[j] += v
		}
	}
	for j := range means {
		means[j] /= n
	}
	for _, row := range X {
		for j, v := range row {
			d := v - means[j]
			scales[j] += d * d
		}
	}
	for j := range scales {
		scales[j] = math.Sqrt(scales[j] / n)
		if scales[j] < 1e-12 {
			scales[j] = 1
		}
	}
	for _, row := range X {
		for j := range row {
			row[j] = (row[j] - means[j]) / scales[j]
		}
	}
	return means, scales
}

// choleskySolve solves A x = b for symmetric positive definite A.
//
//nolint:gocritic // A follows standard linear algebra notation
func choleskySolve(A [][]float64, b []float64) ([]float64, error) {
	n := len(A)
	L := make([][]float64, n)
	for i := range L {
		L[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := 0; j <= i; j++ {
			sum := A[i][j]
			for k := 0; k < j; k++ {
				sum -= L[i][k] * L[j][k]
			}
			if i == j {
				if sum <= 0 {
					return nil, fmt.Errorf("matrix is not positive definite")
				}
				L[i][j] = math.Sqrt(sum)
			} else {
				L[i][j] = sum / L[j][j]
			}
		}
	}

	// Forward substitution L z = b, then back substitution Lᵀ x = z.
	z := make([]float64, n)
	for i := 0; i < n; i++ {
		sum := b[i]
		for k := 0; k < i; k++ {
			sum -= L[i][k] * z[k]
		}
		z[i] = sum / L[i][i]
	}
	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		sum := z[i]
		for k := i + 1; k < n; k++ {
			sum -= L[k][i] * x[k]
		}
		x[i] = sum / L[i][i]
	}
	return x, nil
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
