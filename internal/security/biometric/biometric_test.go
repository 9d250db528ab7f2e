// Copyright (c) 2026 Facegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package biometric_test

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/facegate/internal/security/biometric"
)

// scriptedEncoder returns a fixed vector or error for every extraction.
type scriptedEncoder struct {
	features []float64
	err      error
}

func (e *scriptedEncoder) Extract(_ context.Context, _ string) ([]float64, error) {
	return e.features, e.err
}

/*
TestDistance covers the Euclidean distance math, including the poisoned
cases that must never accidentally authorize.
*/
func TestDistance(t *testing.T) {
	tests := []struct {
		name string
		a    []float64
		b    []float64
		want float64
	}{
		{"identical_vectors", []float64{1, 2, 3}, []float64{1, 2, 3}, 0},
		{"unit_apart", []float64{0, 0}, []float64{1, 0}, 1},
		{"pythagorean", []float64{0, 0}, []float64{3, 4}, 5},
		{"mismatched_lengths", []float64{1, 2}, []float64{1, 2, 3}, math.Inf(1)},
		{"empty_template", nil, []float64{1, 2}, math.Inf(1)},
		{"both_empty", nil, nil, math.Inf(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, biometric.Distance(tt.a, tt.b))
		})
	}
}

/*
TestSimilarity checks the distance-to-score conversion and its clamping.
*/
func TestSimilarity(t *testing.T) {
	assert.Equal(t, 1.0, biometric.Similarity(0))
	assert.InDelta(t, 0.6, biometric.Similarity(0.4), 1e-9)
	assert.Equal(t, 0.0, biometric.Similarity(1))

	// Distances past 1 floor at zero rather than going negative.
	assert.Equal(t, 0.0, biometric.Similarity(7.5))
	assert.Equal(t, 0.0, biometric.Similarity(math.Inf(1)))
}

/*
TestGate_Check_Authorizes verifies the positive path: a capture close enough
to the template authorizes with the derived similarity.
*/
func TestGate_Check_Authorizes(t *testing.T) {
	template := []float64{0.5, 0.5, 0.5}
	encoder := &scriptedEncoder{features: []float64{0.5, 0.5, 0.6}}
	gate := biometric.NewGate(encoder, 0.6)

	verdict, err := gate.Check(context.Background(), template, "capture")
	require.NoError(t, err)

	assert.True(t, verdict.Authorized)
	assert.True(t, verdict.Checked)
	assert.InDelta(t, 0.9, verdict.Similarity, 1e-9)
}

/*
TestGate_Check_RejectsDistantCapture verifies that a capture past the
distance ceiling is checked but not authorized.
*/
func TestGate_Check_RejectsDistantCapture(t *testing.T) {
	template := []float64{0, 0, 0}
	encoder := &scriptedEncoder{features: []float64{1, 1, 1}}
	gate := biometric.NewGate(encoder, 0.6)

	verdict, err := gate.Check(context.Background(), template, "capture")
	require.NoError(t, err)

	assert.False(t, verdict.Authorized)
	assert.True(t, verdict.Checked)
	assert.Equal(t, 0.0, verdict.Similarity)
}

/*
TestGate_Check_FailClosed walks every degraded path and asserts none of
them authorizes.
*/
func TestGate_Check_FailClosed(t *testing.T) {
	t.Run("no_enrolled_template", func(t *testing.T) {
		gate := biometric.NewGate(&scriptedEncoder{features: []float64{1}}, 0.6)

		verdict, err := gate.Check(context.Background(), nil, "capture")
		require.NoError(t, err)
		assert.Equal(t, biometric.Verdict{}, verdict)
	})

	t.Run("no_face_in_capture", func(t *testing.T) {
		gate := biometric.NewGate(&scriptedEncoder{err: biometric.ErrNoFace}, 0.6)

		verdict, err := gate.Check(context.Background(), []float64{1, 2}, "capture")
		require.NoError(t, err)

		// The check happened; it just found nothing to authorize.
		assert.True(t, verdict.Checked)
		assert.False(t, verdict.Authorized)
		assert.Equal(t, 0.0, verdict.Similarity)
	})

	t.Run("encoder_failure", func(t *testing.T) {
		boom := errors.New("encoder unreachable")
		gate := biometric.NewGate(&scriptedEncoder{err: boom}, 0.6)

		verdict, err := gate.Check(context.Background(), []float64{1, 2}, "capture")
		require.ErrorIs(t, err, boom)
		assert.Equal(t, biometric.Verdict{}, verdict)
	})

	t.Run("encoder_version_mismatch", func(t *testing.T) {
		// A shorter vector from an older encoder build must never match.
		gate := biometric.NewGate(&scriptedEncoder{features: []float64{1, 2}}, 0.6)

		verdict, err := gate.Check(context.Background(), []float64{1, 2, 3}, "capture")
		require.NoError(t, err)
		assert.False(t, verdict.Authorized)
		assert.True(t, verdict.Checked)
	})
}
