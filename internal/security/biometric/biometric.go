// Copyright (c) 2026 Facegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package biometric implements the face verification gate.

The gate answers exactly one question per attempt: does this capture belong
to the account's enrolled template? It is deliberately fail-closed — any
condition that prevents a real comparison (no template enrolled, no face
detectable in the capture, encoder unreachable) yields (false, 0.0), never
an authorization.

# Architecture

  - Encoder: external feature-extraction collaborator (HTTP sidecar).
  - Matcher: pure distance/similarity math over feature vectors.
  - Gate: orchestrates extraction and matching against the threshold.

The threshold is a distance ceiling: a capture authorizes only when its
feature distance to the template is at or below it. Lower values are
stricter.
*/
package biometric

import (
	"context"
	"errors"
	"math"
)

// ErrNoFace is returned by an [Encoder] when no face is detectable in the image.
var ErrNoFace = errors.New("biometric: no face detected in image")

// # Contracts

// Encoder defines the contract for turning an image into a feature vector.
type Encoder interface {
	// Extract converts a base64-encoded image into a feature vector.
	// Returns [ErrNoFace] when the image contains no detectable face.
	Extract(ctx context.Context, imageBase64 string) ([]float64, error)
}

// # Matching

// Distance returns the Euclidean distance between two feature vectors.
//
// Mismatched lengths yield +Inf: vectors from different encoder versions
// must never accidentally authorize.
func Distance(a, b []float64) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return math.Inf(1)
	}

	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

// Similarity converts a feature distance into a [0,1] score for reporting.
// The distance is clamped at 1 so wildly different faces floor at zero.
func Similarity(distance float64) float64 {
	return 1 - math.Min(distance, 1)
}

// # Gate

// Verdict is the outcome of one gate check.
type Verdict struct {
	// Authorized reports whether the capture matched the enrolled template.
	Authorized bool
	// Similarity is the reported score in [0,1]. Zero when no comparison
	// happened.
	Similarity float64
	// Checked reports whether a real comparison took place. False means the
	// gate failed closed before comparing.
	Checked bool
}

// Gate verifies captures against enrolled templates.
type Gate struct {
	encoder Encoder
	// threshold is the maximum authorized distance (lower = stricter).
	threshold float64
}

// NewGate constructs a [Gate] with the given encoder and distance threshold.
func NewGate(encoder Encoder, threshold float64) *Gate {
	return &Gate{encoder: encoder, threshold: threshold}
}

/*
Check verifies a capture against an account's enrolled template.

Description: Fail-closed on every degraded path. A missing template, an
undetectable face, or an encoder failure all return an unauthorized verdict
with zero similarity; the error return is reserved for the encoder-failure
case so callers can log it.

Parameters:
  - ctx: context.Context
  - template: []float64 (enrolled feature vector; empty = never authorized)
  - captureBase64: string (the submitted face image)

Returns:
  - Verdict: Authorization outcome and similarity score
  - error: Encoder transport failures (verdict is already fail-closed)
*/
func (gate *Gate) Check(ctx context.Context, template []float64, captureBase64 string) (Verdict, error) {

	// No enrolled template: nothing to compare against, fail closed.
	if len(template) == 0 {
		return Verdict{}, nil
	}

	features, err := gate.encoder.Extract(ctx, captureBase64)
	if err != nil {
		if errors.Is(err, ErrNoFace) {
			// Undetectable face is a normal outcome, not a transport error.
			return Verdict{Checked: true}, nil
		}
		return Verdict{}, err
	}

	distance := Distance(template, features)

	return Verdict{
		Authorized: distance <= gate.threshold,
		Similarity: Similarity(distance),
		Checked:    true,
	}, nil
}
