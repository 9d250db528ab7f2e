// Copyright (c) 2026 Facegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package biometric

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// # Encoder Sidecar Client

// HTTPEncoder implements [Encoder] against the feature-extraction sidecar.
//
// The sidecar exposes a single POST /encode endpoint that accepts a base64
// image and returns either a feature vector or a no-face marker. Keeping
// extraction out-of-process isolates the heavy model runtime from the API
// server's memory and deploy cycle.
type HTTPEncoder struct {
	baseURL string
	client  *http.Client
}

// NewHTTPEncoder constructs a sidecar-backed [Encoder].
//
// # Parameters
//   - baseURL: Sidecar base URL (e.g. http://localhost:5100).
//   - timeout: Per-extraction round-trip ceiling.
func NewHTTPEncoder(baseURL string, timeout time.Duration) *HTTPEncoder {
	return &HTTPEncoder{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type encodeRequest struct {
	Image string `json:"image"`
}

type encodeResponse struct {
	Features  []float64 `json:"features"`
	FaceFound bool      `json:"face_found"`
	Error     string    `json:"error,omitempty"`
}

/*
Extract converts a base64-encoded image into a feature vector.

Description: Single round trip to the sidecar. A 2xx response with
face_found = false maps to [ErrNoFace]; any transport or non-2xx outcome is
a wrapped error the gate treats as fail-closed.

Parameters:
  - ctx: context.Context
  - imageBase64: string

Returns:
  - []float64: Extracted feature vector
  - error: ErrNoFace, transport, or decode failures
*/
func (encoder *HTTPEncoder) Extract(ctx context.Context, imageBase64 string) ([]float64, error) {

	payload, err := json.Marshal(encodeRequest{Image: imageBase64})
	if err != nil {
		return nil, fmt.Errorf("biometric_encoder_marshal_failed: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, encoder.baseURL+"/encode", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("biometric_encoder_request_failed: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := encoder.client.Do(request)
	if err != nil {
		return nil, fmt.Errorf("biometric_encoder_round_trip_failed: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, response.Body)
		_ = response.Body.Close()
	}()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		return nil, fmt.Errorf("biometric_encoder_bad_status: %d", response.StatusCode)
	}

	var decoded encodeResponse
	if err := json.NewDecoder(response.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("biometric_encoder_decode_failed: %w", err)
	}

	if !decoded.FaceFound || len(decoded.Features) == 0 {
		return nil, ErrNoFace
	}

	return decoded.Features, nil
}
