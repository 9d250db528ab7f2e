// Copyright (c) 2026 Facegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package attempt implements the append-only login attempt ledger.

Every login request — success or failure, known account or not — lands here
as one immutable row. The escalation policy never keeps counters in memory;
it derives the current escalation state by querying this ledger inside the
trailing failure window.

# Architecture

The ledger is written exactly once per attempt and never updated. Failure
counts decay purely by rows aging out of the query window, which is why a
successful login does not (and must not) reset anything.
*/
package attempt

import (
	"time"
)

// # Domain Entities

// Record is a single immutable login attempt.
type Record struct {
	ID string `json:"id"`
	// Email is the canonical (lowercase) identity key the attempt targeted.
	// Unknown identities are recorded too; the ledger does not care whether
	// the account exists.
	Email string `json:"email"`
	// Name is the display name exactly as submitted by the client.
	Name string `json:"name"`
	// Success reports whether the credential check passed.
	Success bool `json:"success"`
	// FaceImage is the base64 capture submitted with the attempt, if any.
	// Retained as evidence for lockout alerts.
	FaceImage string `json:"-"`
	// FaceChecked reports whether the biometric gate evaluated a capture.
	FaceChecked bool `json:"face_checked"`
	// FaceAuthorized is the gate verdict. Only meaningful when FaceChecked.
	FaceAuthorized bool `json:"face_authorized"`
	// Similarity is the gate's similarity score in [0,1]. Zero when no
	// comparison happened (fail closed).
	Similarity float64 `json:"similarity"`
	// IPAddress is the client address the attempt arrived from.
	IPAddress string `json:"ip_address"`
	// Latitude and Longitude are the client-reported coordinates, when the
	// client chose to send them. Zero values mean "not reported".
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	CreatedAt time.Time `json:"created_at"`
}

// HasCapture reports whether the attempt carried a face image.
func (record *Record) HasCapture() bool {
	return record.FaceImage != ""
}
