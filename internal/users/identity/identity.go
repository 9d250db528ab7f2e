// Copyright (c) 2026 Facegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package identity implements the registered-account layer.

It defines the core Identity entity and the enrollment logic that creates
accounts, hashes credentials, and stores the authorized face template the
biometric gate compares captures against.

# Architecture

This layer is the "Truth" of the system. Entities defined here have no external
dependencies and encapsulate all business rules related to account identity.
*/
package identity

import (
	"time"
)

// # Domain Entities

// Identity represents a registered account protected by the gate.
//
// Email is the lookup key everywhere and is stored lowercase. Name keeps the
// user's casing but is always compared case-insensitively.
type Identity struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Explicitly omitted from JSON for security.
	FaceTemplate []float64 `json:"-"` // Authorized face feature vector. Omitted for security.
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// HasFaceTemplate reports whether an authorized face template is enrolled.
//
// Without one the biometric gate can never authorize a capture (fail closed).
func (identity *Identity) HasFaceTemplate() bool {
	return len(identity.FaceTemplate) > 0
}

// # Field Identifiers

// Global field names for validation and identity mapping in the identity domain.
const (
	FieldName      = "name"
	FieldEmail     = "email"
	FieldPassword  = "password"
	FieldFaceImage = "face_image"
)
