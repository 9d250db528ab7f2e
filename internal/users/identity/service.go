// Copyright (c) 2026 Facegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package identity

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/taibuivan/facegate/internal/platform/apperr"
	"github.com/taibuivan/facegate/internal/platform/ctxutil"
	"github.com/taibuivan/facegate/internal/platform/sec"
	"github.com/taibuivan/facegate/internal/platform/validate"
	"github.com/taibuivan/facegate/pkg/normalize"
	"github.com/taibuivan/facegate/pkg/uuid"
)

// # Contracts & Types

// TemplateExtractor defines the contract for turning a face capture into a
// feature vector during enrollment.
//
// # Why an interface?
//
// Enrollment only needs extraction, never matching. Depending on this narrow
// contract keeps the identity layer ignorant of thresholds and comparison
// logic, and lets tests enroll accounts without a live encoder sidecar.
type TemplateExtractor interface {
	// Extract converts a base64-encoded image into a feature vector.
	// It returns an error when no face is detectable in the image.
	Extract(ctx context.Context, imageBase64 string) ([]float64, error)
}

// Service implements account enrollment use cases.
//
// # Review Process
//
// This service is critical for security. Any changes to hashing or
// enrollment logic must be reviewed by the security team.
type Service struct {
	repository     Repository
	extractor      TemplateExtractor
	minPasswordLen int
}

// NewService constructs a new identity [Service] with necessary dependencies.
func NewService(repository Repository, extractor TemplateExtractor, minPasswordLen int) *Service {
	return &Service{
		repository:     repository,
		extractor:      extractor,
		minPasswordLen: minPasswordLen,
	}
}

// # Enrollment Flow

// RegisterInput holds the data required to enroll a new account.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	// FaceImage is an optional base64-encoded enrollment capture. Without it
	// the account has no authorized template and the gate fails closed on
	// every face check.
	FaceImage string
}

/*
Register validates, hashes, and persists a brand new account.

Description: Deep-enrollment of a new account, handling password hashing,
email canonicalization, and optional face template extraction.

Parameters:
  - context: context.Context
  - input: RegisterInput

Returns:
  - *Identity: Created entity
  - error: Conflict (if email exists), validation, or storage errors
*/
func (service *Service) Register(context context.Context, input RegisterInput) (*Identity, error) {

	// Canonicalize the email before any lookup or persistence.
	email := normalize.Email(input.Email)

	// Validate the enrollment payload.
	v := &validate.Validator{}
	v.Required(FieldName, input.Name).MaxLen(FieldName, input.Name, 100)
	v.Required(FieldEmail, email).Email(FieldEmail, email)
	v.Required(FieldPassword, input.Password).MinLen(FieldPassword, input.Password, service.minPasswordLen)
	if input.FaceImage != "" {
		v.Base64Image(FieldFaceImage, input.FaceImage)
	}
	if err := v.Err(); err != nil {
		return nil, err
	}

	// Verify email uniqueness. Return a client-safe Conflict error.
	_, err := service.repository.FindByEmail(context, email)
	if err == nil {
		return nil, apperr.Conflict("Email is already registered")
	}

	// Prevent storing plain-text passwords. Default cost is used for balance
	// between security and CPU utilization during registration spikes.
	hashedPassword, err := sec.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("identity_service_hash_failed: %w", err)
	}

	// Extract the authorized face template when an enrollment capture was
	// provided. Enrollment proceeds without one; the account simply cannot
	// pass the biometric gate until a template exists.
	var template []float64
	if input.FaceImage != "" {
		template, err = service.extractor.Extract(context, input.FaceImage)
		if err != nil {
			ctxutil.GetLogger(context).Warn("identity_enrollment_face_skipped",
				slog.String("email", email),
				slog.Any("error", err),
			)
			template = nil
		}
	}

	// Construct the new Identity entity. Time-sortable ID to prevent PG index fragmentation.
	identity := &Identity{
		ID:           uuid.New(),
		Name:         input.Name,
		Email:        email,
		PasswordHash: hashedPassword,
		FaceTemplate: template,
	}

	// Persist the account to the database. A concurrent duplicate enrollment
	// can slip past the lookup above; the store maps the unique violation to
	// a Conflict, which passes through untouched.
	if err := service.repository.Create(context, identity); err != nil {
		if apperr.IsAppError(err) {
			return nil, err
		}
		return nil, fmt.Errorf("identity_service_register_failed: %w", err)
	}

	return identity, nil
}

// # Lookup

/*
FindByEmail resolves an account by its canonical email.

Parameters:
  - context: context.Context
  - email: string (any casing; canonicalized internally)

Returns:
  - *Identity: Hydrated entity
  - error: apperr.NotFound or storage errors
*/
func (service *Service) FindByEmail(context context.Context, email string) (*Identity, error) {
	return service.repository.FindByEmail(context, normalize.Email(email))
}

/*
CheckCredentials performs the constant-time password comparison for an account.

Description: Pure comparison; the escalation policy owns the decision of what
a mismatch means.

Parameters:
  - identity: *Identity
  - password: string

Returns:
  - bool: true when the password matches the stored hash
*/
func (service *Service) CheckCredentials(identity *Identity, password string) bool {
	return sec.CheckPasswordHash(password, identity.PasswordHash)
}

/*
Count returns the total number of registered accounts.

Parameters:
  - context: context.Context

Returns:
  - int: Account count
  - error: Storage errors
*/
func (service *Service) Count(context context.Context) (int, error) {
	return service.repository.Count(context)
}
