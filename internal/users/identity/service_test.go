// Copyright (c) 2026 Facegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package identity_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/facegate/internal/platform/apperr"
	"github.com/taibuivan/facegate/internal/users/identity"
)

// # Fakes

type memoryRepository struct {
	byEmail map[string]*identity.Identity
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{byEmail: make(map[string]*identity.Identity)}
}

func (r *memoryRepository) FindByID(_ context.Context, id string) (*identity.Identity, error) {
	for _, entity := range r.byEmail {
		if entity.ID == id {
			return entity, nil
		}
	}
	return nil, apperr.NotFound("Account")
}

func (r *memoryRepository) FindByEmail(_ context.Context, email string) (*identity.Identity, error) {
	if entity, ok := r.byEmail[email]; ok {
		return entity, nil
	}
	return nil, apperr.NotFound("Account")
}

func (r *memoryRepository) Create(_ context.Context, entity *identity.Identity) error {
	r.byEmail[entity.Email] = entity
	return nil
}

func (r *memoryRepository) UpdateFaceTemplate(_ context.Context, identityID string, template []float64) error {
	for _, entity := range r.byEmail {
		if entity.ID == identityID {
			entity.FaceTemplate = template
			return nil
		}
	}
	return apperr.NotFound("Account")
}

func (r *memoryRepository) Count(_ context.Context) (int, error) {
	return len(r.byEmail), nil
}

type stubExtractor struct {
	features []float64
	err      error
}

func (e *stubExtractor) Extract(_ context.Context, _ string) ([]float64, error) {
	return e.features, e.err
}

const capture = "aGVsbG8gd29ybGQ="

func validInput() identity.RegisterInput {
	return identity.RegisterInput{
		Name:     "Alice",
		Email:    "alice@example.com",
		Password: "correct-horse",
	}
}

// # Tests

/*
TestService_Register verifies the enrollment happy path: hashed password,
canonical email, and an extracted face template.
*/
func TestService_Register(t *testing.T) {
	repository := newMemoryRepository()
	service := identity.NewService(repository, &stubExtractor{features: []float64{0.1, 0.2}}, 6)

	input := validInput()
	input.Email = "Alice@Example.COM"
	input.FaceImage = capture

	entity, err := service.Register(context.Background(), input)
	require.NoError(t, err)

	assert.NotEmpty(t, entity.ID)
	assert.Equal(t, "alice@example.com", entity.Email)
	assert.NotEqual(t, "correct-horse", entity.PasswordHash)
	assert.Equal(t, []float64{0.1, 0.2}, entity.FaceTemplate)
	assert.True(t, entity.HasFaceTemplate())

	// The stored hash verifies against the original password.
	assert.True(t, service.CheckCredentials(entity, "correct-horse"))
	assert.False(t, service.CheckCredentials(entity, "wrong-horse"))
}

/*
TestService_Register_Validation walks the rejection cases.
*/
func TestService_Register_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*identity.RegisterInput)
	}{
		{"missing_name", func(i *identity.RegisterInput) { i.Name = "" }},
		{"bad_email", func(i *identity.RegisterInput) { i.Email = "not-an-email" }},
		{"short_password", func(i *identity.RegisterInput) { i.Password = "abc" }},
		{"bad_face_image", func(i *identity.RegisterInput) { i.FaceImage = "!!not-base64!!" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := identity.NewService(newMemoryRepository(), &stubExtractor{}, 6)

			input := validInput()
			tt.mutate(&input)

			_, err := service.Register(context.Background(), input)
			require.Error(t, err)

			ae := apperr.As(err)
			require.NotNil(t, ae)
			assert.Equal(t, "VALIDATION_ERROR", ae.Code)
		})
	}
}

/*
TestService_Register_DuplicateEmail verifies that a second enrollment under
the same mailbox is rejected with a conflict, regardless of casing.
*/
func TestService_Register_DuplicateEmail(t *testing.T) {
	service := identity.NewService(newMemoryRepository(), &stubExtractor{}, 6)
	ctx := context.Background()

	_, err := service.Register(ctx, validInput())
	require.NoError(t, err)

	input := validInput()
	input.Email = "ALICE@example.com"

	_, err = service.Register(ctx, input)
	require.Error(t, err)

	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "CONFLICT", ae.Code)
}

// racingRepository simulates a concurrent duplicate enrollment: the lookup
// sees nothing, but the insert trips the unique index, which the store maps
// to a conflict.
type racingRepository struct {
	*memoryRepository
}

func (r *racingRepository) FindByEmail(_ context.Context, _ string) (*identity.Identity, error) {
	return nil, apperr.NotFound("Account")
}

func (r *racingRepository) Create(_ context.Context, _ *identity.Identity) error {
	return apperr.Conflict("Email is already registered")
}

/*
TestService_Register_ConcurrentDuplicateIsConflict verifies that a duplicate
slipping past the uniqueness lookup still surfaces as a conflict, not as an
internal storage error.
*/
func TestService_Register_ConcurrentDuplicateIsConflict(t *testing.T) {
	repository := &racingRepository{memoryRepository: newMemoryRepository()}
	service := identity.NewService(repository, &stubExtractor{}, 6)

	_, err := service.Register(context.Background(), validInput())
	require.Error(t, err)

	ae := apperr.As(err)
	require.NotNil(t, ae)
	assert.Equal(t, "CONFLICT", ae.Code)
}

/*
TestService_Register_ExtractionFailureIsNotFatal verifies that a capture the
encoder cannot process still enrolls the account, just without a template.
*/
func TestService_Register_ExtractionFailureIsNotFatal(t *testing.T) {
	service := identity.NewService(newMemoryRepository(), &stubExtractor{err: errors.New("no face detected")}, 6)

	input := validInput()
	input.FaceImage = capture

	entity, err := service.Register(context.Background(), input)
	require.NoError(t, err)
	assert.False(t, entity.HasFaceTemplate())
}

/*
TestService_FindByEmail verifies lookup goes through email canonicalization.
*/
func TestService_FindByEmail(t *testing.T) {
	service := identity.NewService(newMemoryRepository(), &stubExtractor{}, 6)
	ctx := context.Background()

	_, err := service.Register(ctx, validInput())
	require.NoError(t, err)

	entity, err := service.FindByEmail(ctx, "  ALICE@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", entity.Email)
}
