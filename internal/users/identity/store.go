// Copyright (c) 2026 Facegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package identity

import (
	"context"
)

// # Identity Data Access

// Repository defines the data access contract for registered accounts.
type Repository interface {

	/*
		FindByID returns the account with the given ID.

		Parameters:
		  - context: context.Context
		  - id: string

		Returns:
		  - *Identity: Hydrated entity
		  - error: Database retrieval failures
	*/
	FindByID(context context.Context, id string) (*Identity, error)

	/*
		FindByEmail returns the account with the given lowercase email.

		Parameters:
		  - context: context.Context
		  - email: string

		Returns:
		  - *Identity: Hydrated entity
		  - error: Database retrieval failures
	*/
	FindByEmail(context context.Context, email string) (*Identity, error)

	/*
		Create persists a brand-new account to the storage.

		Parameters:
		  - context: context.Context
		  - identity: *Identity

		Returns:
		  - error: Persistence failures
	*/
	Create(context context.Context, identity *Identity) error

	/*
		UpdateFaceTemplate replaces only the account's authorized face template.

		Parameters:
		  - context: context.Context
		  - identityID: string
		  - template: []float64

		Returns:
		  - error: Persistence failures
	*/
	UpdateFaceTemplate(context context.Context, identityID string, template []float64) error

	/*
		Count returns the total number of registered accounts.

		Parameters:
		  - context: context.Context

		Returns:
		  - int: Account count
		  - error: Database retrieval failures
	*/
	Count(context context.Context) (int, error)
}
