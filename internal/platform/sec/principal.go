// Copyright (c) 2026 Facegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

// Principal identifies the authenticated caller of a request.
//
// It is resolved by the session middleware from a bearer token and attached
// to the request context. Handlers never see the token itself, only the
// identity it proved.
type Principal struct {
	// IdentityID is the UUID of the authenticated account.
	IdentityID string
	// Email is the account's lowercase email, the lookup key everywhere.
	Email string
	// Name is the display name registered with the account.
	Name string
}
