// Copyright (c) 2026 Facegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package normalize canonicalizes identity attributes before they are used
// as lookup keys or compared.
//
// # Usage
//
// Emails are normalized once at the API boundary and stored lowercase; every
// ledger, lockout, and session query then matches on the canonical form.
// Display names are compared case-insensitively but stored as entered.
package normalize

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// caseFolder performs locale-independent case folding, which handles
// characters plain ToLower gets wrong (e.g. İ, ẞ).
var caseFolder = cases.Fold()

// Email canonicalizes an email address into its lookup-key form.
//
// # Transformation Pipeline
//
// 1. Trims surrounding whitespace.
// 2. Normalizes to NFKC (compatibility forms: fullwidth ＠ → @).
// 3. Case-folds the whole address.
//
// The local part is folded along with the domain. Mailbox-local case
// sensitivity is a theoretical RFC allowance no mainstream provider honors,
// and a case-sensitive key would let one mailbox register twice.
func Email(raw string) string {
	s := strings.TrimSpace(raw)
	s = norm.NFKC.String(s)
	return caseFolder.String(s)
}

// Name canonicalizes a display name for comparison only.
//
// The stored value keeps the user's casing; this form is used when deciding
// whether two names refer to the same person.
func Name(raw string) string {
	s := strings.TrimSpace(raw)
	s = norm.NFKC.String(s)
	return caseFolder.String(s)
}

// EqualNames reports whether two display names are the same under
// case-insensitive comparison.
func EqualNames(a, b string) bool {
	return Name(a) == Name(b)
}
