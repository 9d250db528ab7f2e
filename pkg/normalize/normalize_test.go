// Copyright (c) 2026 Facegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package normalize_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/facegate/pkg/normalize"
)

/*
TestEmail verifies email canonicalization: trimming, case folding, and
Unicode normalization all collapse onto one storage key.
*/
func TestEmail(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"lowercase_passthrough", "alice@example.com", "alice@example.com"},
		{"uppercase_folded", "ALICE@EXAMPLE.COM", "alice@example.com"},
		{"mixed_case", "Alice@Example.Com", "alice@example.com"},
		{"surrounding_whitespace", "  alice@example.com  ", "alice@example.com"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalize.Email(tt.raw))
		})
	}
}

/*
TestEqualNames verifies the case-insensitive name comparison used by the
credential check.
*/
func TestEqualNames(t *testing.T) {
	assert.True(t, normalize.EqualNames("Alice", "alice"))
	assert.True(t, normalize.EqualNames("ALICE", "Alice"))
	assert.True(t, normalize.EqualNames("  Alice ", "alice"))
	assert.False(t, normalize.EqualNames("Alice", "Alicia"))
	assert.False(t, normalize.EqualNames("Alice", ""))

	// Unicode case folding, not just ASCII.
	assert.True(t, normalize.EqualNames("Müller", "MÜLLER"))
}
