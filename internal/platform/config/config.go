// Copyright (c) 2026 Facegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package config handles application-wide settings and environment parsing.

It leverages 'caarlos0/env' to map OS environment variables into a strongly-typed
Go struct, providing early validation and default values.

Usage:

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}

Architecture:

  - Immutability: Once loaded, configuration is read-only.
  - DI-Friendly: Passed to core components (DB, Redis, Policy) via constructors.
  - Zero Hidden State: No global variables are used to store config.

Every escalation threshold and window is a tunable here rather than a literal
in the policy, so operators can harden or relax the gate without a rebuild.
*/
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// # Configuration Schema

// Config holds all runtime configuration for the Facegate API server.
type Config struct {

	// Server settings
	ServerPort  string `env:"SERVER_PORT"  envDefault:"8080"`
	Environment string `env:"ENVIRONMENT"  envDefault:"development"`
	Debug       bool   `env:"DEBUG"        envDefault:"false"`

	// Relational Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`

	// MigrationPath is the filesystem path to the SQL migrations directory.
	MigrationPath string `env:"MIGRATION_PATH" envDefault:"./data/migrations"`

	// Key-Value Cache (Redis) — fast session index in front of Postgres.
	RedisURL string `env:"REDIS_URL,required"`

	// # Escalation Policy
	//
	// FaceThreshold is the failed-attempt count (within FailureWindow) at
	// which the next login response starts demanding a face capture.
	FaceThreshold int `env:"FACE_THRESHOLD" envDefault:"3"`

	// LockThreshold is the failed-attempt count at which the account locks.
	LockThreshold int `env:"LOCK_THRESHOLD" envDefault:"6"`

	// FailureWindow is the trailing window over which failures are counted.
	// A success never resets the count; failures only age out of the window.
	FailureWindow time.Duration `env:"FAILURE_WINDOW" envDefault:"1h"`

	// EvidenceWindow bounds how far back unauthorized face captures are
	// collected when assembling lockout evidence.
	EvidenceWindow time.Duration `env:"EVIDENCE_WINDOW" envDefault:"1h"`

	// EvidenceLimit caps how many captured images attach to a lockout alert.
	EvidenceLimit int `env:"EVIDENCE_LIMIT" envDefault:"3"`

	// LockoutDuration is how long a lockout denies all logins. The biometric
	// escalation deployment uses 5h; password-only deployments use 30m.
	LockoutDuration time.Duration `env:"LOCKOUT_DURATION" envDefault:"5h"`

	// # Biometric Matching
	//
	// FaceMatchThreshold is the maximum feature distance for an authorized
	// match, NOT a similarity floor: a LOWER value is STRICTER. The reported
	// similarity score is derived separately (1 - clamped distance). 0.6 is
	// the calibrated default.
	FaceMatchThreshold float64 `env:"FACE_MATCH_THRESHOLD" envDefault:"0.6"`

	// EncoderURL is the endpoint of the feature-extraction sidecar.
	EncoderURL string `env:"ENCODER_URL" envDefault:"http://localhost:5100"`

	// EncoderTimeout bounds a single extraction round trip.
	EncoderTimeout time.Duration `env:"ENCODER_TIMEOUT" envDefault:"5s"`

	// # Sessions
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"24h"`

	// MinPasswordLen is the registration password floor.
	MinPasswordLen int `env:"MIN_PASSWORD_LEN" envDefault:"6"`

	// # Alerting (SMTP)
	SMTPHost     string `env:"SMTP_HOST"     envDefault:"smtp.gmail.com"`
	SMTPPort     int    `env:"SMTP_PORT"     envDefault:"587"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	AdminEmail   string `env:"ADMIN_EMAIL"`

	// # Retention
	//
	// RetentionAge is how long attempt records are kept before the janitor
	// sweep deletes them. Lockout history follows the same horizon.
	RetentionAge time.Duration `env:"RETENTION_AGE" envDefault:"720h"`

	// SweepInterval is how often the janitor runs.
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"1h"`

	// Cross-Origin Resource Sharing
	ExtraOrigins string `env:"EXTRA_ORIGINS"`
}

// # Configuration Loading

// Load parses environment variables into a [Config] struct.
func Load() (*Config, error) {

	// Initialize an empty config struct
	cfg := &Config{}

	// Use the 'env' package to map environment variables to struct fields.
	// This will fail if any field marked with 'required' is missing.
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to parse environment variables: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate rejects configurations the escalation policy cannot run under.
func (c *Config) validate() error {
	if c.FaceThreshold < 1 {
		return fmt.Errorf("config: FACE_THRESHOLD must be >= 1, got %d", c.FaceThreshold)
	}
	if c.LockThreshold <= c.FaceThreshold {
		return fmt.Errorf("config: LOCK_THRESHOLD (%d) must exceed FACE_THRESHOLD (%d)",
			c.LockThreshold, c.FaceThreshold)
	}
	if c.FaceMatchThreshold < 0 || c.FaceMatchThreshold > 1 {
		return fmt.Errorf("config: FACE_MATCH_THRESHOLD must be in [0,1], got %g", c.FaceMatchThreshold)
	}
	return nil
}

// IsDevelopment reports whether the server is running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction reports whether the server is running in production mode.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
