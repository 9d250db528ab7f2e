// Copyright (c) 2026 Facegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package escalation implements the login escalation policy.

The policy is a state machine with no stored state: for every attempt it
derives the account's current posture (open, face required, locked) from the
attempt ledger and the lockout registry, applies the credential and biometric
checks, appends exactly one ledger row, and decides whether the attempt
crossed an alert or lock threshold.

# State Derivation

  - Locked: an active lockout exists. Denied before credentials are read.
  - FaceRequired: failures in the trailing window reached the face
    threshold. Advisory only — a login with correct credentials and no
    capture still succeeds.
  - Open: everything else.

A successful login never resets the failure count. Failures only leave the
picture by aging out of the trailing window, so an attacker cannot probe
slowly behind a victim's own logins.
*/
package escalation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/taibuivan/facegate/internal/platform/ctxutil"
	"github.com/taibuivan/facegate/internal/security/alert"
	"github.com/taibuivan/facegate/internal/security/attempt"
	"github.com/taibuivan/facegate/internal/security/biometric"
	"github.com/taibuivan/facegate/internal/security/lockout"
	"github.com/taibuivan/facegate/internal/users/identity"
	"github.com/taibuivan/facegate/pkg/normalize"
	"github.com/taibuivan/facegate/pkg/uuid"
)

// # Contracts & Types

// AccountDirectory resolves identities by email. Narrowed from the identity
// service so tests can stub account resolution.
type AccountDirectory interface {
	FindByEmail(ctx context.Context, email string) (*identity.Identity, error)
	CheckCredentials(entity *identity.Identity, password string) bool
}

// FaceGate verifies a capture against an enrolled template.
type FaceGate interface {
	Check(ctx context.Context, template []float64, captureBase64 string) (biometric.Verdict, error)
}

// AlertSink accepts alerts for asynchronous persistence and delivery.
type AlertSink interface {
	Enqueue(entry *alert.Alert)
}

// AlertHistory answers whether an alert was already recorded, used to keep
// the suspicious-login warning a one-time event even under request races.
type AlertHistory interface {
	ExistsSince(ctx context.Context, email string, kind alert.Kind, since time.Time) (bool, error)
}

// State is the derived posture of an account at the moment of an attempt.
type State string

const (
	// StateOpen allows normal credential login.
	StateOpen State = "open"
	// StateFaceRequired demands (advisorily) a face capture with the login.
	StateFaceRequired State = "face_required"
	// StateLocked refuses all logins until the lockout expires.
	StateLocked State = "locked"
)

// Thresholds carries the tunable policy parameters.
type Thresholds struct {
	// FaceThreshold is the failure count at which captures are demanded.
	FaceThreshold int
	// LockThreshold is the failure count at which the account locks.
	LockThreshold int
	// FailureWindow is the trailing window failures are counted over.
	FailureWindow time.Duration
	// EvidenceWindow bounds the capture evidence query for lock alerts.
	EvidenceWindow time.Duration
	// EvidenceLimit caps attached captures per lock alert.
	EvidenceLimit int
	// LockoutDuration is the denial window created at lock time.
	LockoutDuration time.Duration
}

// Outcome is the policy's decision for one attempt.
type Outcome struct {
	// State is the posture after this attempt.
	State State
	// Identity is the authenticated account; nil unless the attempt succeeded.
	Identity *identity.Identity
	// FailureCount is the windowed failure total including this attempt.
	FailureCount int
	// AttemptsRemaining is how many more failures reach the lock threshold.
	AttemptsRemaining int
	// FaceRequired reports whether the NEXT attempt should carry a capture.
	FaceRequired bool
	// LockedUntil is the lockout expiry; zero unless State is StateLocked.
	LockedUntil time.Time
}

// Policy evaluates login attempts.
type Policy struct {
	directory  AccountDirectory
	ledger     attempt.Ledger
	registry   lockout.Registry
	gate       FaceGate
	alerts     AlertSink
	history    AlertHistory
	thresholds Thresholds
}

// NewPolicy constructs the escalation [Policy] with its collaborators.
func NewPolicy(
	directory AccountDirectory,
	ledger attempt.Ledger,
	registry lockout.Registry,
	gate FaceGate,
	alerts AlertSink,
	history AlertHistory,
	thresholds Thresholds,
) *Policy {
	return &Policy{
		directory:  directory,
		ledger:     ledger,
		registry:   registry,
		gate:       gate,
		alerts:     alerts,
		history:    history,
		thresholds: thresholds,
	}
}

// # Attempt Evaluation

// AttemptInput is one login request as seen by the policy.
type AttemptInput struct {
	Email     string
	Name      string
	Password  string
	FaceImage string
	IPAddress string
	// Latitude and Longitude are client-reported, optional, and recorded
	// verbatim for the operator's ledger view.
	Latitude  float64
	Longitude float64
}

/*
Evaluate runs one login attempt through the full escalation pipeline.

Description: Derives the pre-attempt state, checks credentials and the
biometric gate, appends the ledger row, re-derives the failure total, and
fires whatever threshold crossings demand. Unknown identity and wrong
password are indistinguishable in the outcome.

Parameters:
  - ctx: context.Context
  - input: AttemptInput

Returns:
  - *Outcome: The policy decision for this attempt
  - error: Storage failures only; a denied login is not an error
*/
func (policy *Policy) Evaluate(ctx context.Context, input AttemptInput) (*Outcome, error) {

	email := normalize.Email(input.Email)
	now := time.Now()
	windowStart := now.Add(-policy.thresholds.FailureWindow)

	// ── 1. Lockout Check ──────────────────────────────────────────────────
	// An active lockout denies before credentials are even read, and the
	// attempt is NOT recorded: a locked account's window must be able to
	// drain while the lock holds.
	active, err := policy.registry.ActiveForEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("escalation_lockout_check_failed: %w", err)
	}
	if active != nil {
		return &Outcome{
			State:       StateLocked,
			LockedUntil: active.ExpiresAt,
		}, nil
	}

	// ── 2. Credential Check ───────────────────────────────────────────────
	// Unknown email and wrong password converge on the same failed outcome.
	// Name comparison is case-insensitive; email was canonicalized above.
	var account *identity.Identity
	success := false
	if found, err := policy.directory.FindByEmail(ctx, email); err == nil {
		account = found
		success = policy.directory.CheckCredentials(found, input.Password) &&
			normalize.EqualNames(input.Name, found.Name)
	}

	// ── 3. Biometric Gate ─────────────────────────────────────────────────
	// The gate runs whenever a capture is present so the single ledger row
	// carries the verdict. Fail-closed: no account or no template never
	// authorizes.
	verdict := biometric.Verdict{}
	if input.FaceImage != "" {
		var template []float64
		if account != nil {
			template = account.FaceTemplate
		}
		verdict, err = policy.gate.Check(ctx, template, input.FaceImage)
		if err != nil {
			// The verdict is already fail-closed; log and continue.
			ctxutil.GetLogger(ctx).Error("escalation_gate_check_failed",
				slog.String("email", email),
				slog.Any("error", err),
			)
		}
	}

	// ── 4. Ledger Append ──────────────────────────────────────────────────
	record := &attempt.Record{
		ID:             uuid.New(),
		Email:          email,
		Name:           input.Name,
		Success:        success,
		FaceImage:      input.FaceImage,
		FaceChecked:    verdict.Checked,
		FaceAuthorized: verdict.Authorized,
		Similarity:     verdict.Similarity,
		IPAddress:      input.IPAddress,
		Latitude:       input.Latitude,
		Longitude:      input.Longitude,
		CreatedAt:      now,
	}
	if err := policy.ledger.Record(ctx, record); err != nil {
		return nil, fmt.Errorf("escalation_ledger_record_failed: %w", err)
	}

	// ── 5. Post-Attempt Derivation ────────────────────────────────────────
	// Re-count from storage rather than incrementing a pre-read value so
	// concurrent attempts converge on the same totals.
	total, err := policy.ledger.CountFailuresSince(ctx, email, windowStart)
	if err != nil {
		return nil, fmt.Errorf("escalation_failure_count_failed: %w", err)
	}

	if success {
		// A login landing inside a suspicious episode is worth telling the
		// operator about: either the owner got through or the attacker did.
		if total >= policy.thresholds.FaceThreshold {
			policy.alerts.Enqueue(&alert.Alert{
				ID:    uuid.New(),
				Kind:  alert.KindSuccessInfo,
				Email: email,
				Message: fmt.Sprintf("Successful login on %s after %d recent failed attempts.",
					email, total),
				CreatedAt: now,
			})
		}

		// Success never resets the count; the next failure still sees it.
		return &Outcome{
			State:             StateOpen,
			Identity:          account,
			FailureCount:      total,
			AttemptsRemaining: policy.thresholds.LockThreshold - total,
			FaceRequired:      total >= policy.thresholds.FaceThreshold,
		}, nil
	}

	// ── 6. Threshold Crossings ────────────────────────────────────────────
	// An authorized capture vetoes the lock: the account owner is at the
	// camera, just mistyping. No capture means the zero verdict, which is
	// unauthorized, so a pure password attack still locks.
	if total >= policy.thresholds.LockThreshold && !verdict.Authorized {
		return policy.lock(ctx, email, total, now)
	}

	// The warning conditions on the capture alone, not on whether a real
	// comparison ran: an unknown email or a template-less account can never
	// authorize, and that is exactly the intruder the operator wants to see.
	if total == policy.thresholds.FaceThreshold && !verdict.Authorized && record.HasCapture() {
		policy.warnOnce(ctx, email, windowStart, now)
	}

	return &Outcome{
		State:             deriveOpenState(total, policy.thresholds.FaceThreshold),
		FailureCount:      total,
		AttemptsRemaining: policy.thresholds.LockThreshold - total,
		FaceRequired:      total >= policy.thresholds.FaceThreshold,
	}, nil
}

// deriveOpenState maps a failure total onto the non-locked states.
func deriveOpenState(total, faceThreshold int) State {
	if total >= faceThreshold {
		return StateFaceRequired
	}
	return StateOpen
}

// lock creates (or refreshes) the lockout and fires the locked alert.
func (policy *Policy) lock(ctx context.Context, email string, total int, now time.Time) (*Outcome, error) {

	expiresAt := now.Add(policy.thresholds.LockoutDuration)
	entry := &lockout.Lockout{
		ID:        uuid.New(),
		Email:     email,
		Reason:    fmt.Sprintf("%d failed login attempts within the failure window", total),
		LockedAt:  now,
		ExpiresAt: expiresAt,
	}

	// The registry upserts against the one-active-per-email constraint, so
	// a concurrent lock converges on a single active row.
	if err := policy.registry.Lock(ctx, entry); err != nil {
		return nil, fmt.Errorf("escalation_lock_failed: %w", err)
	}

	// Attach whatever unauthorized captures exist; a lock with zero
	// evidence still alerts.
	evidence := policy.collectEvidence(ctx, email, now)

	policy.alerts.Enqueue(&alert.Alert{
		ID:    uuid.New(),
		Kind:  alert.KindLockout,
		Email: email,
		Message: fmt.Sprintf("Account %s locked until %s after %d failed attempts.",
			email, expiresAt.Format(time.RFC1123), total),
		Evidence:  evidence,
		CreatedAt: now,
	})

	ctxutil.GetLogger(ctx).Warn("account_locked",
		slog.String("email", email),
		slog.Int("failure_count", total),
		slog.Time("expires_at", expiresAt),
	)

	return &Outcome{
		State:        StateLocked,
		FailureCount: total,
		LockedUntil:  expiresAt,
	}, nil
}

// warnOnce fires the suspicious-login alert exactly once per episode.
//
// The equality trigger already fires only at the threshold crossing; the
// history check guards the race where two concurrent attempts both count
// the same total.
func (policy *Policy) warnOnce(ctx context.Context, email string, windowStart, now time.Time) {

	exists, err := policy.history.ExistsSince(ctx, email, alert.KindSuspiciousLogin, windowStart)
	if err != nil {
		ctxutil.GetLogger(ctx).Error("escalation_alert_history_failed",
			slog.String("email", email),
			slog.Any("error", err),
		)
		return
	}
	if exists {
		return
	}

	evidence := policy.collectEvidence(ctx, email, now)

	policy.alerts.Enqueue(&alert.Alert{
		ID:    uuid.New(),
		Kind:  alert.KindSuspiciousLogin,
		Email: email,
		Message: fmt.Sprintf("Repeated failed logins on %s with an unauthorized face capture.",
			email),
		Evidence:  evidence,
		CreatedAt: now,
	})

	ctxutil.GetLogger(ctx).Warn("suspicious_login_detected",
		slog.String("email", email),
	)
}

// collectEvidence gathers recent unauthorized captures for an alert.
func (policy *Policy) collectEvidence(ctx context.Context, email string, now time.Time) []string {

	since := now.Add(-policy.thresholds.EvidenceWindow)
	records, err := policy.ledger.ListUnauthorizedSince(ctx, email, since, policy.thresholds.EvidenceLimit)
	if err != nil {
		ctxutil.GetLogger(ctx).Error("escalation_evidence_query_failed",
			slog.String("email", email),
			slog.Any("error", err),
		)
		return nil
	}

	evidence := make([]string, 0, len(records))
	for _, record := range records {
		evidence = append(evidence, record.FaceImage)
	}
	return evidence
}

// # Posture Query

/*
Posture derives the current state for an email without recording anything.

Description: Lets clients know before submitting whether the next login
should carry a capture. Always answers, even for unknown emails, and leaks
nothing about account existence.

Parameters:
  - ctx: context.Context
  - email: string

Returns:
  - *Outcome: Derived state with zero-valued identity fields
  - error: Storage failures
*/
func (policy *Policy) Posture(ctx context.Context, email string) (*Outcome, error) {

	key := normalize.Email(email)
	now := time.Now()

	active, err := policy.registry.ActiveForEmail(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("escalation_posture_lockout_failed: %w", err)
	}
	if active != nil {
		return &Outcome{State: StateLocked, LockedUntil: active.ExpiresAt}, nil
	}

	total, err := policy.ledger.CountFailuresSince(ctx, key, now.Add(-policy.thresholds.FailureWindow))
	if err != nil {
		return nil, fmt.Errorf("escalation_posture_count_failed: %w", err)
	}

	return &Outcome{
		State:             deriveOpenState(total, policy.thresholds.FaceThreshold),
		FailureCount:      total,
		AttemptsRemaining: policy.thresholds.LockThreshold - total,
		FaceRequired:      total >= policy.thresholds.FaceThreshold,
	}, nil
}
