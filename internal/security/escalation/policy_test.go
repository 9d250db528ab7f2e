// Copyright (c) 2026 Facegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package escalation_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/facegate/internal/platform/apperr"
	"github.com/taibuivan/facegate/internal/security/alert"
	"github.com/taibuivan/facegate/internal/security/attempt"
	"github.com/taibuivan/facegate/internal/security/biometric"
	"github.com/taibuivan/facegate/internal/security/escalation"
	"github.com/taibuivan/facegate/internal/security/lockout"
	"github.com/taibuivan/facegate/internal/users/identity"
	"github.com/taibuivan/facegate/pkg/pagination"
)

// # In-Memory Fakes

type fakeDirectory struct {
	accounts  map[string]*identity.Identity
	passwords map[string]string
}

func (d *fakeDirectory) FindByEmail(_ context.Context, email string) (*identity.Identity, error) {
	if account, ok := d.accounts[email]; ok {
		return account, nil
	}
	return nil, apperr.NotFound("Account")
}

func (d *fakeDirectory) CheckCredentials(entity *identity.Identity, password string) bool {
	return d.passwords[entity.Email] == password
}

type fakeLedger struct {
	mu      sync.Mutex
	records []*attempt.Record
}

func (l *fakeLedger) Record(_ context.Context, record *attempt.Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, record)
	return nil
}

func (l *fakeLedger) CountFailuresSince(_ context.Context, email string, since time.Time) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	count := 0
	for _, record := range l.records {
		if record.Email == email && !record.Success && record.CreatedAt.After(since) {
			count++
		}
	}
	return count, nil
}

func (l *fakeLedger) ListUnauthorizedSince(_ context.Context, email string, since time.Time, limit int) ([]*attempt.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	matches := make([]*attempt.Record, 0, limit)
	for i := len(l.records) - 1; i >= 0 && len(matches) < limit; i-- {
		record := l.records[i]
		if record.Email == email && !record.Success && record.HasCapture() &&
			record.FaceChecked && !record.FaceAuthorized && record.CreatedAt.After(since) {
			matches = append(matches, record)
		}
	}
	return matches, nil
}

func (l *fakeLedger) List(_ context.Context, _ string, _ pagination.Params) ([]*attempt.Record, int, error) {
	return nil, 0, nil
}

func (l *fakeLedger) Count(_ context.Context) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records), nil
}

func (l *fakeLedger) CountFailedSince(_ context.Context, since time.Time) (int, error) {
	return 0, nil
}

func (l *fakeLedger) DeleteOlderThan(_ context.Context, _ time.Time) (int64, error) {
	return 0, nil
}

func (l *fakeLedger) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

type fakeRegistry struct {
	mu     sync.Mutex
	active map[string]*lockout.Lockout
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{active: make(map[string]*lockout.Lockout)}
}

func (r *fakeRegistry) Lock(_ context.Context, entry *lockout.Lockout) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry.Active = true
	r.active[entry.Email] = entry
	return nil
}

func (r *fakeRegistry) ActiveForEmail(_ context.Context, email string) (*lockout.Lockout, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.active[email]
	if !ok || entry.Expired(time.Now()) {
		return nil, nil
	}
	return entry, nil
}

func (r *fakeRegistry) Unlock(_ context.Context, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.active, email)
	return nil
}

func (r *fakeRegistry) DeactivateExpired(_ context.Context) (int64, error) { return 0, nil }

func (r *fakeRegistry) CountActive(_ context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.active), nil
}

func (r *fakeRegistry) List(_ context.Context, _ pagination.Params) ([]*lockout.Lockout, int, error) {
	return nil, 0, nil
}

// fakeGate returns a scripted verdict for every check.
type fakeGate struct {
	verdict biometric.Verdict
	err     error
}

func (g *fakeGate) Check(_ context.Context, template []float64, _ string) (biometric.Verdict, error) {
	if len(template) == 0 {
		return biometric.Verdict{}, nil
	}
	return g.verdict, g.err
}

// alertLog plays both the sink and the history so enqueued alerts are
// immediately visible to the dedupe check, like the persisted rows are.
type alertLog struct {
	mu      sync.Mutex
	entries []*alert.Alert
}

func (a *alertLog) Enqueue(entry *alert.Alert) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
}

func (a *alertLog) ExistsSince(_ context.Context, email string, kind alert.Kind, since time.Time) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, entry := range a.entries {
		if entry.Email == email && entry.Kind == kind && entry.CreatedAt.After(since) {
			return true, nil
		}
	}
	return false, nil
}

func (a *alertLog) ofKind(kind alert.Kind) []*alert.Alert {
	a.mu.Lock()
	defer a.mu.Unlock()
	matches := make([]*alert.Alert, 0)
	for _, entry := range a.entries {
		if entry.Kind == kind {
			matches = append(matches, entry)
		}
	}
	return matches
}

// # Test Harness

type harness struct {
	policy   *escalation.Policy
	ledger   *fakeLedger
	registry *fakeRegistry
	gate     *fakeGate
	alerts   *alertLog
}

func defaultThresholds() escalation.Thresholds {
	return escalation.Thresholds{
		FaceThreshold:   3,
		LockThreshold:   6,
		FailureWindow:   time.Hour,
		EvidenceWindow:  time.Hour,
		EvidenceLimit:   3,
		LockoutDuration: 5 * time.Hour,
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	directory := &fakeDirectory{
		accounts: map[string]*identity.Identity{
			"alice@example.com": {
				ID:           "018f0000-0000-7000-8000-000000000001",
				Name:         "Alice",
				Email:        "alice@example.com",
				FaceTemplate: []float64{0.1, 0.2, 0.3},
			},
		},
		passwords: map[string]string{"alice@example.com": "correct-horse"},
	}

	h := &harness{
		ledger:   &fakeLedger{},
		registry: newFakeRegistry(),
		gate:     &fakeGate{verdict: biometric.Verdict{Checked: true}},
		alerts:   &alertLog{},
	}
	h.policy = escalation.NewPolicy(directory, h.ledger, h.registry, h.gate, h.alerts, h.alerts, defaultThresholds())
	return h
}

func (h *harness) attempt(t *testing.T, password, faceImage string) *escalation.Outcome {
	t.Helper()
	outcome, err := h.policy.Evaluate(context.Background(), escalation.AttemptInput{
		Email:     "Alice@Example.com",
		Name:      "alice",
		Password:  password,
		FaceImage: faceImage,
		IPAddress: "203.0.113.7",
	})
	require.NoError(t, err)
	return outcome
}

const capture = "aGVsbG8gd29ybGQ=" // any base64 payload

// # Scenarios

/*
TestPolicy_SuccessfulLogin verifies the happy path: correct credentials on an
open account authenticate and record one successful ledger row.
*/
func TestPolicy_SuccessfulLogin(t *testing.T) {
	h := newHarness(t)

	outcome := h.attempt(t, "correct-horse", "")

	require.NotNil(t, outcome.Identity)
	assert.Equal(t, "alice@example.com", outcome.Identity.Email)
	assert.Equal(t, escalation.StateOpen, outcome.State)
	assert.False(t, outcome.FaceRequired)
	assert.Equal(t, 1, h.ledger.len())
	assert.True(t, h.ledger.records[0].Success)
}

/*
TestPolicy_UnknownEmailIndistinguishable verifies that an unknown email and a
wrong password yield identical outcomes, so the gate leaks no account
existence information.
*/
func TestPolicy_UnknownEmailIndistinguishable(t *testing.T) {
	h := newHarness(t)

	wrongPassword := h.attempt(t, "wrong-password", "")

	unknown, err := h.policy.Evaluate(context.Background(), escalation.AttemptInput{
		Email:    "nobody@example.com",
		Name:     "Nobody",
		Password: "anything",
	})
	require.NoError(t, err)

	assert.Nil(t, wrongPassword.Identity)
	assert.Nil(t, unknown.Identity)
	assert.Equal(t, wrongPassword.State, unknown.State)
	assert.Equal(t, wrongPassword.FaceRequired, unknown.FaceRequired)
	assert.Equal(t, wrongPassword.FailureCount, unknown.FailureCount)
}

/*
TestPolicy_NameMismatchFails verifies that a correct password with the wrong
display name is still a failed attempt. The name check is case-insensitive,
so only a genuinely different name fails.
*/
func TestPolicy_NameMismatchFails(t *testing.T) {
	h := newHarness(t)

	outcome, err := h.policy.Evaluate(context.Background(), escalation.AttemptInput{
		Email:    "alice@example.com",
		Name:     "Mallory",
		Password: "correct-horse",
	})
	require.NoError(t, err)

	assert.Nil(t, outcome.Identity)
	assert.Equal(t, 1, outcome.FailureCount)
}

/*
TestPolicy_FaceRequiredAfterThreshold verifies that the third windowed failure
flips the posture to face_required, and that the demand stays advisory: a
subsequent correct-credential login without a capture still succeeds.
*/
func TestPolicy_FaceRequiredAfterThreshold(t *testing.T) {
	h := newHarness(t)

	var outcome *escalation.Outcome
	for i := 0; i < 3; i++ {
		outcome = h.attempt(t, "wrong-password", "")
	}

	assert.Equal(t, escalation.StateFaceRequired, outcome.State)
	assert.True(t, outcome.FaceRequired)
	assert.Equal(t, 3, outcome.FailureCount)
	assert.Equal(t, 3, outcome.AttemptsRemaining)

	// Advisory only: correct credentials still pass without a capture.
	success := h.attempt(t, "correct-horse", "")
	require.NotNil(t, success.Identity)
}

/*
TestPolicy_SuccessInfoAlert verifies the operator is informed when a login
succeeds while the account sits in the face-required posture, and that an
ordinary success stays silent.
*/
func TestPolicy_SuccessInfoAlert(t *testing.T) {
	h := newHarness(t)

	// 1. A clean success fires nothing.
	h.attempt(t, "correct-horse", "")
	assert.Empty(t, h.alerts.ofKind(alert.KindSuccessInfo))

	// 2. A success inside a suspicious episode does.
	for i := 0; i < 3; i++ {
		h.attempt(t, "wrong-password", "")
	}
	outcome := h.attempt(t, "correct-horse", "")
	require.NotNil(t, outcome.Identity)

	infos := h.alerts.ofKind(alert.KindSuccessInfo)
	require.Len(t, infos, 1)
	assert.Equal(t, "alice@example.com", infos[0].Email)
}

/*
TestPolicy_SuspiciousAlertFiresOnce verifies that the suspicious-login alert
fires exactly once per escalation episode: at the face-threshold crossing
with an unauthorized capture, and never again for later failures.
*/
func TestPolicy_SuspiciousAlertFiresOnce(t *testing.T) {
	h := newHarness(t)
	h.gate.verdict = biometric.Verdict{Checked: true, Authorized: false, Similarity: 0.2}

	// 1. Two plain failures: below threshold, no alert.
	h.attempt(t, "wrong-password", "")
	h.attempt(t, "wrong-password", "")
	assert.Empty(t, h.alerts.ofKind(alert.KindSuspiciousLogin))

	// 2. Third failure with an unauthorized capture: the alert fires.
	h.attempt(t, "wrong-password", capture)
	require.Len(t, h.alerts.ofKind(alert.KindSuspiciousLogin), 1)

	// 3. Fourth failure with another unauthorized capture: still one.
	h.attempt(t, "wrong-password", capture)
	assert.Len(t, h.alerts.ofKind(alert.KindSuspiciousLogin), 1)
}

/*
TestPolicy_NoAlertWithoutCapture verifies that crossing the face threshold
without any capture raises no suspicious-login alert: there is no
unauthorized face to report.
*/
func TestPolicy_NoAlertWithoutCapture(t *testing.T) {
	h := newHarness(t)

	for i := 0; i < 3; i++ {
		h.attempt(t, "wrong-password", "")
	}

	assert.Empty(t, h.alerts.ofKind(alert.KindSuspiciousLogin))
}

/*
TestPolicy_LockAtThreshold verifies that the sixth windowed failure locks the
account, raises the locked alert with capture evidence, and registers an
active lockout.
*/
func TestPolicy_LockAtThreshold(t *testing.T) {
	h := newHarness(t)
	h.gate.verdict = biometric.Verdict{Checked: true, Authorized: false, Similarity: 0.1}

	var outcome *escalation.Outcome
	for i := 0; i < 6; i++ {
		outcome = h.attempt(t, "wrong-password", capture)
	}

	assert.Equal(t, escalation.StateLocked, outcome.State)
	assert.Equal(t, 6, outcome.FailureCount)
	assert.False(t, outcome.LockedUntil.IsZero())

	active, err := h.registry.ActiveForEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, active)

	locked := h.alerts.ofKind(alert.KindLockout)
	require.Len(t, locked, 1)
	// Evidence is capped at the configured limit even though six captures exist.
	assert.Len(t, locked[0].Evidence, 3)
}

/*
TestPolicy_LockWithoutCaptures verifies that an attacker who never submits a
capture still locks out at the threshold, just with an evidence-free alert.
*/
func TestPolicy_LockWithoutCaptures(t *testing.T) {
	h := newHarness(t)

	var outcome *escalation.Outcome
	for i := 0; i < 6; i++ {
		outcome = h.attempt(t, "wrong-password", "")
	}

	assert.Equal(t, escalation.StateLocked, outcome.State)

	locked := h.alerts.ofKind(alert.KindLockout)
	require.Len(t, locked, 1)
	assert.Empty(t, locked[0].Evidence)
}

/*
TestPolicy_AuthorizedFaceVetoesLock verifies that an authorized capture at the
lock threshold keeps the account unlocked: the owner is at the camera, just
mistyping, so the attempt is rejected without a lockout.
*/
func TestPolicy_AuthorizedFaceVetoesLock(t *testing.T) {
	h := newHarness(t)
	h.gate.verdict = biometric.Verdict{Checked: true, Authorized: true, Similarity: 0.95}

	var outcome *escalation.Outcome
	for i := 0; i < 6; i++ {
		outcome = h.attempt(t, "wrong-password", capture)
	}

	assert.Equal(t, escalation.StateFaceRequired, outcome.State)
	assert.Equal(t, 6, outcome.FailureCount)
	assert.True(t, outcome.LockedUntil.IsZero())

	active, err := h.registry.ActiveForEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Nil(t, active)
	assert.Empty(t, h.alerts.ofKind(alert.KindLockout))

	// Once the captures stop authorizing, the very next failure locks.
	h.gate.verdict = biometric.Verdict{Checked: true, Authorized: false, Similarity: 0.1}
	outcome = h.attempt(t, "wrong-password", capture)
	assert.Equal(t, escalation.StateLocked, outcome.State)
}

/*
TestPolicy_AlertForUnknownEmailWithCapture verifies that the suspicious-login
warning fires even when no template exists to compare against: an unknown
email with a capture can never authorize, and that is exactly the intruder
the operator wants to see.
*/
func TestPolicy_AlertForUnknownEmailWithCapture(t *testing.T) {
	h := newHarness(t)

	for i := 0; i < 3; i++ {
		_, err := h.policy.Evaluate(context.Background(), escalation.AttemptInput{
			Email:     "nobody@example.com",
			Name:      "Nobody",
			Password:  "guess",
			FaceImage: capture,
		})
		require.NoError(t, err)
	}

	warnings := h.alerts.ofKind(alert.KindSuspiciousLogin)
	require.Len(t, warnings, 1)
	assert.Equal(t, "nobody@example.com", warnings[0].Email)
}

/*
TestPolicy_LockedDenialIsNotRecorded verifies that attempts against a locked
account are denied before the credential check and leave no ledger row, so
the failure window can drain while the lock holds.
*/
func TestPolicy_LockedDenialIsNotRecorded(t *testing.T) {
	h := newHarness(t)

	for i := 0; i < 6; i++ {
		h.attempt(t, "wrong-password", "")
	}
	recorded := h.ledger.len()

	// Even correct credentials bounce off the lock.
	outcome := h.attempt(t, "correct-horse", "")

	assert.Equal(t, escalation.StateLocked, outcome.State)
	assert.Nil(t, outcome.Identity)
	assert.False(t, outcome.LockedUntil.IsZero())
	assert.Equal(t, recorded, h.ledger.len())
}

/*
TestPolicy_SuccessNeverResetsCount verifies that a successful login does not
clear the windowed failure count: failures only age out, so an attacker
cannot probe slowly behind the victim's own logins.
*/
func TestPolicy_SuccessNeverResetsCount(t *testing.T) {
	h := newHarness(t)

	h.attempt(t, "wrong-password", "")
	h.attempt(t, "wrong-password", "")

	success := h.attempt(t, "correct-horse", "")
	require.NotNil(t, success.Identity)
	assert.Equal(t, 2, success.FailureCount)

	// The next failure is the third in the window: face demanded.
	outcome := h.attempt(t, "wrong-password", "")
	assert.Equal(t, 3, outcome.FailureCount)
	assert.True(t, outcome.FaceRequired)
}

/*
TestPolicy_Posture verifies the read-only posture query across the full
state progression without ever recording an attempt itself.
*/
func TestPolicy_Posture(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	// 1. Fresh account: open.
	posture, err := h.policy.Posture(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, escalation.StateOpen, posture.State)

	// 2. After three failures: face required.
	for i := 0; i < 3; i++ {
		h.attempt(t, "wrong-password", "")
	}
	recorded := h.ledger.len()

	posture, err = h.policy.Posture(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, escalation.StateFaceRequired, posture.State)
	assert.True(t, posture.FaceRequired)
	assert.Equal(t, recorded, h.ledger.len())

	// 3. After the lock: locked, with the expiry exposed.
	for i := 0; i < 3; i++ {
		h.attempt(t, "wrong-password", "")
	}

	posture, err = h.policy.Posture(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, escalation.StateLocked, posture.State)
	assert.False(t, posture.LockedUntil.IsZero())
}

/*
TestPolicy_ConcurrentFailures hammers one account from many goroutines and
verifies the system converges: the account ends up locked with exactly one
active lockout, and no attempt is lost.
*/
func TestPolicy_ConcurrentFailures(t *testing.T) {
	h := newHarness(t)

	const attackers = 12
	var wg sync.WaitGroup
	for i := 0; i < attackers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.policy.Evaluate(context.Background(), escalation.AttemptInput{
				Email:    "alice@example.com",
				Name:     "alice",
				Password: "wrong-password",
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	active, err := h.registry.ActiveForEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	require.NotNil(t, active, "account should be locked after %d concurrent failures", attackers)

	count, err := h.registry.CountActive(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
