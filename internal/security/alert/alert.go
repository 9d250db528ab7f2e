// Copyright (c) 2026 Facegate. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package alert implements operator notification for security events.

Two kinds of alert exist: the one-time suspicious-login warning fired when an
account first crosses the face threshold with an unauthorized capture, and
the account-locked notice fired when the lock threshold is reached. Every
alert is persisted first; email delivery is best-effort on top and its
failure never surfaces to the login path.

# Architecture

  - Repository: durable alert history in PostgreSQL.
  - Notifier: SMTP delivery of rendered HTML notices.
  - Dispatcher: bounded queue + background worker decoupling the login
    hot path from persistence and SMTP latency.
*/
package alert

import (
	"time"
)

// # Alert Taxonomy

// Kind classifies a security alert.
type Kind string

const (
	// KindSuspiciousLogin fires exactly once per escalation episode, when
	// the failure count first reaches the face threshold and the attempt
	// carried an unauthorized capture.
	KindSuspiciousLogin Kind = "SUSPICIOUS_LOGIN"

	// KindLockout fires when the failure count reaches the lock threshold,
	// with whatever capture evidence exists.
	KindLockout Kind = "LOCKOUT"

	// KindSuccessInfo informs the operator that a login succeeded while the
	// account was in the face-required posture, closing the episode.
	KindSuccessInfo Kind = "SUCCESS_INFO"
)

// Severity ranks an alert for the operator's triage view.
type Severity string

const (
	SeverityHigh    Severity = "HIGH"
	SeverityWarning Severity = "WARNING"
	SeverityInfo    Severity = "INFO"
)

// SeverityFor maps an alert kind to its severity.
func SeverityFor(kind Kind) Severity {
	switch kind {
	case KindLockout:
		return SeverityHigh
	case KindSuspiciousLogin:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// # Domain Entities

// Alert is one operator notification.
type Alert struct {
	ID   string `json:"id"`
	Kind Kind   `json:"kind"`
	// Severity ranks the alert; derived from the kind when left empty.
	Severity Severity `json:"severity"`
	// Email is the canonical identity key the alert concerns.
	Email string `json:"email"`
	// Message is the operator-facing summary line.
	Message string `json:"message"`
	// Evidence holds the base64 captures attached to the notification. They
	// are persisted with the row so the admin view can replay them.
	Evidence []string `json:"evidence,omitempty"`
	// EvidenceCount is persisted alongside so history queries can report
	// attachment volume cheaply.
	EvidenceCount int `json:"evidence_count"`
	// Delivered reports whether the email notification went out.
	Delivered bool `json:"delivered"`
	// Resolved is flipped by an operator once the alert has been handled.
	// The admin list shows unresolved alerts by default.
	Resolved  bool      `json:"resolved"`
	CreatedAt time.Time `json:"created_at"`
}
