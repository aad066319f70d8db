// Package metrics provides application-level metrics collection.
// This is a lightweight metrics foundation using atomic counters.
// For production observability, consider integrating with Prometheus or similar.
package metrics

import (
	"sync/atomic"
	"time"
)

// Metrics holds application metrics using atomic counters for thread safety.
type Metrics struct {
	// Address derivation metrics
	derivationsTotal  atomic.Int64
	derivationErrors  atomic.Int64
	derivationLatency atomic.Int64 // nanoseconds

	// Per-family derivations
	secpDerivations    atomic.Int64
	ed25519Derivations atomic.Int64

	// Key derivation function (Argon2id) metrics
	kdfOpsTotal atomic.Int64
	kdfLatency  atomic.Int64 // nanoseconds

	// Unlock metrics
	unlockAttempts atomic.Int64
	unlockFailures atomic.Int64

	// Command metrics
	commandsTotal atomic.Int64
	commandErrors atomic.Int64
}

// Global is the global metrics instance.
// Use this for recording metrics throughout the application.
//
//nolint:gochecknoglobals // Intentional global for metrics access
var Global = &Metrics{}

// RecordDerivation records one chain derivation with its duration and
// success status.
func (m *Metrics) RecordDerivation(family string, duration time.Duration, err error) {
	m.derivationsTotal.Add(1)
	m.derivationLatency.Add(duration.Nanoseconds())

	if err != nil {
		m.derivationErrors.Add(1)
	}

	// Track per-family derivations
	switch family {
	case "secp256k1":
		m.secpDerivations.Add(1)
	case "ed25519":
		m.ed25519Derivations.Add(1)
	}
}

// RecordKDF records one Argon2id key derivation.
func (m *Metrics) RecordKDF(duration time.Duration) {
	m.kdfOpsTotal.Add(1)
	m.kdfLatency.Add(duration.Nanoseconds())
}

// RecordUnlockAttempt records a wallet unlock attempt.
func (m *Metrics) RecordUnlockAttempt(success bool) {
	m.unlockAttempts.Add(1)
	if !success {
		m.unlockFailures.Add(1)
	}
}

// RecordCommand records a completed CLI command.
func (m *Metrics) RecordCommand(err error) {
	m.commandsTotal.Add(1)
	if err != nil {
		m.commandErrors.Add(1)
	}
}

// Snapshot is a point-in-time copy of all metrics.
type Snapshot struct {
	DerivationsTotal        int64
	DerivationErrors        int64
	DerivationLatencyNanos  int64
	SecpDerivations         int64
	Ed25519Derivations      int64
	KDFOpsTotal             int64
	KDFLatencyNanos         int64
	UnlockAttempts          int64
	UnlockFailures          int64
	CommandsTotal           int64
	CommandErrors           int64
}

// Snapshot returns a point-in-time copy of all metrics.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		DerivationsTotal:       m.derivationsTotal.Load(),
		DerivationErrors:       m.derivationErrors.Load(),
		DerivationLatencyNanos: m.derivationLatency.Load(),
		SecpDerivations:        m.secpDerivations.Load(),
		Ed25519Derivations:     m.ed25519Derivations.Load(),
		KDFOpsTotal:            m.kdfOpsTotal.Load(),
		KDFLatencyNanos:        m.kdfLatency.Load(),
		UnlockAttempts:         m.unlockAttempts.Load(),
		UnlockFailures:         m.unlockFailures.Load(),
		CommandsTotal:          m.commandsTotal.Load(),
		CommandErrors:          m.commandErrors.Load(),
	}
}

// DerivationsTotal returns the total number of chain derivations.
func (m *Metrics) DerivationsTotal() int64 {
	return m.derivationsTotal.Load()
}

// DerivationErrors returns the total number of failed derivations.
func (m *Metrics) DerivationErrors() int64 {
	return m.derivationErrors.Load()
}

// DerivationLatencyAvgMs returns the average derivation latency in
// milliseconds. Returns 0 if no derivations have run.
func (m *Metrics) DerivationLatencyAvgMs() float64 {
	count := m.derivationsTotal.Load()
	if count == 0 {
		return 0
	}
	nanos := m.derivationLatency.Load()
	return float64(nanos) / float64(count) / 1e6
}

// KDFLatencyAvgMs returns the average Argon2id latency in milliseconds.
// Returns 0 if no key derivations have run.
func (m *Metrics) KDFLatencyAvgMs() float64 {
	count := m.kdfOpsTotal.Load()
	if count == 0 {
		return 0
	}
	nanos := m.kdfLatency.Load()
	return float64(nanos) / float64(count) / 1e6
}

// UnlockFailureRate returns the unlock failure rate as a percentage
// (0-100). Returns 0 if no unlock attempts have occurred.
func (m *Metrics) UnlockFailureRate() float64 {
	attempts := m.unlockAttempts.Load()
	if attempts == 0 {
		return 0
	}
	failures := m.unlockFailures.Load()
	return float64(failures) / float64(attempts) * 100
}

// Reset resets all metrics to zero.
// Useful for testing.
func (m *Metrics) Reset() {
	m.derivationsTotal.Store(0)
	m.derivationErrors.Store(0)
	m.derivationLatency.Store(0)
	m.secpDerivations.Store(0)
	m.ed25519Derivations.Store(0)
	m.kdfOpsTotal.Store(0)
	m.kdfLatency.Store(0)
	m.unlockAttempts.Store(0)
	m.unlockFailures.Store(0)
	m.commandsTotal.Store(0)
	m.commandErrors.Store(0)
}
