// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package poda

import "errors"

// Fatal, parse-time errors. These propagate to the host as Go errors; they
// never produce an outbox item because the process never had valid options
// to gate against.
var (
	ErrMissingQuorum = errors.New("poda: missing Quorum tag")
	ErrInvalidQuorum = errors.New("poda: Quorum tag is not a valid integer")
	ErrNoAuthorities = errors.New("poda: no Authority tags declared")
)

// Reason is the opaque byte payload carried in an Error Skip outbox item's
// Data. The three values below correspond exactly to the wire strings named
// in §7 of the specification; a host inspecting a skipped message compares
// against these constants, not against the Go error identity.
type Reason string

const (
	ReasonMalformedBundle Reason = "Required PoDA messages missing"
	ReasonBadSignature    Reason = "Invalid attestations"
	ReasonQuorumUnmet     Reason = "Not enough validations"
)

// VerifyError is returned by the Attestation Verifier's three stages. It
// carries the wire Reason directly since that's what ends up in the
// Error Skip outbox item.
type VerifyError struct {
	Reason Reason
}

func (e *VerifyError) Error() string {
	return string(e.Reason)
}

func newVerifyError(r Reason) error {
	return &VerifyError{Reason: r}
}
