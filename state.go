// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package poda implements a Proof-of-Authority consensus device for a
// message-driven process-execution host. It gates inbound process messages
// behind a quorum of authority attestations, and aggregates fresh peer
// attestations onto outbound messages addressed to other PoDA-governed
// processes.
package poda

import (
	"github.com/luxfi/log"

	"github.com/luxfi/poda/bundle"
	"github.com/luxfi/poda/store"
)

// Outcome is the high-level result of Execute, mirroring the host's
// ok/skip dichotomy from §6 of the specification.
type Outcome uint8

const (
	// OK indicates normal execution should proceed.
	OK Outcome = iota
	// Skip indicates execution must be bypassed; an error message has been
	// placed in the host's outbox instead.
	Skip
)

func (o Outcome) String() string {
	if o == Skip {
		return "skip"
	}
	return "ok"
}

// Pass identifies which phase of the host's execution pipeline invoked the
// device.
type Pass int

const (
	// PassPreExecute is the first pass: the device validates the inbound
	// message and publishes attestations before the program runs.
	PassPreExecute Pass = 1
	// PassPostResults is the third pass: the device does not act here —
	// output attestation happens on the push path instead.
	PassPostResults Pass = 3
)

// ResultBucket names a well-known key of ExecState.Results that holds
// outbound messages of a given kind.
type ResultBucket string

const (
	ResultOutbox ResultBucket = "/Outbox"
	ResultSpawn  ResultBucket = "/Spawn"
)

// ExecState is the bag of heterogeneous slots the host threads through the
// device on every call. The device reads and writes only the well-known
// fields below. A single ExecState is owned exclusively by one executor for
// the duration of a call — the device holds no locks of its own.
type ExecState struct {
	// Pass selects which phase of the pipeline is executing.
	Pass Pass

	// VFS is the virtual filesystem the executing program may read from.
	// The gate publishes "/Attestations/<EncodedSigner>" entries here.
	VFS map[string][]byte

	// ArgPrefix is prepended to the executor's argument list. The gate sets
	// it to a single unwrapped item on successful validation.
	ArgPrefix []*bundle.Item

	// Wallet signs local attestations and error-skip outbox items.
	Wallet bundle.Wallet

	// Assignment is the scheduler's assignment item, carried through
	// unmodified; its unsigned ID is passed to compute clients during
	// peer polling.
	Assignment *bundle.Item

	// Store resolves cached process definitions by ID.
	Store store.MessageStore

	// Logger is the structured logger devices should log through.
	Logger log.Logger

	// Results holds the program's output buckets (e.g. "/Outbox",
	// "/Spawn"), each an item whose data is a mapping from sub-key to
	// outbound message item. Push rewrites entries here in place.
	Results map[ResultBucket]*bundle.Item

	// Router and Compute back the Attestation Aggregator's peer-poll step.
	// They are nil-safe: if either is nil, peer polling is skipped and a
	// PoDA-bound message is still wrapped, carrying only the local
	// attestation.
	Router  Router
	Compute ComputeClient

	// Aggregator tunes the push-path peer poll. The zero value is valid and
	// uses DefaultPeerTimeout.
	Aggregator AggregatorConfig

	// Metrics records gate outcomes and aggregator activity. Nil is valid
	// and silently disables metric collection.
	Metrics *Metrics
}
