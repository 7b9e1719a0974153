// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package poda

import (
	"context"
	"time"

	"github.com/luxfi/ids"

	"github.com/luxfi/poda/bundle"
)

// NodeHandle identifies a compute node a Router resolved for a given
// (process, authority) pair. Its shape is transport-specific; the core only
// ever passes it back to ComputeClient.
type NodeHandle interface{}

// Router resolves which compute node is responsible for producing an
// attestation from a given authority for a given process, mirroring the
// collaborator contract in §6 ("Router: find(op=compute, process_id,
// authority) -> (ok, node_handle) | err").
type Router interface {
	Find(ctx context.Context, processID ids.ID, authority bundle.Address) (NodeHandle, bool, error)
}

// ComputeClient asks a resolved compute node to produce an attestation for
// a process at a given assignment, mirroring §6's "Compute client:
// compute(node_handle, process_id, assignment_id) -> (ok, Attestation) |
// err".
type ComputeClient interface {
	Compute(ctx context.Context, node NodeHandle, processID, assignmentID ids.ID) (*bundle.Item, error)
}

// AggregatorConfig tunes the push-path peer poll (§9 open question #4: no
// per-peer timeout in the reference protocol; this device adds one).
type AggregatorConfig struct {
	// PeerTimeout bounds a single ComputeClient.Compute call. Zero means
	// DefaultPeerTimeout.
	PeerTimeout time.Duration
}

// DefaultPeerTimeout is used when AggregatorConfig.PeerTimeout is zero.
const DefaultPeerTimeout = 5 * time.Second

func (c AggregatorConfig) peerTimeout() time.Duration {
	if c.PeerTimeout <= 0 {
		return DefaultPeerTimeout
	}
	return c.PeerTimeout
}
