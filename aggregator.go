// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package poda

import (
	"bytes"
	"context"

	"github.com/luxfi/ids"
	"github.com/luxfi/log"
	"github.com/luxfi/utils"

	"github.com/luxfi/poda/bundle"
)

// sortableAuthority gives bundle.Address (a type alias for the foreign
// ids.ShortID) a Compare method so utils.Sort can order the peer poll
// list, mirroring warp.Validator's own Compare-by-bytes implementation.
type sortableAuthority bundle.Address

func (a sortableAuthority) Compare(o sortableAuthority) int {
	return bytes.Compare(a[:], o[:])
}

var _ utils.Sortable[sortableAuthority] = sortableAuthority{}

// Push is the Attestation Aggregator: invoked as push(item, state) after
// the program has produced state.Results. It walks the "/Outbox" and
// "/Spawn" result buckets and wraps every outbound message whose target
// process declares Device = PODA in a fresh attestation bundle (§4.6).
func Push(ctx context.Context, state *ExecState) error {
	for _, key := range []ResultBucket{ResultOutbox, ResultSpawn} {
		bucketItem, ok := state.Results[key]
		if !ok || !bucketItem.Data.IsMap() {
			continue
		}
		for subKey, msg := range bucketItem.Data.Map {
			wrapped, err := addAttestations(ctx, msg, state)
			if err != nil {
				return err
			}
			bucketItem.Data.Map[subKey] = wrapped
		}
	}
	return nil
}

// FindProcess resolves the process definition governing item, per §4.7:
// look up by target in the store, or treat the item itself as the process
// if it's self-describing, or return nil if neither holds. Store lookup
// failures degrade to nil rather than propagating — callers must treat a
// nil process as "skip attestation wrapping for this message".
func FindProcess(ctx context.Context, item *bundle.Item, state *ExecState) *bundle.Item {
	if item.HasTarget() {
		if state.Store == nil {
			return nil
		}
		proc, ok, err := state.Store.ReadMessage(ctx, item.Target)
		if err != nil || !ok {
			return nil
		}
		return proc
	}
	if IsProcessDefinition(item.Tags) {
		return item
	}
	return nil
}

// addAttestations implements §4.6 step by step: resolve the target
// process, bail out for non-PoDA processes, poll peer authorities in
// parallel (excluding the local node, §9 open question #2), sign a local
// attestation, and wrap everything into a fresh attestation bundle.
func addAttestations(ctx context.Context, newMsg *bundle.Item, state *ExecState) (*bundle.Item, error) {
	process := FindProcess(ctx, newMsg, state)
	if process == nil {
		return newMsg, nil
	}
	if !IsPoDAGoverned(process.Tags) {
		return newMsg, nil
	}

	opts, err := ParseOptions(process.Tags, state.Wallet)
	if err != nil {
		// A misconfigured target process (bad Quorum tag, no authorities)
		// degrades to a no-op rather than blocking the entire push: the
		// message still ships, unwrapped and without attestations.
		if state.Logger != nil {
			state.Logger.Warn("poda: target process has invalid PoDA options, skipping attestation wrap",
				log.String("error", err.Error()))
		}
		return newMsg, nil
	}

	processID, err := bundle.ID(process, bundle.Unsigned)
	if err != nil {
		return nil, err
	}
	msgID, err := bundle.ID(newMsg, bundle.Unsigned)
	if err != nil {
		return nil, err
	}

	peerAttestations := pollPeerAttestations(ctx, processID, opts, state)

	local := &bundle.Item{
		Tags: bundle.Tags{{
			Name:  []byte(bundle.AttestationTag),
			Value: []byte(bundle.EncodeID(msgID)),
		}},
	}
	if err := bundle.SignItem(local, state.Wallet); err != nil {
		return nil, err
	}

	all := append([]*bundle.Item{local}, peerAttestations...)
	attestationSet := bundle.NewAttestationSet(all)
	completeAttestations := &bundle.Item{
		Data: bundle.Data{Map: map[string]*bundle.Item{}},
	}
	for k, v := range attestationSet {
		completeAttestations.Data.Map[k] = v
	}
	completeAttestations = bundle.Normalize(completeAttestations)
	if err := bundle.SignItem(completeAttestations, state.Wallet); err != nil {
		return nil, err
	}

	attestationBundle := &bundle.Item{
		Target: newMsg.Target,
		Data: bundle.Data{Map: map[string]*bundle.Item{
			keyAttestations: completeAttestations,
			keyMessage:      newMsg,
		}},
	}
	attestationBundle = bundle.Normalize(attestationBundle)
	if err := bundle.SignItem(attestationBundle, state.Wallet); err != nil {
		return nil, err
	}

	if state.Logger != nil {
		state.Logger.Debug("poda: wrapped outbound message with attestations",
			log.Int("peerAttestations", len(peerAttestations)),
		)
	}
	return attestationBundle, nil
}

// pollPeerAttestations queries every declared authority except the local
// wallet's own address for a fresh attestation, in parallel, bounded by
// AggregatorConfig.PeerTimeout per peer.
func pollPeerAttestations(ctx context.Context, processID ids.ID, opts DeviceOptions, state *ExecState) []*bundle.Item {
	if state.Router == nil || state.Compute == nil {
		return nil
	}

	var localAddr bundle.Address
	if state.Wallet != nil {
		localAddr = state.Wallet.Address()
	}

	authorities := opts.Authorities.List()
	peers := make([]bundle.Address, 0, len(authorities))
	for _, a := range authorities {
		if a == localAddr {
			continue // self-exclusion, §9 open question #2
		}
		peers = append(peers, a)
	}
	// opts.Authorities.List() iterates a Go map, so its order is random
	// from run to run; sort it so the poll order (and any ordering-
	// sensitive caller) is reproducible.
	sortablePeers := make([]sortableAuthority, len(peers))
	for i, p := range peers {
		sortablePeers[i] = sortableAuthority(p)
	}
	utils.Sort(sortablePeers)
	for i, p := range sortablePeers {
		peers[i] = bundle.Address(p)
	}

	var assignmentID ids.ID
	if state.Assignment != nil {
		id, err := bundle.ID(state.Assignment, bundle.Unsigned)
		if err == nil {
			assignmentID = id
		}
	}

	timeout := state.Aggregator.peerTimeout()
	return PollPeers(ctx, peers, func(ctx context.Context, authority bundle.Address) (bool, *bundle.Item, error) {
		node, ok, err := state.Router.Find(ctx, processID, authority)
		if err != nil || !ok {
			return false, nil, nil
		}
		peerCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		att, err := state.Compute.Compute(peerCtx, node, processID, assignmentID)
		if err != nil {
			if peerCtx.Err() != nil {
				state.Metrics.ObservePeerTimeout()
			}
			return false, nil, nil
		}
		if att == nil {
			return false, nil, nil
		}
		return true, att, nil
	})
}
