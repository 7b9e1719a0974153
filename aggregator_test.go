// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package poda

import (
	"context"
	"testing"

	"github.com/luxfi/ids"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/poda/bundle"
	"github.com/luxfi/poda/store"
)

// stubRouter resolves every authority to itself as the node handle; the
// stubComputeClient then looks the authority back up in its wallet table.
type stubRouter struct{}

func (stubRouter) Find(_ context.Context, _ ids.ID, authority bundle.Address) (NodeHandle, bool, error) {
	return authority, true, nil
}

type stubComputeClient struct {
	byAuthority map[bundle.Address]bundle.Wallet
}

func (c *stubComputeClient) Compute(_ context.Context, node NodeHandle, processID, _ ids.ID) (*bundle.Item, error) {
	authority, ok := node.(bundle.Address)
	if !ok {
		return nil, nil
	}
	wallet, ok := c.byAuthority[authority]
	if !ok {
		return nil, nil
	}
	att := &bundle.Item{
		Tags: bundle.Tags{{Name: []byte(bundle.AttestationTag), Value: []byte(bundle.EncodeID(processID))}},
	}
	if err := bundle.SignItem(att, wallet); err != nil {
		return nil, err
	}
	return att, nil
}

func TestFindProcessSelfDescribing(t *testing.T) {
	require := require.New(t)

	local := newTestWallet(t)
	process := &bundle.Item{Tags: processTags(t, "1")}

	found := FindProcess(context.Background(), process, &ExecState{Wallet: local})
	require.Same(process, found)
}

func TestFindProcessByTargetLookup(t *testing.T) {
	require := require.New(t)

	local := newTestWallet(t)
	process := &bundle.Item{Tags: processTags(t, "1")}

	mapStore := store.NewMapStore()
	mapStore.Put(local.Address(), process)

	msg := &bundle.Item{Target: local.Address()}
	found := FindProcess(context.Background(), msg, &ExecState{Wallet: local, Store: mapStore})
	require.Same(process, found)
}

func TestFindProcessMissingReturnsNil(t *testing.T) {
	require := require.New(t)

	msg := &bundle.Item{Target: bundle.Address{1, 2, 3}}
	found := FindProcess(context.Background(), msg, &ExecState{Store: store.NewMapStore()})
	require.Nil(found)
}

func TestPushWrapsOutboxWithAttestations(t *testing.T) {
	require := require.New(t)

	local := newTestWallet(t)
	peer := newTestWallet(t)

	process := &bundle.Item{Tags: processTags(t, "2", peer.Address())}
	mapStore := store.NewMapStore()

	target := bundle.AddressFromPublicKey([]byte("target process address"))
	mapStore.Put(target, process)

	outbound := &bundle.Item{Target: target, Data: bundle.Data{Bytes: []byte("hello")}}
	outbox := &bundle.Item{Data: bundle.Data{Map: map[string]*bundle.Item{"1": outbound}}}

	state := &ExecState{
		Wallet:  local,
		Store:   mapStore,
		Router:  stubRouter{},
		Compute: &stubComputeClient{byAuthority: map[bundle.Address]bundle.Wallet{peer.Address(): peer}},
		Results: map[ResultBucket]*bundle.Item{ResultOutbox: outbox},
	}

	require.NoError(Push(context.Background(), state))

	wrapped := state.Results[ResultOutbox].Data.Map["1"]
	require.NotNil(wrapped)
	require.True(wrapped.Data.IsMap())
	attSet := wrapped.Data.Map[keyAttestations]
	require.NotNil(attSet)
	require.Len(attSet.Data.Map, 2, "one local attestation plus one peer attestation")
	// Normalize deep-copies the bundle before signing, so the wrapped
	// message is equal to, but not the same pointer as, the original.
	require.Equal(outbound.Target, wrapped.Data.Map[keyMessage].Target)
	require.Equal(outbound.Data.Bytes, wrapped.Data.Map[keyMessage].Data.Bytes)
}

func TestPushIsNoOpForNonPoDATarget(t *testing.T) {
	require := require.New(t)

	local := newTestWallet(t)
	outbound := &bundle.Item{Data: bundle.Data{Bytes: []byte("hello")}}
	outbox := &bundle.Item{Data: bundle.Data{Map: map[string]*bundle.Item{"1": outbound}}}

	state := &ExecState{
		Wallet:  local,
		Store:   store.NewMapStore(),
		Results: map[ResultBucket]*bundle.Item{ResultOutbox: outbox},
	}

	require.NoError(Push(context.Background(), state))
	require.Same(outbound, state.Results[ResultOutbox].Data.Map["1"], "no target process resolved, message ships unchanged")
}

func TestPollPeersExcludesLocalAddress(t *testing.T) {
	require := require.New(t)

	local := newTestWallet(t)
	peer := newTestWallet(t)

	opts := newOptsWithAuthorities(1, local, peer)
	state := &ExecState{
		Wallet:  local,
		Router:  stubRouter{},
		Compute: &stubComputeClient{byAuthority: map[bundle.Address]bundle.Wallet{local.Address(): local, peer.Address(): peer}},
	}

	results := pollPeerAttestations(context.Background(), ids.GenerateTestID(), opts, state)
	require.Len(results, 1, "the local authority must not be polled as its own peer")
}
