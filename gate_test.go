// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package poda

import (
	"testing"

	"github.com/luxfi/math/set"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/poda/bundle"
)

func newOptsWithAuthorities(quorum uint32, wallets ...bundle.Wallet) DeviceOptions {
	authorities := make(set.Set[bundle.Address], len(wallets))
	for _, w := range wallets {
		authorities.Add(w.Address())
	}
	return DeviceOptions{Authorities: authorities, Quorum: quorum}
}

func wrapAsProcessMessage(content *bundle.Item) *bundle.Item {
	return &bundle.Item{Data: bundle.Data{Map: map[string]*bundle.Item{keyMessage: content}}}
}

func TestGateBypassesUserSignedMessage(t *testing.T) {
	require := require.New(t)

	state := &ExecState{Pass: PassPreExecute}
	opts := newOptsWithAuthorities(1)

	// No From-Process tag: the discriminator classifies this as user-signed.
	content := &bundle.Item{Data: bundle.Data{Bytes: []byte("user submitted")}}
	outer := wrapAsProcessMessage(content)

	outcome, err := Execute(outer, state, opts)
	require.NoError(err)
	require.Equal(OK, outcome)
	require.Nil(state.ArgPrefix)
}

func TestGateAcceptsQuorumMetProcessMessage(t *testing.T) {
	require := require.New(t)

	a, b := newTestWallet(t), newTestWallet(t)
	opts := newOptsWithAuthorities(2, a, b)

	content := &bundle.Item{
		Tags: bundle.Tags{{Name: []byte(tagFromProc), Value: []byte("someProcess")}},
		Data: bundle.Data{Bytes: []byte("payload")},
	}
	attested := buildAttestedMessage(t, content, a, b)
	outer := wrapAsProcessMessage(attested)

	state := &ExecState{Pass: PassPreExecute}
	outcome, err := Execute(outer, state, opts)
	require.NoError(err)
	require.Equal(OK, outcome)
	require.Len(state.ArgPrefix, 1)
	require.NotNil(state.VFS)
	require.Len(state.VFS, 2, "one /Attestations entry per unique signer")
}

func TestGateSkipsQuorumUnmetProcessMessage(t *testing.T) {
	require := require.New(t)

	a, b := newTestWallet(t), newTestWallet(t)
	opts := newOptsWithAuthorities(2, a, b)

	content := &bundle.Item{
		Tags: bundle.Tags{{Name: []byte(tagFromProc), Value: []byte("someProcess")}},
		Data: bundle.Data{Bytes: []byte("payload")},
	}
	attested := buildAttestedMessage(t, content, a) // only one signer, quorum 2
	outer := wrapAsProcessMessage(attested)

	state := &ExecState{Pass: PassPreExecute}
	outcome, err := Execute(outer, state, opts)
	require.NoError(err)
	require.Equal(Skip, outcome)

	outbox := state.Results[ResultOutbox]
	require.NotNil(outbox)
	require.Equal(string(ReasonQuorumUnmet), string(outbox.Data.Bytes))
	require.True(outbox.Tags.Has(tagErrorName, tagErrorValue))
}

func TestGateSkipMalformedBundleWithNoWallet(t *testing.T) {
	require := require.New(t)

	opts := newOptsWithAuthorities(1)
	// outer.Data isn't even a map: malformed at the outermost layer.
	outer := &bundle.Item{Data: bundle.Data{Bytes: []byte("not a map")}}

	state := &ExecState{Pass: PassPreExecute}
	outcome, err := Execute(outer, state, opts)
	require.NoError(err)
	require.Equal(Skip, outcome)
	require.Nil(state.Results[ResultOutbox].SignerPub, "no wallet configured, so the error-skip item is unsigned")
}

func TestExecuteIsNoOpOutsidePreExecute(t *testing.T) {
	require := require.New(t)

	opts := newOptsWithAuthorities(1)
	state := &ExecState{Pass: PassPostResults}
	outcome, err := Execute(&bundle.Item{}, state, opts)
	require.NoError(err)
	require.Equal(OK, outcome)
}
