// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package poda

import (
	"testing"

	"github.com/luxfi/math/set"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/poda/bundle"
)

// buildAttestedMessage signs content once per wallet in signers and wraps
// them into the {Attestations, Message} shape the Verifier expects.
func buildAttestedMessage(t *testing.T, content *bundle.Item, signers ...bundle.Wallet) *bundle.Item {
	t.Helper()
	require := require.New(t)

	contentID, err := bundle.ID(content, bundle.Unsigned)
	require.NoError(err)

	var attestations []*bundle.Item
	for _, w := range signers {
		att := &bundle.Item{
			Tags: bundle.Tags{{
				Name:  []byte(bundle.AttestationTag),
				Value: []byte(bundle.EncodeID(contentID)),
			}},
		}
		require.NoError(bundle.SignItem(att, w))
		attestations = append(attestations, att)
	}

	return &bundle.Item{
		Data: bundle.Data{Map: map[string]*bundle.Item{
			keyAttestations: {Data: bundle.Data{Map: map[string]*bundle.Item(bundle.NewAttestationSet(attestations))}},
			keyMessage:      content,
		}},
	}
}

func TestVerifyHappyPath(t *testing.T) {
	require := require.New(t)

	a, b := newTestWallet(t), newTestWallet(t)
	content := &bundle.Item{Data: bundle.Data{Bytes: []byte("payload")}}
	msg := buildAttestedMessage(t, content, a, b)

	opts := DeviceOptions{Quorum: 2}
	opts.Authorities = make(set.Set[bundle.Address], 0)
	opts.Authorities.Add(a.Address())
	opts.Authorities.Add(b.Address())

	vc, err := Verify(msg, opts, nil)
	require.NoError(err)
	require.Len(vc.Attestations, 2)
	require.Same(content, vc.Content)
}

func TestVerifyMalformedBundleMissingKeys(t *testing.T) {
	opts := DeviceOptions{Quorum: 1}
	_, err := Verify(&bundle.Item{Data: bundle.Data{Map: map[string]*bundle.Item{}}}, opts, nil)
	requireVerifyReason(t, err, ReasonMalformedBundle)

	_, err = Verify(&bundle.Item{Data: bundle.Data{Bytes: []byte("not a map")}}, opts, nil)
	requireVerifyReason(t, err, ReasonMalformedBundle)
}

func TestVerifyBadSignatureFailsIndependentOfQuorum(t *testing.T) {
	a, b := newTestWallet(t), newTestWallet(t)
	content := &bundle.Item{Data: bundle.Data{Bytes: []byte("payload")}}
	msg := buildAttestedMessage(t, content, a, b)

	// Tamper with one attestation's signature after the fact.
	attSet := msg.Data.Map[keyAttestations].Data.Map
	attSet["1"].Signature[0] ^= 0xFF

	opts := DeviceOptions{Quorum: 1}
	opts.Authorities = make(set.Set[bundle.Address], 0)
	opts.Authorities.Add(a.Address())
	opts.Authorities.Add(b.Address())

	_, err := Verify(msg, opts, nil)
	requireVerifyReason(t, err, ReasonBadSignature)
}

func TestVerifyQuorumUnmet(t *testing.T) {
	a, b := newTestWallet(t), newTestWallet(t)
	content := &bundle.Item{Data: bundle.Data{Bytes: []byte("payload")}}
	msg := buildAttestedMessage(t, content, a)

	opts := DeviceOptions{Quorum: 2}
	opts.Authorities = make(set.Set[bundle.Address], 0)
	opts.Authorities.Add(a.Address())
	opts.Authorities.Add(b.Address())

	_, err := Verify(msg, opts, nil)
	requireVerifyReason(t, err, ReasonQuorumUnmet)
}

func TestVerifyDropsNonAuthoritySigners(t *testing.T) {
	require := require.New(t)

	authorized, stranger := newTestWallet(t), newTestWallet(t)
	content := &bundle.Item{Data: bundle.Data{Bytes: []byte("payload")}}
	msg := buildAttestedMessage(t, content, authorized, stranger)

	opts := DeviceOptions{Quorum: 1}
	opts.Authorities = make(set.Set[bundle.Address], 0)
	opts.Authorities.Add(authorized.Address())

	vc, err := Verify(msg, opts, nil)
	require.NoError(err)
	require.Len(vc.Attestations, 2, "the stranger's attestation is still present in the set, just uncounted")
}

func TestVerifyDedupesRepeatedSigner(t *testing.T) {
	require := require.New(t)

	a := newTestWallet(t)
	content := &bundle.Item{Data: bundle.Data{Bytes: []byte("payload")}}
	// The same authority attests twice; quorum 2 must still fail.
	msg := buildAttestedMessage(t, content, a, a)

	opts := DeviceOptions{Quorum: 2}
	opts.Authorities = make(set.Set[bundle.Address], 0)
	opts.Authorities.Add(a.Address())

	_, err := Verify(msg, opts, nil)
	require.Error(err)
	requireVerifyReason(t, err, ReasonQuorumUnmet)
}

func requireVerifyReason(t *testing.T, err error, reason Reason) {
	t.Helper()
	require := require.New(t)
	require.Error(err)
	verr, ok := err.(*VerifyError)
	require.True(ok, "expected *VerifyError, got %T", err)
	require.Equal(reason, verr.Reason)
}
