// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package poda

import (
	"fmt"

	"github.com/luxfi/log"

	"github.com/luxfi/poda/bundle"
)

// tagErrorName and tagErrorValue mark a signed outbox item produced by the
// Error Skip path (§4.5).
const (
	tagErrorName  = "Error"
	tagErrorValue = "PoDA"
)

// Execute is the Pre-Execution Gate: invoked as execute(OuterItem, state,
// opts) on every pass. It dispatches on state.Pass and, at pass 1, either
// bypasses validation for a user-signed message or runs the Verifier and
// publishes attestations into the VFS on success.
func Execute(outer *bundle.Item, state *ExecState, opts DeviceOptions) (Outcome, error) {
	switch state.Pass {
	case PassPreExecute:
		return gate(outer, state, opts)
	default:
		// Pass 3 and any other pass are a no-op: the device doesn't
		// post-process results here (see Push for output attestation).
		return OK, nil
	}
}

func gate(outer *bundle.Item, state *ExecState, opts DeviceOptions) (Outcome, error) {
	if !outer.Data.IsMap() {
		return errorSkip(state, ReasonMalformedBundle)
	}
	message, ok := outer.Data.Map[keyMessage]
	if !ok {
		return errorSkip(state, ReasonMalformedBundle)
	}

	if IsUserSigned(message) {
		state.Metrics.Observe(OK, 0)
		return OK, nil
	}

	vc, err := Verify(message, opts, state.Logger)
	if err != nil {
		verr, ok := err.(*VerifyError)
		if !ok {
			return Skip, err
		}
		outcome, skipErr := errorSkip(state, verr.Reason)
		state.Metrics.Observe(outcome, 0)
		return outcome, skipErr
	}

	publishAttestations(state, vc.Attestations)

	unwrapped := outer.Clone()
	unwrapped.Data.Map[keyMessage] = vc.Content.Clone()
	state.ArgPrefix = []*bundle.Item{unwrapped}

	if state.Logger != nil {
		state.Logger.Debug("poda: gate accepted process message",
			log.Int("attestations", len(vc.Attestations)),
		)
	}
	state.Metrics.Observe(OK, vc.ValidSigners)
	return OK, nil
}

// publishAttestations writes one VFS entry per unique-signer attestation,
// "/Attestations/<EncodedSigner>" -> attestation's data payload. Later
// signers with the same encoded address overwrite earlier ones; iteration
// order over the AttestationSet is irrelevant by construction (§4.4).
func publishAttestations(state *ExecState, attestations bundle.AttestationSet) {
	if state.VFS == nil {
		state.VFS = make(map[string][]byte)
	}
	for _, att := range attestations {
		signer, err := bundle.Signer(att)
		if err != nil {
			continue
		}
		payload, err := bundle.Payload(att)
		if err != nil {
			if state.Logger != nil {
				state.Logger.Warn("poda: failed to render attestation payload",
					log.String("signer", bundle.Encode(signer)),
					log.String("error", err.Error()),
				)
			}
			continue
		}
		path := fmt.Sprintf("/Attestations/%s", bundle.Encode(signer))
		state.VFS[path] = payload
	}
}

// errorSkip constructs the signed error outbox item described in §4.5 and
// signals the host to bypass execution. Unlike the reference implementation
// this device is derived from, no artificial delay is inserted here — that
// was a documented development artifact, not a production behavior.
func errorSkip(state *ExecState, reason Reason) (Outcome, error) {
	item := &bundle.Item{
		Tags: bundle.Tags{{Name: []byte(tagErrorName), Value: []byte(tagErrorValue)}},
		Data: bundle.Data{Bytes: []byte(reason)},
	}
	if state.Wallet != nil {
		if err := bundle.SignItem(item, state.Wallet); err != nil {
			return Skip, err
		}
	}
	state.Results = map[ResultBucket]*bundle.Item{
		ResultOutbox: item,
	}
	if state.Logger != nil {
		state.Logger.Warn("poda: rejecting process message", log.String("reason", string(reason)))
	}
	return Skip, nil
}
