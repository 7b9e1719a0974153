// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package poda

import (
	"github.com/luxfi/log"
	"github.com/luxfi/math/set"

	"github.com/luxfi/poda/bundle"
)

const (
	keyAttestations = "Attestations"
	keyMessage      = "Message"
)

// VerifiedContent is the unwrapped content extracted by Stage 1, threaded
// through Stages 2 and 3.
type VerifiedContent struct {
	Attestations bundle.AttestationSet
	Content      *bundle.Item
	// ValidSigners is the deduplicated count of in-authority signers whose
	// attestation verified and was relevant to Content, as computed by
	// stage3AuthorityAndQuorum. Zero until Stage 3 has run.
	ValidSigners int
}

// Verify runs the three-stage Attestation Verifier against msg (§4.3),
// short-circuiting on the first failing stage. A nil error means the
// message cleared quorum and the returned VerifiedContent is populated; a
// *VerifyError carries the wire Reason for the Error Skip path.
func Verify(msg *bundle.Item, opts DeviceOptions, logger log.Logger) (*VerifiedContent, error) {
	vc, err := stage1Structural(msg)
	if err != nil {
		return nil, err
	}
	if err := stage2Cryptographic(vc.Attestations); err != nil {
		return nil, err
	}
	if err := stage3AuthorityAndQuorum(vc, opts, logger); err != nil {
		return nil, err
	}
	return vc, nil
}

// stage1Structural unwraps msg to its data mapping and requires both
// "Attestations" and "Message" keys. The AttestationSet may be nested one
// level deeper (an item whose data IS the set) — both shapes are accepted.
func stage1Structural(msg *bundle.Item) (*VerifiedContent, error) {
	if msg == nil || !msg.Data.IsMap() {
		return nil, newVerifyError(ReasonMalformedBundle)
	}
	attItem, ok := msg.Data.Map[keyAttestations]
	if !ok {
		return nil, newVerifyError(ReasonMalformedBundle)
	}
	content, ok := msg.Data.Map[keyMessage]
	if !ok {
		return nil, newVerifyError(ReasonMalformedBundle)
	}

	attSet, err := extractAttestationSet(attItem)
	if err != nil {
		return nil, err
	}
	return &VerifiedContent{Attestations: attSet, Content: content}, nil
}

// extractAttestationSet accepts either an AttestationSet directly (an item
// whose own data map already is the set of attestations) or an item that
// wraps one further level, per the "doubly-wrapped" allowance in the data
// model.
func extractAttestationSet(item *bundle.Item) (bundle.AttestationSet, error) {
	if !item.Data.IsMap() {
		return nil, newVerifyError(ReasonMalformedBundle)
	}
	// Heuristic: a map whose only key is "Attestations" is taken as the
	// wrapping level and unwrapped (recursively); any other map is taken
	// as the AttestationSet itself, every entry treated as an attestation.
	if wrapped, ok := item.Data.Map[keyAttestations]; ok && len(item.Data.Map) == 1 {
		return extractAttestationSet(wrapped)
	}
	return bundle.AttestationSet(item.Data.Map), nil
}

// stage2Cryptographic verifies every attestation's signature. A single bad
// signature fails the whole message, independent of quorum (S3).
func stage2Cryptographic(attestations bundle.AttestationSet) error {
	for _, att := range attestations {
		valid, err := bundle.VerifyItem(att)
		if err != nil {
			return err
		}
		if !valid {
			return newVerifyError(ReasonBadSignature)
		}
	}
	return nil
}

// stage3AuthorityAndQuorum counts attestations that are simultaneously
// signed by an in-authority signer and relevant to Content, deduplicated by
// signer address (Open Question #1 in §9, resolved: count once), and
// requires that count to meet quorum.
func stage3AuthorityAndQuorum(vc *VerifiedContent, opts DeviceOptions, logger log.Logger) error {
	contentID, err := bundle.ID(vc.Content, bundle.Unsigned)
	if err != nil {
		return err
	}

	validSigners := make(set.Set[bundle.Address], len(vc.Attestations))
	for _, att := range vc.Attestations {
		signer, err := bundle.Signer(att)
		if err != nil {
			continue
		}
		if !opts.Authorities.Contains(signer) {
			// Not an error: attestations from non-authorities are simply
			// dropped at this stage (§4.3 "Tie-breaks & edge cases").
			continue
		}

		// Re-verify the signature here even though Stage 2 already did.
		// Kept as defense-in-depth per §9 Open Question #3: cheap relative
		// to the cost of a false quorum, and correct even if a caller
		// invokes Stage 3 against a mutated copy of the attestation set.
		valid, err := bundle.VerifyItem(att)
		if err != nil || !valid {
			continue
		}

		relevant, err := bundle.IsAttestationFor(att, contentID)
		if err != nil || !relevant {
			continue
		}

		validSigners.Add(signer)
	}

	if logger != nil {
		logger.Debug("poda: quorum evaluation",
			log.Int("validSigners", validSigners.Len()),
			log.Int("quorum", int(opts.Quorum)),
		)
	}

	vc.ValidSigners = validSigners.Len()
	if uint32(vc.ValidSigners) < opts.Quorum {
		return newVerifyError(ReasonQuorumUnmet)
	}
	return nil
}
