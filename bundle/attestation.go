// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bundle

import (
	"strconv"

	"github.com/luxfi/ids"
)

// AttestationTag is the tag name used to bind an attestation to the
// unsigned ID of the content it attests to, when the attestation doesn't
// already share that unsigned ID or transitively contain it.
const AttestationTag = "Attestation-For"

// AttestationSet is a mapping from arbitrary string keys (conventionally
// decimal indices) to attestation items. Keys carry no meaning; only values
// do.
type AttestationSet map[string]*Item

// NewAttestationSet zips items into a set keyed by their decimal-string
// index, 1-based, matching the wire layout in §4.6 of the PoDA
// specification ("zip the sequence ... with indices 1..n").
func NewAttestationSet(items []*Item) AttestationSet {
	set := make(AttestationSet, len(items))
	for i, item := range items {
		set[strconv.Itoa(i+1)] = item
	}
	return set
}

// IsAttestationFor reports whether attestation binds to contentID under any
// of the three forms the specification allows:
//
//  1. attestation's own unsigned ID equals contentID (it attested by being
//     the same canonical content, typically with empty data),
//  2. attestation carries an Attestation-For tag equal to Encode(contentID), or
//  3. attestation transitively contains an item whose unsigned ID is
//     contentID.
func IsAttestationFor(attestation *Item, contentID ids.ID) (bool, error) {
	selfID, err := ID(attestation, Unsigned)
	if err != nil {
		return false, err
	}
	if selfID == contentID {
		return true, nil
	}
	if tag, ok := attestation.Tags.Get(AttestationTag); ok {
		if string(tag) == EncodeID(contentID) {
			return true, nil
		}
	}
	return Member(contentID, attestation), nil
}
