// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package poda

import "github.com/luxfi/poda/bundle"

// IsUserSigned classifies a potentially-wrapped item: true if the payload
// was submitted by an end user (no attestations required), false if it was
// produced by another process and must clear the Attestation Verifier.
//
// Per §4.2, any shape other than "outer item wraps a Message that carries a
// From-Process tag" is treated as user-signed: this discriminator fails
// open, leaving well-formed process messages to the downstream Verifier as
// the actual enforcement point.
func IsUserSigned(outer *bundle.Item) bool {
	if outer == nil || !outer.Data.IsMap() {
		return true
	}
	message, ok := outer.Data.Map[keyMessage]
	if !ok {
		return true
	}
	_, hasFromProcess := message.Tags.Get(tagFromProc)
	return !hasFromProcess
}
