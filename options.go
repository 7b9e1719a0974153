// Copyright (C) 2019-2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package poda

import (
	"strconv"

	"github.com/luxfi/math/set"

	"github.com/luxfi/poda/bundle"
)

const (
	tagAuthority = "Authority"
	tagQuorum    = "Quorum"
	tagDevice    = "Device"
	tagType      = "Type"
	tagFromProc  = "From-Process"

	// DeviceName is the value of the "Device" tag that marks a process as
	// governed by this consensus scheme.
	DeviceName = "PODA"
	// ProcessType is the value of the "Type" tag that marks an item as a
	// self-describing process definition.
	ProcessType = "Process"
)

// DeviceOptions is the parsed, validated configuration of a single PoDA
// process: its authority set and the quorum count required to admit a
// process-originated message.
type DeviceOptions struct {
	Authorities set.Set[bundle.Address]
	Quorum      uint32
}

// ParseOptions extracts the authority set and quorum from a process's
// declared tags (§4.1). The local wallet's address is always appended to
// the authority list — the node implicitly self-authorizes.
//
// ParseOptions is total except for the errors named in §4.1: a missing or
// non-integer Quorum tag, or an authority list that is empty even after the
// local wallet is appended.
func ParseOptions(tags bundle.Tags, wallet bundle.Wallet) (DeviceOptions, error) {
	quorumBytes, ok := tags.Get(tagQuorum)
	if !ok {
		return DeviceOptions{}, ErrMissingQuorum
	}
	quorum64, err := strconv.ParseUint(string(quorumBytes), 10, 32)
	if err != nil {
		return DeviceOptions{}, ErrInvalidQuorum
	}

	authorities := make(set.Set[bundle.Address], len(tags))
	for _, raw := range tags.All(tagAuthority) {
		addr, err := bundle.DecodeAddress(string(raw))
		if err != nil {
			continue // malformed authority tags are silently skipped, not fatal
		}
		authorities.Add(addr)
	}
	if wallet != nil {
		authorities.Add(wallet.Address())
	}
	if authorities.Len() == 0 {
		return DeviceOptions{}, ErrNoAuthorities
	}

	return DeviceOptions{
		Authorities: authorities,
		Quorum:      uint32(quorum64),
	}, nil
}

// IsPoDAGoverned reports whether a process definition's tags declare
// Device = PODA.
func IsPoDAGoverned(tags bundle.Tags) bool {
	return tags.Has(tagDevice, DeviceName)
}

// IsProcessDefinition reports whether an item's own tags mark it as a
// self-describing process (Type = Process).
func IsProcessDefinition(tags bundle.Tags) bool {
	return tags.Has(tagType, ProcessType)
}
