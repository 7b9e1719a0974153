// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package bundle implements the on-wire envelope shared by every message in
// the host process: items, tags, and the nested-map data shape that lets an
// item carry either an opaque payload or a keyed set of sub-items.
package bundle

import (
	"github.com/luxfi/ids"
)

// Address identifies a signer's wallet. It is derived from a signature and
// is opaque outside of Encode/Decode.
type Address = ids.ShortID

// Tag is a single (name, value) pair. Tags are an ordered sequence: the same
// name may repeat, and multiplicity is preserved.
type Tag struct {
	Name  []byte
	Value []byte
}

// Tags is an ordered sequence of Tag. Order matters for canonical hashing.
type Tags []Tag

// Get returns the value of the first tag named name, and whether it was
// found.
func (t Tags) Get(name string) ([]byte, bool) {
	for _, tag := range t {
		if string(tag.Name) == name {
			return tag.Value, true
		}
	}
	return nil, false
}

// All returns the values of every tag named name, in order, preserving
// duplicates.
func (t Tags) All(name string) [][]byte {
	var out [][]byte
	for _, tag := range t {
		if string(tag.Name) == name {
			out = append(out, tag.Value)
		}
	}
	return out
}

// Has reports whether a tag named name with the given value exists.
func (t Tags) Has(name, value string) bool {
	for _, tag := range t {
		if string(tag.Name) == name && string(tag.Value) == value {
			return true
		}
	}
	return false
}

// Data is the payload of an item: either an opaque byte string, or a mapping
// from string keys to nested items. Exactly one of Bytes or Map is set;
// IsMap reports which.
type Data struct {
	Bytes []byte
	Map   map[string]*Item
}

// IsMap reports whether this Data wraps a mapping of nested items.
func (d Data) IsMap() bool {
	return d.Map != nil
}

// Item is the universal transport envelope. Target and Signature may be the
// zero value for an unsigned or targetless item.
type Item struct {
	Target    Address
	Tags      Tags
	Data      Data
	SignerPub []byte // raw public key bytes; nil if unsigned
	Signature []byte // nil if unsigned
}

// HasTarget reports whether the item names a non-empty target address.
func (i *Item) HasTarget() bool {
	return i.Target != Address{}
}

// Clone returns a deep copy of item, suitable for mutation (e.g. re-signing
// or stripping a wrapping layer) without aliasing the original.
func (i *Item) Clone() *Item {
	if i == nil {
		return nil
	}
	out := &Item{
		Target: i.Target,
		Tags:   append(Tags(nil), i.Tags...),
	}
	if i.SignerPub != nil {
		out.SignerPub = append([]byte(nil), i.SignerPub...)
	}
	if i.Signature != nil {
		out.Signature = append([]byte(nil), i.Signature...)
	}
	if i.Data.Bytes != nil {
		out.Data.Bytes = append([]byte(nil), i.Data.Bytes...)
	}
	if i.Data.Map != nil {
		m := make(map[string]*Item, len(i.Data.Map))
		for k, v := range i.Data.Map {
			m[k] = v.Clone()
		}
		out.Data.Map = m
	}
	return out
}
