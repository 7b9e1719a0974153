// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bundle

import (
	"crypto/sha256"
	"errors"
	"sort"

	"github.com/luxfi/codec"
	"github.com/luxfi/codec/linearcodec"
	"github.com/luxfi/ids"
)

const (
	codecVersion  = 0
	maxItemSize   = 2 * 1024 * 1024 // 2 MiB, generous headroom over a message + attestation set
	maxMapEntries = 1 << 16
)

// c serializes the canonical wire form used to derive content-addressed IDs.
// Registration mirrors the teacher's components/message codec: a single
// linear codec manager wrapping one registered type.
var c codec.Manager

func init() {
	c = codec.NewManager(maxItemSize)
	lc := linearcodec.NewDefault()
	if err := lc.RegisterType(&wireItem{}); err != nil {
		panic(err)
	}
	if err := c.RegisterCodec(codecVersion, lc); err != nil {
		panic(err)
	}
}

var ErrTooManyMapEntries = errors.New("data map exceeds maximum entry count")

// wireItem is the flattened, deterministically-ordered form of Item that
// actually gets serialized. Map data is projected into sorted (key, value)
// pairs so that two Go map iterations of the same logical data always
// produce identical bytes.
type wireItem struct {
	Target    Address   `serialize:"true"`
	Tags      []wireTag `serialize:"true"`
	IsMap     bool      `serialize:"true"`
	Bytes     []byte    `serialize:"true"`
	MapKeys   []string  `serialize:"true"`
	MapValues [][]byte  `serialize:"true"`
	SignerPub []byte    `serialize:"true"`
	Signature []byte    `serialize:"true"`
}

type wireTag struct {
	Name  []byte `serialize:"true"`
	Value []byte `serialize:"true"`
}

// IDForm selects which canonical form to hash in ID.
type IDForm int

const (
	// Unsigned hashes the item's content, excluding SignerPub/Signature.
	Unsigned IDForm = iota
	// Signed hashes the item's content, including SignerPub/Signature.
	Signed
)

// ID returns the content-addressed identifier of item under the requested
// form. Nested map items are hashed recursively and referenced by their own
// unsigned ID, so no cycle can arise (items reference IDs, never pointers).
func ID(item *Item, form IDForm) (ids.ID, error) {
	bytes, err := canonicalBytes(item, form)
	if err != nil {
		return ids.ID{}, err
	}
	return sha256.Sum256(bytes), nil
}

// Payload renders item's data payload as bytes: Data.Bytes verbatim when
// data is not a map, or the same canonical, deterministically-ordered
// encoding used to derive content IDs when data is a map, so a map-valued
// attestation (e.g. one carrying nested sub-items rather than opaque bytes)
// never publishes as empty.
func Payload(item *Item) ([]byte, error) {
	if !item.Data.IsMap() {
		return item.Data.Bytes, nil
	}
	return canonicalBytes(&Item{Data: item.Data}, Unsigned)
}

func canonicalBytes(item *Item, form IDForm) ([]byte, error) {
	w, err := toWireItem(item, form)
	if err != nil {
		return nil, err
	}
	return c.Marshal(codecVersion, w)
}

func toWireItem(item *Item, form IDForm) (*wireItem, error) {
	if len(item.Data.Map) > maxMapEntries {
		return nil, ErrTooManyMapEntries
	}

	w := &wireItem{
		Target: item.Target,
	}
	for _, t := range item.Tags {
		w.Tags = append(w.Tags, wireTag{Name: t.Name, Value: t.Value})
	}

	if item.Data.IsMap() {
		w.IsMap = true
		keys := make([]string, 0, len(item.Data.Map))
		for k := range item.Data.Map {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		w.MapKeys = keys
		w.MapValues = make([][]byte, len(keys))
		for i, k := range keys {
			// Nested items are referenced by their own unsigned ID, never by
			// their full bytes: this is what makes member() a tree-walk
			// over content hashes instead of a pointer graph.
			nestedID, err := ID(item.Data.Map[k], Unsigned)
			if err != nil {
				return nil, err
			}
			w.MapValues[i] = nestedID[:]
		}
	} else {
		w.Bytes = item.Data.Bytes
	}

	if form == Signed {
		w.SignerPub = item.SignerPub
		w.Signature = item.Signature
	}
	return w, nil
}

// Normalize returns a deep copy of item with every nested map canonically
// ordered. Because map iteration order already gets sorted at serialization
// time (toWireItem), Normalize is primarily useful before handing an item to
// a collaborator that re-serializes it itself (e.g. before signing).
func Normalize(item *Item) *Item {
	out := item.Clone()
	if out.Data.IsMap() {
		for k, v := range out.Data.Map {
			out.Data.Map[k] = Normalize(v)
		}
	}
	return out
}

// Member reports whether id appears as the unsigned ID of item or of any
// item nested (transitively) within item's data map.
func Member(id ids.ID, item *Item) bool {
	if item == nil {
		return false
	}
	selfID, err := ID(item, Unsigned)
	if err == nil && selfID == id {
		return true
	}
	if !item.Data.IsMap() {
		return false
	}
	for _, nested := range item.Data.Map {
		if Member(id, nested) {
			return true
		}
	}
	return false
}
