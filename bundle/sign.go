// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bundle

import (
	"crypto/sha256"
	"encoding/base64"
	"errors"

	"github.com/luxfi/crypto/bls"
	"github.com/luxfi/ids"
)

var (
	ErrUnsigned        = errors.New("bundle: item is not signed")
	ErrBadSignature    = errors.New("bundle: signature does not verify")
	ErrBadPublicKey    = errors.New("bundle: could not parse public key")
)

// AddressFromPublicKey derives an Address from a raw (uncompressed) BLS
// public key: the first 20 bytes of its SHA-256 digest, the same
// hash-and-truncate shape used for wallet addresses throughout the
// ecosystem this module borrows its crypto stack from.
func AddressFromPublicKey(pubKey []byte) Address {
	digest := sha256.Sum256(pubKey)
	var addr Address
	copy(addr[:], digest[:len(addr)])
	return addr
}

// Encode renders addr as the opaque base64url string carried on the wire.
func Encode(addr Address) string {
	return base64.RawURLEncoding.EncodeToString(addr[:])
}

// DecodeAddress parses the base64url form produced by Encode.
func DecodeAddress(s string) (Address, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return Address{}, err
	}
	var addr Address
	if len(raw) != len(addr) {
		return Address{}, errors.New("bundle: address has wrong length")
	}
	copy(addr[:], raw)
	return addr, nil
}

// EncodeID renders a content ID (an item's unsigned or signed ID) as the
// opaque base64url string carried in Attestation-For tags.
func EncodeID(id ids.ID) string {
	return base64.RawURLEncoding.EncodeToString(id[:])
}

// DecodeID parses the base64url form produced by EncodeID.
func DecodeID(s string) (ids.ID, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return ids.ID{}, err
	}
	var id ids.ID
	if len(raw) != len(id) {
		return ids.ID{}, errors.New("bundle: id has wrong length")
	}
	copy(id[:], raw)
	return id, nil
}

// Signer returns the Address that produced item's signature. The address is
// derived from the embedded public key, not looked up externally: Verify the
// item first if you need assurance the signature is authentic.
func Signer(item *Item) (Address, error) {
	if len(item.SignerPub) == 0 || len(item.Signature) == 0 {
		return Address{}, ErrUnsigned
	}
	return AddressFromPublicKey(item.SignerPub), nil
}

// VerifyItem validates item's signature over its canonical unsigned form.
// It reports (false, nil) for a well-formed-but-invalid signature, and a
// non-nil error only when the item cannot even be parsed.
func VerifyItem(item *Item) (bool, error) {
	if len(item.SignerPub) == 0 || len(item.Signature) == 0 {
		return false, nil
	}
	pk := bls.PublicKeyFromValidUncompressedBytes(item.SignerPub)
	if pk == nil {
		return false, nil
	}
	sig, err := bls.SignatureFromBytes(item.Signature)
	if err != nil {
		return false, nil
	}
	unsignedBytes, err := canonicalBytes(item, Unsigned)
	if err != nil {
		return false, err
	}
	return bls.Verify(pk, sig, unsignedBytes), nil
}

// SignItem signs item's canonical unsigned form with wallet, mutating item
// in place with the resulting SignerPub and Signature.
func SignItem(item *Item, wallet Wallet) error {
	unsignedBytes, err := canonicalBytes(item, Unsigned)
	if err != nil {
		return err
	}
	sig, err := wallet.Sign(unsignedBytes)
	if err != nil {
		return err
	}
	item.SignerPub = wallet.PublicKeyBytes()
	item.Signature = sig
	return nil
}
