// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bundle

import (
	"fmt"

	"github.com/luxfi/crypto/bls"
)

// Wallet signs canonical item bytes and exposes the signer's address. Each
// authority in a PoDA deployment holds one Wallet; the local node's Wallet
// is carried in ExecState.
type Wallet interface {
	Address() Address
	PublicKeyBytes() []byte
	Sign(msg []byte) (sig []byte, err error)
}

// blsWallet is the default Wallet backed by a BLS secret key, the same
// signature scheme luxfi-vm uses for Warp messages (vms/platformvm/warp).
// Unlike Warp, PoDA never aggregates signatures across signers: every
// attestation is verified independently against its own signer's public
// key, so a plain (non-aggregate) BLS signature per item is sufficient.
type blsWallet struct {
	sk      *bls.SecretKey
	pk      *bls.PublicKey
	pkBytes []byte
	addr    Address
}

// NewWallet wraps a BLS secret key as a Wallet.
func NewWallet(sk *bls.SecretKey) (Wallet, error) {
	if sk == nil {
		return nil, fmt.Errorf("bundle: nil secret key")
	}
	pk := sk.PublicKey()
	pkBytes := bls.PublicKeyToUncompressedBytes(pk)
	return &blsWallet{
		sk:      sk,
		pk:      pk,
		pkBytes: pkBytes,
		addr:    AddressFromPublicKey(pkBytes),
	}, nil
}

func (w *blsWallet) Address() Address        { return w.addr }
func (w *blsWallet) PublicKeyBytes() []byte  { return w.pkBytes }

func (w *blsWallet) Sign(msg []byte) ([]byte, error) {
	sig, err := w.sk.Sign(msg)
	if err != nil {
		return nil, err
	}
	return bls.SignatureToBytes(sig), nil
}
