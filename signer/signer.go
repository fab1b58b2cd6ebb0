// Package signer provides interfaces.Signer implementations for the EVM backend
// and the adapter that turns one into a go-ethereum bind.SignerFn.
package signer

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ruteri/did-ledger-adapter/interfaces"
)

// LocalSigner holds a secp256k1 key in memory.
type LocalSigner struct {
	priv    *ecdsa.PrivateKey
	address common.Address
}

// NewLocalSigner parses a hex-encoded private key, with or without 0x prefix.
func NewLocalSigner(privHex string) (*LocalSigner, error) {
	privHex = strings.TrimPrefix(strings.TrimSpace(privHex), "0x")
	if len(privHex) == 0 || len(privHex)%2 != 0 {
		return nil, fmt.Errorf("invalid private key: empty or odd length")
	}
	priv, err := crypto.HexToECDSA(privHex)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return NewLocalSignerFromKey(priv), nil
}

// NewLocalSignerFromKey wraps an already parsed key.
func NewLocalSignerFromKey(priv *ecdsa.PrivateKey) *LocalSigner {
	return &LocalSigner{priv: priv, address: crypto.PubkeyToAddress(priv.PublicKey)}
}

// Address is the account derived from the public key.
func (s *LocalSigner) Address() common.Address {
	return s.address
}

// SignHash returns a 65-byte [R || S || V] signature with V in {0, 1}.
func (s *LocalSigner) SignHash(_ context.Context, hash []byte) ([]byte, error) {
	if len(hash) != common.HashLength {
		return nil, fmt.Errorf("hash must be %d bytes, got %d", common.HashLength, len(hash))
	}
	sig, err := crypto.Sign(hash, s.priv)
	if err != nil {
		return nil, fmt.Errorf("failed to sign hash: %w", err)
	}
	return sig, nil
}

// SignerFn adapts s to bind.TransactOpts, signing legacy transactions with
// EIP-155 replay protection for chainID.
func SignerFn(ctx context.Context, chainID *big.Int, s interfaces.Signer) bind.SignerFn {
	txSigner := types.NewEIP155Signer(chainID)
	return func(from common.Address, tx *types.Transaction) (*types.Transaction, error) {
		if from != s.Address() {
			return nil, bind.ErrNotAuthorized
		}
		sig, err := s.SignHash(ctx, txSigner.Hash(tx).Bytes())
		if err != nil {
			return nil, err
		}
		if len(sig) != crypto.SignatureLength {
			return nil, fmt.Errorf("invalid signature length %d", len(sig))
		}
		return tx.WithSignature(txSigner, sig)
	}
}
