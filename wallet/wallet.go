// Package wallet implements key generation, address derivation, and
// persistence for a node's wallets.
package wallet

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"fmt"

	"github.com/pdkilimba/ledgerd/primitives"
)

const (
	// ChecksumLength is the number of double-SHA256 bytes appended to an
	// address payload for error detection.
	ChecksumLength = 4
	// Version is the single version byte prefixed to every address payload.
	Version = byte(0x00)
	// addressPayloadLength is version(1) + pubKeyHash(20) + checksum(4).
	addressPayloadLength = 1 + 20 + ChecksumLength
)

// ErrInvalidAddress is returned when an address fails base-58 decoding,
// structural validation, or checksum verification.
var ErrInvalidAddress = errors.New("wallet: invalid address")

// Wallet holds an Ed25519 key pair. The private key is the wallet's only
// secret; the address is always re-derivable from the public key.
type Wallet struct {
	PrivateKey ed25519.PrivateKey
	PublicKey  ed25519.PublicKey
}

// New generates a fresh wallet from a random Ed25519 key pair.
func New() (*Wallet, error) {
	priv, pub, err := primitives.NewKeyPair()
	if err != nil {
		return nil, fmt.Errorf("generating wallet key pair: %w", err)
	}
	return &Wallet{PrivateKey: priv, PublicKey: pub}, nil
}

// fromPrivateKey reconstructs a Wallet from a persisted Ed25519 private key;
// crypto/ed25519 private keys embed their public half, so no extra storage
// is needed.
func fromPrivateKey(priv ed25519.PrivateKey) *Wallet {
	return &Wallet{PrivateKey: priv, PublicKey: priv.Public().(ed25519.PublicKey)}
}

// PublicKeyHash returns RIPEMD160(SHA256(PublicKey)).
func (w *Wallet) PublicKeyHash() []byte {
	return primitives.PublicKeyHash(w.PublicKey)
}

// Address derives the wallet's base-58 address:
// version(1) || pubKeyHash(20) || checksum(4).
func (w *Wallet) Address() string {
	return addressFromPubKeyHash(w.PublicKeyHash())
}

func addressFromPubKeyHash(pubKeyHash []byte) string {
	versioned := append([]byte{Version}, pubKeyHash...)
	checksum := primitives.Checksum(versioned, ChecksumLength)
	full := append(versioned, checksum...)
	return base58Encode(full)
}

// ValidateAddress reports whether address base-58 decodes to a well-formed,
// checksum-matching payload.
func ValidateAddress(address string) bool {
	_, err := PubKeyHashFromAddress(address)
	return err == nil
}

// PubKeyHashFromAddress decodes address and returns the 20-byte public-key
// hash it locks to, stripping the version byte and checksum. Used by
// coinbase/output construction and by CLI balance lookups.
func PubKeyHashFromAddress(address string) ([]byte, error) {
	decoded, err := base58Decode(address)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidAddress, err)
	}
	if len(decoded) != addressPayloadLength {
		return nil, fmt.Errorf("%w: wrong payload length %d", ErrInvalidAddress, len(decoded))
	}

	version := decoded[0]
	pubKeyHash := decoded[1 : len(decoded)-ChecksumLength]
	wantChecksum := decoded[len(decoded)-ChecksumLength:]

	gotChecksum := primitives.Checksum(append([]byte{version}, pubKeyHash...), ChecksumLength)
	if !bytes.Equal(wantChecksum, gotChecksum) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrInvalidAddress)
	}

	out := make([]byte, len(pubKeyHash))
	copy(out, pubKeyHash)
	return out, nil
}
