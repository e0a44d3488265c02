// Package primitives collects the hash and signature building blocks shared
// by the wallet and blockchain packages: SHA-256, double SHA-256, RIPEMD-160
// (used for the Bitcoin-style "hash160" public-key hash) and Ed25519 signing.
package primitives

import (
	"crypto/sha256"

	"golang.org/x/crypto/ripemd160" //nolint:staticcheck // required for address hash160
)

// Sha256 returns the SHA-256 digest of data.
func Sha256(data []byte) []byte {
	sum := sha256.Sum256(data)
	return sum[:]
}

// DoubleSha256 returns SHA-256(SHA-256(data)), used for address checksums.
func DoubleSha256(data []byte) []byte {
	first := sha256.Sum256(data)
	second := sha256.Sum256(first[:])
	return second[:]
}

// Ripemd160 returns the RIPEMD-160 digest of data.
func Ripemd160(data []byte) []byte {
	hasher := ripemd160.New()
	_, _ = hasher.Write(data) // hash.Hash.Write never returns an error
	return hasher.Sum(nil)
}

// PublicKeyHash is Bitcoin's "hash160": RIPEMD160(SHA256(pubKey)).
func PublicKeyHash(pubKey []byte) []byte {
	return Ripemd160(Sha256(pubKey))
}

// Checksum returns the first n bytes of DoubleSha256(payload).
func Checksum(payload []byte, n int) []byte {
	sum := DoubleSha256(payload)
	return sum[:n]
}
