package primitives

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublicKeyHashLength(t *testing.T) {
	_, pub, err := NewKeyPair()
	require.NoError(t, err)

	hash := PublicKeyHash(pub)
	require.Len(t, hash, 20)
}

func TestChecksumDeterministic(t *testing.T) {
	payload := []byte("versioned-payload")
	require.Equal(t, Checksum(payload, 4), Checksum(payload, 4))
	require.Len(t, Checksum(payload, 4), 4)
}

func TestSignVerifyRoundTrip(t *testing.T) {
	priv, pub, err := NewKeyPair()
	require.NoError(t, err)

	msg := []byte("trimmed pre-image")
	sig := Sign(priv, msg)
	require.True(t, Verify(pub, msg, sig))
	require.False(t, Verify(pub, []byte("tampered"), sig))
}

func TestPKCS8RoundTrip(t *testing.T) {
	priv, _, err := NewKeyPair()
	require.NoError(t, err)

	der, err := MarshalPKCS8(priv)
	require.NoError(t, err)

	restored, err := ParsePKCS8(der)
	require.NoError(t, err)
	require.Equal(t, priv, restored)
}

func TestDeterministicSignaturesBothVerify(t *testing.T) {
	priv, pub, err := NewKeyPair()
	require.NoError(t, err)

	msg := []byte("identical pre-image")
	sig1 := Sign(priv, msg)
	sig2 := Sign(priv, msg)
	require.True(t, Verify(pub, msg, sig1))
	require.True(t, Verify(pub, msg, sig2))
}
