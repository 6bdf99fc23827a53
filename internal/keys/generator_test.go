package keys

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/walletstate/internal/wallet"
)

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("entropy exhausted") }

func TestGenerateProducesUsablePair(t *testing.T) {
	pair, err := Ed25519Generator{}.Generate()
	require.NoError(t, err)

	raw, err := DecodePublicKey(pair.PublicKey)
	require.NoError(t, err)
	assert.Len(t, raw, PublicKeySize)
	require.Len(t, pair.SecretKey, 64)
	assert.Equal(t, raw, pair.SecretKey[32:])

	signed, err := Sign(pair, []byte("hello"))
	require.NoError(t, err)
	assert.True(t, Verify(pair, []byte("hello"), signed))
	assert.False(t, Verify(pair, []byte("bye"), signed))
}

func TestGenerateIsDeterministicForSeed(t *testing.T) {
	seed := bytes.Repeat([]byte{7}, 32)
	a, err := Ed25519Generator{Rand: bytes.NewReader(seed)}.Generate()
	require.NoError(t, err)
	b, err := Ed25519Generator{Rand: bytes.NewReader(seed)}.Generate()
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestGenerateSurfacesEntropyFailure(t *testing.T) {
	_, err := Ed25519Generator{Rand: failingReader{}}.Generate()
	assert.Error(t, err)
}

func TestDecodePublicKeyRejectsBadInput(t *testing.T) {
	_, err := DecodePublicKey("0OIl")
	assert.Error(t, err)

	_, err = DecodePublicKey(EncodePublicKey([]byte{1, 2, 3}))
	assert.Error(t, err)
}

func TestSignRejectsShortSecret(t *testing.T) {
	_, err := Sign(wallet.KeyPair{PublicKey: "abc", SecretKey: []byte{1, 2, 3}}, []byte("x"))
	assert.Error(t, err)
}

func TestGeneratedPairInstallsIntoStore(t *testing.T) {
	store := wallet.NewStore(wallet.DefaultBalance, nil)
	pair, err := Ed25519Generator{}.Generate()
	require.NoError(t, err)

	store.InitializeWallet(pair)
	st := store.State()
	assert.Equal(t, pair.PublicKey, st.PublicKey)
	assert.Equal(t, pair.SecretKey, st.SecretKey)
	assert.Equal(t, wallet.DefaultBalance, st.Balance)
}
