package cryptox

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cheap parameters keep the suite fast; production uses DefaultKDFParams.
var testParams = KDFParams{Time: 1, MemoryKiB: 1024, Threads: 1, KeyLen: 32}

func TestDeriveMasterKey_Deterministic(t *testing.T) {
	password := []byte("secret-password")
	salt := []byte("fixed-salt-0123")

	key1 := DeriveMasterKey(password, salt, testParams)
	key2 := DeriveMasterKey(password, salt, testParams)

	if !bytes.Equal(key1, key2) {
		t.Errorf("expected same result for same inputs, got different")
	}
	assert.Len(t, key1, 32)
}

func TestDeriveMasterKey_DifferentInputs(t *testing.T) {
	password := []byte("secret-password")

	key1 := DeriveMasterKey(password, []byte("salt-1"), testParams)
	key2 := DeriveMasterKey(password, []byte("salt-2"), testParams)

	if bytes.Equal(key1, key2) {
		t.Errorf("expected different results for different salts, got same")
	}

	other := testParams
	other.Time = 2
	key3 := DeriveMasterKey(password, []byte("salt-1"), other)
	assert.NotEqual(t, key1, key3, "cost parameters must influence the key")
}

func TestKDFParams_Validate(t *testing.T) {
	require.NoError(t, DefaultKDFParams().Validate())

	tests := []struct {
		name string
		p    KDFParams
	}{
		{"zero time", KDFParams{Time: 0, MemoryKiB: 1024, Threads: 1, KeyLen: 32}},
		{"zero memory", KDFParams{Time: 1, MemoryKiB: 0, Threads: 1, KeyLen: 32}},
		{"zero threads", KDFParams{Time: 1, MemoryKiB: 1024, Threads: 0, KeyLen: 32}},
		{"odd key length", KDFParams{Time: 1, MemoryKiB: 1024, Threads: 1, KeyLen: 20}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.p.Validate(), ErrInvalidParams)
		})
	}
}

func TestMakeVerifier_DependsOnKey(t *testing.T) {
	a := MakeVerifier([]byte("key-a"))
	b := MakeVerifier([]byte("key-b"))

	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, MakeVerifier([]byte("key-a")))
}

func TestSealOpen_RoundTrip(t *testing.T) {
	key := DeriveMasterKey([]byte("pw"), []byte("salt"), testParams)
	aad := []byte("header")

	ct, nonce, err := Seal(key, []byte("hello"), aad)
	require.NoError(t, err)
	require.Len(t, nonce, NonceSize)

	pt, err := Open(key, ct, nonce, aad)
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), pt)
}

func TestSeal_FreshNonceEachCall(t *testing.T) {
	key := DeriveMasterKey([]byte("pw"), []byte("salt"), testParams)

	ct1, n1, err := Seal(key, []byte("same"), nil)
	require.NoError(t, err)
	ct2, n2, err := Seal(key, []byte("same"), nil)
	require.NoError(t, err)

	assert.NotEqual(t, n1, n2)
	assert.NotEqual(t, ct1, ct2)
}

func TestOpen_RejectsTampering(t *testing.T) {
	key := DeriveMasterKey([]byte("pw"), []byte("salt"), testParams)
	ct, nonce, err := Seal(key, []byte("payload"), []byte("aad"))
	require.NoError(t, err)

	t.Run("flipped ciphertext bit", func(t *testing.T) {
		bad := append([]byte(nil), ct...)
		bad[0] ^= 0x01
		_, err := Open(key, bad, nonce, []byte("aad"))
		assert.Error(t, err)
	})

	t.Run("different additional data", func(t *testing.T) {
		_, err := Open(key, ct, nonce, []byte("other"))
		assert.Error(t, err)
	})

	t.Run("wrong key", func(t *testing.T) {
		other := DeriveMasterKey([]byte("pw2"), []byte("salt"), testParams)
		_, err := Open(other, ct, nonce, []byte("aad"))
		assert.Error(t, err)
	})

	t.Run("short nonce", func(t *testing.T) {
		_, err := Open(key, ct, nonce[:4], []byte("aad"))
		assert.Error(t, err)
	})
}
