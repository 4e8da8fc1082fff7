package secrets

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = base64.StdEncoding.EncodeToString(make([]byte, 32))

func TestRoundTrip(t *testing.T) {
	box, err := NewBox(testKey)
	require.NoError(t, err)

	ct, err := box.Encrypt("super-secret-api-key")
	require.NoError(t, err)
	assert.NotContains(t, ct, "super-secret")

	pt, err := box.Decrypt(ct)
	require.NoError(t, err)
	assert.Equal(t, "super-secret-api-key", pt)
}

func TestDecryptCorrupted(t *testing.T) {
	box, err := NewBox(testKey)
	require.NoError(t, err)

	ct, err := box.Encrypt("super-secret-api-key")
	require.NoError(t, err)

	raw, _ := base64.StdEncoding.DecodeString(ct)
	raw[len(raw)-1] ^= 0xff
	_, err = box.Decrypt(base64.StdEncoding.EncodeToString(raw))
	require.Error(t, err)
	// текст ошибки не должен выдавать plaintext
	assert.NotContains(t, err.Error(), "super-secret")
}

func TestDecryptGarbage(t *testing.T) {
	box, err := NewBox(testKey)
	require.NoError(t, err)

	_, err = box.Decrypt("!!!не base64!!!")
	require.Error(t, err)

	_, err = box.Decrypt(base64.StdEncoding.EncodeToString([]byte("xx")))
	require.Error(t, err)
}

func TestBadKey(t *testing.T) {
	_, err := NewBox("short")
	require.Error(t, err)

	_, err = NewBox(base64.StdEncoding.EncodeToString(make([]byte, 16)))
	require.Error(t, err)
}
