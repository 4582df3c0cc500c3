package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEngine(t *testing.T) {
	tests := []struct {
		name    string
		key     []byte
		wantErr bool
	}{
		{name: "valid 32-byte key", key: make([]byte, 32), wantErr: false},
		{name: "short key", key: make([]byte, 16), wantErr: true},
		{name: "long key", key: make([]byte, 64), wantErr: true},
		{name: "empty key", key: []byte{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, err := NewEngine(tt.key)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, engine)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, engine)
		})
	}
}

func TestEngine_EncryptDecryptRoundTrip(t *testing.T) {
	engine, err := NewEngine(make([]byte, 32))
	require.NoError(t, err)

	plaintext := []byte("chunk payload data")

	ciphertext, err := engine.Encrypt(plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, ciphertext)

	decrypted, err := engine.Decrypt(ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decrypted)
}

func TestEngine_Decrypt_TamperedCiphertextFails(t *testing.T) {
	engine, err := NewEngine(make([]byte, 32))
	require.NoError(t, err)

	ciphertext, err := engine.Encrypt([]byte("chunk payload data"))
	require.NoError(t, err)

	tampered := append([]byte{}, ciphertext...)
	tampered[len(tampered)-1] ^= 0xFF

	_, err = engine.Decrypt(tampered)
	assert.Error(t, err)
}

func TestEngine_Decrypt_ShortCiphertextFails(t *testing.T) {
	engine, err := NewEngine(make([]byte, 32))
	require.NoError(t, err)

	_, err = engine.Decrypt([]byte("short"))
	assert.Error(t, err)
}

func TestEngine_DifferentKeyCannotDecrypt(t *testing.T) {
	e1, err := NewEngine(make([]byte, 32))
	require.NoError(t, err)
	key2 := make([]byte, 32)
	key2[0] = 1
	e2, err := NewEngine(key2)
	require.NoError(t, err)

	plaintext := []byte("same plaintext")

	c1, err := e1.Encrypt(plaintext)
	require.NoError(t, err)

	_, err = e2.Decrypt(c1)
	assert.Error(t, err)
}

func TestNewEngineFromPassphrase(t *testing.T) {
	engine, err := NewEngineFromPassphrase("correct horse battery staple")
	require.NoError(t, err)
	assert.NotNil(t, engine)

	_, err = NewEngineFromPassphrase("")
	assert.Error(t, err)
}
