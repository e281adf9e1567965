package encryption

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"election-service/internal/config"

	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeKMS wraps data keys by reversing them, which is enough to tell wrapped from plain.
type fakeKMS struct {
	generated int
	decrypted int
	fail      bool
}

func reverse(b []byte) []byte {
	out := make([]byte, len(b))
	for i := range b {
		out[len(b)-1-i] = b[i]
	}
	return out
}

func (f *fakeKMS) GenerateDataKey(_ context.Context, in *kms.GenerateDataKeyInput, _ ...func(*kms.Options)) (*kms.GenerateDataKeyOutput, error) {
	if f.fail {
		return nil, errors.New("kms unavailable")
	}
	f.generated++
	key := bytes.Repeat([]byte{byte(f.generated)}, 31)
	key = append(key, 0x42)
	return &kms.GenerateDataKeyOutput{Plaintext: key, CiphertextBlob: reverse(key), KeyId: in.KeyId}, nil
}

func (f *fakeKMS) Decrypt(_ context.Context, in *kms.DecryptInput, _ ...func(*kms.Options)) (*kms.DecryptOutput, error) {
	f.decrypted++
	return &kms.DecryptOutput{Plaintext: reverse(in.CiphertextBlob)}, nil
}

func TestLocalRoundTrip(t *testing.T) {
	em := NewEncryptionManager(&config.Config{}, nil, zap.NewNop())

	field, err := em.EncryptField(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, localKeyID, field.KeyID)
	assert.NotContains(t, field.Ciphertext, "ada@example.com")

	assert.Zero(t, em.CacheSize(), "local keys are stored unwrapped and never cached")

	plain, err := em.DecryptField(context.Background(), field)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", plain)
	assert.Zero(t, em.CacheSize())
}

func TestKMSRoundTripUsesDecryptOnlyOnCacheMiss(t *testing.T) {
	cfg := &config.Config{}
	cfg.KMS.Enabled = true
	cfg.KMS.KeyID = "arn:aws:kms:test"
	keys := &fakeKMS{}
	em := NewEncryptionManager(cfg, keys, zap.NewNop())

	field, err := em.EncryptField(context.Background(), "grace@example.com")
	require.NoError(t, err)
	assert.Equal(t, "arn:aws:kms:test", field.KeyID)

	plain, err := em.DecryptField(context.Background(), field)
	require.NoError(t, err)
	assert.Equal(t, "grace@example.com", plain)
	assert.Zero(t, keys.decrypted, "cached DEK should be reused")

	em.ClearCache()
	plain, err = em.DecryptField(context.Background(), field)
	require.NoError(t, err)
	assert.Equal(t, "grace@example.com", plain)
	assert.Equal(t, 1, keys.decrypted)
}

func TestKMSKeyCacheIsBounded(t *testing.T) {
	cfg := &config.Config{}
	cfg.KMS.Enabled = true
	cfg.KMS.KeyID = "arn:aws:kms:test"
	cfg.KMS.DEKCacheSize = 2
	keys := &fakeKMS{}
	em := NewEncryptionManager(cfg, keys, zap.NewNop())

	var fields []*EncryptedField
	for _, email := range []string{"a@example.com", "b@example.com", "c@example.com"} {
		field, err := em.EncryptField(context.Background(), email)
		require.NoError(t, err)
		fields = append(fields, field)
	}
	assert.Equal(t, 2, em.CacheSize())

	plain, err := em.DecryptField(context.Background(), fields[0])
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", plain)
	assert.Equal(t, 1, keys.decrypted, "evicted key is unwrapped again")
	assert.Equal(t, 2, em.CacheSize())

	_, err = em.DecryptField(context.Background(), fields[2])
	require.NoError(t, err)
	assert.Equal(t, 1, keys.decrypted)
}

func TestKMSFailureSurfaces(t *testing.T) {
	cfg := &config.Config{}
	cfg.KMS.Enabled = true
	em := NewEncryptionManager(cfg, &fakeKMS{fail: true}, zap.NewNop())

	_, err := em.EncryptField(context.Background(), "x")
	assert.Error(t, err)
}

func TestDecryptRejectsTamperedCiphertext(t *testing.T) {
	em := NewEncryptionManager(&config.Config{}, nil, zap.NewNop())
	field, err := em.EncryptField(context.Background(), "ada@example.com")
	require.NoError(t, err)

	field.Ciphertext = "AAAA" + field.Ciphertext[4:]
	_, err = em.DecryptField(context.Background(), field)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestKMSKeyWithoutClient(t *testing.T) {
	em := NewEncryptionManager(&config.Config{}, nil, zap.NewNop())
	_, err := em.DecryptField(context.Background(), &EncryptedField{Ciphertext: "AA==", EncryptedDEK: "AA==", KeyID: "arn:other"})
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}
