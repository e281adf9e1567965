package encryption

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"election-service/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/kms/types"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

var (
	ErrEncryptionFailed = errors.New("encryption failed")
	ErrDecryptionFailed = errors.New("decryption failed")
)

const (
	localKeyID          = "local"
	defaultDEKCacheSize = 1024
)

// KeyService is the subset of the KMS API used for envelope encryption.
type KeyService interface {
	GenerateDataKey(ctx context.Context, params *kms.GenerateDataKeyInput, optFns ...func(*kms.Options)) (*kms.GenerateDataKeyOutput, error)
	Decrypt(ctx context.Context, params *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error)
}

// EncryptedField is a voter PII value sealed with a per-value data key.
type EncryptedField struct {
	Ciphertext   string `json:"ciphertext"`
	EncryptedDEK string `json:"encrypted_dek"`
	KeyID        string `json:"key_id"`
}

// EncryptionManager seals voter email addresses at rest. With KMS enabled the data key is
// wrapped by the configured CMK; otherwise a development key is stored alongside the value.
// Unwrapped KMS data keys are kept in a bounded LRU; local keys are never cached.
type EncryptionManager struct {
	keys     KeyService
	keyID    string
	enabled  bool
	logger   *zap.Logger
	keyCache *lru.Cache[string, []byte] // encrypted DEK -> plaintext DEK
}

func NewEncryptionManager(cfg *config.Config, keys KeyService, logger *zap.Logger) *EncryptionManager {
	size := cfg.KMS.DEKCacheSize
	if size <= 0 {
		size = defaultDEKCacheSize
	}
	cache, _ := lru.New[string, []byte](size)

	return &EncryptionManager{
		keys:     keys,
		keyID:    cfg.KMS.KeyID,
		enabled:  cfg.KMS.Enabled && keys != nil,
		logger:   logger,
		keyCache: cache,
	}
}

// NewKMSClient builds a KMS client from the default AWS credential chain.
func NewKMSClient(ctx context.Context, cfg *config.Config) (*kms.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.KMS.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}
	return kms.NewFromConfig(awsCfg), nil
}

func (em *EncryptionManager) generateDataKey(ctx context.Context) (plaintext, wrapped []byte, keyID string, err error) {
	if !em.enabled {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, nil, "", fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
		}
		return key, key, localKeyID, nil
	}

	out, err := em.keys.GenerateDataKey(ctx, &kms.GenerateDataKeyInput{
		KeyId:   aws.String(em.keyID),
		KeySpec: types.DataKeySpecAes256,
	})
	if err != nil {
		return nil, nil, "", fmt.Errorf("failed to generate data key: %w", err)
	}
	return out.Plaintext, out.CiphertextBlob, em.keyID, nil
}

// EncryptField seals plaintext with a fresh AES-256-GCM data key.
func (em *EncryptionManager) EncryptField(ctx context.Context, plaintext string) (*EncryptedField, error) {
	dek, wrapped, keyID, err := em.generateDataKey(ctx)
	if err != nil {
		return nil, err
	}

	gcm, err := newGCM(dek)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}
	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)

	encryptedDEK := base64.StdEncoding.EncodeToString(wrapped)
	if keyID != localKeyID {
		em.keyCache.Add(encryptedDEK, dek)
	}

	return &EncryptedField{
		Ciphertext:   base64.StdEncoding.EncodeToString(sealed),
		EncryptedDEK: encryptedDEK,
		KeyID:        keyID,
	}, nil
}

// DecryptField opens a value sealed by EncryptField.
func (em *EncryptionManager) DecryptField(ctx context.Context, field *EncryptedField) (string, error) {
	if cached, ok := em.keyCache.Get(field.EncryptedDEK); ok {
		return decryptWithKey(field.Ciphertext, cached)
	}

	wrapped, err := base64.StdEncoding.DecodeString(field.EncryptedDEK)
	if err != nil {
		return "", fmt.Errorf("%w: invalid DEK format", ErrDecryptionFailed)
	}

	if field.KeyID == localKeyID {
		return decryptWithKey(field.Ciphertext, wrapped)
	}

	if em.keys == nil {
		return "", fmt.Errorf("%w: KMS key %s needed but KMS is not configured", ErrDecryptionFailed, field.KeyID)
	}
	out, err := em.keys.Decrypt(ctx, &kms.DecryptInput{
		CiphertextBlob: wrapped,
		KeyId:          aws.String(field.KeyID),
	})
	if err != nil {
		return "", fmt.Errorf("%w: failed to decrypt DEK: %v", ErrDecryptionFailed, err)
	}

	em.keyCache.Add(field.EncryptedDEK, out.Plaintext)
	return decryptWithKey(field.Ciphertext, out.Plaintext)
}

func decryptWithKey(encoded string, key []byte) (string, error) {
	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: invalid ciphertext format", ErrDecryptionFailed)
	}

	gcm, err := newGCM(key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return "", fmt.Errorf("%w: ciphertext too short", ErrDecryptionFailed)
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	return string(plaintext), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// ClearCache drops cached data keys; called on shutdown.
func (em *EncryptionManager) ClearCache() {
	em.keyCache.Purge()
}

func (em *EncryptionManager) CacheSize() int {
	return em.keyCache.Len()
}
