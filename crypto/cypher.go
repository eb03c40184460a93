package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"hash"
	"runtime/debug"

	"github.com/heliowallet/wallet-sdk/types"
	"golang.org/x/crypto/pbkdf2"
)

const (
	// KdfPBKDF2SHA256 is the kdfAlgorithm label stamped on every secret
	// produced by this package.
	KdfPBKDF2SHA256 = "pbkdf2-sha256"

	// DefaultIterations is the pbkdf2 iteration count for new secrets.
	DefaultIterations = 10000

	saltSize = 16
	keySize  = 32
)

// Cypher is the password-based encryption capability consumed by the
// credential store. Every secret it produces carries the metadata needed to
// verify the protecting credential without decrypting.
type Cypher interface {
	EncryptData(payload, password string) (*types.EncryptedSecret, error)
	DecryptData(secret *types.EncryptedSecret, password string) (string, error)
	CheckPassword(secret *types.EncryptedSecret, password string) bool
}

type cypher struct {
	iterations int
}

func NewCypher() Cypher {
	return &cypher{iterations: DefaultIterations}
}

func (c *cypher) EncryptData(
	payload, password string,
) (*types.EncryptedSecret, error) {
	// Due to https://github.com/golang/go/issues/7168.
	// This call makes sure that memory is freed in case the GC doesn't do that
	// right after the encryption/decryption.
	defer debug.FreeOSMemory()

	if len(payload) == 0 {
		return nil, fmt.Errorf("missing plaintext payload")
	}
	if len(password) == 0 {
		return nil, fmt.Errorf("missing encryption password")
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}

	key := pbkdf2.Key([]byte(password), salt, c.iterations, keySize, sha256.New)

	blockCipher, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(blockCipher)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(payload), nil)
	keyHash := sha256.Sum256(key)

	return &types.EncryptedSecret{
		Data:         base64.StdEncoding.EncodeToString(ciphertext),
		Hash:         hex.EncodeToString(keyHash[:]),
		Salt:         hex.EncodeToString(salt),
		Iterations:   c.iterations,
		KdfAlgorithm: KdfPBKDF2SHA256,
	}, nil
}

func (c *cypher) DecryptData(
	secret *types.EncryptedSecret, password string,
) (string, error) {
	defer debug.FreeOSMemory()

	if secret == nil || len(secret.Data) == 0 {
		return "", fmt.Errorf("missing encrypted data")
	}
	if len(password) == 0 {
		return "", fmt.Errorf("missing decryption password")
	}

	key, err := deriveKey(secret, password)
	if err != nil {
		return "", err
	}

	ciphertext, err := base64.StdEncoding.DecodeString(secret.Data)
	if err != nil {
		return "", fmt.Errorf("malformed encrypted data: %s", err)
	}

	blockCipher, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}
	gcm, err := cipher.NewGCM(blockCipher)
	if err != nil {
		return "", err
	}
	if len(ciphertext) < gcm.NonceSize() {
		return "", fmt.Errorf("malformed encrypted data")
	}

	// #nosec G407
	nonce, text := ciphertext[:gcm.NonceSize()], ciphertext[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, text, nil)
	if err != nil {
		return "", fmt.Errorf("invalid password")
	}
	return string(plaintext), nil
}

func (c *cypher) CheckPassword(
	secret *types.EncryptedSecret, password string,
) bool {
	if secret == nil || len(secret.Hash) == 0 || len(password) == 0 {
		return false
	}

	key, err := deriveKey(secret, password)
	if err != nil {
		return false
	}

	storedHash, err := hex.DecodeString(secret.Hash)
	if err != nil {
		return false
	}

	keyHash := sha256.Sum256(key)
	return bytes.Equal(storedHash, keyHash[:])
}

func deriveKey(secret *types.EncryptedSecret, password string) ([]byte, error) {
	hasher, err := hasherFor(secret.KdfAlgorithm)
	if err != nil {
		return nil, err
	}

	salt, err := hex.DecodeString(secret.Salt)
	if err != nil {
		return nil, fmt.Errorf("malformed salt: %s", err)
	}

	iterations := secret.Iterations
	if iterations <= 0 {
		iterations = DefaultIterations
	}

	return pbkdf2.Key([]byte(password), salt, iterations, keySize, hasher), nil
}

// hasherFor maps the kdfAlgorithm label of a secret to its hash constructor.
// Legacy records label the hasher as plain "sha256".
func hasherFor(algorithm string) (func() hash.Hash, error) {
	switch algorithm {
	case "", "sha256", KdfPBKDF2SHA256:
		return sha256.New, nil
	default:
		return nil, fmt.Errorf("unsupported kdf algorithm: %s", algorithm)
	}
}
