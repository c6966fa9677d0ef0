// Package crypto хранит LLM API-ключ пользователя на диске в
// зашифрованном виде. Ключ шифрования выводится из парольной фразы
// через Argon2id, содержимое запечатано AES-GCM.
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/crypto/argon2"
)

const (
	argon2Time       = 1
	argon2Memory     = 64 * 1024 // 64 MB
	argon2Threads    = 4
	argon2KeyLen     = 32
	argon2SaltLength = 16

	keyFileVersion     = 1
	keyFilePermissions = 0600
)

// ErrWrongPassphrase возвращается при неудачной расшифровке.
var ErrWrongPassphrase = errors.New("неверная парольная фраза")

// keyFileHeader — метаданные файла ключа.
type keyFileHeader struct {
	Version   int       `json:"version"`
	Algorithm string    `json:"algorithm"`
	Salt      string    `json:"salt"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type keyFileContainer struct {
	Header keyFileHeader `json:"header"`
	Data   string        `json:"data"` // hex encoded ciphertext
}

// KeyStore управляет зашифрованным файлом API-ключа.
type KeyStore struct {
	path string
	mu   sync.Mutex
}

func NewKeyStore(path string) (*KeyStore, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка определения пути: %w", err)
	}
	return &KeyStore{path: absPath}, nil
}

// Exists сообщает, сохранён ли ключ.
func (ks *KeyStore) Exists() bool {
	_, err := os.Stat(ks.path)
	return err == nil
}

// Save запечатывает API-ключ парольной фразой и пишет файл.
func (ks *KeyStore) Save(apiKey, passphrase string) error {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	salt := make([]byte, argon2SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return fmt.Errorf("ошибка генерации соли: %w", err)
	}

	key := argon2.IDKey([]byte(passphrase), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)

	ciphertext, err := sealWithKey(key, []byte(apiKey))
	if err != nil {
		return fmt.Errorf("ошибка шифрования ключа: %w", err)
	}

	now := time.Now()
	container := keyFileContainer{
		Header: keyFileHeader{
			Version:   keyFileVersion,
			Algorithm: "Argon2id",
			Salt:      hex.EncodeToString(salt),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Data: hex.EncodeToString(ciphertext),
	}

	data, err := json.MarshalIndent(container, "", "  ")
	if err != nil {
		return fmt.Errorf("ошибка сериализации: %w", err)
	}

	if err := os.WriteFile(ks.path, data, keyFilePermissions); err != nil {
		return fmt.Errorf("ошибка записи файла ключа: %w", err)
	}
	return nil
}

// Load расшифровывает и возвращает API-ключ.
func (ks *KeyStore) Load(passphrase string) (string, error) {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	raw, err := os.ReadFile(ks.path)
	if err != nil {
		return "", fmt.Errorf("ошибка чтения файла ключа: %w", err)
	}

	var container keyFileContainer
	if err := json.Unmarshal(raw, &container); err != nil {
		return "", fmt.Errorf("ошибка декодирования файла ключа: %w", err)
	}

	if container.Header.Algorithm != "Argon2id" {
		return "", fmt.Errorf("неподдерживаемый алгоритм: %s", container.Header.Algorithm)
	}

	salt, err := hex.DecodeString(container.Header.Salt)
	if err != nil {
		return "", fmt.Errorf("ошибка декодирования соли: %w", err)
	}

	ciphertext, err := hex.DecodeString(container.Data)
	if err != nil {
		return "", fmt.Errorf("ошибка декодирования шифротекста: %w", err)
	}

	key := argon2.IDKey([]byte(passphrase), salt, argon2Time, argon2Memory, argon2Threads, argon2KeyLen)

	plaintext, err := openWithKey(key, ciphertext)
	if err != nil {
		return "", ErrWrongPassphrase
	}
	return string(plaintext), nil
}

// Delete удаляет файл ключа.
func (ks *KeyStore) Delete() error {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	if err := os.Remove(ks.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ошибка удаления файла ключа: %w", err)
	}
	return nil
}

// sealWithKey шифрует данные с использованием AES-GCM.
func sealWithKey(key, plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("ошибка генерации nonce: %w", err)
	}

	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// openWithKey расшифровывает данные с использованием AES-GCM.
func openWithKey(key, ciphertext []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("ошибка создания GCM: %w", err)
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("шифротекст слишком короткий")
	}

	nonce, ciphertext := ciphertext[:nonceSize], ciphertext[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("ошибка расшифровки: %w", err)
	}
	return plaintext, nil
}
