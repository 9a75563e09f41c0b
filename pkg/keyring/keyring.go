package keyring

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/zalando/go-keyring"
)

// ServiceName is the keyring service under which all tdmeta secrets live.
const ServiceName = "tdmeta"

// ErrNotFound is returned when no secret is stored for a key.
var ErrNotFound = errors.New("secret not found")

// availabilityTimeout bounds the system keyring availability check.
var availabilityTimeout = 5 * time.Second

// FileKeyring implements a file-based keyring for headless servers
type FileKeyring struct {
	mu          sync.Mutex
	keyringPath string
	masterKey   []byte
}

// Entry represents a stored keyring entry
type Entry struct {
	Service string `json:"service"`
	User    string `json:"user"`
	Data    string `json:"data"` // encrypted data
}

// Manager stores secrets in the system keyring, or in an encrypted file when
// no system keyring is reachable.
type Manager struct {
	fileKeyring *FileKeyring
	useFile     bool
}

// NewManager checks the system keyring and falls back to the file at keyringPath.
func NewManager(keyringPath, masterPassword string) *Manager {
	done := make(chan error, 1)
	go func() {
		err := keyring.Set(ServiceName+"-check", "check", "check")
		if err == nil {
			_ = keyring.Delete(ServiceName+"-check", "check")
		}
		done <- err
	}()

	select {
	case err := <-done:
		if err == nil {
			return &Manager{useFile: false}
		}
	case <-time.After(availabilityTimeout):
	}

	return NewFileManager(keyringPath, masterPassword)
}

// NewFileManager returns a manager that always uses the encrypted file.
func NewFileManager(keyringPath, masterPassword string) *Manager {
	return &Manager{
		fileKeyring: NewFileKeyring(keyringPath, masterPassword),
		useFile:     true,
	}
}

// UsesFile reports whether the encrypted file fallback is active.
func (m *Manager) UsesFile() bool {
	return m.useFile
}

// NewFileKeyring creates a new file-based keyring
func NewFileKeyring(keyringPath, masterPassword string) *FileKeyring {
	_ = os.MkdirAll(filepath.Dir(keyringPath), 0o700)

	hash := sha256.Sum256([]byte(masterPassword))

	return &FileKeyring{
		keyringPath: keyringPath,
		masterKey:   hash[:],
	}
}

// Set stores a secret under the tdmeta service.
func (m *Manager) Set(user, secret string) error {
	if !m.useFile {
		return keyring.Set(ServiceName, user, secret)
	}
	return m.fileKeyring.Set(ServiceName, user, secret)
}

// Get retrieves a secret. Missing entries yield ErrNotFound.
func (m *Manager) Get(user string) (string, error) {
	if !m.useFile {
		v, err := keyring.Get(ServiceName, user)
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return v, err
	}
	return m.fileKeyring.Get(ServiceName, user)
}

// Delete removes a secret. Deleting a missing entry is not an error.
func (m *Manager) Delete(user string) error {
	if !m.useFile {
		err := keyring.Delete(ServiceName, user)
		if errors.Is(err, keyring.ErrNotFound) {
			return nil
		}
		return err
	}
	return m.fileKeyring.Delete(ServiceName, user)
}

// PasswordKey is the keyring user for an engine account.
func PasswordKey(host string, port int, user string) string {
	return fmt.Sprintf("password:%s@%s:%d", user, host, port)
}

// PointOptionKey is the keyring user for a private option of a registered point.
func PointOptionKey(pointKey, option string) string {
	return fmt.Sprintf("point:%s:%s", pointKey, option)
}

func (fk *FileKeyring) encrypt(plaintext string) (string, error) {
	block, err := aes.NewCipher(fk.masterKey)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err = io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

func (fk *FileKeyring) decrypt(ciphertext string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(fk.masterKey)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	plaintext, err := gcm.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return "", err
	}

	return string(plaintext), nil
}

func (fk *FileKeyring) load() (map[string]Entry, error) {
	entries := make(map[string]Entry)
	data, err := os.ReadFile(fk.keyringPath)
	if errors.Is(err, os.ErrNotExist) {
		return entries, nil
	}
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("corrupt keyring file %s: %w", fk.keyringPath, err)
	}
	return entries, nil
}

func (fk *FileKeyring) save(entries map[string]Entry) error {
	data, err := json.Marshal(entries)
	if err != nil {
		return err
	}
	return os.WriteFile(fk.keyringPath, data, 0o600)
}

// Set stores an entry in the file keyring
func (fk *FileKeyring) Set(service, user, secret string) error {
	fk.mu.Lock()
	defer fk.mu.Unlock()

	entries, err := fk.load()
	if err != nil {
		return err
	}

	encrypted, err := fk.encrypt(secret)
	if err != nil {
		return err
	}

	entries[service+":"+user] = Entry{Service: service, User: user, Data: encrypted}
	return fk.save(entries)
}

// Get retrieves an entry from the file keyring
func (fk *FileKeyring) Get(service, user string) (string, error) {
	fk.mu.Lock()
	defer fk.mu.Unlock()

	entries, err := fk.load()
	if err != nil {
		return "", err
	}

	entry, exists := entries[service+":"+user]
	if !exists {
		return "", ErrNotFound
	}

	return fk.decrypt(entry.Data)
}

// Delete removes an entry from the file keyring
func (fk *FileKeyring) Delete(service, user string) error {
	fk.mu.Lock()
	defer fk.mu.Unlock()

	entries, err := fk.load()
	if err != nil {
		return err
	}

	key := service + ":" + user
	if _, ok := entries[key]; !ok {
		return nil
	}
	delete(entries, key)
	return fk.save(entries)
}

// MasterPasswordFromEnv returns the file keyring master password.
func MasterPasswordFromEnv() string {
	if password := os.Getenv("TDMETA_KEYRING_PASSWORD"); password != "" {
		return password
	}
	return "tdmeta-local-keyring"
}

// DefaultPath returns the default keyring file path
func DefaultPath() string {
	if path := os.Getenv("TDMETA_KEYRING_PATH"); path != "" {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "tdmeta-keyring.json")
	}
	return filepath.Join(homeDir, ".local", "share", "tdmeta", "keyring.json")
}
