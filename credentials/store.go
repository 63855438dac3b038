package credentials

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/chacha20poly1305"
)

var (
	ErrStoreFormat  = errors.New("invalid cookie store format")
	ErrStoreInvalid = errors.New("invalid cookie store")
	ErrStoreConfig  = errors.New("invalid cookie store configuration")
)

// maxStoreLen bounds how much of a store file is read and decoded.
const maxStoreLen = 1 << 20

// DefaultKeySize is the key size (in bytes) of the default AEAD,
// XChaCha20-Poly1305.
const DefaultKeySize = chacha20poly1305.KeySize

// storeAAD binds sealed data to its purpose.
var storeAAD = []byte("rpcrequest:cookies:v1")

// Store persists a Jar to a file, sealed with an AEAD.
//
// Format: [keyId] "." [sealed_b64]
// where sealed = nonce || AEAD.Seal(nil, nonce, cbor(entries), aad).
// Key rotation: Keys contains all accepted keys; KeyID selects the current
// key for sealing.
type Store struct {
	Path  string
	KeyID string
	Keys  map[string][]byte

	// NewAEAD constructs the AEAD. Defaults to chacha20poly1305.NewX.
	NewAEAD func(key []byte) (cipher.AEAD, error)
}

// NewStore validates the keys and returns a Store writing to path.
func NewStore(path string, keyID string, keys map[string][]byte) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrStoreConfig)
	}
	if keys == nil {
		return nil, fmt.Errorf("%w: keys must not be nil", ErrStoreConfig)
	}
	if _, ok := keys[keyID]; !ok {
		return nil, fmt.Errorf("%w: keyID not found in keys", ErrStoreConfig)
	}
	s := &Store{
		Path:    path,
		KeyID:   keyID,
		Keys:    keys,
		NewAEAD: chacha20poly1305.NewX,
	}
	for id, k := range keys {
		if _, err := s.NewAEAD(k); err != nil {
			return nil, fmt.Errorf("invalid key %s: %w", id, err)
		}
	}
	return s, nil
}

// Save writes the jar's entries to the store file, replacing its contents.
func (s *Store) Save(j *Jar) error {
	plain, err := cbor.Marshal(j.Entries())
	if err != nil {
		return err
	}
	sealed, err := s.seal(plain)
	if err != nil {
		return err
	}
	return os.WriteFile(s.Path, []byte(sealed), 0o600)
}

// Load restores entries from the store file into the jar. A missing file
// is not an error.
func (s *Store) Load(j *Jar) error {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	plain, err := s.open(strings.TrimSpace(string(data)))
	if err != nil {
		return err
	}
	var entries []Entry
	if err := cbor.Unmarshal(plain, &entries); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreFormat, err)
	}
	j.Restore(entries)
	return nil
}

func (s *Store) aead(keyID string) (cipher.AEAD, error) {
	if s == nil || s.NewAEAD == nil {
		return nil, ErrStoreConfig
	}
	key, ok := s.Keys[keyID]
	if !ok {
		return nil, ErrStoreInvalid
	}
	return s.NewAEAD(key)
}

func (s *Store) seal(plain []byte) (string, error) {
	aead, err := s.aead(s.KeyID)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}
	encrypted := aead.Seal(nonce, nonce, plain, storeAAD)
	return s.KeyID + "." + base64.RawURLEncoding.EncodeToString(encrypted), nil
}

func (s *Store) open(value string) ([]byte, error) {
	if len(value) == 0 || len(value) > maxStoreLen {
		return nil, ErrStoreFormat
	}
	keyID, encB64, ok := strings.Cut(value, ".")
	if !ok || keyID == "" || encB64 == "" {
		return nil, ErrStoreFormat
	}
	aead, err := s.aead(keyID)
	if err != nil {
		return nil, err
	}
	encrypted, err := base64.RawURLEncoding.DecodeString(encB64)
	if err != nil {
		return nil, ErrStoreFormat
	}
	if len(encrypted) < aead.NonceSize()+aead.Overhead() {
		return nil, ErrStoreFormat
	}
	nonce, ciphertext := encrypted[:aead.NonceSize()], encrypted[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ciphertext, storeAAD)
	if err != nil {
		return nil, ErrStoreInvalid
	}
	return plain, nil
}
