// Package vault seals the e621 API key with a passphrase so it need not sit
// in plain text in prefs.toml.
package vault

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

// formatVersion is the newest blob format this package reads and writes.
const formatVersion = 1

var (
	// ErrWrongPassphrase is returned when the passphrase is incorrect or the
	// blob has been modified.
	ErrWrongPassphrase = errors.New("wrong passphrase or corrupted credentials")
	// ErrEmptyPassphrase is returned when sealing or opening with no passphrase.
	ErrEmptyPassphrase = errors.New("passphrase is empty")
)

// Credentials are the account details kept in the vault.
type Credentials struct {
	Username string `json:"username"`
	APIKey   string `json:"api_key"`
}

// blob is the on-disk JSON structure holding the ciphertext and KDF parameters.
type blob struct {
	V      int    `json:"v"`
	Salt   []byte `json:"salt"`
	N      int    `json:"scrypt_N"`
	R      int    `json:"scrypt_r"`
	P      int    `json:"scrypt_p"`
	Cipher []byte `json:"cipher"`
}

type params struct {
	n, r, p int
}

var defaultParams = params{n: 1 << 15, r: 8, p: 1}

// Seal encrypts creds with a key derived from passphrase.
func Seal(creds Credentials, passphrase string) ([]byte, error) {
	return seal(creds, passphrase, defaultParams)
}

func seal(creds Credentials, passphrase string, kdf params) ([]byte, error) {
	if passphrase == "" {
		return nil, ErrEmptyPassphrase
	}
	raw, err := json.Marshal(creds)
	if err != nil {
		return nil, err
	}
	defer zero(raw)

	var salt [16]byte
	if _, err := rand.Read(salt[:]); err != nil {
		return nil, err
	}
	key, err := scrypt.Key([]byte(passphrase), salt[:], kdf.n, kdf.r, kdf.p, chacha20poly1305.KeySize)
	if err != nil {
		return nil, err
	}
	defer zero(key)
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	// A fresh salt per seal gives a fresh key, so the nonce can stay zero.
	var nonce [chacha20poly1305.NonceSize]byte
	ct := aead.Seal(nil, nonce[:], raw, salt[:])

	return json.Marshal(blob{
		V:      formatVersion,
		Salt:   salt[:],
		N:      kdf.n,
		R:      kdf.r,
		P:      kdf.p,
		Cipher: ct,
	})
}

// Open decrypts a blob produced by Seal.
func Open(data []byte, passphrase string) (Credentials, error) {
	if passphrase == "" {
		return Credentials{}, ErrEmptyPassphrase
	}
	var bl blob
	if err := json.Unmarshal(data, &bl); err != nil {
		return Credentials{}, fmt.Errorf("decode credentials: %w", err)
	}
	if bl.V > formatVersion {
		return Credentials{}, fmt.Errorf("unsupported credentials version %d", bl.V)
	}

	key, err := scrypt.Key([]byte(passphrase), bl.Salt, bl.N, bl.R, bl.P, chacha20poly1305.KeySize)
	if err != nil {
		return Credentials{}, fmt.Errorf("derive key: %w", err)
	}
	defer zero(key)
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return Credentials{}, err
	}
	var nonce [chacha20poly1305.NonceSize]byte
	pt, err := aead.Open(nil, nonce[:], bl.Cipher, bl.Salt)
	if err != nil {
		return Credentials{}, ErrWrongPassphrase
	}
	defer zero(pt)

	var creds Credentials
	if err := json.Unmarshal(pt, &creds); err != nil {
		return Credentials{}, fmt.Errorf("decode credentials: %w", err)
	}
	return creds, nil
}

// Save seals creds and writes them to path, replacing any previous file.
func Save(path string, creds Credentials, passphrase string) error {
	data, err := Seal(creds, passphrase)
	if err != nil {
		return err
	}
	return writeFile(path, data)
}

// Load reads and opens the credentials at path. A missing file returns an
// error matching os.ErrNotExist.
func Load(path string, passphrase string) (Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Credentials{}, err
	}
	return Open(data, passphrase)
}

// Exists reports whether a credentials file is present at path.
func Exists(path string) bool {
	if strings.TrimSpace(path) == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}

// writeFile replaces path through a temp file in the same directory.
func writeFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create credentials dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(name)
		return err
	}
	if err := os.Chmod(name, 0o600); err != nil {
		_ = os.Remove(name)
		return err
	}
	if err := os.Rename(name, path); err != nil {
		_ = os.Remove(name)
		return err
	}
	return nil
}

// zero overwrites b in a constant-time friendly way.
func zero(b []byte) {
	if len(b) == 0 {
		return
	}
	subtle.ConstantTimeCopy(1, b, make([]byte, len(b)))
}
