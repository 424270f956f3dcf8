package keystore

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/age"

	"nft-go/internal/chain"
)

// ErrWrongPassphrase is returned by Unlock when the passphrase does not decrypt the key.
var ErrWrongPassphrase = errors.New("wrong passphrase")

// Keystore keeps the signer's private key encrypted at rest with age's
// scrypt passphrase encryption. The signer address is stored next to it in
// plaintext so it can be shown without unlocking.
type Keystore struct {
	keyPath     string
	addressPath string

	// workFactor overrides age's scrypt cost when non-zero.
	workFactor int
}

// New creates a keystore whose encrypted key lives at keyPath.
func New(keyPath string) *Keystore {
	return &Keystore{keyPath: keyPath, addressPath: keyPath + ".address"}
}

// Import validates hexKey, encrypts it under passphrase and writes it out.
// It returns the signer address. An existing keystore is never overwritten.
func (k *Keystore) Import(hexKey, passphrase string) (string, error) {
	if passphrase == "" {
		return "", fmt.Errorf("passphrase cannot be empty")
	}
	if k.IsConfigured() {
		return "", fmt.Errorf("keystore already exists at %s", k.keyPath)
	}

	signer, err := chain.NewKeySigner(hexKey)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(k.keyPath), 0700); err != nil {
		return "", fmt.Errorf("creating keystore directory: %w", err)
	}

	f, err := os.OpenFile(k.keyPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return "", fmt.Errorf("creating key file: %w", err)
	}
	success := false
	defer func() {
		f.Close()
		if !success {
			os.Remove(k.keyPath)
		}
	}()

	recipient, err := age.NewScryptRecipient(passphrase)
	if err != nil {
		return "", fmt.Errorf("creating scrypt recipient: %w", err)
	}
	if k.workFactor > 0 {
		recipient.SetWorkFactor(k.workFactor)
	}

	w, err := age.Encrypt(f, recipient)
	if err != nil {
		return "", fmt.Errorf("creating encrypted writer: %w", err)
	}
	if _, err := io.WriteString(w, strings.TrimPrefix(strings.TrimSpace(hexKey), "0x")+"\n"); err != nil {
		return "", fmt.Errorf("writing encrypted key: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalizing encrypted key: %w", err)
	}

	if err := os.WriteFile(k.addressPath, []byte(signer.Address()+"\n"), 0644); err != nil {
		return "", fmt.Errorf("writing signer address: %w", err)
	}

	success = true
	return signer.Address(), nil
}

// Unlock decrypts the key with passphrase and returns a signer for it.
func (k *Keystore) Unlock(passphrase string) (*chain.KeySigner, error) {
	data, err := os.ReadFile(k.keyPath)
	if err != nil {
		return nil, fmt.Errorf("reading key file: %w", err)
	}

	identity, err := age.NewScryptIdentity(passphrase)
	if err != nil {
		return nil, fmt.Errorf("creating scrypt identity: %w", err)
	}

	r, err := age.Decrypt(bytes.NewReader(data), identity)
	if err != nil {
		var noMatch *age.NoIdentityMatchError
		if errors.As(err, &noMatch) || errors.Is(err, age.ErrIncorrectIdentity) {
			return nil, ErrWrongPassphrase
		}
		return nil, fmt.Errorf("decrypting key: %w", err)
	}

	plain, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading decrypted key: %w", err)
	}

	signer, err := chain.NewKeySigner(string(plain))
	if err != nil {
		return nil, err
	}
	if addr, err := k.Address(); err == nil && !strings.EqualFold(addr, signer.Address()) {
		return nil, fmt.Errorf("keystore address %s does not match key address %s", addr, signer.Address())
	}
	return signer, nil
}

// Address returns the stored signer address without unlocking.
func (k *Keystore) Address() (string, error) {
	data, err := os.ReadFile(k.addressPath)
	if err != nil {
		return "", fmt.Errorf("reading signer address: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// IsConfigured returns true if the encrypted key exists.
func (k *Keystore) IsConfigured() bool {
	_, err := os.Stat(k.keyPath)
	return err == nil
}
