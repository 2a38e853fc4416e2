// Package verify checks armored detached PGP signatures, the form
// package registries publish next to downloadable artifacts.
package verify

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/ProtonMail/go-crypto/openpgp"
)

// Keyring reads a public keyring from r, accepting both armored and
// binary formats.
func Keyring(r io.Reader) (openpgp.EntityList, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read key: %w", err)
	}

	// Try to parse as armored key first
	keyring, err := openpgp.ReadArmoredKeyRing(bytes.NewReader(data))
	if err != nil {
		// Try as binary key
		keyring, err = openpgp.ReadKeyRing(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("failed to read key: %w", err)
		}
	}

	if len(keyring) == 0 {
		return nil, fmt.Errorf("no keys found")
	}

	return keyring, nil
}

// KeyringFile reads a public keyring from a file.
func KeyringFile(path string) (openpgp.EntityList, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open key file: %w", err)
	}
	defer f.Close()

	return Keyring(f)
}

// Detached verifies an armored detached signature over the signed
// content against the keyring.
func Detached(keyring openpgp.EntityList, signed, signature io.Reader) error {
	_, err := openpgp.CheckArmoredDetachedSignature(keyring, signed, signature, nil)
	if err != nil {
		return fmt.Errorf("signature verification failed: %w", err)
	}
	return nil
}

// DetachedFile verifies the armored detached signature file next to a
// downloaded artifact.
func DetachedFile(keyring openpgp.EntityList, signedPath, signaturePath string) error {
	signed, err := os.Open(signedPath)
	if err != nil {
		return err
	}
	defer signed.Close()

	signature, err := os.Open(signaturePath)
	if err != nil {
		return err
	}
	defer signature.Close()

	return Detached(keyring, signed, signature)
}
