package adapters

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"os"

	"golang.org/x/crypto/nacl/secretbox"

	"haven/pkg/platform/sentinel"
)

// SecretboxSealer encrypts staged evidence in place with NaCl secretbox.
// The nonce is prepended to the ciphertext. Key management is the caller's
// problem; the pipeline only needs the pass/fail contract.
type SecretboxSealer struct {
	key [32]byte
}

func NewSecretboxSealer(key [32]byte) *SecretboxSealer {
	return &SecretboxSealer{key: key}
}

// NewRandomKeySealer generates an ephemeral key. Evidence sealed with it is
// only recoverable through the vault copy, which is the point: the local
// file is unreadable the moment sealing finishes.
func NewRandomKeySealer() (*SecretboxSealer, error) {
	var key [32]byte
	if _, err := io.ReadFull(rand.Reader, key[:]); err != nil {
		return nil, fmt.Errorf("generate sealing key: %w", err)
	}
	return &SecretboxSealer{key: key}, nil
}

func (s *SecretboxSealer) Seal(_ context.Context, h *MediaHandle) error {
	if h.Sealed {
		return fmt.Errorf("seal %s: %w", h.ID, sentinel.ErrInvalidState)
	}

	plaintext, err := os.ReadFile(h.Path)
	if err != nil {
		return fmt.Errorf("seal %s: %w", h.ID, err)
	}

	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return fmt.Errorf("seal %s: %w", h.ID, err)
	}

	sealed := secretbox.Seal(nonce[:], plaintext, &nonce, &s.key)
	if err := os.WriteFile(h.Path, sealed, 0o600); err != nil {
		return fmt.Errorf("seal %s: %w", h.ID, err)
	}

	h.Sealed = true
	h.Size = int64(len(sealed))
	return nil
}

// Open reverses Seal. Only tests and manual evidence recovery use it.
func (s *SecretboxSealer) Open(_ context.Context, h *MediaHandle) ([]byte, error) {
	sealed, err := os.ReadFile(h.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", h.ID, err)
	}
	if len(sealed) < 24 {
		return nil, fmt.Errorf("open %s: %w", h.ID, sentinel.ErrCorrupt)
	}
	var nonce [24]byte
	copy(nonce[:], sealed[:24])
	plaintext, ok := secretbox.Open(nil, sealed[24:], &nonce, &s.key)
	if !ok {
		return nil, fmt.Errorf("open %s: %w", h.ID, sentinel.ErrCorrupt)
	}
	return plaintext, nil
}
