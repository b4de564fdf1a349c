// Package keyring provides a configuration source backed by the operating
// system's credential store (macOS Keychain, Secret Service, Windows
// Credential Manager) through github.com/zalando/go-keyring.
//
// Each key is stored as a separate secret under one service name, which
// keeps API keys out of files that might be committed by accident.
package keyring

import (
	"context"
	"errors"

	gokeyring "github.com/zalando/go-keyring"

	"github.com/agriguard/kasane/source"
)

// keyringGet is replaced in tests.
var keyringGet = gokeyring.Get

// Source looks up keys as secrets of a single keyring service.
type Source struct {
	name    string
	service string
}

// Ensure Source implements the source.Source interface.
var _ source.Source = (*Source)(nil)

// New creates a keyring source reading secrets stored under service.
// The key is used as the secret's user/account name.
//
// Example:
//
//	// stored with: secret-tool store --label maps service agri-guard username flutter.mapsApiKey
//	src := keyring.New("keychain", "agri-guard")
func New(name, service string) *Source {
	return &Source{name: name, service: service}
}

// Name returns the source name.
func (s *Source) Name() string {
	return s.name
}

// Type returns the source type identifier.
func (s *Source) Type() source.SourceType {
	return source.TypeKeyring
}

// Service returns the keyring service name.
func (s *Source) Service() string {
	return s.service
}

// Lookup implements the source.Source interface.
// A missing secret is absent. Any other keyring failure (locked keychain,
// no secret service on the machine) is an *source.AccessError.
func (s *Source) Lookup(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}

	v, err := keyringGet(s.service, key)
	if err != nil {
		if errors.Is(err, gokeyring.ErrNotFound) {
			return "", false, nil
		}
		return "", false, source.Access(s.name, key, err)
	}
	return v, true, nil
}
