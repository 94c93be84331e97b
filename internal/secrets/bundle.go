// Package secrets provides access-token bundle management for WindVault.
//
// A token bundle maps bearer tokens to identities (subject, role, tenant)
// used to scope every control-plane call. Bundles support:
//
//   - age encryption (default)
//   - Plaintext YAML fallback for development
//
// Bundles are decrypted in-memory and never written to disk in plaintext.
package secrets

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/age"
	"gopkg.in/yaml.v3"
)

const (
	// BundleVersion is the current bundle format version.
	BundleVersion = 1

	// RoleAdmin may process requests, delete resources, and change settings.
	RoleAdmin = "admin"
	// RoleStaff may submit requests and work orders.
	RoleStaff = "staff"
)

// Identity is the resolved caller of a control-plane request.
type Identity struct {
	Subject  string `json:"subject" yaml:"subject"`
	Role     string `json:"role" yaml:"role"`
	TenantID string `json:"tenant_id" yaml:"tenant_id"`
}

// Valid reports whether the identity carries the fields auth needs.
func (id Identity) Valid() bool {
	if id.Subject == "" || id.TenantID == "" {
		return false
	}
	return id.Role == RoleAdmin || id.Role == RoleStaff
}

// Admin reports whether the identity holds the admin role.
func (id Identity) Admin() bool {
	return id.Role == RoleAdmin
}

// Bundle maps bearer tokens to identities.
type Bundle struct {
	Version int                 `json:"version" yaml:"version"`
	Tokens  map[string]Identity `json:"tokens" yaml:"tokens"`
}

// Lookup resolves a bearer token to its identity.
func (b Bundle) Lookup(token string) (Identity, bool) {
	id, ok := b.Tokens[token]
	if !ok || !id.Valid() {
		return Identity{}, false
	}
	return id, true
}

// Store locates and decrypts token bundles.
//
// Decryption happens entirely in memory; plaintext bundles are only accepted
// when AllowPlaintext is set.
type Store struct {
	Dir            string
	AgeKeyPath     string
	AllowPlaintext bool
}

// Load locates, decrypts, and parses the bundle by name or path.
//
// The name can be a bundle name searched in the configured directory, an
// absolute path, or a relative path. Files ending in .age are decrypted with
// the configured age identity; anything else is treated as plaintext YAML.
func (s Store) Load(name string) (Bundle, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Bundle{}, errors.New("bundle name is required")
	}
	path, err := s.resolvePath(name)
	if err != nil {
		return Bundle{}, err
	}
	payload, err := s.decrypt(path)
	if err != nil {
		return Bundle{}, err
	}
	bundle, err := parseBundle(payload)
	if err != nil {
		return Bundle{}, fmt.Errorf("parse bundle %s: %w", path, err)
	}
	return bundle, nil
}

func (s Store) resolvePath(name string) (string, error) {
	candidates := []string{}
	if filepath.IsAbs(name) {
		candidates = append(candidates, name)
	} else {
		if s.Dir != "" {
			candidates = append(candidates, filepath.Join(s.Dir, name))
		}
		candidates = append(candidates, name)
	}
	if filepath.Ext(name) != "" {
		for _, candidate := range candidates {
			if fileExists(candidate) {
				return candidate, nil
			}
		}
		return "", fmt.Errorf("bundle %s not found", name)
	}
	exts := []string{".age"}
	if s.AllowPlaintext {
		exts = append(exts, ".yaml", ".yml")
	}
	for _, candidate := range candidates {
		for _, ext := range exts {
			if fileExists(candidate + ext) {
				return candidate + ext, nil
			}
		}
	}
	return "", fmt.Errorf("bundle %s not found", name)
}

func (s Store) decrypt(path string) ([]byte, error) {
	if strings.HasSuffix(strings.ToLower(filepath.Base(path)), ".age") {
		return decryptAge(path, s.AgeKeyPath)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read bundle %s: %w", path, err)
	}
	if s.AllowPlaintext {
		return data, nil
	}
	return nil, fmt.Errorf("bundle %s is not encrypted (.age)", path)
}

func decryptAge(path, keyPath string) ([]byte, error) {
	if strings.TrimSpace(keyPath) == "" {
		return nil, errors.New("age key path is required for .age bundles")
	}
	keyData, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("read age key %s: %w", keyPath, err)
	}
	identities, err := age.ParseIdentities(bytes.NewReader(keyData))
	if err != nil {
		return nil, fmt.Errorf("parse age key %s: %w", keyPath, err)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bundle %s: %w", path, err)
	}
	defer file.Close()
	reader, err := age.Decrypt(file, identities...)
	if err != nil {
		return nil, fmt.Errorf("decrypt bundle %s: %w", path, err)
	}
	payload, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read bundle %s: %w", path, err)
	}
	return payload, nil
}

func parseBundle(data []byte) (Bundle, error) {
	var bundle Bundle
	if err := yaml.Unmarshal(data, &bundle); err != nil {
		return Bundle{}, err
	}
	if bundle.Version == 0 {
		bundle.Version = BundleVersion
	}
	if bundle.Version != BundleVersion {
		return Bundle{}, fmt.Errorf("unsupported bundle version %d", bundle.Version)
	}
	for token, id := range bundle.Tokens {
		if strings.TrimSpace(token) == "" {
			return Bundle{}, errors.New("bundle contains an empty token")
		}
		if !id.Valid() {
			return Bundle{}, fmt.Errorf("bundle token for subject %q is invalid", id.Subject)
		}
	}
	return bundle, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
