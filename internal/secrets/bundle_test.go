package secrets

import (
	"os"
	"path/filepath"
	"testing"

	"filippo.io/age"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const plainBundle = `version: 1
tokens:
  staff-token:
    subject: staff-1
    role: staff
    tenant_id: tenant-1
  admin-token:
    subject: admin-1
    role: admin
    tenant_id: tenant-1
`

func writeBundle(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestStoreLoadPlaintext(t *testing.T) {
	t.Run("by name with plaintext allowed", func(t *testing.T) {
		dir := t.TempDir()
		writeBundle(t, dir, "default.yaml", plainBundle)

		store := Store{Dir: dir, AllowPlaintext: true}
		bundle, err := store.Load("default")
		require.NoError(t, err)
		assert.Len(t, bundle.Tokens, 2)

		id, ok := bundle.Lookup("admin-token")
		require.True(t, ok)
		assert.Equal(t, "admin-1", id.Subject)
		assert.True(t, id.Admin())
	})

	t.Run("name lookup skips plaintext by default", func(t *testing.T) {
		dir := t.TempDir()
		writeBundle(t, dir, "default.yaml", plainBundle)

		store := Store{Dir: dir}
		_, err := store.Load("default")
		assert.EqualError(t, err, "bundle default not found")
	})

	t.Run("explicit plaintext path rejected by default", func(t *testing.T) {
		dir := t.TempDir()
		path := writeBundle(t, dir, "default.yaml", plainBundle)

		store := Store{Dir: dir}
		_, err := store.Load(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "is not encrypted")
	})

	t.Run("blank name", func(t *testing.T) {
		_, err := Store{}.Load("  ")
		assert.EqualError(t, err, "bundle name is required")
	})
}

func TestStoreLoadAge(t *testing.T) {
	dir := t.TempDir()
	identity, err := age.GenerateX25519Identity()
	require.NoError(t, err)

	keyPath := filepath.Join(dir, "age.key")
	require.NoError(t, os.WriteFile(keyPath, []byte(identity.String()+"\n"), 0o600))

	bundlePath := filepath.Join(dir, "default.age")
	file, err := os.Create(bundlePath)
	require.NoError(t, err)
	writer, err := age.Encrypt(file, identity.Recipient())
	require.NoError(t, err)
	_, err = writer.Write([]byte(plainBundle))
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	require.NoError(t, file.Close())

	t.Run("decrypts by name", func(t *testing.T) {
		store := Store{Dir: dir, AgeKeyPath: keyPath}
		bundle, err := store.Load("default")
		require.NoError(t, err)
		assert.Len(t, bundle.Tokens, 2)
	})

	t.Run("missing key path", func(t *testing.T) {
		store := Store{Dir: dir}
		_, err := store.Load("default")
		assert.EqualError(t, err, "age key path is required for .age bundles")
	})

	t.Run("wrong key", func(t *testing.T) {
		other, err := age.GenerateX25519Identity()
		require.NoError(t, err)
		otherPath := filepath.Join(dir, "other.key")
		require.NoError(t, os.WriteFile(otherPath, []byte(other.String()+"\n"), 0o600))

		store := Store{Dir: dir, AgeKeyPath: otherPath}
		_, err = store.Load("default")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "decrypt bundle")
	})
}

func TestParseBundle(t *testing.T) {
	t.Run("defaults version", func(t *testing.T) {
		bundle, err := parseBundle([]byte("tokens:\n  tok:\n    subject: s\n    role: staff\n    tenant_id: t\n"))
		require.NoError(t, err)
		assert.Equal(t, BundleVersion, bundle.Version)
	})

	t.Run("unsupported version", func(t *testing.T) {
		_, err := parseBundle([]byte("version: 2\ntokens: {}\n"))
		assert.EqualError(t, err, "unsupported bundle version 2")
	})

	t.Run("invalid identity", func(t *testing.T) {
		_, err := parseBundle([]byte("tokens:\n  tok:\n    subject: s\n    role: superuser\n    tenant_id: t\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "is invalid")
	})

	t.Run("empty token", func(t *testing.T) {
		_, err := parseBundle([]byte("tokens:\n  \" \":\n    subject: s\n    role: staff\n    tenant_id: t\n"))
		assert.EqualError(t, err, "bundle contains an empty token")
	})
}

func TestIdentityValid(t *testing.T) {
	assert.True(t, Identity{Subject: "s", Role: RoleStaff, TenantID: "t"}.Valid())
	assert.True(t, Identity{Subject: "s", Role: RoleAdmin, TenantID: "t"}.Valid())
	assert.False(t, Identity{Subject: "s", Role: "root", TenantID: "t"}.Valid())
	assert.False(t, Identity{Role: RoleStaff, TenantID: "t"}.Valid())
	assert.False(t, Identity{Subject: "s", Role: RoleStaff}.Valid())
}

func TestBundleLookup(t *testing.T) {
	bundle := Bundle{Tokens: map[string]Identity{
		"good": {Subject: "s", Role: RoleStaff, TenantID: "t"},
		"bad":  {Subject: "s"},
	}}

	_, ok := bundle.Lookup("missing")
	assert.False(t, ok)

	_, ok = bundle.Lookup("bad")
	assert.False(t, ok)

	id, ok := bundle.Lookup("good")
	assert.True(t, ok)
	assert.Equal(t, "s", id.Subject)
}
