package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileIsUnauthenticated(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "session.yaml"))
	_, err := store.Load()
	require.ErrorIs(t, err, ErrNoCredential)
	assert.Empty(t, store.Token())
}

func TestSaveLoadClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.yaml")
	store := NewStore(path)
	cred := Credential{ID: 7, Name: "Alice", AssistantCode: "A1", Token: "tok-123"}
	require.NoError(t, store.Save(cred))

	got, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, cred, got)
	assert.Equal(t, "tok-123", store.Token())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	require.NoError(t, store.Clear())
	_, err = store.Load()
	require.ErrorIs(t, err, ErrNoCredential)
	require.NoError(t, store.Clear(), "clearing twice is fine")
}

func TestClearKeepsOtherKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	require.NoError(t, os.WriteFile(path, []byte("theme: dark\nauthData:\n  token: abc\n"), 0o600))
	store := NewStore(path)
	assert.Equal(t, "abc", store.Token())

	require.NoError(t, store.Clear())
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "theme: dark")
	assert.NotContains(t, string(data), AuthKey)
}

func TestEmptyTokenIsUnauthenticated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	require.NoError(t, os.WriteFile(path, []byte("authData:\n  name: Bob\n  token: \"  \"\n"), 0o600))
	_, err := NewStore(path).Load()
	require.ErrorIs(t, err, ErrNoCredential)
}

func TestCorruptFileIsUnauthenticated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.yaml")
	require.NoError(t, os.WriteFile(path, []byte("authData: [unclosed\n"), 0o600))
	store := NewStore(path)
	_, err := store.Load()
	require.ErrorIs(t, err, ErrNoCredential)

	require.NoError(t, store.Save(Credential{Token: "fresh"}), "save recovers a corrupt store")
	assert.Equal(t, "fresh", store.Token())
}

func TestSaveRequiresToken(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "session.yaml"))
	require.Error(t, store.Save(Credential{Name: "nobody"}))
}
