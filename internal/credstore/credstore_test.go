package credstore

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudvault/cloudvault-go/internal/api"
)

func testStore(t *testing.T) *Store {
	t.Helper()

	return New(filepath.Join(t.TempDir(), "credentials.json"))
}

func TestStore_Roundtrip(t *testing.T) {
	s := testStore(t)

	require.NoError(t, s.SetCredential("access-1", "refresh-1"))
	assert.Equal(t, "access-1", s.AccessToken())
	assert.Equal(t, "refresh-1", s.RefreshToken())

	require.NoError(t, s.SetUser(&api.UserProfile{UserName: "ada", Email: "ada@example.com"}))

	user := s.User()
	require.NotNil(t, user)
	assert.Equal(t, "ada", user.UserName)

	// The profile survives a credential rotation.
	require.NoError(t, s.SetCredential("access-2", "refresh-2"))
	require.NotNil(t, s.User())
	assert.Equal(t, "access-2", s.AccessToken())
}

func TestStore_EmptyRefreshTokenKeepsExisting(t *testing.T) {
	s := testStore(t)

	require.NoError(t, s.SetCredential("access-1", "refresh-1"))
	require.NoError(t, s.SetCredential("access-2", ""))

	assert.Equal(t, "access-2", s.AccessToken())
	assert.Equal(t, "refresh-1", s.RefreshToken(), "non-rotating servers keep the old refresh token")
}

func TestStore_Clear(t *testing.T) {
	s := testStore(t)

	require.NoError(t, s.SetCredential("access-1", "refresh-1"))
	require.NoError(t, s.Clear())

	assert.Empty(t, s.AccessToken())
	assert.Empty(t, s.RefreshToken())
	assert.Nil(t, s.User())

	// Clearing again is fine — the file is already gone.
	require.NoError(t, s.Clear())
}

func TestStore_MissingFileReadsZeroValues(t *testing.T) {
	s := testStore(t)

	assert.Empty(t, s.AccessToken())
	assert.Empty(t, s.RefreshToken())
	assert.Nil(t, s.User())
}

func TestStore_PathlessIsInert(t *testing.T) {
	s := &Store{}

	assert.Empty(t, s.AccessToken())
	assert.Nil(t, s.User())
	require.NoError(t, s.SetCredential("a", "r"))
	require.NoError(t, s.SetUser(&api.UserProfile{}))
	require.NoError(t, s.Clear())
	assert.Empty(t, s.AccessToken(), "writes to a pathless store are dropped")
}

func TestStore_FilePermissions(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permission bits")
	}

	s := testStore(t)
	require.NoError(t, s.SetCredential("access-1", "refresh-1"))

	fi, err := os.Stat(s.path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(FilePerms), fi.Mode().Perm())
}

func TestStore_CreatesParentDirectory(t *testing.T) {
	dir := t.TempDir()
	s := New(filepath.Join(dir, "nested", "deeper", "credentials.json"))

	require.NoError(t, s.SetCredential("access-1", ""))
	assert.Equal(t, "access-1", s.AccessToken())
}

func TestStore_CorruptFileIsAnError(t *testing.T) {
	s := testStore(t)
	require.NoError(t, os.WriteFile(s.path, []byte("{not json"), 0o600))

	// Reads degrade to zero values; writes surface the decode error rather
	// than silently destroying whatever the file held.
	assert.Empty(t, s.AccessToken())
	assert.Error(t, s.SetCredential("a", "r"))
}
