package google

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *CredentialStore {
	t.Helper()
	root := t.TempDir()
	return NewCredentialStore(Paths{
		ConfigDir: filepath.Join(root, "config"),
		DataDir:   filepath.Join(root, "data"),
	}, nil)
}

func TestEnsureDirectories(t *testing.T) {
	store := newTestStore(t)
	store.EnsureDirectories()
	store.EnsureDirectories()

	for _, dir := range []string{store.Paths().ConfigDir, store.Paths().DataDir} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
		if runtime.GOOS != "windows" {
			assert.Equal(t, os.FileMode(0o700), info.Mode().Perm())
		}
	}
}

func TestEnsureDirectoriesFailureIsNotFatal(t *testing.T) {
	root := t.TempDir()
	blocker := filepath.Join(root, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	store := NewCredentialStore(Paths{
		ConfigDir: filepath.Join(blocker, "config"),
		DataDir:   filepath.Join(blocker, "data"),
	}, nil)

	assert.NotPanics(t, store.EnsureDirectories)
}

func TestLoadApplicationIdentity(t *testing.T) {
	store := newTestStore(t)

	id, status := store.LoadApplicationIdentity()
	assert.Nil(t, id)
	assert.Equal(t, LoadNotFound, status)

	store.EnsureDirectories()
	require.NoError(t, os.WriteFile(store.IdentityPath(), []byte("{garbage"), 0o600))
	id, status = store.LoadApplicationIdentity()
	assert.Nil(t, id)
	assert.Equal(t, LoadCorrupt, status)

	require.NoError(t, os.WriteFile(store.IdentityPath(),
		[]byte(`{"installed":{"client_id":"cid","client_secret":"cs","redirect_uris":["http://localhost"]}}`), 0o600))
	id, status = store.LoadApplicationIdentity()
	require.NotNil(t, id)
	assert.Equal(t, LoadFound, status)
	assert.Equal(t, "cid", id.ClientID)
}

func TestSessionStateRoundTrip(t *testing.T) {
	store := newTestStore(t)

	state := &SessionState{
		AccessToken:  "access",
		RefreshToken: "refresh",
		ExpiryDate:   1_900_000_000_000,
		TokenType:    "Bearer",
		Scope:        "openid email",
		IDToken:      "a.b.c",
	}
	require.NoError(t, store.SaveSessionState(state))

	loaded, status := store.LoadSessionState()
	require.Equal(t, LoadFound, status)
	assert.Equal(t, state, loaded)

	if runtime.GOOS != "windows" {
		info, err := os.Stat(store.SessionPath())
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	}
}

func TestSaveSessionStateLeavesNoTempFiles(t *testing.T) {
	store := newTestStore(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, store.SaveSessionState(&SessionState{AccessToken: "a"}))
	}

	entries, err := os.ReadDir(store.Paths().DataDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, SessionFileName, entries[0].Name())
}

func TestSaveSessionStateConcurrentReaders(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.SaveSessionState(&SessionState{AccessToken: "first"}))

	var wg sync.WaitGroup
	stop := make(chan struct{})
	corrupt := make(chan struct{}, 1)

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			if _, status := store.LoadSessionState(); status != LoadFound {
				select {
				case corrupt <- struct{}{}:
				default:
				}
			}
		}
	}()

	for i := 0; i < 50; i++ {
		require.NoError(t, store.SaveSessionState(&SessionState{AccessToken: "next", RefreshToken: "r"}))
	}
	close(stop)
	wg.Wait()

	select {
	case <-corrupt:
		t.Fatal("reader observed a partially written session state")
	default:
	}
}

func TestLoadSessionStateCorrupt(t *testing.T) {
	store := newTestStore(t)
	store.EnsureDirectories()

	require.NoError(t, os.WriteFile(store.SessionPath(), []byte("not json"), 0o600))
	state, status := store.LoadSessionState()
	assert.Nil(t, state)
	assert.Equal(t, LoadCorrupt, status)
	assert.Equal(t, "corrupt", status.String())
}

func TestDeleteSessionState(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.DeleteSessionState(), "deleting a missing file is not an error")

	require.NoError(t, store.SaveSessionState(&SessionState{AccessToken: "a"}))
	require.NoError(t, store.DeleteSessionState())

	_, status := store.LoadSessionState()
	assert.Equal(t, LoadNotFound, status)
}

func TestSaveSessionStateNil(t *testing.T) {
	assert.Error(t, newTestStore(t).SaveSessionState(nil))
}
