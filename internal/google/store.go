package google

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/teemow/workspace-mcp/internal/logging"
)

// LoadStatus distinguishes an absent document from a present but unusable one.
type LoadStatus int

const (
	// LoadNotFound means the file does not exist.
	LoadNotFound LoadStatus = iota
	// LoadFound means the file was read and parsed.
	LoadFound
	// LoadCorrupt means the file exists but could not be read or parsed.
	LoadCorrupt
)

func (s LoadStatus) String() string {
	switch s {
	case LoadNotFound:
		return "not_found"
	case LoadFound:
		return "found"
	case LoadCorrupt:
		return "corrupt"
	default:
		return fmt.Sprintf("LoadStatus(%d)", int(s))
	}
}

const (
	dirPerm  os.FileMode = 0o700
	filePerm os.FileMode = 0o600
)

// CredentialStore reads the application identity and reads/writes the session
// state. Load operations never return errors: failures are logged and
// reported through LoadStatus.
type CredentialStore struct {
	paths  Paths
	logger logging.Logger
}

// NewCredentialStore creates a store rooted at paths.
func NewCredentialStore(paths Paths, logger logging.Logger) *CredentialStore {
	if logger == nil {
		logger = logging.NewSlogAdapter(nil)
	}
	return &CredentialStore{paths: paths, logger: logger}
}

// Paths returns the directories the store operates on.
func (s *CredentialStore) Paths() Paths {
	return s.paths
}

// IdentityPath returns where the application identity is expected.
func (s *CredentialStore) IdentityPath() string {
	return s.paths.IdentityFile()
}

// SessionPath returns where the session state is persisted.
func (s *CredentialStore) SessionPath() string {
	return s.paths.SessionFile()
}

// EnsureDirectories creates the configuration and data directories with
// owner-only permissions. Failures are logged and otherwise ignored.
func (s *CredentialStore) EnsureDirectories() {
	for _, dir := range []string{s.paths.ConfigDir, s.paths.DataDir} {
		if err := os.MkdirAll(dir, dirPerm); err != nil {
			s.logger.Warn("Failed to create directory",
				logging.Path(dir), logging.Err(err))
		}
	}
}

// LoadApplicationIdentity reads credentials.json from the configuration directory.
func (s *CredentialStore) LoadApplicationIdentity() (*ApplicationIdentity, LoadStatus) {
	return loadDocument(s, "application identity", s.IdentityPath(), ParseApplicationIdentity)
}

// LoadSessionState reads token.json from the data directory.
func (s *CredentialStore) LoadSessionState() (*SessionState, LoadStatus) {
	return loadDocument(s, "session state", s.SessionPath(), ParseSessionState)
}

func loadDocument[T any](s *CredentialStore, what, path string, parse func([]byte) (*T, error)) (*T, LoadStatus) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, LoadNotFound
	}
	if err != nil {
		s.logger.Warn("Failed to read "+what,
			logging.Path(path), logging.Err(err))
		return nil, LoadCorrupt
	}

	doc, err := parse(data)
	if err != nil {
		s.logger.Warn("Ignoring unusable "+what,
			logging.Path(path), logging.Err(err))
		return nil, LoadCorrupt
	}
	return doc, LoadFound
}

// SaveSessionState atomically replaces token.json. Readers see either the
// previous document or the new one, never a partial write.
func (s *CredentialStore) SaveSessionState(state *SessionState) error {
	if state == nil {
		return errors.New("session state cannot be nil")
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session state: %w", err)
	}

	path := s.SessionPath()
	if err := os.MkdirAll(filepath.Dir(path), dirPerm); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	if err := writeFileAtomic(path, data, filePerm); err != nil {
		return fmt.Errorf("failed to save session state: %w", err)
	}

	s.logger.Debug("Session state saved", logging.Path(path))
	return nil
}

// DeleteSessionState removes token.json. A missing file is not an error.
func (s *CredentialStore) DeleteSessionState() error {
	err := os.Remove(s.SessionPath())
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete session state: %w", err)
	}
	return nil
}

func writeFileAtomic(path string, data []byte, perm os.FileMode) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if err = tmp.Chmod(perm); err != nil {
		return err
	}
	if _, err = tmp.Write(data); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
