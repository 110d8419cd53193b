package google

import (
	"os"
	"path/filepath"
	"runtime"
)

// AppName names the per-platform configuration and data directories.
const AppName = "workspace-mcp"

const (
	// IdentityFileName is the operator-provisioned OAuth client file.
	IdentityFileName = "credentials.json"

	// SessionFileName is the persisted session state.
	SessionFileName = "token.json"

	// EnvConfigDir overrides the configuration directory on every platform.
	EnvConfigDir = "WORKSPACE_MCP_CONFIG_DIR"

	// EnvDataDir overrides the data directory on every platform.
	EnvDataDir = "WORKSPACE_MCP_DATA_DIR"
)

// Paths are the two directories the credential store reads and writes.
// On macOS both resolve to the same directory.
type Paths struct {
	ConfigDir string
	DataDir   string
}

// DefaultPaths resolves Paths for the running host.
func DefaultPaths() Paths {
	return Paths{
		ConfigDir: ResolveConfigDir(runtime.GOOS, os.Getenv),
		DataDir:   ResolveDataDir(runtime.GOOS, os.Getenv),
	}
}

// IdentityFile returns the absolute path of the identity file.
func (p Paths) IdentityFile() string {
	return filepath.Join(p.ConfigDir, IdentityFileName)
}

// SessionFile returns the absolute path of the session file.
func (p Paths) SessionFile() string {
	return filepath.Join(p.DataDir, SessionFileName)
}

// ResolveConfigDir returns the directory holding the application identity.
// It is a pure function of goos and the environment lookup.
func ResolveConfigDir(goos string, getenv func(string) string) string {
	if dir := getenv(EnvConfigDir); dir != "" {
		return absolute(dir)
	}

	switch goos {
	case "darwin":
		return filepath.Join(homeDir(goos, getenv), "Library", "Application Support", AppName)
	case "windows":
		if appData := getenv("APPDATA"); appData != "" {
			return filepath.Join(appData, AppName)
		}
		return filepath.Join(homeDir(goos, getenv), "AppData", "Roaming", AppName)
	}

	if xdg := getenv("XDG_CONFIG_HOME"); filepath.IsAbs(xdg) {
		return filepath.Join(xdg, AppName)
	}
	return filepath.Join(homeDir(goos, getenv), ".config", AppName)
}

// ResolveDataDir returns the directory holding the mutable session state.
// It is a pure function of goos and the environment lookup.
func ResolveDataDir(goos string, getenv func(string) string) string {
	if dir := getenv(EnvDataDir); dir != "" {
		return absolute(dir)
	}

	switch goos {
	case "darwin":
		return filepath.Join(homeDir(goos, getenv), "Library", "Application Support", AppName)
	case "windows":
		if localAppData := getenv("LOCALAPPDATA"); localAppData != "" {
			return filepath.Join(localAppData, AppName)
		}
		return filepath.Join(homeDir(goos, getenv), "AppData", "Local", AppName)
	}

	// XDG requires relative values to be ignored.
	if xdg := getenv("XDG_DATA_HOME"); filepath.IsAbs(xdg) {
		return filepath.Join(xdg, AppName)
	}
	return filepath.Join(homeDir(goos, getenv), ".local", "share", AppName)
}

func homeDir(goos string, getenv func(string) string) string {
	if goos == "windows" {
		if profile := getenv("USERPROFILE"); profile != "" {
			return profile
		}
		if drive, path := getenv("HOMEDRIVE"), getenv("HOMEPATH"); drive != "" || path != "" {
			return drive + path
		}
	} else if home := getenv("HOME"); home != "" {
		return home
	}
	return absolute(".")
}

func absolute(p string) string {
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
