package workspace

import (
	"fmt"
	"os"
	"path/filepath"
)

// Workspace represents the managed storage directories for bx
type Workspace struct {
	RootPath      string
	DownloadsPath string
	ExportsPath   string
	InboxPath     string
	ConfigPath    string
}

// New creates a new Workspace instance with XDG-compliant paths
func New() (*Workspace, error) {
	rootPath, rootErr := getDataRoot()
	configPath, configErr := getConfigPath()
	if rootErr != nil {
		return nil, fmt.Errorf("failed to determine workspace root: %w", rootErr)
	}
	if configErr != nil {
		return nil, fmt.Errorf("failed to determine config path: %w", configErr)
	}

	return &Workspace{
		RootPath:      rootPath,
		DownloadsPath: filepath.Join(rootPath, "downloads"),
		ExportsPath:   filepath.Join(rootPath, "exports"),
		InboxPath:     filepath.Join(rootPath, "inbox"),
		ConfigPath:    configPath,
	}, nil
}

// getDataRoot returns the workspace root directory path
// Follows XDG Base Directory specification on Unix and uses AppData on Windows
func getDataRoot() (string, error) {
	if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
		return filepath.Join(xdgDataHome, "bx"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	if appData := os.Getenv("APPDATA"); appData != "" {
		return filepath.Join(appData, "bx"), nil
	}

	return filepath.Join(homeDir, ".local", "share", "bx"), nil
}

func getConfigPath() (string, error) {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, "bx", "config.yaml"), nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}

	if appData := os.Getenv("APPDATA"); appData != "" {
		return filepath.Join(appData, "bx-config", "config.yaml"), nil
	}

	return filepath.Join(homeDir, ".config", "bx", "config.yaml"), nil
}

// Override points the download and export directories at user-configured
// locations. Empty values keep the workspace defaults.
func (w *Workspace) Override(downloads, exports, inbox string) {
	if downloads != "" {
		w.DownloadsPath = downloads
	}
	if exports != "" {
		w.ExportsPath = exports
	}
	if inbox != "" {
		w.InboxPath = inbox
	}
}

// Initialize creates the workspace directory structure if it doesn't exist
func (w *Workspace) Initialize() error {
	directories := []string{
		w.RootPath,
		w.DownloadsPath,
		w.ExportsPath,
		w.InboxPath,
	}

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return nil
}

// Exists checks if the workspace has been initialized
func (w *Workspace) Exists() bool {
	info, err := os.Stat(w.RootPath)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// GetDownloadPath returns the full path for a downloaded badge file
func (w *Workspace) GetDownloadPath(filename string) string {
	return filepath.Join(w.DownloadsPath, filename)
}

// GetExportPath returns the full path for an exported JSON document
func (w *Workspace) GetExportPath(filename string) string {
	return filepath.Join(w.ExportsPath, filename)
}
