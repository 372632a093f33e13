package utils

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// DirCheckResult reports the outcome of a directory check.
type DirCheckResult struct {
	Exists   bool
	Writable bool
	Error    error
}

// FileExists reports whether path names an existing file.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// EnsureDir creates the directory and any missing parents.
func EnsureDir(dirPath string) error {
	return os.MkdirAll(dirPath, 0755)
}

// SaveTOMLFile encodes data as TOML into filePath, replacing the file.
func SaveTOMLFile(data interface{}, filePath string) error {
	file, err := os.Create(filePath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", filePath, err)
	}
	defer file.Close()
	if err := toml.NewEncoder(file).Encode(data); err != nil {
		return fmt.Errorf("encoding %s: %w", filePath, err)
	}
	return nil
}

// GetAbsolutePath resolves path to absolute form, or returns it unchanged
// when resolution fails. Empty in, "unknown" out, matching the config
// status output.
func GetAbsolutePath(path string) string {
	if path == "" {
		return "unknown"
	}
	if filepath.IsAbs(path) {
		return path
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}

// GetExecutableDir returns the directory holding the running binary. Used
// as the config location of last resort when no home directory exists.
func GetExecutableDir() (string, error) {
	execPath, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(execPath), nil
}

// CheckDirStatus creates the directory when missing, then tests
// writability with a throwaway file.
func CheckDirStatus(dirPath string) DirCheckResult {
	if _, err := os.Stat(dirPath); err != nil {
		if mkErr := os.MkdirAll(dirPath, 0755); mkErr != nil {
			return DirCheckResult{Error: mkErr}
		}
	}
	return DirCheckResult{Exists: true, Writable: testWriteAccess(dirPath)}
}

func testWriteAccess(dirPath string) bool {
	marker := filepath.Join(dirPath, ".write_test")
	file, err := os.Create(marker)
	if err != nil {
		return false
	}
	file.Close()
	os.Remove(marker)
	return true
}
