package filesystem

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	defaultDirectoryPermissionsConstant = fs.FileMode(0o755)
	copyOpenSourceErrorTemplateConstant = "unable to open %s: %w"
	copyCreateTargetErrorTemplate       = "unable to create %s: %w"
	copyContentErrorTemplateConstant    = "unable to copy %s to %s: %w"
	copyCloseErrorTemplateConstant      = "unable to finalize %s: %w"
	copySourceIsDirectoryTemplate       = "unable to copy %s: source is a directory"
)

// OSFileSystem implements the filesystem capabilities consumed by the import workflow using operating system primitives.
type OSFileSystem struct{}

// Stat retrieves file metadata.
func (OSFileSystem) Stat(path string) (fs.FileInfo, error) {
	return os.Stat(path)
}

// MkdirAll ensures a directory hierarchy exists with the provided permissions.
func (OSFileSystem) MkdirAll(path string, permissions fs.FileMode) error {
	return os.MkdirAll(path, permissions)
}

// ReadFile reads file contents.
func (OSFileSystem) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

// WriteFile writes data to a file with the supplied permissions.
func (OSFileSystem) WriteFile(path string, data []byte, permissions fs.FileMode) error {
	return os.WriteFile(path, data, permissions)
}

// Remove deletes a single file. A path that no longer exists is not an error.
func (OSFileSystem) Remove(path string) error {
	removeError := os.Remove(path)
	if removeError != nil && !errors.Is(removeError, fs.ErrNotExist) {
		return removeError
	}
	return nil
}

// RemoveAll deletes a directory tree.
func (OSFileSystem) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

// CopyFile copies sourcePath to destinationPath, creating parent directories and carrying over permission bits.
// An existing destination is truncated and overwritten.
func (OSFileSystem) CopyFile(sourcePath string, destinationPath string) error {
	sourceInfo, statError := os.Stat(sourcePath)
	if statError != nil {
		return fmt.Errorf(copyOpenSourceErrorTemplateConstant, sourcePath, statError)
	}
	if sourceInfo.IsDir() {
		return fmt.Errorf(copySourceIsDirectoryTemplate, sourcePath)
	}

	if mkdirError := os.MkdirAll(filepath.Dir(destinationPath), defaultDirectoryPermissionsConstant); mkdirError != nil {
		return fmt.Errorf(copyCreateTargetErrorTemplate, filepath.Dir(destinationPath), mkdirError)
	}

	sourceFile, openError := os.Open(sourcePath)
	if openError != nil {
		return fmt.Errorf(copyOpenSourceErrorTemplateConstant, sourcePath, openError)
	}
	defer sourceFile.Close()

	permissions := sourceInfo.Mode().Perm()
	destinationFile, createError := os.OpenFile(destinationPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, permissions)
	if createError != nil {
		return fmt.Errorf(copyCreateTargetErrorTemplate, destinationPath, createError)
	}

	if _, copyError := io.Copy(destinationFile, sourceFile); copyError != nil {
		_ = destinationFile.Close()
		return fmt.Errorf(copyContentErrorTemplateConstant, sourcePath, destinationPath, copyError)
	}
	if closeError := destinationFile.Close(); closeError != nil {
		return fmt.Errorf(copyCloseErrorTemplateConstant, destinationPath, closeError)
	}

	// OpenFile only applies permissions on creation and is subject to umask.
	return os.Chmod(destinationPath, permissions)
}
