package filesystem_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/temirov/vendorsync/internal/filesystem"
)

const (
	testSourceFileNameConstant       = "wayland.xml"
	testSourceContentConstant        = "<protocol name=\"wayland\"/>\n"
	testReplacementContentConstant   = "<protocol name=\"wayland\" version=\"2\"/>\n"
	testNestedDestinationConstant    = "stable/xdg-shell/xdg-shell.xml"
	testExecutableScriptNameConstant = "generate.sh"
)

func TestOSFileSystemCopyFileCreatesParentsAndOverwrites(testInstance *testing.T) {
	workingDirectory := testInstance.TempDir()
	fileSystem := filesystem.OSFileSystem{}

	sourcePath := filepath.Join(workingDirectory, testSourceFileNameConstant)
	require.NoError(testInstance, os.WriteFile(sourcePath, []byte(testSourceContentConstant), 0o644))

	destinationPath := filepath.Join(workingDirectory, "group", testNestedDestinationConstant)
	require.NoError(testInstance, fileSystem.CopyFile(sourcePath, destinationPath))

	copiedContent, readError := fileSystem.ReadFile(destinationPath)
	require.NoError(testInstance, readError)
	require.Equal(testInstance, testSourceContentConstant, string(copiedContent))

	require.NoError(testInstance, os.WriteFile(sourcePath, []byte(testReplacementContentConstant), 0o644))
	require.NoError(testInstance, fileSystem.CopyFile(sourcePath, destinationPath))

	overwrittenContent, rereadError := fileSystem.ReadFile(destinationPath)
	require.NoError(testInstance, rereadError)
	require.Equal(testInstance, testReplacementContentConstant, string(overwrittenContent))
}

func TestOSFileSystemCopyFilePreservesPermissions(testInstance *testing.T) {
	workingDirectory := testInstance.TempDir()
	fileSystem := filesystem.OSFileSystem{}

	sourcePath := filepath.Join(workingDirectory, testExecutableScriptNameConstant)
	require.NoError(testInstance, os.WriteFile(sourcePath, []byte("#!/bin/sh\n"), 0o755))
	require.NoError(testInstance, os.Chmod(sourcePath, 0o755))

	destinationPath := filepath.Join(workingDirectory, "copy", testExecutableScriptNameConstant)
	require.NoError(testInstance, fileSystem.CopyFile(sourcePath, destinationPath))

	destinationInfo, statError := fileSystem.Stat(destinationPath)
	require.NoError(testInstance, statError)
	require.Equal(testInstance, os.FileMode(0o755), destinationInfo.Mode().Perm())
}

func TestOSFileSystemCopyFileRejectsDirectories(testInstance *testing.T) {
	workingDirectory := testInstance.TempDir()
	fileSystem := filesystem.OSFileSystem{}

	copyError := fileSystem.CopyFile(workingDirectory, filepath.Join(workingDirectory, "target"))
	require.Error(testInstance, copyError)
}

func TestOSFileSystemRemoveIgnoresMissingFiles(testInstance *testing.T) {
	workingDirectory := testInstance.TempDir()
	fileSystem := filesystem.OSFileSystem{}

	presentPath := filepath.Join(workingDirectory, testSourceFileNameConstant)
	require.NoError(testInstance, fileSystem.WriteFile(presentPath, []byte(testSourceContentConstant), 0o644))

	require.NoError(testInstance, fileSystem.Remove(presentPath))
	_, statError := fileSystem.Stat(presentPath)
	require.ErrorIs(testInstance, statError, os.ErrNotExist)

	require.NoError(testInstance, fileSystem.Remove(presentPath))
}

func TestOSFileSystemRemoveAllDeletesTree(testInstance *testing.T) {
	workingDirectory := testInstance.TempDir()
	fileSystem := filesystem.OSFileSystem{}

	nestedDirectory := filepath.Join(workingDirectory, ".import", "freedesktop.org", "1.32")
	require.NoError(testInstance, fileSystem.MkdirAll(nestedDirectory, 0o755))
	require.NoError(testInstance, fileSystem.WriteFile(filepath.Join(nestedDirectory, testSourceFileNameConstant), []byte(testSourceContentConstant), 0o644))

	require.NoError(testInstance, fileSystem.RemoveAll(filepath.Join(workingDirectory, ".import")))
	_, statError := fileSystem.Stat(nestedDirectory)
	require.ErrorIs(testInstance, statError, os.ErrNotExist)
}
