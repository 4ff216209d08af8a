package snapshot

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/temirov/vendorsync/internal/gitrepo"
	"github.com/temirov/vendorsync/internal/ui"
	pathutils "github.com/temirov/vendorsync/internal/utils/path"
)

const (
	commandUseConstant              = "import-snapshot <group> [version]"
	commandShortDescriptionConstant = "Import an upstream snapshot into a vendored directory"
	commandLongDescriptionConstant  = `import-snapshot synchronizes a vendored subdirectory (group) of the current Git working tree with
the upstream repository named in its METADATA record. It clones the requested and the previously
recorded upstream versions, removes files that disappeared upstream, copies the new files in,
updates the METADATA version and last upgrade date, and records everything in a single commit.

The working tree must be clean before the import starts.`
	commandExampleConstant = `  # Update the freedesktop.org subdirectory to version 1.32
  # Check https://gitlab.freedesktop.org/wayland/wayland-protocols/-/tags
  # for valid version tags.
  import-snapshot freedesktop.org 1.32

  # Update the chromium.org subdirectory to the latest
  import-snapshot chromium.org main

  # Show what an import would change without touching the tree
  import-snapshot --dry-run freedesktop.org 1.33`

	minimumArgumentCountConstant = 1
	maximumArgumentCountConstant = 2
	groupArgumentIndexConstant   = 0
	versionArgumentIndexConstant = 1

	rootFlagNameConstant             = "root"
	rootFlagUsageConstant            = "Working tree containing the groups (defaults to the current directory)."
	noForceCleanFlagNameConstant     = "no-force-clean"
	noForceCleanFlagUsageConstant    = "Reuse existing scratch clones instead of fetching upstream code again."
	noRemoveOldFilesFlagNameConstant = "no-remove-old-files"
	noRemoveOldFilesFlagUsage        = "Skip syncing the previous version to determine which files to remove."
	dryRunFlagNameConstant           = "dry-run"
	dryRunFlagUsageConstant          = "Print the import plan as YAML without modifying the working tree."
)

// LoggerProvider supplies a zap logger for command execution.
type LoggerProvider func() *zap.Logger

// ConfigurationProvider supplies the persisted import configuration.
type ConfigurationProvider func() Configuration

// WorkingDirectoryProvider resolves the directory relative paths are anchored at.
type WorkingDirectoryProvider func() (string, error)

// CommandBuilder assembles the import-snapshot cobra command with configurable dependencies.
type CommandBuilder struct {
	LoggerProvider               LoggerProvider
	ConfigurationProvider        ConfigurationProvider
	HumanReadableLoggingProvider func() bool
	WorkingDirectoryProvider     WorkingDirectoryProvider
	GitExecutor                  gitrepo.GitExecutor
	FileSystem                   WorkspaceFileSystem
	RepositoryFactory            RepositoryFactory
	Clock                        Clock
	HomeExpander                 *pathutils.HomeExpander
}

// Build constructs the cobra command for snapshot imports.
func (builder *CommandBuilder) Build() (*cobra.Command, error) {
	command := &cobra.Command{
		Use:           commandUseConstant,
		Short:         commandShortDescriptionConstant,
		Long:          commandLongDescriptionConstant,
		Example:       commandExampleConstant,
		Args:          cobra.RangeArgs(minimumArgumentCountConstant, maximumArgumentCountConstant),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          builder.run,
	}

	command.Flags().String(rootFlagNameConstant, "", rootFlagUsageConstant)
	command.Flags().Bool(noForceCleanFlagNameConstant, false, noForceCleanFlagUsageConstant)
	command.Flags().Bool(noRemoveOldFilesFlagNameConstant, false, noRemoveOldFilesFlagUsage)
	command.Flags().Bool(dryRunFlagNameConstant, false, dryRunFlagUsageConstant)

	return command, nil
}

func (builder *CommandBuilder) run(command *cobra.Command, arguments []string) error {
	configuration, configurationError := builder.resolveConfiguration(command)
	if configurationError != nil {
		return configurationError
	}
	options := builder.parseOptions(command, arguments, configuration)

	logger := builder.resolveLogger()
	humanReadableLogging := false
	if builder.HumanReadableLoggingProvider != nil {
		humanReadableLogging = builder.HumanReadableLoggingProvider()
	}

	gitExecutor, executorError := ResolveGitExecutor(builder.GitExecutor, logger, humanReadableLogging)
	if executorError != nil {
		return executorError
	}
	fileSystem := ResolveFileSystem(builder.FileSystem)

	service, serviceError := NewService(configuration, ServiceDependencies{
		Logger:            logger,
		RepositoryFactory: ResolveRepositoryFactory(builder.RepositoryFactory, gitExecutor, fileSystem),
		FileSystem:        fileSystem,
		Clock:             builder.Clock,
		Notifier:          ui.NewNotifier(command.OutOrStdout()),
		PlanOutput:        command.OutOrStdout(),
	})
	if serviceError != nil {
		return serviceError
	}

	_, importError := service.Import(command.Context(), options)
	return importError
}

func (builder *CommandBuilder) parseOptions(command *cobra.Command, arguments []string, configuration Configuration) Options {
	options := Options{
		Group:          arguments[groupArgumentIndexConstant],
		ForceClean:     configuration.ForceClean,
		RemoveOldFiles: configuration.RemoveOldFiles,
	}
	if len(arguments) > versionArgumentIndexConstant {
		options.Version = arguments[versionArgumentIndexConstant]
	}

	if noForceClean, _ := command.Flags().GetBool(noForceCleanFlagNameConstant); noForceClean {
		options.ForceClean = false
	}
	if noRemoveOldFiles, _ := command.Flags().GetBool(noRemoveOldFilesFlagNameConstant); noRemoveOldFiles {
		options.RemoveOldFiles = false
	}
	options.DryRun, _ = command.Flags().GetBool(dryRunFlagNameConstant)

	return options
}

// resolveConfiguration applies the --root flag and anchors the root at the working directory.
func (builder *CommandBuilder) resolveConfiguration(command *cobra.Command) (Configuration, error) {
	configuration := DefaultConfiguration()
	if builder.ConfigurationProvider != nil {
		configuration = builder.ConfigurationProvider()
	}
	configuration = configuration.Sanitize()

	if command.Flags().Changed(rootFlagNameConstant) {
		configuration.Root, _ = command.Flags().GetString(rootFlagNameConstant)
	}

	workingDirectory, workingDirectoryError := builder.resolveWorkingDirectory()
	if workingDirectoryError != nil {
		return Configuration{}, workingDirectoryError
	}

	homeExpander := builder.HomeExpander
	if homeExpander == nil {
		homeExpander = pathutils.NewHomeExpander()
	}
	configuration.Root = homeExpander.Resolve(configuration.Root, workingDirectory)
	return configuration, nil
}

func (builder *CommandBuilder) resolveWorkingDirectory() (string, error) {
	if builder.WorkingDirectoryProvider != nil {
		return builder.WorkingDirectoryProvider()
	}
	return os.Getwd()
}

func (builder *CommandBuilder) resolveLogger() *zap.Logger {
	if builder.LoggerProvider == nil {
		return zap.NewNop()
	}
	logger := builder.LoggerProvider()
	if logger == nil {
		return zap.NewNop()
	}
	return logger
}
