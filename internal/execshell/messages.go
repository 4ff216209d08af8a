package execshell

import (
	"fmt"
	"strings"
)

type messageStage int

const (
	messageStageStart messageStage = iota
	messageStageSuccess
	messageStageFailure
	messageStageExecutionFailure
)

const (
	genericStartTemplateConstant            = "Running %s"
	genericSuccessTemplateConstant          = "Completed %s"
	genericFailureTemplateConstant          = "%s failed with exit code %d%s"
	genericExecutionFailureTemplateConstant = "%s failed: %s"
	commandLabelTemplateConstant            = "%s%s"
	workingDirectorySuffixTemplateConstant  = " (in %s)"
	commandArgumentsJoinSeparatorConstant   = " "
	standardErrorSuffixTemplateConstant     = ": %s"
	pathListJoinSeparatorConstant           = ", "
	unknownFailureMessageConstant           = "unknown error"
	emptyStringConstant                     = ""
	defaultWorkingDirectoryLabelConstant    = "current directory"
	fallbackUnknownValueLabelConstant       = "unknown"
	wholeTreeLabelConstant                  = "the whole tree"
	flagPrefixConstant                      = "-"
	lineSeparatorConstant                   = "\n"
	entryTerminatorConstant                 = "\x00"
	revisionPeelSeparatorConstant           = "^{"
)

const (
	gitRevParseSubcommandNameConstant       = "rev-parse"
	gitDescribeSubcommandNameConstant       = "describe"
	gitLSTreeSubcommandNameConstant         = "ls-tree"
	gitDiffFilesSubcommandNameConstant      = "diff-files"
	gitDiffIndexSubcommandNameConstant      = "diff-index"
	gitCloneSubcommandNameConstant          = "clone"
	gitSparseCheckoutSubcommandNameConstant = "sparse-checkout"
	gitAddSubcommandNameConstant            = "add"
	gitCommitSubcommandNameConstant         = "commit"
	gitMessageFlagConstant                  = "-m"
	gitMessageFileFlagConstant              = "-F"
	standardInputPathConstant               = "-"
	gitBranchFlagConstant                   = "-b"
	gitCloneEndpointArgumentCountConstant   = 2
)

const (
	gitRevisionStartTemplateConstant                   = "Resolving %s in %s"
	gitRevisionSuccessTemplateConstant                 = "%s in %s resolved to %s"
	gitRevisionFailureTemplateConstant                 = "Failed to resolve %s in %s (exit code %d%s)"
	gitRevisionExecutionFailureTemplateConstant        = "Unable to resolve %s in %s: %s"
	gitRefNameStartTemplateConstant                    = "Looking up a ref name for %s in %s"
	gitRefNameSuccessTemplateConstant                  = "%s in %s is named %s"
	gitRefNameFailureTemplateConstant                  = "No ref name points exactly at %s in %s (exit code %d%s)"
	gitRefNameExecutionFailureTemplateConstant         = "Unable to look up a ref name for %s in %s: %s"
	gitListFilesStartTemplateConstant                  = "Listing files of %s under %s in %s"
	gitListFilesSuccessTemplateConstant                = "Listed %d files of %s under %s in %s"
	gitListFilesFailureTemplateConstant                = "Failed to list files of %s in %s (exit code %d%s)"
	gitListFilesExecutionFailureTemplateConstant       = "Unable to list files of %s in %s: %s"
	gitUnstagedChangesStartTemplateConstant            = "Checking %s for unstaged modifications"
	gitUnstagedChangesSuccessTemplateConstant          = "%s has no unstaged modifications"
	gitUnstagedChangesFailureTemplateConstant          = "%s has unstaged modifications (exit code %d%s)"
	gitUnstagedChangesExecutionFailureTemplateConstant = "Unable to check %s for unstaged modifications: %s"
	gitStagedChangesStartTemplateConstant              = "Checking %s for staged changes"
	gitStagedChangesSuccessTemplateConstant            = "%s has no staged changes"
	gitStagedChangesFailureTemplateConstant            = "%s has staged changes (exit code %d%s)"
	gitStagedChangesExecutionFailureTemplateConstant   = "Unable to check %s for staged changes: %s"
	gitCloneStartTemplateConstant                      = "Cloning %s at %s into %s"
	gitCloneSuccessTemplateConstant                    = "Cloned %s at %s into %s"
	gitCloneFailureTemplateConstant                    = "Failed to clone %s at %s into %s (exit code %d%s)"
	gitCloneExecutionFailureTemplateConstant           = "Unable to clone %s at %s into %s: %s"
	gitCloneDefaultBranchLabelConstant                 = "the default branch"
	gitSparseCheckoutStartTemplateConstant             = "Restricting %s to %s"
	gitSparseCheckoutSuccessTemplateConstant           = "Restricted %s to %s"
	gitSparseCheckoutFailureTemplateConstant           = "Failed to restrict %s to %s (exit code %d%s)"
	gitSparseCheckoutExecutionFailureTemplateConstant  = "Unable to restrict %s to %s: %s"
	gitAddStartTemplateConstant                        = "Staging %s in %s"
	gitAddSuccessTemplateConstant                      = "Staged %s in %s"
	gitAddFailureTemplateConstant                      = "Failed to stage %s in %s (exit code %d%s)"
	gitAddExecutionFailureTemplateConstant             = "Unable to stage %s in %s: %s"
	gitCommitStartTemplateConstant                     = "Creating commit in %s with message %q"
	gitCommitSuccessTemplateConstant                   = "Created commit in %s with message %q"
	gitCommitFailureTemplateConstant                   = "Failed to create commit in %s with message %q (exit code %d%s)"
	gitCommitExecutionFailureTemplateConstant          = "Unable to create commit in %s with message %q: %s"
)

// CommandMessageFormatter builds human-readable messages for command lifecycle events.
type CommandMessageFormatter struct{}

// BuildStartedMessage formats the message describing a command about to run.
func (formatter CommandMessageFormatter) BuildStartedMessage(command ShellCommand) string {
	return formatter.buildMessage(command, ExecutionResult{}, nil, messageStageStart)
}

// BuildSuccessMessage formats the message describing a completed command with a zero exit code.
func (formatter CommandMessageFormatter) BuildSuccessMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.buildMessage(command, result, nil, messageStageSuccess)
}

// BuildFailureMessage formats the message describing a command that returned a non-zero exit code.
func (formatter CommandMessageFormatter) BuildFailureMessage(command ShellCommand, result ExecutionResult) string {
	return formatter.buildMessage(command, result, nil, messageStageFailure)
}

// BuildExecutionFailureMessage formats the message describing an unexpected execution failure.
func (formatter CommandMessageFormatter) BuildExecutionFailureMessage(command ShellCommand, failure error) string {
	return formatter.buildMessage(command, ExecutionResult{}, failure, messageStageExecutionFailure)
}

func (formatter CommandMessageFormatter) buildMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	if command.Name != CommandGit || len(command.Details.Arguments) == 0 {
		return formatter.buildGenericMessage(command, result, failure, stage)
	}

	subcommand := strings.TrimSpace(command.Details.Arguments[0])
	switch subcommand {
	case gitRevParseSubcommandNameConstant:
		return formatter.describeGitRevParseMessage(command, result, failure, stage)
	case gitDescribeSubcommandNameConstant:
		return formatter.describeGitDescribeMessage(command, result, failure, stage)
	case gitLSTreeSubcommandNameConstant:
		return formatter.describeGitLSTreeMessage(command, result, failure, stage)
	case gitDiffFilesSubcommandNameConstant:
		return formatter.describeCleanlinessMessage(command, result, failure, stage, cleanlinessTemplates{
			start:            gitUnstagedChangesStartTemplateConstant,
			success:          gitUnstagedChangesSuccessTemplateConstant,
			failure:          gitUnstagedChangesFailureTemplateConstant,
			executionFailure: gitUnstagedChangesExecutionFailureTemplateConstant,
		})
	case gitDiffIndexSubcommandNameConstant:
		return formatter.describeCleanlinessMessage(command, result, failure, stage, cleanlinessTemplates{
			start:            gitStagedChangesStartTemplateConstant,
			success:          gitStagedChangesSuccessTemplateConstant,
			failure:          gitStagedChangesFailureTemplateConstant,
			executionFailure: gitStagedChangesExecutionFailureTemplateConstant,
		})
	case gitCloneSubcommandNameConstant:
		return formatter.describeGitCloneMessage(command, result, failure, stage)
	case gitSparseCheckoutSubcommandNameConstant:
		return formatter.describeGitSparseCheckoutMessage(command, result, failure, stage)
	case gitAddSubcommandNameConstant:
		return formatter.describeGitAddMessage(command, result, failure, stage)
	case gitCommitSubcommandNameConstant:
		return formatter.describeGitCommitMessage(command, result, failure, stage)
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitRevParseMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	workingDirectory := formatter.describeWorkingDirectory(command)
	revision := formatter.stripRevisionPeel(formatter.lastNonFlagArgument(command.Details.Arguments[1:]))
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitRevisionStartTemplateConstant, revision, workingDirectory)
	case messageStageSuccess:
		return fmt.Sprintf(gitRevisionSuccessTemplateConstant, revision, workingDirectory, formatter.ensureValue(result.StandardOutput))
	case messageStageFailure:
		return fmt.Sprintf(gitRevisionFailureTemplateConstant, revision, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(gitRevisionExecutionFailureTemplateConstant, revision, workingDirectory, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitDescribeMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	workingDirectory := formatter.describeWorkingDirectory(command)
	revision := formatter.lastNonFlagArgument(command.Details.Arguments[1:])
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitRefNameStartTemplateConstant, revision, workingDirectory)
	case messageStageSuccess:
		return fmt.Sprintf(gitRefNameSuccessTemplateConstant, revision, workingDirectory, formatter.ensureValue(formatter.firstLine(result.StandardOutput)))
	case messageStageFailure:
		return fmt.Sprintf(gitRefNameFailureTemplateConstant, revision, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(gitRefNameExecutionFailureTemplateConstant, revision, workingDirectory, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitLSTreeMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	workingDirectory := formatter.describeWorkingDirectory(command)
	nonFlagArguments := formatter.nonFlagArguments(command.Details.Arguments[1:])
	tree := fallbackUnknownValueLabelConstant
	scope := wholeTreeLabelConstant
	if len(nonFlagArguments) > 0 {
		tree = formatter.stripRevisionPeel(nonFlagArguments[0])
	}
	if len(nonFlagArguments) > 1 {
		scope = strings.Join(nonFlagArguments[1:], pathListJoinSeparatorConstant)
	}
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitListFilesStartTemplateConstant, tree, scope, workingDirectory)
	case messageStageSuccess:
		return fmt.Sprintf(gitListFilesSuccessTemplateConstant, formatter.countEntries(result.StandardOutput), tree, scope, workingDirectory)
	case messageStageFailure:
		return fmt.Sprintf(gitListFilesFailureTemplateConstant, tree, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(gitListFilesExecutionFailureTemplateConstant, tree, workingDirectory, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

type cleanlinessTemplates struct {
	start            string
	success          string
	failure          string
	executionFailure string
}

func (formatter CommandMessageFormatter) describeCleanlinessMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage, templates cleanlinessTemplates) string {
	workingDirectory := formatter.describeWorkingDirectory(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(templates.start, workingDirectory)
	case messageStageSuccess:
		return fmt.Sprintf(templates.success, workingDirectory)
	case messageStageFailure:
		return fmt.Sprintf(templates.failure, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(templates.executionFailure, workingDirectory, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitCloneMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	arguments := command.Details.Arguments
	nonFlagArguments := formatter.nonFlagArguments(arguments[1:])
	revision := findFlagValue(arguments, gitBranchFlagConstant)
	if len(revision) == 0 {
		revision = gitCloneDefaultBranchLabelConstant
	}
	sourceURL := fallbackUnknownValueLabelConstant
	destination := fallbackUnknownValueLabelConstant
	if len(nonFlagArguments) >= gitCloneEndpointArgumentCountConstant {
		sourceURL = nonFlagArguments[len(nonFlagArguments)-2]
		destination = nonFlagArguments[len(nonFlagArguments)-1]
	}
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitCloneStartTemplateConstant, sourceURL, revision, destination)
	case messageStageSuccess:
		return fmt.Sprintf(gitCloneSuccessTemplateConstant, sourceURL, revision, destination)
	case messageStageFailure:
		return fmt.Sprintf(gitCloneFailureTemplateConstant, sourceURL, revision, destination, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(gitCloneExecutionFailureTemplateConstant, sourceURL, revision, destination, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitSparseCheckoutMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	workingDirectory := formatter.describeWorkingDirectory(command)
	nonFlagArguments := formatter.nonFlagArguments(command.Details.Arguments[1:])
	paths := fallbackUnknownValueLabelConstant
	if len(nonFlagArguments) > 1 {
		paths = strings.Join(nonFlagArguments[1:], pathListJoinSeparatorConstant)
	}
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitSparseCheckoutStartTemplateConstant, workingDirectory, paths)
	case messageStageSuccess:
		return fmt.Sprintf(gitSparseCheckoutSuccessTemplateConstant, workingDirectory, paths)
	case messageStageFailure:
		return fmt.Sprintf(gitSparseCheckoutFailureTemplateConstant, workingDirectory, paths, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(gitSparseCheckoutExecutionFailureTemplateConstant, workingDirectory, paths, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitAddMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	workingDirectory := formatter.describeWorkingDirectory(command)
	targetPath := formatter.ensureValue(formatter.lastNonFlagArgument(command.Details.Arguments[1:]))
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitAddStartTemplateConstant, targetPath, workingDirectory)
	case messageStageSuccess:
		return fmt.Sprintf(gitAddSuccessTemplateConstant, targetPath, workingDirectory)
	case messageStageFailure:
		return fmt.Sprintf(gitAddFailureTemplateConstant, targetPath, workingDirectory, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(gitAddExecutionFailureTemplateConstant, targetPath, workingDirectory, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) describeGitCommitMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	workingDirectory := formatter.describeWorkingDirectory(command)
	commitSubject := formatter.firstLine(findFlagValue(command.Details.Arguments, gitMessageFlagConstant))
	if findFlagValue(command.Details.Arguments, gitMessageFileFlagConstant) == standardInputPathConstant {
		commitSubject = formatter.firstLine(string(command.Details.StandardInput))
	}
	if len(commitSubject) == 0 {
		commitSubject = fallbackUnknownValueLabelConstant
	}
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(gitCommitStartTemplateConstant, workingDirectory, commitSubject)
	case messageStageSuccess:
		return fmt.Sprintf(gitCommitSuccessTemplateConstant, workingDirectory, commitSubject)
	case messageStageFailure:
		return fmt.Sprintf(gitCommitFailureTemplateConstant, workingDirectory, commitSubject, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(gitCommitExecutionFailureTemplateConstant, workingDirectory, commitSubject, formatter.describeFailure(failure))
	default:
		return formatter.buildGenericMessage(command, result, failure, stage)
	}
}

func (formatter CommandMessageFormatter) buildGenericMessage(command ShellCommand, result ExecutionResult, failure error, stage messageStage) string {
	commandLabel := formatter.formatCommandLabel(command)
	switch stage {
	case messageStageStart:
		return fmt.Sprintf(genericStartTemplateConstant, commandLabel)
	case messageStageSuccess:
		return fmt.Sprintf(genericSuccessTemplateConstant, commandLabel)
	case messageStageFailure:
		return fmt.Sprintf(genericFailureTemplateConstant, commandLabel, result.ExitCode, formatter.formatStandardErrorSuffix(result.StandardError))
	case messageStageExecutionFailure:
		return fmt.Sprintf(genericExecutionFailureTemplateConstant, commandLabel, formatter.describeFailure(failure))
	default:
		return emptyStringConstant
	}
}

func (formatter CommandMessageFormatter) formatCommandLabel(command ShellCommand) string {
	workingDirectorySuffix := emptyStringConstant
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) > 0 {
		workingDirectorySuffix = fmt.Sprintf(workingDirectorySuffixTemplateConstant, trimmedWorkingDirectory)
	}
	return fmt.Sprintf(commandLabelTemplateConstant, formatCommandLine(command), workingDirectorySuffix)
}

func (formatter CommandMessageFormatter) formatStandardErrorSuffix(standardError string) string {
	trimmedStandardError := strings.TrimSpace(standardError)
	if len(trimmedStandardError) == 0 {
		return emptyStringConstant
	}
	return fmt.Sprintf(standardErrorSuffixTemplateConstant, trimmedStandardError)
}

func (formatter CommandMessageFormatter) describeWorkingDirectory(command ShellCommand) string {
	trimmedWorkingDirectory := strings.TrimSpace(command.Details.WorkingDirectory)
	if len(trimmedWorkingDirectory) == 0 {
		return defaultWorkingDirectoryLabelConstant
	}
	return trimmedWorkingDirectory
}

func (formatter CommandMessageFormatter) describeFailure(failure error) string {
	if failure == nil {
		return unknownFailureMessageConstant
	}
	return failure.Error()
}

func (formatter CommandMessageFormatter) ensureValue(value string) string {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) == 0 {
		return fallbackUnknownValueLabelConstant
	}
	return trimmed
}

func (formatter CommandMessageFormatter) nonFlagArguments(arguments []string) []string {
	collected := make([]string, 0, len(arguments))
	skipNext := false
	for _, argument := range arguments {
		trimmed := strings.TrimSpace(argument)
		if skipNext {
			skipNext = false
			continue
		}
		if len(trimmed) == 0 {
			continue
		}
		if trimmed == gitBranchFlagConstant || trimmed == gitMessageFlagConstant || trimmed == gitMessageFileFlagConstant {
			skipNext = true
			continue
		}
		if strings.HasPrefix(trimmed, flagPrefixConstant) {
			continue
		}
		collected = append(collected, trimmed)
	}
	return collected
}

func (formatter CommandMessageFormatter) lastNonFlagArgument(arguments []string) string {
	nonFlagArguments := formatter.nonFlagArguments(arguments)
	if len(nonFlagArguments) == 0 {
		return fallbackUnknownValueLabelConstant
	}
	return nonFlagArguments[len(nonFlagArguments)-1]
}

func (formatter CommandMessageFormatter) stripRevisionPeel(revision string) string {
	peelIndex := strings.Index(revision, revisionPeelSeparatorConstant)
	if peelIndex <= 0 {
		return revision
	}
	return revision[:peelIndex]
}

func (formatter CommandMessageFormatter) firstLine(value string) string {
	trimmed := strings.TrimSpace(value)
	lineBreakIndex := strings.Index(trimmed, lineSeparatorConstant)
	if lineBreakIndex == -1 {
		return trimmed
	}
	return strings.TrimSpace(trimmed[:lineBreakIndex])
}

// countEntries counts NUL-terminated records when present and falls back to lines otherwise.
func (formatter CommandMessageFormatter) countEntries(value string) int {
	if !strings.Contains(value, entryTerminatorConstant) {
		return formatter.countLines(value)
	}
	entryCount := 0
	for _, entry := range strings.Split(value, entryTerminatorConstant) {
		if len(entry) > 0 {
			entryCount++
		}
	}
	return entryCount
}

func (formatter CommandMessageFormatter) countLines(value string) int {
	trimmed := strings.TrimSpace(value)
	if len(trimmed) == 0 {
		return 0
	}
	return strings.Count(trimmed, lineSeparatorConstant) + 1
}

func findFlagValue(arguments []string, flag string) string {
	for index := 0; index < len(arguments); index++ {
		if strings.TrimSpace(arguments[index]) == flag && index+1 < len(arguments) {
			return strings.TrimSpace(arguments[index+1])
		}
	}
	return emptyStringConstant
}
