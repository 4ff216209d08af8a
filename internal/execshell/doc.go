// Package execshell provides structured helpers for invoking external tools.
//
// ShellExecutor wraps a CommandRunner (OSCommandRunner in production) and
// reports every git invocation either as structured zap fields or through a
// CommandEventObserver. Non-zero exit codes surface as CommandFailedError so
// callers can tell an expected non-zero exit from a fatal one.
package execshell
