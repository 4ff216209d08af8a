// Package cli constructs the import-snapshot command-line interface. It wires the
// snapshot command, the configuration loader with its embedded defaults, and the
// zap logger selected by the --loglevel and --log-format flags.
package cli
