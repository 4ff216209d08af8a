// Package filesystem provides the operating-system backed file operations used
// when applying an upstream snapshot to a vendored directory.
package filesystem
