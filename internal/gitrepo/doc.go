// Package gitrepo drives the git executable against a single working tree.
//
// Repository resolves revisions, lists tree contents, verifies the tree is
// clean, performs shallow sparse clones into scratch locations, and stages and
// commits changes. Every operation runs through an injected GitExecutor so the
// caller controls logging and tests can record the issued commands.
package gitrepo
