// Package snapshot imports upstream snapshots into vendored groups.
//
// Service clones the requested and previously recorded upstream versions into
// scratch directories, removes files that disappeared upstream, copies the new
// files into the group, rewrites the group's METADATA record, and commits the
// result. ProtectedFilePolicy keeps local packaging and ownership files out of
// both the removal and the copy. CommandBuilder exposes the workflow as the
// import-snapshot cobra command.
package snapshot
