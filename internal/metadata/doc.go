// Package metadata reads and rewrites METADATA records of vendored
// dependencies by matching the version, url, and last_upgrade_date fields in
// the record text rather than decoding the record into a model.
package metadata
