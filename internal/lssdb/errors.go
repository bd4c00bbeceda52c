package lssdb

import "errors"

// ErrNotExisting is a distinguished "not-existing" error (not a plain I/O
// error), raised when either side's database file is missing entirely.
// Per spec.md §7, this is not an error condition to the direction engine:
// it is quietly treated as first-run.
var ErrNotExisting = errors.New("lssdb: database does not exist")

// ErrMultipleCommonSessions is raised when more than one session UUID
// appears on both sides with opposite lead/trail markers, which should
// never happen for a database pair that was written by this package.
var ErrMultipleCommonSessions = errors.New("lssdb: multiple common sessions between database files")

// ErrNoCommonSession is raised when the two database files share no
// session UUID at all, meaning the two sides were never synced to each
// other (or the record of that has been lost).
var ErrNoCommonSession = errors.New("lssdb: no common session between database files")

// ErrIncompatible is raised for a container or stream format version
// other than the current one, including the legacy version 9/2 layout,
// which this package recognizes but does not read. Per spec.md §7, the direction
// engine proceeds as if there were no LSSDB and surfaces this error only
// after default directions have been computed.
var ErrIncompatible = errors.New("lssdb: incompatible database format version")

// ErrCorrupted is raised for malformed container data, including a
// session whose recorded length or half size exceeds the bytes that
// actually follow it: such sizes are rejected before anything is
// allocated for them, so a damaged huge container cannot exhaust memory.
var ErrCorrupted = errors.New("lssdb: database is corrupted")
