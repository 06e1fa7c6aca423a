// Package gridscan gives access to gridded data spread over many files.
//
// Files are grouped in filegroups (see package filegroup), whose
// coordinates are discovered by scanning filenames and file contents. A
// database (see package database) reconciles the filegroups and loads any
// part of the dataset into memory, reading only the files it needs.
package gridscan

import "github.com/batchatco/go-gridscan/internal"

// SetLogLevel sets the verbosity of every package of the module, from 0
// (fatal errors only) to 3 (informational messages), and returns the old
// one.
func SetLogLevel(level int) int {
	return int(internal.Std().SetLogLevel(internal.LevelFromInt(level)))
}
