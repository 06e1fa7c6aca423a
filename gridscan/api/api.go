// Package api is the contract between the database and the file formats
// holding the data (netCDF files, in-memory files for tests).
package api

import (
	"errors"
	"fmt"

	"github.com/batchatco/go-gridscan/gridscan/accessor"
	"github.com/batchatco/go-gridscan/gridscan/key"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrUnsupported = errors.New("unsupported data type")
	ErrBadName     = errors.New("invalid name")
)

type Mode int

const (
	ModeRead Mode = iota
	ModeWrite
)

type AttributeMap interface {
	// Ordered list of keys
	Keys() []string
	// Indexed lookup
	Get(key string) (val any, has bool)

	GetType(key string) (string, bool)
	GetGoType(key string) (string, bool)
}

type Backend interface {
	// Open opens an existing file.
	Open(path string, mode Mode) (File, error)

	// Create creates a file for writing, replacing any existing one.
	Create(path string) (Writer, error)
}

type File interface {
	// Close releases the file. It is safe to call more than once.
	Close() error

	// Variables lists the variables of the file, coordinates included.
	Variables() []string

	// Dimensions lists the dimensions of the file.
	Dimensions() []string

	// DimensionSize returns the length of a dimension.
	DimensionSize(dim string) (int, bool)

	// VarDimensions returns the dimensions of a variable in the order they
	// are stored.
	VarDimensions(variable string) ([]string, error)

	// Read reads part of a variable. The keyring lists the dimensions of
	// the variable in their stored order; dimensions not in the keyring
	// are read whole and Int keys squeeze their axis.
	Read(variable string, infile *key.Keyring) (*accessor.Array, error)

	// Attributes returns the global attributes.
	Attributes() AttributeMap

	// VarAttributes returns the attributes of a variable.
	VarAttributes(variable string) (AttributeMap, error)
}

type Writer interface {
	// WriteDimension defines a dimension with its coordinate values.
	WriteDimension(dim string, values []float64, attrs AttributeMap) error

	// Write stores a variable whose axes are named by dims.
	Write(variable string, data *accessor.Array, dims []string, attrs AttributeMap) error

	// WriteAttributes sets the global attributes.
	WriteAttributes(attrs AttributeMap) error

	// Close flushes and closes the file.
	Close() error
}

// OrderKeyring returns a keyring listing dims in order, taking keys from
// infile and reading dimensions it lacks whole. Every dimension of infile
// must be in dims.
func OrderKeyring(dims []string, infile *key.Keyring) (*key.Keyring, error) {
	out := key.NewKeyring()
	for _, d := range dims {
		k, has := infile.Get(d)
		if !has || k.IsNone() {
			k = key.All()
		}
		out.SetKey(d, k)
	}
	for _, d := range infile.Dims() {
		if !out.Has(d) {
			return nil, fmt.Errorf("%w: dimension %s in %v", ErrNotFound, d, dims)
		}
	}
	return out, nil
}
