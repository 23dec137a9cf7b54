// Package scratch manages the temporary file used to hand diagram source to
// the layout engine.
//
// A scratch file exists only for the duration of one [With] call. It is
// created with a unique name, filled and closed before the consumer sees its
// path, and removed on every way out of the call: producer failure, consumer
// error and consumer panic alike.
package scratch

import (
	"os"

	aerrors "github.com/matzehuels/aidiagram/pkg/errors"
)

// DefaultPattern names scratch files "aidiagram-<random>.dot".
const DefaultPattern = "aidiagram-*.dot"

// With writes content to a new uniquely named file in dir (os.TempDir when
// empty) and calls fn with its path. The file is removed before With returns.
//
// Failures to create, write or close the file are returned as
// RESOURCE_ERROR and fn is not called. An error from fn is returned unchanged.
func With(dir, pattern string, content []byte, fn func(path string) error) (err error) {
	if pattern == "" {
		pattern = DefaultPattern
	}

	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return aerrors.Wrap(aerrors.ErrCodeResource, err, "create scratch file")
	}
	path := f.Name()
	defer func() {
		if rmErr := os.Remove(path); rmErr != nil && !os.IsNotExist(rmErr) && err == nil {
			err = aerrors.Wrap(aerrors.ErrCodeResource, rmErr, "remove scratch file")
		}
	}()

	if _, werr := f.Write(content); werr != nil {
		f.Close()
		return aerrors.Wrap(aerrors.ErrCodeResource, werr, "write scratch file")
	}
	if cerr := f.Close(); cerr != nil {
		return aerrors.Wrap(aerrors.ErrCodeResource, cerr, "close scratch file")
	}

	return fn(path)
}
