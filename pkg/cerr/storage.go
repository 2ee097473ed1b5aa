package cerr

import (
	"errors"
	"fmt"

	"github.com/kazz187/labtrack/pkg/storage"
)

// wrapStorage maps a storage failure on target to the client-facing code.
// Missing keys become NotFound only for lookups; a malformed key is always
// the caller's fault.
func wrapStorage(op, target string, err error, missingIsNotFound bool) error {
	switch {
	case errors.Is(err, storage.ErrInvalidKey):
		return NewError(InvalidArgument, fmt.Sprintf("invalid %s id", target), err)
	case missingIsNotFound && errors.Is(err, storage.ErrNotFound):
		return NewError(NotFound, fmt.Sprintf("%s not found", target), err)
	}
	return NewError(Internal, "server error", fmt.Errorf("failed to %s %s: %w", op, target, err))
}

func WrapStorageReadError(target string, err error) error {
	return wrapStorage("read", target, err, true)
}

func WrapStorageWriteError(target string, err error) error {
	return wrapStorage("write", target, err, false)
}

func WrapStorageDeleteError(target string, err error) error {
	return wrapStorage("delete", target, err, true)
}
