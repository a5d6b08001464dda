package cache

import "errors"

var (
	ErrExists = errors.New("key exists")
)

// Cache is a multi-key in-process lock. Lock is all-or-nothing: it fails
// without taking anything when any key is already held. The uploader uses it
// to reject a concurrent duplicate of the same file name.
type Cache interface {
	Lock(keys []string) error
	Unlock(keys []string)
}
