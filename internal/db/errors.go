package db

import "errors"

// ErrStoreCorrupt marks unrecoverable local database corruption. Unlike
// sync failures it is fatal: the store cannot be repaired by retrying.
var ErrStoreCorrupt = errors.New("local store corrupt")

// ErrNotFound is returned when an entity or operation does not exist.
var ErrNotFound = errors.New("not found")
