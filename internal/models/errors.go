package models

import "errors"

// ErrUnknownEntityType is returned when an entity type tag does not match
// any known kind.
var ErrUnknownEntityType = errors.New("unknown entity type")
