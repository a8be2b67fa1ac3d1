package services

import "errors"

// ErrNotFound is returned by store lookups when the referenced entity does
// not exist. Handlers translate it into a 404 (or 401 where existence must
// not be revealed).
var ErrNotFound = errors.New("not found")
