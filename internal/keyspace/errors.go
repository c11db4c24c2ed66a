package keyspace

import "errors"

// ErrWrongType is returned when a command targets a key holding a value of
// a different variant (spec.md §8: "WRONGTYPE" reply). It never mutates
// the offending key.
var ErrWrongType = errors.New("value at key is not the requested type")
