package objectstore

import "errors"

// Sentinel kinds for object store errors.
var (
	ErrNotFound  = errors.New("object not found")
	ErrNoBucket  = errors.New("bucket name is empty")
	ErrPut       = errors.New("put object failed")
	ErrList      = errors.New("list objects failed")
	ErrGet       = errors.New("get object failed")
	ErrUnsafeKey = errors.New("object key escapes target directory")
)
