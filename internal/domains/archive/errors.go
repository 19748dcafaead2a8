package archive

import "errors"

// Repository-level errors
var (
	ErrPackageNotFound  = errors.New("package not found")
	ErrVersionNotFound  = errors.New("package version not found")
	ErrDuplicateVersion = errors.New("package version already exists")
	ErrPackageExists    = errors.New("package already exists")
)

// Blob store errors
var (
	ErrBlobNotFound = errors.New("blob not found")
)
