package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidInput  = errors.New("invalid input")

	ErrImageLoad         = errors.New("image load failed")
	ErrFilterNotFound    = errors.New("filter not found")
	ErrSurfaceAllocation = errors.New("surface allocation failed")
	ErrEncode            = errors.New("encode failed")
	ErrPersist           = errors.New("persist failed")

	ErrInvalidProjectData = errors.New("invalid project data")
	ErrLimitExceeded      = errors.New("limit exceeded")
	ErrLayerLocked        = errors.New("layer is locked")
)
