package services

import "errors"

// Service-level sentinel errors. Handlers map these onto HTTP responses.
var (
	ErrNoRecords     = errors.New("no records available")
	ErrNoUploads     = errors.New("no files in upload")
	ErrEmptyUpload   = errors.New("upload contained no usable rows")
	ErrStoreDisabled = errors.New("spreadsheet store is not configured")
)
