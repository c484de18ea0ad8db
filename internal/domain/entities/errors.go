package entities

import "errors"

// Errors returned by the install and verify workflows
var (
	ErrFormulaNotFound     = errors.New("formula not found")
	ErrUnsupportedPlatform = errors.New("unsupported platform")
	ErrMissingDependency   = errors.New("missing build dependency")
	ErrRevisionMismatch    = errors.New("tag does not resolve to pinned revision")
	ErrBuildFailed         = errors.New("build failed")
	ErrArchiveNotFound     = errors.New("build archive not found")
	ErrBinaryNotFound      = errors.New("executable not found in archive")
	ErrVersionMismatch     = errors.New("version not found in test output")
)
