package errors

import "errors"

var (
	ErrStateMachineARNRequired = errors.New("STATE_MACHINE_ARN environment variable is required")
	ErrInvalidMode             = errors.New("invalid publish mode: expected \"nightly\" or \"release\"")
	ErrMissingVersion          = errors.New("release mode requires a non-empty version")
	ErrVersionNotFound         = errors.New("no version found in any configured source")
	ErrTagAlreadyPublished     = errors.New("release tag already exists in registry")
	ErrNoWheelArtifact         = errors.New("package build produced no wheel artifact")
)
