package pipeline

import "errors"

var (
	ErrSessionNotFound = errors.New("pipeline: session not found in engine")
	ErrNoDecoder       = errors.New("pipeline: channel has no decoder handle assigned")
	ErrNoEncoder       = errors.New("pipeline: channel has no encoder handle assigned")
)
