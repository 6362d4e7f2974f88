package jitter

import "errors"

var (
	ErrEmptyPayload = errors.New("jitter: empty packet payload")
	ErrBufferEmpty  = errors.New("jitter: no packet ready for delivery")
)
