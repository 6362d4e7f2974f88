package queue

import "errors"

var ErrQueueFull = errors.New("queue: ring is at capacity")
