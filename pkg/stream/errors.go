package stream

import "errors"

var (
	ErrChannelClosed       = errors.New("stream: channel closed")
	ErrChannelFull         = errors.New("stream: channel buffer full")
	ErrStreamingUnsupported = errors.New("stream: response writer does not support flushing")
)
