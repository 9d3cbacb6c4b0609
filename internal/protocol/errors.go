package protocol

import (
	"errors"
	"fmt"
)

var (
	ErrTruncated     = errors.New("protocol: truncated record")
	ErrInvalidLength = errors.New("protocol: invalid length")
	ErrUnknownTag    = errors.New("protocol: unknown tag")
	ErrInvalidPolicy = errors.New("protocol: invalid unknown-tag policy")
)

// Layer names the codec an error came from.
type Layer uint8

const (
	LayerFrame Layer = iota + 1
	LayerTLV
	LayerProtocol
)

func (l Layer) String() string {
	switch l {
	case LayerFrame:
		return "frame"
	case LayerTLV:
		return "tlv"
	case LayerProtocol:
		return "protocol"
	default:
		return fmt.Sprintf("layer(%d)", uint8(l))
	}
}

// Error tags a failure with the layer that produced it. errors.Is still
// matches the underlying sentinel.
type Error struct {
	Layer Layer
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("protocol: %s: %v", e.Layer, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func wrap(layer Layer, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Layer: layer, Err: err}
}

// LayerOf reports the layer recorded on err, or zero when err carries none.
func LayerOf(err error) Layer {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Layer
	}
	return 0
}
