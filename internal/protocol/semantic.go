package protocol

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/danmuck/sctl/internal/protocol/schema"
)

// Validate checks a known message against its registered value shape.
// Unknown tags pass unless strict is set.
func Validate(m Message, strict bool) error {
	if !m.Tag.Known() {
		if strict {
			return fmt.Errorf("%w: 0x%02x", ErrUnknownTag, uint32(m.Tag))
		}
		return nil
	}
	return schema.Validate(uint32(m.Tag), m.Value)
}

// ParseTag resolves a vocabulary name or a numeric tag.
func ParseTag(s string) (Tag, error) {
	s = strings.TrimSpace(s)
	if e, ok := schema.LookupName(strings.ToLower(s)); ok {
		return Tag(e.Tag), nil
	}
	v, err := strconv.ParseUint(s, 0, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrUnknownTag, s)
	}
	return Tag(v), nil
}

// ParseMessage reads the text form name=value. Exit takes a numeric status
// and Val/Set take name=key=value.
func ParseMessage(s string) (Message, error) {
	name, rest, _ := strings.Cut(s, "=")
	tag, err := ParseTag(name)
	if err != nil {
		return Message{}, err
	}
	switch tag.Shape() {
	case schema.ShapeStatus:
		v, err := strconv.ParseUint(strings.TrimSpace(rest), 0, 8)
		if err != nil {
			return Message{}, fmt.Errorf("%w: exit status %q", ErrInvalidLength, rest)
		}
		return Message{Tag: tag, Value: []byte{byte(v)}}, nil
	case schema.ShapeKeyValue:
		key, value, found := strings.Cut(rest, "=")
		if !found {
			return Message{}, fmt.Errorf("%w: %s wants key=value", ErrInvalidLength, tag)
		}
		if len(key) > 0xff || len(value) > 0xff {
			return Message{}, fmt.Errorf("%w: key or value longer than 255 bytes", ErrInvalidLength)
		}
		buf := make([]byte, 0, 2+len(key)+len(value))
		buf = append(buf, byte(len(key)))
		buf = append(buf, key...)
		buf = append(buf, byte(len(value)))
		buf = append(buf, value...)
		return Message{Tag: tag, Value: buf}, nil
	default:
		return Message{Tag: tag, Value: []byte(rest)}, nil
	}
}
