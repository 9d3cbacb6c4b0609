package protocol

import (
	"fmt"
	"strings"

	"github.com/danmuck/sctl/internal/protocol/schema"
)

// Tag identifies a control message. Values outside the vocabulary are carried
// as-is and report Known() == false.
type Tag uint32

const (
	TagBoot      = Tag(schema.Boot)
	TagRun       = Tag(schema.Run)
	TagExit      = Tag(schema.Exit)
	TagException = Tag(schema.Exception)
	TagPanic     = Tag(schema.Panic)
	TagStdin     = Tag(schema.Stdin)
	TagStdout    = Tag(schema.Stdout)
	TagStderr    = Tag(schema.Stderr)
	TagError     = Tag(schema.Error)
	TagWarn      = Tag(schema.Warn)
	TagInfo      = Tag(schema.Info)
	TagDebug     = Tag(schema.Debug)
	TagTrace     = Tag(schema.Trace)
	TagVal       = Tag(schema.Val)
	TagGet       = Tag(schema.Get)
	TagSet       = Tag(schema.Set)
)

func (t Tag) Known() bool {
	_, ok := schema.Lookup(uint32(t))
	return ok
}

func (t Tag) Shape() schema.Shape {
	e, ok := schema.Lookup(uint32(t))
	if !ok {
		return schema.ShapeBlob
	}
	return e.Shape
}

func (t Tag) String() string {
	if e, ok := schema.Lookup(uint32(t)); ok {
		return e.Name
	}
	return fmt.Sprintf("other(0x%02x)", uint32(t))
}

// Message is one decoded record. Value aliases the buffer it was read from.
type Message struct {
	Tag   Tag
	Value []byte
}

// Policy selects how the Reader treats tags outside the vocabulary.
type Policy uint8

const (
	// PolicyOther yields unknown tags as ordinary messages.
	PolicyOther Policy = iota
	// PolicyStrict skips unknown tags and reports ErrUnknownTag.
	PolicyStrict
)

func (p Policy) String() string {
	switch p {
	case PolicyOther:
		return "other"
	case PolicyStrict:
		return "strict"
	default:
		return fmt.Sprintf("policy(%d)", uint8(p))
	}
}

func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "other":
		return PolicyOther, nil
	case "strict":
		return PolicyStrict, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidPolicy, s)
	}
}
