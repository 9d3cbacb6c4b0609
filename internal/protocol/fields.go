package protocol

import (
	"fmt"

	"github.com/danmuck/sctl/internal/protocol/schema"
)

// ExitStatus returns the status byte of an Exit message.
func (m Message) ExitStatus() (byte, bool) {
	if m.Tag != TagExit || len(m.Value) != 1 {
		return 0, false
	}
	return m.Value[0], true
}

// KeyValue splits a Val or Set message into its key and value.
func (m Message) KeyValue() (key, value []byte, ok bool) {
	if m.Tag.Shape() != schema.ShapeKeyValue {
		return nil, nil, false
	}
	return schema.SplitKeyValue(m.Value)
}

// Key returns the key named by a Get, Val or Set message.
func (m Message) Key() ([]byte, bool) {
	switch m.Tag {
	case TagGet:
		return m.Value, true
	case TagVal, TagSet:
		k, _, ok := m.KeyValue()
		return k, ok
	default:
		return nil, false
	}
}

func (m Message) String() string {
	switch m.Tag.Shape() {
	case schema.ShapeStatus:
		if s, ok := m.ExitStatus(); ok {
			return fmt.Sprintf("%s(0x%02x)", m.Tag, s)
		}
	case schema.ShapeKeyValue:
		if k, v, ok := m.KeyValue(); ok {
			return fmt.Sprintf("%s(%q=%q)", m.Tag, k, v)
		}
	}
	return fmt.Sprintf("%s(%q)", m.Tag, m.Value)
}
