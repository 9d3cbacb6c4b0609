package schema

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog/log"
)

// Control message tags.
const (
	Boot      uint32 = 0x01
	Run       uint32 = 0x02
	Exit      uint32 = 0x03
	Exception uint32 = 0x04
	Panic     uint32 = 0x05

	Stdin  uint32 = 0x10
	Stdout uint32 = 0x11
	Stderr uint32 = 0x12

	Error uint32 = 0x20
	Warn  uint32 = 0x21
	Info  uint32 = 0x22
	Debug uint32 = 0x23
	Trace uint32 = 0x24

	Val uint32 = 0x30
	Get uint32 = 0x31
	Set uint32 = 0x32
)

// Shape is the layout of a message value.
type Shape uint8

const (
	// ShapeBlob is an opaque byte string.
	ShapeBlob Shape = iota
	// ShapeStatus is exactly one status byte.
	ShapeStatus
	// ShapeKeyValue is an LV8 key followed by an LV8 value.
	ShapeKeyValue
)

func (s Shape) String() string {
	switch s {
	case ShapeBlob:
		return "blob"
	case ShapeStatus:
		return "status"
	case ShapeKeyValue:
		return "key_value"
	default:
		return fmt.Sprintf("shape(%d)", uint8(s))
	}
}

type Entry struct {
	Tag   uint32
	Name  string
	Shape Shape
}

type ValidationError struct {
	Tag    uint32
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("schema: tag=0x%02x: %s", e.Tag, e.Reason)
}

var entries = map[uint32]Entry{
	Boot:      {Boot, "boot", ShapeBlob},
	Run:       {Run, "run", ShapeBlob},
	Exit:      {Exit, "exit", ShapeStatus},
	Exception: {Exception, "exception", ShapeBlob},
	Panic:     {Panic, "panic", ShapeBlob},
	Stdin:     {Stdin, "stdin", ShapeBlob},
	Stdout:    {Stdout, "stdout", ShapeBlob},
	Stderr:    {Stderr, "stderr", ShapeBlob},
	Error:     {Error, "error", ShapeBlob},
	Warn:      {Warn, "warn", ShapeBlob},
	Info:      {Info, "info", ShapeBlob},
	Debug:     {Debug, "debug", ShapeBlob},
	Trace:     {Trace, "trace", ShapeBlob},
	Val:       {Val, "val", ShapeKeyValue},
	Get:       {Get, "get", ShapeBlob},
	Set:       {Set, "set", ShapeKeyValue},
}

var byName = func() map[string]Entry {
	m := make(map[string]Entry, len(entries))
	for _, e := range entries {
		m[e.Name] = e
	}
	return m
}()

// Lookup returns the table entry for tag.
func Lookup(tag uint32) (Entry, bool) {
	e, ok := entries[tag]
	return e, ok
}

// LookupName returns the table entry with the given name.
func LookupName(name string) (Entry, bool) {
	e, ok := byName[name]
	return e, ok
}

// Entries returns the vocabulary ordered by tag.
func Entries() []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Tag < out[j].Tag })
	return out
}

// Validate checks value against the shape registered for tag.
func Validate(tag uint32, value []byte) error {
	log.Trace().Uint32("tag", tag).Int("len", len(value)).Msg("schema.Validate")
	e, ok := entries[tag]
	if !ok {
		log.Error().Uint32("tag", tag).Msg("schema.Validate unknown tag")
		return ValidationError{Tag: tag, Reason: "unknown tag"}
	}
	switch e.Shape {
	case ShapeStatus:
		if len(value) != 1 {
			log.Error().Str("name", e.Name).Int("len", len(value)).Msg("schema.Validate bad status length")
			return ValidationError{Tag: tag, Reason: fmt.Sprintf("status length %d, want 1", len(value))}
		}
	case ShapeKeyValue:
		if _, _, ok := SplitKeyValue(value); !ok {
			log.Error().Str("name", e.Name).Int("len", len(value)).Msg("schema.Validate malformed key/value")
			return ValidationError{Tag: tag, Reason: "malformed key/value"}
		}
	}
	return nil
}

// SplitKeyValue splits an LV8 key followed by an LV8 value. It reports false
// unless the two items exactly fill value.
func SplitKeyValue(value []byte) (key, val []byte, ok bool) {
	if len(value) < 1 {
		return nil, nil, false
	}
	kn := int(value[0])
	if len(value) < 1+kn+1 {
		return nil, nil, false
	}
	key = value[1 : 1+kn]
	rest := value[1+kn:]
	vn := int(rest[0])
	if len(rest) != 1+vn {
		return nil, nil, false
	}
	return key, rest[1:], true
}
