package message

import (
	"fmt"
	"time"

	"github.com/spf13/cast"
)

// Data is the loosely typed payload attached to a message.
type Data map[string]any

// Message is an immutable typed event with an optional payload.
type Message struct {
	typ  Type
	data Data
}

// New creates a message. The payload map is copied so later changes by the
// producer are not observed by consumers.
func New(t Type, data Data) Message {
	var copied Data
	if len(data) > 0 {
		copied = make(Data, len(data))
		for k, v := range data {
			copied[k] = v
		}
	}
	return Message{typ: t, data: copied}
}

// Type returns the message type.
func (m Message) Type() Type {
	return m.typ
}

// Has reports whether key is present in the payload.
func (m Message) Has(key string) bool {
	_, ok := m.data[key]
	return ok
}

// Value returns the raw payload value.
func (m Message) Value(key string) (any, bool) {
	v, ok := m.data[key]
	return v, ok
}

// String returns the payload value as a string, or "" when absent.
func (m Message) String(key string) string {
	return cast.ToString(m.data[key])
}

// Int returns the payload value as an int, or def when absent or not numeric.
func (m Message) Int(key string, def int) int {
	v, ok := m.data[key]
	if !ok {
		return def
	}
	i, err := cast.ToIntE(v)
	if err != nil {
		return def
	}
	return i
}

// Int64 returns the payload value as an int64, or def when absent or not numeric.
func (m Message) Int64(key string, def int64) int64 {
	v, ok := m.data[key]
	if !ok {
		return def
	}
	i, err := cast.ToInt64E(v)
	if err != nil {
		return def
	}
	return i
}

// Bool returns the payload value as a bool, or def when absent.
func (m Message) Bool(key string, def bool) bool {
	v, ok := m.data[key]
	if !ok {
		return def
	}
	b, err := cast.ToBoolE(v)
	if err != nil {
		return def
	}
	return b
}

// Duration returns the payload value as a duration, or def when absent or
// not convertible. Numbers are nanoseconds; strings use time.ParseDuration.
func (m Message) Duration(key string, def time.Duration) time.Duration {
	v, ok := m.data[key]
	if !ok {
		return def
	}
	d, err := cast.ToDurationE(v)
	if err != nil {
		return def
	}
	return d
}

// Strings returns the payload value as a string slice.
func (m Message) Strings(key string) []string {
	return cast.ToStringSlice(m.data[key])
}

// Ints returns the payload value as an int slice.
func (m Message) Ints(key string) []int {
	return cast.ToIntSlice(m.data[key])
}

// Map returns a nested object of the payload.
func (m Message) Map(key string) map[string]any {
	return cast.ToStringMap(m.data[key])
}

func (m Message) GoString() string {
	return fmt.Sprintf("message.Message{%s %v}", m.typ, m.data)
}
