package fix

import (
	"fmt"
	"strings"
)

// Field is a single tag=value pair.
type Field struct {
	Tag   int
	Value string
}

// Message is an ordered sequence of fields. Order is preserved through
// encode and decode; Set replaces the first occurrence of a tag in place so
// a template keeps its shape when the engine stamps session fields into it.
type Message struct {
	fields []Field
}

// NewMessage returns a message holding only MsgType (35).
func NewMessage(msgType string) *Message {
	return &Message{fields: []Field{{Tag: TagMsgType, Value: msgType}}}
}

// Get returns the value of the first field with the given tag.
func (m *Message) Get(tag int) (string, bool) {
	for _, f := range m.fields {
		if f.Tag == tag {
			return f.Value, true
		}
	}
	return "", false
}

// Set replaces the value of the first field with the given tag, or appends
// the field when the tag is absent.
func (m *Message) Set(tag int, value string) {
	for i, f := range m.fields {
		if f.Tag == tag {
			m.fields[i].Value = value
			return
		}
	}
	m.fields = append(m.fields, Field{Tag: tag, Value: value})
}

// Append adds a field even when the tag is already present. Repeating
// groups carry duplicate tags, which Set would collapse.
func (m *Message) Append(tag int, value string) {
	m.fields = append(m.fields, Field{Tag: tag, Value: value})
}

// MsgType returns the value of tag 35, or "" when unset.
func (m *Message) MsgType() string {
	v, _ := m.Get(TagMsgType)
	return v
}

// Fields returns a copy of the field sequence.
func (m *Message) Fields() []Field {
	out := make([]Field, len(m.fields))
	copy(out, m.fields)
	return out
}

// Len reports the number of fields.
func (m *Message) Len() int {
	return len(m.fields)
}

// Clone returns a deep copy. Templates are cloned before stamping so the
// same template can be injected more than once.
func (m *Message) Clone() *Message {
	return &Message{fields: m.Fields()}
}

// String renders the message with '|' in place of SOH for logs and records.
func (m *Message) String() string {
	var b strings.Builder
	for i, f := range m.fields {
		if i > 0 {
			b.WriteByte('|')
		}
		fmt.Fprintf(&b, "%d=%s", f.Tag, f.Value)
	}
	return b.String()
}
