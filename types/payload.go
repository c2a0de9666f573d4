package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Designated low-priority query-string keys. These are always serialized
// last so collectors that truncate long URLs lose context data before the
// core event fields.
const (
	// FieldContext carries the plain JSON context payload.
	FieldContext = "co"

	// FieldContextEncoded carries the base64-encoded context payload.
	FieldContextEncoded = "cx"

	// FieldSentTimestamp is the shared delivery timestamp attached to
	// every record of a physical request just before transmission.
	FieldSentTimestamp = "stm"
)

// Field is a single name/value pair of a payload. Values are always
// strings; numeric and boolean inputs are coerced at Add time.
type Field struct {
	Key   string
	Value string
}

// Payload is an ordered mapping of field names to string values.
//
// Insertion order is preserved and determines the JSON object key order and
// the query-string rendering order (except for the designated low-priority
// keys, which always sort last). The zero value is ready to use.
type Payload struct {
	fields []Field
}

// NewPayload creates an empty payload.
func NewPayload() *Payload {
	return &Payload{}
}

// Add appends a field, coercing the value to a string.
//
// Supported value types are string, bool, signed and unsigned integers, and
// floats; anything else is formatted with fmt.Sprint. Nil values and empty
// strings are skipped entirely, matching the behavior of tracker payload
// builders that omit absent fields.
//
// Parameters:
//   - key: The field name
//   - value: The field value, coerced to a string
func (p *Payload) Add(key string, value any) {
	if value == nil {
		return
	}

	var str string
	switch v := value.(type) {
	case string:
		str = v
	case bool:
		str = strconv.FormatBool(v)
	case int:
		str = strconv.Itoa(v)
	case int64:
		str = strconv.FormatInt(v, 10)
	case uint64:
		str = strconv.FormatUint(v, 10)
	case float64:
		str = strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		str = strconv.FormatFloat(float64(v), 'f', -1, 32)
	default:
		str = fmt.Sprint(v)
	}

	if str == "" {
		return
	}

	p.fields = append(p.fields, Field{Key: key, Value: str})
}

// Set appends a field or replaces the value of an existing one in place,
// preserving its original position.
//
// Parameters:
//   - key: The field name
//   - value: The string value to store
func (p *Payload) Set(key, value string) {
	for i := range p.fields {
		if p.fields[i].Key == key {
			p.fields[i].Value = value
			return
		}
	}
	p.fields = append(p.fields, Field{Key: key, Value: value})
}

// Append appends a field unconditionally, keeping duplicate keys and
// empty values intact. It is the primitive used by decoders that must
// reproduce a previously serialized field sequence exactly.
//
// Parameters:
//   - key: The field name
//   - value: The string value to store
func (p *Payload) Append(key, value string) {
	p.fields = append(p.fields, Field{Key: key, Value: value})
}

// Get returns the value of the first field with the given key.
//
// Returns:
//   - string: The field value
//   - bool: true if the field exists
func (p *Payload) Get(key string) (string, bool) {
	for _, f := range p.fields {
		if f.Key == key {
			return f.Value, true
		}
	}
	return "", false
}

// Len returns the number of fields.
func (p *Payload) Len() int {
	return len(p.fields)
}

// Fields returns a copy of the ordered field list.
func (p *Payload) Fields() []Field {
	out := make([]Field, len(p.fields))
	copy(out, p.fields)
	return out
}

// Clone returns a deep copy of the payload.
func (p *Payload) Clone() *Payload {
	return &Payload{fields: p.Fields()}
}

// EncodedSize returns the exact byte length of the ordered JSON encoding.
//
// This is the byte accountant for ModePost size-budget decisions.
func (p *Payload) EncodedSize() int {
	data, err := p.MarshalJSON()
	if err != nil {
		return 0
	}
	return len(data)
}

// MarshalJSON encodes the payload as a JSON object with keys in insertion
// order. All values are JSON strings.
func (p *Payload) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range p.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object into the payload, preserving key
// order. Non-string scalar values are coerced to strings; nested objects or
// arrays make the payload malformed.
func (p *Payload) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok != json.Delim('{') {
		return fmt.Errorf("courier: payload must be a JSON object, got %v", tok)
	}

	var fields []Field
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("courier: payload key must be a string, got %v", keyTok)
		}

		valTok, err := dec.Token()
		if err != nil {
			return err
		}

		var val string
		switch v := valTok.(type) {
		case string:
			val = v
		case json.Number:
			val = v.String()
		case bool:
			val = strconv.FormatBool(v)
		default:
			return fmt.Errorf("courier: payload value for %q must be a scalar", key)
		}

		fields = append(fields, Field{Key: key, Value: val})
	}

	// Consume the closing brace.
	if _, err := dec.Token(); err != nil {
		return err
	}

	p.fields = fields

	return nil
}

// PayloadFromQueryString parses a rendered query string (leading '?'
// optional) back into an ordered payload. It is the inverse of
// QueryString and is used to surface raw events to callbacks from
// pre-rendered get records.
//
// Parameters:
//   - s: The query string
//
// Returns:
//   - *Payload: The parsed payload, field order preserved
//   - error: Escape or shape failure
func PayloadFromQueryString(s string) (*Payload, error) {
	s = strings.TrimPrefix(s, "?")

	p := NewPayload()
	if s == "" {
		return p, nil
	}

	for _, pair := range strings.Split(s, "&") {
		key, rawValue, _ := strings.Cut(pair, "=")
		if key == "" {
			return nil, fmt.Errorf("courier: empty key in query string %q", s)
		}
		decodedKey, err := url.QueryUnescape(key)
		if err != nil {
			return nil, err
		}
		value, err := url.QueryUnescape(rawValue)
		if err != nil {
			return nil, err
		}
		p.fields = append(p.fields, Field{Key: decodedKey, Value: value})
	}

	return p, nil
}

// QueryString renders the payload as a query string with a leading '?'.
//
// Fields are rendered in insertion order, except the designated
// low-priority keys (FieldContext, FieldContextEncoded) which are always
// placed last.
func (p *Payload) QueryString() string {
	var head, tail []Field
	for _, f := range p.fields {
		if f.Key == FieldContext || f.Key == FieldContextEncoded {
			tail = append(tail, f)
		} else {
			head = append(head, f)
		}
	}

	var sb strings.Builder
	sb.WriteByte('?')
	for i, f := range append(head, tail...) {
		if i > 0 {
			sb.WriteByte('&')
		}
		sb.WriteString(url.QueryEscape(f.Key))
		sb.WriteByte('=')
		sb.WriteString(url.QueryEscape(f.Value))
	}

	return sb.String()
}
