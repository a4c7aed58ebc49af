package csfloat

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// Value is a scalar query parameter: a string, an int64 or a float64.
type Value struct {
	v any
}

func Str(s string) Value       { return Value{v: s} }
func Int(n int64) Value        { return Value{v: n} }
func Float(f float64) Value    { return Value{v: f} }
func (v Value) Interface() any { return v.v }

func (v Value) Int64() (int64, bool) {
	n, ok := v.v.(int64)
	return n, ok
}

// String is the query-string form. Whole floats keep a ".0" so 1.0 and 1
// stay distinguishable.
func (v Value) String() string {
	switch x := v.v.(type) {
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		s := strconv.FormatFloat(x, 'f', -1, 64)
		if !strings.ContainsAny(s, ".eEnN") {
			s += ".0"
		}
		return s
	case string:
		return x
	}
	return ""
}

// MarshalJSON writes the zero Value as null; UnmarshalJSON reads it back.
func (v Value) MarshalJSON() ([]byte, error) {
	if f, ok := v.v.(float64); ok {
		return []byte(Value{v: f}.String()), nil
	}
	return json.Marshal(v.v)
}

func (v *Value) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	switch x := raw.(type) {
	case nil:
		v.v = nil
	case string:
		v.v = x
	case json.Number:
		if strings.ContainsAny(x.String(), ".eE") {
			f, err := x.Float64()
			if err != nil {
				return err
			}
			v.v = f
			return nil
		}
		n, err := x.Int64()
		if err != nil {
			return err
		}
		v.v = n
	default:
		return fmt.Errorf("unsupported parameter value %s", string(b))
	}
	return nil
}

// QueryParams is an insertion-ordered parameter map. The zero value is empty
// and ready to use; it is not safe for concurrent mutation.
type QueryParams struct {
	keys []string
	vals map[string]Value
}

// Set adds key or replaces its value in place.
func (q *QueryParams) Set(key string, v Value) {
	if q.vals == nil {
		q.vals = make(map[string]Value)
	}
	if _, ok := q.vals[key]; !ok {
		q.keys = append(q.keys, key)
	}
	q.vals[key] = v
}

func (q QueryParams) Get(key string) (Value, bool) {
	v, ok := q.vals[key]
	return v, ok
}

func (q QueryParams) Keys() []string { return append([]string(nil), q.keys...) }
func (q QueryParams) Len() int       { return len(q.keys) }

// Clone returns an independent copy.
func (q QueryParams) Clone() QueryParams {
	out := QueryParams{keys: append([]string(nil), q.keys...), vals: make(map[string]Value, len(q.vals))}
	for k, v := range q.vals {
		out.vals[k] = v
	}
	return out
}

func (q QueryParams) Values() url.Values {
	out := make(url.Values, len(q.keys))
	for _, k := range q.keys {
		out.Set(k, q.vals[k].String())
	}
	return out
}

// Encode keeps insertion order, unlike url.Values.Encode.
func (q QueryParams) Encode() string {
	var b strings.Builder
	for i, k := range q.keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(q.vals[k].String()))
	}
	return b.String()
}

func (q QueryParams) MarshalJSON() ([]byte, error) {
	var b bytes.Buffer
	b.WriteByte('{')
	for i, k := range q.keys {
		if i > 0 {
			b.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := q.vals[k].MarshalJSON()
		if err != nil {
			return nil, err
		}
		b.Write(kb)
		b.WriteByte(':')
		b.Write(vb)
	}
	b.WriteByte('}')
	return b.Bytes(), nil
}

func (q *QueryParams) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return errors.New("query params: expected object")
	}
	*q = QueryParams{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		var v Value
		if err := v.UnmarshalJSON(raw); err != nil {
			return fmt.Errorf("query params %q: %w", key, err)
		}
		q.Set(key, v)
	}
	_, err = dec.Token()
	return err
}
