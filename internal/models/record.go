package models

import (
    "bytes"
    "encoding/json"
    "strconv"
)

// Record is a JSON object received from the telemetry API. Numbers are kept
// as json.Number so identifiers and frequencies survive untouched.
type Record map[string]interface{}

// DecodeRecord decodes raw into a Record. ok is false when raw is not a JSON
// object.
func DecodeRecord(raw json.RawMessage) (Record, bool) {
    raw = bytes.TrimSpace(raw)
    if len(raw) == 0 || raw[0] != '{' {
        return nil, false
    }

    dec := json.NewDecoder(bytes.NewReader(raw))
    dec.UseNumber()

    var r Record
    if err := dec.Decode(&r); err != nil {
        return nil, false
    }
    return r, true
}

// Has reports whether key is present and not null.
func (r Record) Has(key string) bool {
    v, ok := r[key]
    return ok && v != nil
}

// First returns the first truthy value among keys.
func (r Record) First(keys ...string) (interface{}, bool) {
    for _, k := range keys {
        if v, ok := r[k]; ok && Truthy(v) {
            return v, true
        }
    }
    return nil, false
}

// FirstString is First rendered with Stringify, or "" when nothing matched.
func (r Record) FirstString(keys ...string) string {
    v, ok := r.First(keys...)
    if !ok {
        return ""
    }
    return Stringify(v)
}

// Object returns the nested object stored under key.
func (r Record) Object(key string) (Record, bool) {
    switch v := r[key].(type) {
    case map[string]interface{}:
        return Record(v), true
    case Record:
        return v, true
    }
    return nil, false
}

// Truthy applies JavaScript truthiness to a decoded JSON value, which is how
// the telemetry API's optional fields have always been read.
func Truthy(v interface{}) bool {
    switch x := v.(type) {
    case nil:
        return false
    case bool:
        return x
    case string:
        return x != ""
    case json.Number:
        f, err := x.Float64()
        return err != nil || (f != 0 && f == f)
    case float64:
        return x != 0 && x == x
    case int:
        return x != 0
    case int64:
        return x != 0
    }
    return true
}

// Stringify renders a decoded JSON value for display.
func Stringify(v interface{}) string {
    switch x := v.(type) {
    case nil:
        return ""
    case string:
        return x
    case json.Number:
        return x.String()
    case bool:
        return strconv.FormatBool(x)
    case float64:
        return strconv.FormatFloat(x, 'f', -1, 64)
    }
    b, err := json.Marshal(v)
    if err != nil {
        return ""
    }
    return string(b)
}
