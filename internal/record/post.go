// Package record defines the post document stored by the content store.
package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/aweris/fscms/internal/codec"
)

// Reserved field names.
const (
	FieldID        = "id"
	FieldType      = "type"
	FieldStatus    = "status"
	FieldPublished = "published"
	FieldLanguage  = "language"
	FieldCreator   = "creator"
	FieldCreated   = "created"
)

// Common status values. Status is free-form; these are the ones the store sets itself.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// TimeLayout is the layout of the created and published timestamps.
const TimeLayout = "2006-01-02 15:04:05"

var errNotInteger = errors.New("not an integer")

// Post is a content document: a fixed set of reserved fields plus caller-defined Fields.
//
// The JSON form is a single flat object. id, type, status and published are always
// written; language, creator and created are written only when set.
type Post struct {
	ID        int64
	Type      string
	Status    string
	Published string
	Language  string
	Creator   int64
	Created   string

	// Fields holds every non-reserved key.
	Fields map[string]any
}

// FromFields builds a Post from a flat field map, moving reserved keys into their typed fields.
func FromFields(fields map[string]any) (Post, error) {
	var p Post
	for k, v := range fields {
		if err := p.Set(k, v); err != nil {
			return Post{}, err
		}
	}
	return p, nil
}

// IsZero reports whether p is the empty record.
func (p Post) IsZero() bool {
	return p.ID == 0 && p.Type == "" && p.Status == "" && p.Published == "" &&
		p.Language == "" && p.Creator == 0 && p.Created == "" && len(p.Fields) == 0
}

// Clone returns a copy of p that shares no maps or slices with it.
func (p Post) Clone() Post {
	if p.Fields != nil {
		p.Fields = cloneValue(p.Fields).(map[string]any)
	}
	return p
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = cloneValue(e)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = cloneValue(e)
		}
		return out
	case []string:
		return slices.Clone(x)
	case map[string]string:
		return maps.Clone(x)
	}
	return v
}

// Get returns the value of a reserved or caller-defined field.
func (p Post) Get(name string) (any, bool) {
	switch name {
	case FieldID:
		return p.ID, true
	case FieldType:
		return p.Type, true
	case FieldStatus:
		return p.Status, true
	case FieldPublished:
		return p.Published, true
	case FieldLanguage:
		return p.Language, p.Language != ""
	case FieldCreator:
		if p.Creator == 0 {
			v, ok := p.Fields[FieldCreator]
			return v, ok
		}
		return p.Creator, true
	case FieldCreated:
		return p.Created, p.Created != ""
	}
	v, ok := p.Fields[name]
	return v, ok
}

// Set assigns a field. Reserved fields are converted to their typed representation;
// a JSON null clears them. An id or creator that is not an integer is kept as-is
// in Fields, leaving the typed field zero.
func (p *Post) Set(name string, v any) error {
	switch name {
	case FieldID:
		p.ID = p.setInt(name, v)
	case FieldCreator:
		p.Creator = p.setInt(name, v)
	case FieldType:
		p.Type = toString(v)
	case FieldStatus:
		p.Status = toString(v)
	case FieldPublished:
		p.Published = toString(v)
	case FieldLanguage:
		p.Language = toString(v)
	case FieldCreated:
		p.Created = toString(v)
	default:
		if p.Fields == nil {
			p.Fields = make(map[string]any)
		}
		p.Fields[name] = v
	}
	return nil
}

func (p *Post) setInt(name string, v any) int64 {
	n, err := toInt(v)
	if err != nil {
		if p.Fields == nil {
			p.Fields = make(map[string]any)
		}
		p.Fields[name] = v
		return 0
	}
	delete(p.Fields, name)
	return n
}

// Map returns the flat field map form of p, as written to disk.
func (p Post) Map() map[string]any {
	m := make(map[string]any, len(p.Fields)+7)
	maps.Copy(m, p.Fields)
	m[FieldID] = p.ID
	m[FieldType] = p.Type
	m[FieldStatus] = p.Status
	m[FieldPublished] = p.Published
	if p.Language != "" {
		m[FieldLanguage] = p.Language
	}
	if p.Creator != 0 {
		m[FieldCreator] = p.Creator
	}
	if p.Created != "" {
		m[FieldCreated] = p.Created
	}
	return m
}

func (p Post) MarshalJSON() ([]byte, error) {
	return codec.Compact(p.Map())
}

func (p *Post) UnmarshalJSON(data []byte) error {
	var fields map[string]any
	if err := codec.Unmarshal(data, &fields); err != nil {
		return err
	}
	decoded, err := FromFields(fields)
	if err != nil {
		return err
	}
	*p = decoded
	return nil
}

func toInt(v any) (int64, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		if n != float64(int64(n)) {
			return 0, errNotInteger
		}
		return int64(n), nil
	case json.Number:
		id, err := strconv.ParseInt(n.String(), 10, 64)
		if err != nil {
			return 0, errNotInteger
		}
		return id, nil
	case string:
		if n == "" {
			return 0, nil
		}
		id, err := strconv.ParseInt(n, 10, 64)
		if err != nil {
			return 0, errNotInteger
		}
		return id, nil
	}
	return 0, errNotInteger
}

func toString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case json.Number:
		return s.String()
	}
	return fmt.Sprint(v)
}
