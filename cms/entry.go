package cms

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
)

// Entry is one CMS document. Fields are read lazily by gjson path.
type Entry struct {
	Collection string
	raw        []byte
}

// NewEntry wraps a raw JSON document.
func NewEntry(collection string, raw []byte) *Entry {
	return &Entry{Collection: collection, raw: raw}
}

func (e *Entry) ID() string {
	return gjson.GetBytes(e.raw, "id").String()
}

func (e *Entry) Slug() string {
	return gjson.GetBytes(e.raw, "slug").String()
}

// Title returns the first of title, name or question that is set; team
// members have a name and FAQ entries a question.
func (e *Entry) Title() string {
	for _, path := range []string{"title", "name", "question"} {
		if r := gjson.GetBytes(e.raw, path); r.Type == gjson.String && r.Str != "" {
			return r.Str
		}
	}
	return ""
}

// RichText returns the field at path in a form richtext.Serialize accepts:
// a string for plain text fields and json.RawMessage for editor documents.
func (e *Entry) RichText(path string) (any, error) {
	r := gjson.GetBytes(e.raw, path)
	switch {
	case !r.Exists(), r.Type == gjson.Null:
		return nil, fmt.Errorf("%s.%s: %w", e.Collection, path, ErrFieldMissing)
	case r.Type == gjson.String:
		return r.Str, nil
	}
	return json.RawMessage(r.Raw), nil
}
