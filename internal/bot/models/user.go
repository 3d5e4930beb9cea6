package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Category is a named, ordered list of file records.
type Category struct {
	Name  string
	Files []FileRecord
}

// Categories keeps categories in insertion order. It encodes to and from a
// JSON object ({"name": [records...]}) without losing that order.
type Categories []Category

// Names returns category names in order.
func (c Categories) Names() []string {
	names := make([]string, 0, len(c))
	for _, cat := range c {
		names = append(names, cat.Name)
	}
	return names
}

// Find returns the category with the given name, if any.
func (c Categories) Find(name string) (Category, bool) {
	for _, cat := range c {
		if cat.Name == name {
			return cat, true
		}
	}
	return Category{}, false
}

func (c Categories) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, cat := range c {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(cat.Name)
		if err != nil {
			return nil, err
		}
		files := cat.Files
		if files == nil {
			files = []FileRecord{}
		}
		val, err := json.Marshal(files)
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

func (c *Categories) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*c = nil
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("categories: expected object, got %v", tok)
	}

	var out Categories
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := tok.(string)
		if !ok {
			return fmt.Errorf("categories: expected key, got %v", tok)
		}
		var files []FileRecord
		if err := dec.Decode(&files); err != nil {
			return fmt.Errorf("categories: %q: %w", name, err)
		}
		if files == nil {
			files = []FileRecord{}
		}
		out = append(out, Category{Name: name, Files: files})
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*c = out
	return nil
}

// UserDocument is the whole stored state of one user.
type UserDocument struct {
	ID         string     `json:"-"`
	Categories Categories `json:"categories"`
}

// Snapshot is the export format shared with the backup tooling:
//
//	{"users": {"<id>": {"categories": {"<name>": [ ... ]}}}}
type Snapshot struct {
	Users []UserDocument
}

func (s Snapshot) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(`{"users":{`)
	for i, u := range s.Users {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(u.ID)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(u)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteString(`}}`)
	return buf.Bytes(), nil
}

func (s *Snapshot) UnmarshalJSON(b []byte) error {
	var raw struct {
		Users map[string]json.RawMessage `json:"users"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	users := make([]UserDocument, 0, len(raw.Users))
	for id, body := range raw.Users {
		u := UserDocument{ID: id}
		if err := json.Unmarshal(body, &u); err != nil {
			return fmt.Errorf("user %s: %w", id, err)
		}
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	s.Users = users
	return nil
}
