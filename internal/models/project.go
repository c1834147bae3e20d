package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Category groups projects on the listing page.
type Category string

const (
	CategoryPersonal Category = "personal"
	CategoryKwork    Category = "kwork"
)

// Valid reports whether c is empty or one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case "", CategoryPersonal, CategoryKwork:
		return true
	}
	return false
}

// ParseCategory converts a query or form value into a Category.
func ParseCategory(s string) (Category, error) {
	c := Category(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown category %q", s)
	}
	return c, nil
}

// Tag is a technology badge shown on a project card.
type Tag struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Path string `json:"path"`
}

// Project represents a portfolio project
type Project struct {
	ID             int      `json:"id"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	SubDescription []string `json:"subDescription"`
	Href           string   `json:"href,omitempty"`
	Logo           string   `json:"logo,omitempty"`
	Image          string   `json:"image,omitempty"`
	Tags           []Tag    `json:"tags"`
	Category       Category `json:"category,omitempty"`
}

// Normalize replaces nil slices with empty ones so the document and API
// responses always carry arrays.
func (p *Project) Normalize() {
	if p.SubDescription == nil {
		p.SubDescription = []string{}
	}
	if p.Tags == nil {
		p.Tags = []Tag{}
	}
}

// ProjectList wraps the array of projects
type ProjectList struct {
	Projects []Project `json:"projects"`
}

// errNotObject is returned by MergeJSON when data is not a JSON object.
var errNotObject = errors.New("project JSON must be an object")

// MergeJSON returns base with every top-level field present in data replacing
// the old value wholesale. A null value clears the field. Keys naming the id
// are dropped before decoding, so the result always keeps base.ID.
func MergeJSON(base Project, data []byte) (Project, error) {
	var patch map[string]json.RawMessage
	if err := json.Unmarshal(data, &patch); err != nil {
		return Project{}, err
	}
	if patch == nil {
		return Project{}, errNotObject
	}

	current, err := json.Marshal(base)
	if err != nil {
		return Project{}, err
	}
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(current, &fields); err != nil {
		return Project{}, err
	}

	for key, value := range patch {
		if strings.EqualFold(key, "id") {
			continue
		}
		// encoding/json matches keys case-insensitively
		for existing := range fields {
			if strings.EqualFold(existing, key) {
				delete(fields, existing)
			}
		}
		fields[key] = value
	}

	merged, err := json.Marshal(fields)
	if err != nil {
		return Project{}, err
	}
	var out Project
	if err := json.Unmarshal(merged, &out); err != nil {
		return Project{}, err
	}
	out.ID = base.ID
	return out, nil
}
