package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in      string
		want    Category
		wantErr bool
	}{
		{"", "", false},
		{"personal", CategoryPersonal, false},
		{"kwork", CategoryKwork, false},
		{"Personal", "", true},
		{"freelance", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCategory(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestProject_Normalize(t *testing.T) {
	p := Project{Title: "x"}
	p.Normalize()
	assert.NotNil(t, p.SubDescription)
	assert.NotNil(t, p.Tags)
	assert.Empty(t, p.Tags)
}

func TestMergeJSON(t *testing.T) {
	base := Project{
		ID:             3,
		Title:          "Shop",
		Description:    "An online shop",
		SubDescription: []string{"one"},
		Href:           "https://example.com",
		Tags:           []Tag{{ID: 1, Name: "Go", Path: "/go.svg"}},
		Category:       CategoryKwork,
	}

	tests := []struct {
		name  string
		patch string
		want  func(p *Project)
	}{
		{"empty object", `{}`, func(p *Project) {}},
		{"replace title", `{"title": "Store"}`, func(p *Project) { p.Title = "Store" }},
		{"partial tag replaces whole array", `{"tags": [{"name": "Rust"}]}`, func(p *Project) { p.Tags = []Tag{{Name: "Rust"}} }},
		{"null clears", `{"href": null, "category": null, "tags": null}`, func(p *Project) {
			p.Href, p.Category, p.Tags = "", "", nil
		}},
		{"id ignored", `{"id": "nine", "Id": 9}`, func(p *Project) {}},
		{"key case folded", `{"Title": "Upper"}`, func(p *Project) { p.Title = "Upper" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := base
			want.SubDescription = []string{"one"}
			want.Tags = []Tag{{ID: 1, Name: "Go", Path: "/go.svg"}}
			tt.want(&want)

			got, err := MergeJSON(base, []byte(tt.patch))
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}

	// base is not modified
	assert.Equal(t, "Go", base.Tags[0].Name)
}

func TestMergeJSON_Errors(t *testing.T) {
	for _, data := range []string{`[1]`, `null`, `"x"`, `{`, `{"tags": "go"}`} {
		_, err := MergeJSON(Project{}, []byte(data))
		assert.Error(t, err, data)
	}
}
