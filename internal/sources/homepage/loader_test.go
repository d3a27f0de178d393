package homepage

import (
	"os"
	"path/filepath"
	"testing"
)

const bookmarksYAML = `---
- Developer:
    - Github:
        - abbr: GH
          href: https://github.com/
          description: Code hosting
    - Go Docs:
        - abbr: GO
          href: go.dev/doc
- Social:
    - Reddit:
        - icon: reddit.png
          href: {{HOMEPAGE_VAR_REDDIT_URL}}
    - Mastodon:
        - abbr: MA
          href: https://mastodon.social/
`

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bookmarks.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to create test YAML file: %v", err)
	}
	return path
}

func TestLoaderLoad(t *testing.T) {
	loader := NewLoader(writeYAML(t, bookmarksYAML))
	config, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if len(config) != 2 {
		t.Fatalf("Load() returned %d groups, want 2", len(config))
	}
	dev := config[0]["Developer"]
	if len(dev) != 2 {
		t.Fatalf("Developer group has %d bookmarks, want 2", len(dev))
	}
	if got := dev[0]["Github"][0].Abbr; got != "GH" {
		t.Errorf("Github abbr = %q, want GH", got)
	}
}

func TestLoaderLoadFileNotFound(t *testing.T) {
	loader := NewLoader("/nonexistent/path/bookmarks.yaml")
	if _, err := loader.Load(); err == nil {
		t.Error("Load() with non-existent file should return error")
	}
}

func TestLoaderLoadInvalidYAML(t *testing.T) {
	loader := NewLoader(writeYAML(t, "- Developer: [unterminated"))
	if _, err := loader.Load(); err == nil {
		t.Error("Load() with invalid yaml should return error")
	}
}

func TestStripTemplateVariablesFunc(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{
			name:     "single template variable",
			input:    []byte("url: {{HOMEPAGE_VAR_URL}}"),
			expected: "url: \"\"",
		},
		{
			name:     "two template variables",
			input:    []byte("a: {{HOMEPAGE_VAR_A}}\nb: {{HOMEPAGE_VAR_B}}"),
			expected: "a: \"\"\nb: \"\"",
		},
		{
			name:     "no template variables",
			input:    []byte("plain text"),
			expected: "plain text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := stripTemplateVariables(tt.input)
			if string(result) != tt.expected {
				t.Errorf("stripTemplateVariables() = %q, want %q", string(result), tt.expected)
			}
		})
	}
}
