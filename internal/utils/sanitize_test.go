package utils

import "testing"

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "Ship release", "Ship release"},
		{"trims", "  padded  ", "padded"},
		{"strips tags", "<b>bold</b> move", "bold move"},
		{"drops script", "<script>alert(1)</script>Title", "Title"},
		{"keeps ampersand", "R&D backlog", "R&D backlog"},
		{"empty", "", ""},
		{"encoded script", "&lt;script&gt;alert(1)&lt;/script&gt;", ""},
		{"encoded tags", "&lt;b&gt;bold&lt;/b&gt; move", "bold move"},
		{"double encoded tags", "&amp;lt;b&amp;gt;bold&amp;lt;/b&amp;gt;", "bold"},
		{"encoded ampersand", "R&amp;D", "R&D"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeText(tt.input); got != tt.expected {
				t.Errorf("SanitizeText(%q) = %q, expected %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Alice@Example.COM "); got != "alice@example.com" {
		t.Errorf("NormalizeEmail() = %q", got)
	}
}
