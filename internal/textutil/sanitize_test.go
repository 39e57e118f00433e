package textutil

import (
	"testing"

	"golang.org/x/text/unicode/norm"
)

func TestSanitizeFileName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"plain", "plain"},
		{"  padded  ", "padded"},
		{"a/b\\c:d*e", "a-b-c-d-e"},
		{`what?"<>|`, "what"},
		{"", ""},
		{"第一秒片段", "第一秒片段"},
	}
	for _, tt := range tests {
		if got := SanitizeFileName(tt.in); got != tt.want {
			t.Errorf("SanitizeFileName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeTitle(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"opening  scene\tone", "opening scene one"},
		{"../escape", "-escape"},
		{".hidden", "hidden"},
		{"boss fight: round 2", "boss fight- round 2"},
	}
	for _, tt := range tests {
		if got := SanitizeTitle(tt.in); got != tt.want {
			t.Errorf("SanitizeTitle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNormalizeNameComposesNFD(t *testing.T) {
	decomposed := norm.NFD.String("café")
	if decomposed == "café" {
		t.Fatal("expected NFD form to differ from composed literal")
	}
	if got := NormalizeName(decomposed); got != "café" {
		t.Fatalf("NormalizeName = %q, want composed form", got)
	}
	if got := SanitizeTitle(decomposed); got != "café" {
		t.Fatalf("SanitizeTitle = %q, want composed form", got)
	}
}
