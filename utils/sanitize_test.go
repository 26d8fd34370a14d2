package utils

import (
	"strings"
	"testing"
)

func TestSanitizeStripsScripts(t *testing.T) {
	got := Sanitize(`hello<script>alert(1)</script> world`)
	if strings.Contains(got, "script") {
		t.Errorf("script tag survived: %q", got)
	}
	if !strings.Contains(got, "hello") || !strings.Contains(got, "world") {
		t.Errorf("text content lost: %q", got)
	}
}

func TestSanitizeKeepsPlainText(t *testing.T) {
	in := "plain text with symbols: 1 < 2"
	if got := Sanitize(in); !strings.Contains(got, "plain text with symbols") {
		t.Errorf("plain text mangled: %q", got)
	}
}
