package handler

import (
	"strings"
	"testing"
	"time"
)

func TestRenderNotesHTML(t *testing.T) {
	html := renderNotesHTML("**餐后服用**，避免空腹。")
	if !strings.Contains(html, "<strong>餐后服用</strong>") {
		t.Fatalf("expected rendered markdown, got %q", html)
	}

	// 危险标签必须被清洗
	html = renderNotesHTML("hello <script>alert(1)</script>")
	if strings.Contains(html, "<script>") {
		t.Fatalf("expected script to be sanitized, got %q", html)
	}

	if renderNotesHTML("") != "" {
		t.Fatal("expected empty output for empty notes")
	}
}

func TestParseDateQuery(t *testing.T) {
	fallback := time.Date(2025, 3, 10, 0, 0, 0, 0, time.Local)

	tests := []struct {
		name     string
		input    string
		expected time.Time
		ok       bool
	}{
		{name: "empty uses fallback", input: "", expected: fallback, ok: true},
		{name: "valid date", input: "2025-04-01", expected: time.Date(2025, 4, 1, 0, 0, 0, 0, time.Local), ok: true},
		{name: "garbage", input: "not-a-date", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseDateQuery(tt.input, fallback)
			if ok != tt.ok {
				t.Fatalf("expected ok=%v, got %v", tt.ok, ok)
			}
			if ok && !got.Equal(tt.expected) {
				t.Fatalf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}
