package llm

import (
	"errors"
	"strings"
	"testing"
)

func TestParseSubmission(t *testing.T) {
	raw := []byte(`{"icon_url":" https://example.com/icon-512.png ","site_name":"Example","source":"web app manifest","confidence":"high"}`)

	got, err := parseSubmission(raw, "https://example.com/")
	if err != nil {
		t.Fatalf("parseSubmission failed: %v", err)
	}
	if got.IconURL != "https://example.com/icon-512.png" {
		t.Errorf("expected trimmed icon URL, got %q", got.IconURL)
	}
	if got.SiteName != "Example" || got.Source != "web app manifest" || got.Confidence != "high" {
		t.Errorf("unexpected result: %+v", got)
	}
}

func TestParseSubmission_Errors(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		noIconErr bool
	}{
		{"empty url", `{"icon_url":"","confidence":"low"}`, true},
		{"blank url", `{"icon_url":"   "}`, true},
		{"missing url", `{"confidence":"low"}`, true},
		{"not json", `icon_url=https://example.com/favicon.ico`, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseSubmission([]byte(tt.raw), "https://example.com/")
			if err == nil {
				t.Fatal("expected an error")
			}
			if errors.Is(err, ErrNoIconFound) != tt.noIconErr {
				t.Errorf("errors.Is(err, ErrNoIconFound) = %v, want %v (err: %v)", !tt.noIconErr, tt.noIconErr, err)
			}
		})
	}
}

func TestBuildPrompt(t *testing.T) {
	prompt := buildPrompt("https://blog.example.org/post/1")

	for _, want := range []string{"https://blog.example.org/post/1", submitToolName, "DIRECT link"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("expected prompt to mention %q", want)
		}
	}
}

func TestSubmitToolProperties(t *testing.T) {
	props := submitToolProperties()
	for _, key := range []string{"icon_url", "site_name", "source", "confidence"} {
		if _, ok := props[key]; !ok {
			t.Errorf("expected schema property %q", key)
		}
	}
}
