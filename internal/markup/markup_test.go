package markup

import (
	"testing"
)

func TestParse(t *testing.T) {
	body := []byte(`<!DOCTYPE html><html><head>
		<link rel="icon" href="/favicon.png" sizes="32x32">
		</head><body></body></html>`)

	doc, err := Parse(body, "text/html; charset=utf-8")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	href, ok := doc.Find("link").Attr("href")
	if !ok || href != "/favicon.png" {
		t.Errorf("expected href /favicon.png, got %q (found=%v)", href, ok)
	}
}

func TestParse_DeclaredCharset(t *testing.T) {
	// "café" in ISO-8859-1: é is a single 0xE9 byte.
	body := []byte("<html><head><title>caf\xe9</title></head></html>")

	doc, err := Parse(body, "text/html; charset=ISO-8859-1")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got := doc.Find("title").Text(); got != "café" {
		t.Errorf("expected title café, got %q", got)
	}
}

func TestParse_MetaCharset(t *testing.T) {
	body := []byte(`<html><head><meta charset="windows-1252"><title>caf` + "\xe9" + `</title></head></html>`)

	doc, err := Parse(body, "text/html")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if got := doc.Find("title").Text(); got != "café" {
		t.Errorf("expected title café, got %q", got)
	}
}

func TestParse_Malformed(t *testing.T) {
	// The HTML5 algorithm recovers from almost anything.
	doc, err := Parse([]byte("<html><head><link rel=icon href=a.png><title>x</head><body><div><p>unclosed"), "")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if doc.Find("link").Length() != 1 {
		t.Error("expected the link element to survive the broken markup")
	}
}
