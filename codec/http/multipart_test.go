package http

import (
	"strings"
	"testing"
)

func TestCreateBoundary(t *testing.T) {
	b, err := CreateBoundary()
	if err != nil {
		t.Fatalf("create boundary: %v", err)
	}
	if len(b) < 1 || len(b) > 70 {
		t.Fatalf("expected boundary length in [1,70], got %d", len(b))
	}
	for _, c := range []byte(b) {
		if c < 32 || c >= 127 {
			t.Fatalf("boundary contains non-printable-ASCII byte %d", c)
		}
	}
}

func TestCreateMultipartFormField(t *testing.T) {
	part := CreateMultipartFormField("status", "connecting", "XYZ")
	want := "--XYZ\r\nContent-Disposition: form-data; name=\"status\"\r\n\r\nconnecting"
	if part != want {
		t.Fatalf("got %q, want %q", part, want)
	}
}

func TestCreateMultipartFormData(t *testing.T) {
	body := CreateMultipartFormData([][2]string{{"a", "1"}, {"b", "2"}}, "XYZ")
	if !strings.Contains(body, "name=\"a\"") || !strings.Contains(body, "name=\"b\"") {
		t.Fatalf("expected both fields present, got %q", body)
	}
	if strings.Count(body, "--XYZ") != 2 {
		t.Fatalf("expected one boundary line per field, got %q", body)
	}
}

func TestCreateMultipartFormDataFile(t *testing.T) {
	part := CreateMultipartFormDataFile("session", []byte(`{"status":"connecting"}`), "session.json", "XYZ")
	if !strings.Contains(part, "filename=\"session.json\"") {
		t.Fatalf("expected filename in part, got %q", part)
	}
	if !strings.Contains(part, "Content-Type: application/json") {
		t.Fatalf("expected detected Content-Type in part, got %q", part)
	}
	if !strings.HasSuffix(part, `{"status":"connecting"}`) {
		t.Fatalf("expected file contents at end of part, got %q", part)
	}
}

func TestDetectContentType(t *testing.T) {
	cases := map[string]string{
		"session.json": "application/json",
		"photo.png":    "image/png",
		"archive.zip":  "application/zip",
		"noext":        "application/octet-stream",
	}
	for filename, want := range cases {
		if got := DetectContentType(filename); got != want {
			t.Fatalf("DetectContentType(%q) = %q, want %q", filename, got, want)
		}
	}
}

func TestCreateApplicationXWWWFormURLEncoded(t *testing.T) {
	got := CreateApplicationXWWWFormURLEncoded("key", "value")
	if got != "key=value&" {
		t.Fatalf("got %q, want %q", got, "key=value&")
	}
}
