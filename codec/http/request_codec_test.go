package http

import (
	"bufio"
	"bytes"
	"net/url"
	"strings"
	"testing"
)

func TestRequestCodecEncodeDecode(t *testing.T) {
	req, err := NewRequest()
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Method = Post
	u, err := url.ParseRequestURI("/submit?x=1")
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	req.URL = u
	req.Header.Add("Host", "example.com")
	req.Header.Add("Content-Length", "5")
	req.Body = []byte("hello")

	codec, err := NewRequestCodec()
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}

	var buf bytes.Buffer
	if err := codec.Encode(req, &buf); err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := codec.Decode(bufio.NewReader(&buf))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if decoded.Method != Post {
		t.Fatalf("expected POST, got %s", decoded.Method)
	}
	if decoded.URL.Path != "/submit" {
		t.Fatalf("expected path /submit, got %s", decoded.URL.Path)
	}
	if string(decoded.Body) != "hello" {
		t.Fatalf("expected body 'hello', got %q", decoded.Body)
	}
}

func TestRequestCodecFirstWriteWinsOnDuplicateHeaders(t *testing.T) {
	raw := "GET / HTTP/1.1\r\nX-Foo: first\r\nX-Foo: second\r\n\r\n"
	codec, err := NewRequestCodec()
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}

	req, err := codec.Decode(bufio.NewReader(strings.NewReader(raw)))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if got := req.Header.Get("X-Foo"); got != "first" {
		t.Fatalf("expected first-write-wins value 'first', got %q", got)
	}
}
