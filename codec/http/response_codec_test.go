package http

import (
	"bufio"
	"bytes"
	"strings"
	"testing"
)

func TestResponseCodecEncodeDecode(t *testing.T) {
	res, err := NewResponse()
	if err != nil {
		t.Fatalf("new response: %v", err)
	}
	res.Proto = ProtoHttp11
	res.StatusCode = 200
	res.Status = "OK"
	res.Header.Add("Content-Length", "5")
	res.Body = []byte("howdy")

	codec, err := NewResponseCodec()
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}

	var buf bytes.Buffer
	if err := codec.Encode(res, &buf); err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := codec.Decode(bufio.NewReader(&buf), false)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if decoded.StatusCode != 200 || decoded.Status != "OK" {
		t.Fatalf("expected 200 OK, got %d %s", decoded.StatusCode, decoded.Status)
	}
	if string(decoded.Body) != "howdy" {
		t.Fatalf("expected body 'howdy', got %q", decoded.Body)
	}
}

func TestResponseCodecChunkedBody(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\n" +
		"Transfer-Encoding: chunked\r\n\r\n" +
		"5\r\nhello\r\n" +
		"6\r\n world\r\n" +
		"0\r\n\r\n"

	codec, err := NewResponseCodec()
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}

	res, err := codec.Decode(bufio.NewReader(strings.NewReader(raw)), false)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if string(res.Body) != "hello world" {
		t.Fatalf("expected 'hello world', got %q", res.Body)
	}
}

func TestResponseCodecNoBodyOn204(t *testing.T) {
	raw := "HTTP/1.1 204 No Content\r\n\r\n"

	codec, err := NewResponseCodec()
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}

	res, err := codec.Decode(bufio.NewReader(strings.NewReader(raw)), false)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Body != nil {
		t.Fatalf("expected nil body for 204, got %q", res.Body)
	}
}

func TestResponseCodecNoBodyOnHeadRequest(t *testing.T) {
	raw := "HTTP/1.1 200 OK\r\nContent-Length: 5\r\n\r\n"

	codec, err := NewResponseCodec()
	if err != nil {
		t.Fatalf("new codec: %v", err)
	}

	res, err := codec.Decode(bufio.NewReader(strings.NewReader(raw)), true)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if res.Body != nil {
		t.Fatalf("expected nil body when noBody requested, got %q", res.Body)
	}
}
