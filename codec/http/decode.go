package http

import (
	"bufio"
	"bytes"
	"io"
	"strconv"

	"github.com/valyala/bytebufferpool"
)

var chunkedBodyPool bytebufferpool.Pool

// maxBodySize bounds how much of a chunked or Content-Length body this
// codec will buffer into memory; a larger body fails with ErrChunkTooLarge.
// When httpclient.Client is asked to stream, it hands the body to a
// caller-supplied sink without going through Decode, so the bound does not
// apply there.
const maxBodySize = 64 * 1024 * 1024

func readLine(src *bufio.Reader) ([]byte, error) {
	line, err := src.ReadBytes('\n')
	if err != nil {
		return nil, err
	}
	return bytes.TrimRight(line, "\r\n"), nil
}

// decodeHeaderBlock reads header lines up to and including the blank line
// that terminates the header section, applying first-write-wins semantics
// on duplicate field names (RFC 2616 §4.2).
func decodeHeaderBlock(src *bufio.Reader, into Header) error {
	for {
		line, err := readLine(src)
		if err != nil {
			return err
		}
		if len(line) == 0 {
			return nil
		}
		key, value, err := DecodeHeaderLine(line)
		if err != nil {
			return err
		}
		addFirstWriteWins(into, string(key), string(value))
	}
}

func decodeBody(src *bufio.Reader, header Header) ([]byte, error) {
	switch {
	case isChunked(header):
		return decodeChunkedBody(src)
	case header.Has("Content-Length"):
		return decodeFixedBody(src, header)
	default:
		return nil, nil
	}
}

func decodeFixedBody(src *bufio.Reader, header Header) ([]byte, error) {
	n, err := strconv.ParseInt(header.Get("Content-Length"), 10, 64)
	if err != nil {
		return nil, &ResponseError{reason: "invalid Content-Length", raw: []byte(header.Get("Content-Length"))}
	}
	if n == 0 {
		return []byte{}, nil
	}
	if n > maxBodySize {
		return nil, ErrChunkTooLarge
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(src, body); err != nil {
		return nil, err
	}
	return body, nil
}

// decodeChunkedBody assembles a Transfer-Encoding: chunked body per
// RFC 2616 §3.6.1: a sequence of "<size-hex>\r\n<data>\r\n" chunks
// terminated by a zero-size chunk, followed by an (ignored) trailer
// section and a final blank line.
func decodeChunkedBody(src *bufio.Reader) ([]byte, error) {
	bb := chunkedBodyPool.Get()
	defer chunkedBodyPool.Put(bb)

	for {
		sizeLine, err := readLine(src)
		if err != nil {
			return nil, err
		}
		if ext := bytes.IndexByte(sizeLine, ';'); ext >= 0 {
			sizeLine = sizeLine[:ext]
		}
		size, err := strconv.ParseUint(string(bytes.TrimSpace(sizeLine)), 16, 32)
		if err != nil {
			return nil, ErrMalformedChunk
		}

		if size == 0 {
			// trailer section, terminated by a blank line
			for {
				line, err := readLine(src)
				if err != nil {
					return nil, err
				}
				if len(line) == 0 {
					body := make([]byte, bb.Len())
					copy(body, bb.B)
					return body, nil
				}
			}
		}

		if uint64(bb.Len())+size > maxBodySize {
			return nil, ErrChunkTooLarge
		}

		if _, err := io.CopyN(bb, src, int64(size)); err != nil {
			return nil, err
		}

		trailer, err := readLine(src)
		if err != nil {
			return nil, err
		}
		if len(trailer) != 0 {
			return nil, ErrMalformedChunk
		}
	}
}

// EncodeChunkedBody writes body as a single terminated chunk, used by
// callers that opt into Transfer-Encoding: chunked on the way out.
func EncodeChunkedBody(dst io.Writer, body []byte) error {
	if len(body) > 0 {
		if _, err := io.WriteString(dst, strconv.FormatInt(int64(len(body)), 16)+CLRF); err != nil {
			return err
		}
		if _, err := dst.Write(body); err != nil {
			return err
		}
		if _, err := io.WriteString(dst, CLRF); err != nil {
			return err
		}
	}
	_, err := io.WriteString(dst, "0"+CLRF+CLRF)
	return err
}
