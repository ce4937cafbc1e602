package httpclient

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"strings"

	httpcodec "github.com/wirepath/wirepath/codec/http"
)

// decodeStreaming parses the status line and headers off src exactly like
// ResponseCodec.Decode, but hands the body to sink chunk-by-chunk instead
// of buffering it, so a caller can process large or indefinite responses
// (e.g. an SSE feed) without holding the whole body in memory.
func decodeStreaming(src *bufio.Reader, noBody bool, sink func([]byte)) (*httpcodec.Response, error) {
	res, err := httpcodec.NewResponse()
	if err != nil {
		return nil, err
	}

	line, err := readLine(src)
	if err != nil {
		return nil, err
	}
	if err := httpcodec.DecodeResponseLine(line, res); err != nil {
		return nil, err
	}

	for {
		line, err := readLine(src)
		if err != nil {
			return nil, err
		}
		if len(line) == 0 {
			break
		}
		key, value, err := httpcodec.DecodeHeaderLine(line)
		if err != nil {
			return nil, err
		}
		if !res.Header.Has(string(key)) {
			res.Header.Add(string(key), string(value))
		}
	}

	if bodyForbidden(res.StatusCode) {
		noBody = true
	}
	if noBody || sink == nil {
		return res, nil
	}

	switch {
	case strings.EqualFold(strings.TrimSpace(res.Header.Get("Transfer-Encoding")), "chunked"):
		return res, streamChunkedBody(src, sink)
	case res.Header.Has("Content-Length"):
		n, err := strconv.ParseInt(res.Header.Get("Content-Length"), 10, 64)
		if err != nil {
			return nil, &HttpClientError{Op: "response", Reason: "invalid Content-Length"}
		}
		return res, streamFixedBody(src, n, sink)
	default:
		return res, nil
	}
}

func readLine(src *bufio.Reader) ([]byte, error) {
	line, err := src.ReadBytes('\n')
	if err != nil {
		return nil, err
	}
	return bytes.TrimRight(line, "\r\n"), nil
}

func bodyForbidden(statusCode int) bool {
	if statusCode >= 100 && statusCode < 200 {
		return true
	}
	return statusCode == 204 || statusCode == 304
}

const streamBufSize = 32 * 1024

func streamFixedBody(src *bufio.Reader, n int64, sink func([]byte)) error {
	buf := make([]byte, streamBufSize)
	for n > 0 {
		readSize := int64(len(buf))
		if n < readSize {
			readSize = n
		}
		read, err := io.ReadFull(src, buf[:readSize])
		if read > 0 {
			sink(buf[:read])
		}
		if err != nil {
			return err
		}
		n -= int64(read)
	}
	return nil
}

func streamChunkedBody(src *bufio.Reader, sink func([]byte)) error {
	buf := make([]byte, streamBufSize)
	for {
		sizeLine, err := readLine(src)
		if err != nil {
			return err
		}
		if ext := bytes.IndexByte(sizeLine, ';'); ext >= 0 {
			sizeLine = sizeLine[:ext]
		}
		size, err := strconv.ParseUint(string(bytes.TrimSpace(sizeLine)), 16, 32)
		if err != nil {
			return &HttpClientError{Op: "response", Reason: "malformed chunk size"}
		}

		if size == 0 {
			for {
				line, err := readLine(src)
				if err != nil {
					return err
				}
				if len(line) == 0 {
					return nil
				}
			}
		}

		remaining := int64(size)
		for remaining > 0 {
			readSize := int64(len(buf))
			if remaining < readSize {
				readSize = remaining
			}
			read, err := io.ReadFull(src, buf[:readSize])
			if read > 0 {
				sink(buf[:read])
			}
			if err != nil {
				return err
			}
			remaining -= int64(read)
		}

		trailer, err := readLine(src)
		if err != nil {
			return err
		}
		if len(trailer) != 0 {
			return &HttpClientError{Op: "response", Reason: "malformed chunk trailer"}
		}
	}
}
