package http

import (
	"bytes"
	"fmt"
	"io"
	"strconv"
)

type Response struct {
	Proto      Proto
	StatusCode int
	Status     string
	Header     Header
	Body       []byte
}

func NewResponse() (*Response, error) {
	header, err := NewHeader()
	if err != nil {
		return nil, err
	}

	r := &Response{
		Header: header,
	}
	return r, nil
}

func (r *Response) Reset() {
	r.StatusCode = 0
	r.Status = ""
	r.Proto = ""
	r.Header.Reset()
	r.Body = nil
}

func DecodeResponseLine(line []byte, into *Response) (err error) {
	var statusCode int64

	line = bytes.TrimSpace(line)
	tokens := bytes.Fields(line)
	if len(tokens) < 2 {
		return &ResponseError{reason: "invalid response line", raw: line}
	}

	into.Proto, err = ParseProtoFromBytes(tokens[0])
	if err != nil {
		return &ResponseError{reason: fmt.Sprintf("invalid proto err=%v", err), raw: line}
	}

	statusCode, err = strconv.ParseInt(string(tokens[1]), 10, 64)
	if err != nil {
		return &ResponseError{reason: fmt.Sprintf("invalid status code err=%v", err), raw: line}
	}
	into.StatusCode = int(statusCode)

	if len(tokens) > 2 {
		into.Status = string(bytes.Join(tokens[2:], []byte(" ")))
	}

	return nil
}

func EncodeResponseLine(res *Response, dst io.Writer) error {
	_, err := io.WriteString(dst, res.Proto.String()+" "+strconv.Itoa(res.StatusCode)+" "+res.Status+CLRF)
	return err
}

func ValidateResponse(res *Response) error {
	if res.Proto == "" {
		return ErrMissingProto
	}
	if res.Status == "" || res.StatusCode == 0 {
		return ErrMissingStatus
	}
	if ExpectBody(res.Header) && res.Body == nil {
		return ErrMissingBody
	}
	return nil
}
