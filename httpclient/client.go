// Package httpclient implements a synchronous HTTP/1.1 client: one
// request/response per call, built on a wirepath.Transport and
// wirepath/codec/http's wire codec, with optional keep-alive reuse of
// the underlying connection and optional streaming of the response body
// to a caller-supplied sink.
package httpclient

import (
	"bufio"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/wirepath/wirepath"
	httpcodec "github.com/wirepath/wirepath/codec/http"
	"github.com/wirepath/wirepath/uri"
)

// Client owns a single Transport and, when keep-alive is requested,
// remembers which "host:port" it is currently connected to so a
// subsequent Request to the same endpoint can reuse the connection
// instead of dialing again.
type Client struct {
	mu sync.Mutex

	transport   *wirepath.Transport
	connectedTo string

	verifyPeer       bool
	connectTimeoutMs int
}

// NewClient returns a Client with certificate verification enabled and an
// indefinitely blocking connect timeout; use SetVerifyPeer(false) for
// self-signed or test endpoints and SetConnectTimeoutMs to bound connect.
func NewClient() *Client {
	return &Client{verifyPeer: true, connectTimeoutMs: -1}
}

func (c *Client) SetVerifyPeer(v bool) { c.verifyPeer = v }

// SetConnectTimeoutMs sets the timeout_ms given to each Transport the
// Client dials. A positive value bounds the connect (dial and TLS
// handshake) in milliseconds; -1 and 0 both let it block until it
// completes or fails.
func (c *Client) SetConnectTimeoutMs(ms int) { c.connectTimeoutMs = ms }

func defaultPort(scheme string) (int, bool) {
	switch scheme {
	case "http":
		return 80, true
	case "https":
		return 443, true
	}
	return 0, false
}

// Request sends a single HTTP/1.1 request and returns its response. When
// stream is true, the body is delivered incrementally to sink instead of
// being buffered whole onto Response.Body.
func (c *Client) Request(
	method httpcodec.Method,
	rawURL string,
	headers map[string]string,
	body []byte,
	keepAlive bool,
	stream bool,
	sink func([]byte),
) (*httpcodec.Response, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !validMethod(method) {
		return nil, &HttpClientError{Op: "request", Reason: fmt.Sprintf("unsupported method %q", method)}
	}

	u, err := uri.Parse(rawURL)
	if err != nil {
		return nil, &HttpClientError{Op: "request", Reason: err.Error()}
	}

	scheme := u.Scheme
	if scheme == "" {
		scheme = "http"
	}
	if scheme != "http" && scheme != "https" {
		return nil, &HttpClientError{Op: "request", Reason: fmt.Sprintf("unsupported scheme %q", scheme)}
	}

	port, ok := defaultPort(scheme)
	if !ok {
		return nil, &HttpClientError{Op: "request", Reason: fmt.Sprintf("unsupported scheme %q", scheme)}
	}
	if u.Port != nil {
		port = int(*u.Port)
	}

	// TLS and the omitted-Host-port both key off the resolved port value,
	// not the scheme string: https://host:8443 dials without TLS, and
	// https://host:443 omits the port from the Host header.
	useTLS := port == 443
	omitPort := port == 80 || port == 443

	hostPort := net.JoinHostPort(u.Host, strconv.Itoa(port))

	if err := c.ensureConnected(u.Host, port, hostPort, useTLS); err != nil {
		return nil, err
	}

	req, err := httpcodec.NewRequest()
	if err != nil {
		return nil, err
	}
	req.Method = method
	req.Proto = httpcodec.ProtoHttp11
	req.URL = &url.URL{Path: requestPath(u), RawQuery: buildQuery(u.Query)}

	hostHeader := u.Host
	if !omitPort {
		hostHeader = hostPort
	}
	req.Header.Add("Host", hostHeader)

	for k, v := range headers {
		req.Header.Add(k, v)
	}

	if !keepAlive {
		req.Header.Add("Connection", "close")
	}
	if len(body) > 0 {
		req.Header.Add("Content-Length", strconv.Itoa(len(body)))
		req.Body = body
	}

	codec, err := httpcodec.NewRequestCodec()
	if err != nil {
		return nil, err
	}
	if err := codec.Encode(req, c.transport.Socket()); err != nil {
		c.release()
		return nil, &HttpClientError{Op: "request", Reason: err.Error(), Err: err}
	}

	res, err := c.readResponse(method, stream, sink)
	if err != nil {
		c.release()
		return nil, err
	}

	if !keepAlive || strings.EqualFold(res.Header.Get("Connection"), "close") {
		c.release()
	} else {
		c.connectedTo = hostPort
	}

	return res, nil
}

// ensureConnected trips disconnect discovery on an already-connected
// Transport, then reconnects if necessary.
func (c *Client) ensureConnected(host string, port int, hostPort string, useTLS bool) error {
	if c.transport != nil && c.transport.Connected() {
		c.transport.SetBlocking(false)
		if _, err := c.transport.Receive(0); err != nil {
			return &HttpClientError{Op: "connect", Reason: err.Error(), Err: err}
		}
		c.transport.SetBlocking(true)
	}

	if c.transport != nil && c.transport.Connected() && c.connectedTo == hostPort {
		return nil
	}

	c.release()

	c.transport = wirepath.NewTransport(host, port,
		wirepath.WithTimeoutMs(c.connectTimeoutMs),
	)
	c.transport.SetUseTLS(useTLS)
	c.transport.SetVerifyPeer(c.verifyPeer)

	ok, err := c.transport.Connect()
	if err != nil {
		return &HttpClientError{Op: "connect", Reason: err.Error(), Err: err}
	}
	if !ok {
		return &HttpClientError{Op: "connect", Reason: "missing host or port"}
	}

	return nil
}

func (c *Client) release() {
	if c.transport != nil {
		c.transport.Close()
		c.transport = nil
	}
	c.connectedTo = ""
}

func (c *Client) readResponse(method httpcodec.Method, stream bool, sink func([]byte)) (*httpcodec.Response, error) {
	br := bufio.NewReader(c.transport.Socket())
	codec, err := httpcodec.NewResponseCodec()
	if err != nil {
		return nil, err
	}

	noBody := method == httpcodec.Head

	if !stream {
		res, err := codec.Decode(br, noBody)
		if err != nil {
			return nil, &HttpClientError{Op: "response", Reason: err.Error(), Err: err}
		}
		return res, nil
	}

	return decodeStreaming(br, noBody, sink)
}

// validMethod enforces the closed set of methods this client will send.
func validMethod(m httpcodec.Method) bool {
	switch m {
	case httpcodec.Get, httpcodec.Post, httpcodec.Put, httpcodec.Delete,
		httpcodec.Head, httpcodec.Options, httpcodec.Connect, httpcodec.Trace, httpcodec.Patch:
		return true
	}
	return false
}

func requestPath(u *uri.URI) string {
	if u.Path == "" {
		return "/"
	}
	return u.Path
}

func buildQuery(q *uri.Query) string {
	if q.Len() == 0 {
		return ""
	}
	var b strings.Builder
	first := true
	q.Range(func(k, v string) {
		if !first {
			b.WriteString("&")
		}
		first = false
		b.WriteString(k)
		b.WriteString("=")
		b.WriteString(v)
	})
	return b.String()
}
