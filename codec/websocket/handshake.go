package websocket

import (
	"bufio"
	"crypto/sha1"
	"hash"
	"net"
	"net/url"

	"github.com/wirepath/wirepath/codec/http"
)

// Handshake performs the RFC 6455 §4 opening handshake in the client role
// over an already-connected net.Conn. It is intentionally blocking: the
// wsclient runtime calls it once, synchronously, before starting its
// poller/heartbeat/read-watcher goroutines.
type Handshake struct {
	reqCodec *http.RequestCodec
	resCodec *http.ResponseCodec
	hasher   hash.Hash
}

func NewHandshake() (*Handshake, error) {
	reqCodec, err := http.NewRequestCodec()
	if err != nil {
		return nil, err
	}

	resCodec, err := http.NewResponseCodec()
	if err != nil {
		return nil, err
	}

	return &Handshake{
		reqCodec: reqCodec,
		resCodec: resCodec,
		hasher:   sha1.New(),
	}, nil
}

// Do writes the upgrade request to conn and blocks until the server's
// response is fully read, returning any bytes the server pipelined
// immediately after the handshake response (e.g. a first frame arriving in
// the same TCP segment as the 101 reply).
func (h *Handshake) Do(conn net.Conn, u *url.URL, extraHeaders map[string]string) (leftover []byte, err error) {
	req, expectedKey, err := h.createClientRequest(u, extraHeaders)
	if err != nil {
		return nil, err
	}

	if err := h.reqCodec.Encode(req, conn); err != nil {
		return nil, err
	}

	br := bufio.NewReader(conn)
	res, err := h.resCodec.Decode(br, true /* a 101 never carries a body */)
	if err != nil {
		return nil, err
	}

	if err := h.checkServerResponse(res, expectedKey); err != nil {
		return nil, err
	}

	if n := br.Buffered(); n > 0 {
		leftover = make([]byte, n)
		if _, err := br.Read(leftover); err != nil {
			return nil, err
		}
	}

	return leftover, nil
}

func (h *Handshake) createClientRequest(u *url.URL, extraHeaders map[string]string) (req *http.Request, expectedKey string, err error) {
	sentKey := makeRequestKey()
	expectedKey = makeResponseKey([]byte(sentKey))

	req, err = http.NewRequest()
	if err != nil {
		return
	}

	req.Method = http.Get
	req.URL = u
	req.Proto = http.ProtoHttp11

	req.Header.Add("Host", u.Host)
	req.Header.Add("Upgrade", "websocket")
	req.Header.Add("Connection", "Upgrade")
	req.Header.Add("Sec-WebSocket-Key", sentKey)
	req.Header.Add("Sec-WebSocket-Version", "13")

	for k, v := range extraHeaders {
		req.Header.Add(k, v)
	}

	return
}

func (h *Handshake) checkServerResponse(res *http.Response, expectedKey string) error {
	if res.StatusCode != 101 || !equalFoldHeader(res.Header, "Upgrade", "websocket") {
		return ErrCannotUpgrade
	}
	if !equalFoldHeader(res.Header, "Connection", "Upgrade") {
		return ErrCannotUpgrade
	}
	if key := res.Header.Get("Sec-WebSocket-Accept"); key != expectedKey {
		return ErrCannotUpgrade
	}
	return nil
}
