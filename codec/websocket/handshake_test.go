package websocket

import (
	"bufio"
	"fmt"
	"net"
	"net/url"
	"strings"
	"testing"
)

func TestHandshakeDoSuccess(t *testing.T) {
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	serverDone := make(chan error, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			serverDone <- err
			return
		}
		defer conn.Close()

		br := bufio.NewReader(conn)
		var key string
		for {
			line, err := br.ReadString('\n')
			if err != nil {
				serverDone <- err
				return
			}
			line = strings.TrimRight(line, "\r\n")
			if line == "" {
				break
			}
			if strings.HasPrefix(strings.ToLower(line), "sec-websocket-key:") {
				key = strings.TrimSpace(line[len("sec-websocket-key:"):])
			}
		}

		accept := makeResponseKey([]byte(key))
		resp := "HTTP/1.1 101 Switching Protocols\r\n" +
			"Upgrade: websocket\r\n" +
			"Connection: Upgrade\r\n" +
			"Sec-WebSocket-Accept: " + accept + "\r\n\r\n"
		if _, err := conn.Write([]byte(resp)); err != nil {
			serverDone <- err
			return
		}
		serverDone <- nil
	}()

	conn, err := net.Dial("tcp4", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	u, _ := url.Parse(fmt.Sprintf("ws://%s/socket", ln.Addr().String()))

	h, err := NewHandshake()
	if err != nil {
		t.Fatalf("new handshake: %v", err)
	}

	leftover, err := h.Do(conn, u, nil)
	if err != nil {
		t.Fatalf("handshake: %v", err)
	}
	if len(leftover) != 0 {
		t.Fatalf("expected no leftover bytes, got %d", len(leftover))
	}

	if err := <-serverDone; err != nil {
		t.Fatalf("server: %v", err)
	}
}

func TestHandshakeRejectsWrongAcceptKey(t *testing.T) {
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		br := bufio.NewReader(conn)
		for {
			line, err := br.ReadString('\n')
			if err != nil {
				return
			}
			if strings.TrimRight(line, "\r\n") == "" {
				break
			}
		}

		resp := "HTTP/1.1 101 Switching Protocols\r\n" +
			"Upgrade: websocket\r\n" +
			"Connection: Upgrade\r\n" +
			"Sec-WebSocket-Accept: bogus\r\n\r\n"
		conn.Write([]byte(resp))
	}()

	conn, err := net.Dial("tcp4", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	u, _ := url.Parse(fmt.Sprintf("ws://%s/socket", ln.Addr().String()))

	h, err := NewHandshake()
	if err != nil {
		t.Fatalf("new handshake: %v", err)
	}

	if _, err := h.Do(conn, u, nil); err != ErrCannotUpgrade {
		t.Fatalf("expected ErrCannotUpgrade, got %v", err)
	}
}

func TestHandshakeRejectsWrongConnectionHeader(t *testing.T) {
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		br := bufio.NewReader(conn)
		var key string
		for {
			line, err := br.ReadString('\n')
			if err != nil {
				return
			}
			line = strings.TrimRight(line, "\r\n")
			if line == "" {
				break
			}
			if strings.HasPrefix(strings.ToLower(line), "sec-websocket-key:") {
				key = strings.TrimSpace(line[len("sec-websocket-key:"):])
			}
		}

		accept := makeResponseKey([]byte(key))
		// Correct Upgrade and Accept, but Connection is "keep-alive"
		// instead of "Upgrade".
		resp := "HTTP/1.1 101 Switching Protocols\r\n" +
			"Upgrade: websocket\r\n" +
			"Connection: keep-alive\r\n" +
			"Sec-WebSocket-Accept: " + accept + "\r\n\r\n"
		conn.Write([]byte(resp))
	}()

	conn, err := net.Dial("tcp4", ln.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	u, _ := url.Parse(fmt.Sprintf("ws://%s/socket", ln.Addr().String()))

	h, err := NewHandshake()
	if err != nil {
		t.Fatalf("new handshake: %v", err)
	}

	if _, err := h.Do(conn, u, nil); err != ErrCannotUpgrade {
		t.Fatalf("expected ErrCannotUpgrade, got %v", err)
	}
}
