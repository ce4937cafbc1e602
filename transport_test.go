package wirepath

import (
	"io"
	"net"
	"strconv"
	"testing"
	"time"
)

func startEchoServer(t *testing.T) (addr string, stop func()) {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	done := make(chan struct{})
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				io.Copy(conn, conn)
				conn.Close()
			}()
		}
	}()
	return ln.Addr().String(), func() {
		ln.Close()
		close(done)
	}
}

func splitHostPort(t *testing.T, addr string) (string, int) {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	return host, port
}

func TestTransportConnectSendReceive(t *testing.T) {
	addr, stop := startEchoServer(t)
	defer stop()
	host, port := splitHostPort(t, addr)

	tr := NewTransport(host, port, WithTimeoutMs(1000))
	tr.SetUseTLS(false)
	defer tr.Close()

	ok, err := tr.Connect()
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if !ok {
		t.Fatalf("expected connect to succeed")
	}
	if !tr.Connected() {
		t.Fatalf("expected Connected() to be true")
	}

	msg := []byte("hello")
	n, err := tr.Send(msg)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if n != len(msg) {
		t.Fatalf("expected to send %d bytes, sent %d", len(msg), n)
	}

	deadline := time.Now().Add(2 * time.Second)
	var got []byte
	for len(got) < len(msg) && time.Now().Before(deadline) {
		b, err := tr.Receive(4096)
		if err != nil {
			t.Fatalf("receive: %v", err)
		}
		got = append(got, b...)
	}
	if string(got) != "hello" {
		t.Fatalf("expected echo %q, got %q", "hello", string(got))
	}
}

func TestTransportConnectMissingHostPort(t *testing.T) {
	tr := NewTransport("", 0)
	ok, err := tr.Connect()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if ok {
		t.Fatalf("expected Connect to return false for unset host/port")
	}
}

func TestTransportDisconnectDiscovery(t *testing.T) {
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		c, err := ln.Accept()
		if err == nil {
			accepted <- c
		}
	}()

	host, port := splitHostPort(t, ln.Addr().String())
	tr := NewTransport(host, port, WithTimeoutMs(1000))
	tr.SetUseTLS(false)
	defer tr.Close()

	if ok, err := tr.Connect(); err != nil || !ok {
		t.Fatalf("connect: ok=%v err=%v", ok, err)
	}

	serverSide := <-accepted
	serverSide.Close()

	deadline := time.Now().Add(2 * time.Second)
	for tr.Connected() && time.Now().Before(deadline) {
		if _, err := tr.Receive(0); err != nil {
			t.Fatalf("receive(0): %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
	if tr.Connected() {
		t.Fatalf("expected Connected() to become false after peer close")
	}
}
