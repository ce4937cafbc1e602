package wsclient

import "time"

// Option configures a Client at construction time.
type Option func(*Client)

// WithAutomaticReconnect sets whether Start re-enters the connect phase
// after a disconnect instead of returning.
func WithAutomaticReconnect(v bool) Option {
	return func(c *Client) { c.automaticReconnect = v }
}

// WithVerifyPeer controls TLS certificate verification for wss:// targets.
func WithVerifyPeer(v bool) Option {
	return func(c *Client) { c.verifyPeer = v }
}

// WithOnMessage sets the user callback delivered to for every Message,
// equivalent to calling SetOnMessage after construction.
func WithOnMessage(cb func(Message)) Option {
	return func(c *Client) { c.onMessage = cb }
}

// WithHeartbeatInterval overrides the default 30s interval between PING
// frames the heartbeat goroutine sends while the session is OPEN.
func WithHeartbeatInterval(d time.Duration) Option {
	return func(c *Client) { c.heartbeatInterval = d }
}

// WithConnectTimeoutMs sets the timeout_ms of the Transport each session
// dials. A positive value bounds the connect (dial and TLS handshake) in
// milliseconds; -1 and 0 both let it block until it completes or fails.
// The same value then stays the Transport's poll/IO timeout for the
// session (-1 blocks until ready, 0 polls without waiting).
func WithConnectTimeoutMs(ms int) Option {
	return func(c *Client) { c.connectTimeoutMs = ms }
}
