package wirepath

// Option configures a Transport at construction time: a small typed setter
// closure per concern, collapsed to a plain function type since Transport
// has no IO reactor that needs to introspect pending options.
type Option func(*Transport)

// WithTLS enables TLS for the connection. verifyPeer controls certificate
// and hostname verification during the handshake.
func WithTLS(verifyPeer bool) Option {
	return func(t *Transport) {
		t.useTLS = true
		t.verifyPeer = verifyPeer
	}
}

// WithUDP selects a UDP endpoint instead of the default TCP.
func WithUDP() Option {
	return func(t *Transport) { t.useUDP = true }
}

// WithTimeoutMs sets the initial poll/IO timeout. See Transport.SetTimeoutMs.
func WithTimeoutMs(ms int) Option {
	return func(t *Transport) { t.timeoutMs = ms }
}
