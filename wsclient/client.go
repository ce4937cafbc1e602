// Package wsclient implements an RFC 6455 client-role WebSocket runtime:
// a blocking Start loop backed by three cooperating goroutines (poller,
// heartbeat, read watcher) that share state under a single mutex and
// communicate readiness through a small set of binary event flags instead
// of busy-waiting.
package wsclient

import (
	"bufio"
	"bytes"
	"crypto/rand"
	"fmt"
	"io"
	"log"
	"net/url"
	"strconv"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/eapache/queue"

	"github.com/wirepath/wirepath"
	"github.com/wirepath/wirepath/codec/websocket"
)

// ClientState is the connection's position in the CONNECTING -> OPEN ->
// CLOSING -> CLOSED state machine.
type ClientState uint8

const (
	StateConnecting ClientState = iota
	StateOpen
	StateClosing
	StateClosed
)

func (s ClientState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

const (
	defaultHeartbeatInterval = 30 * time.Second
	defaultConnectTimeoutMs  = -1
	maxMissedHeartbeats      = 3
	closeDeadlineDuration    = 2 * time.Minute
	reconnectBackoff         = time.Second
)

type queuedFrame struct {
	opcode  websocket.Opcode
	payload []byte
	isClose bool
}

// Client is a single WebSocket connection. It owns a private
// wirepath.Transport and websocket.Handshake; two Clients never share a
// Transport.
type Client struct {
	// state mutex: guards everything below down to heartbeatHist.
	mu                 sync.Mutex
	url                *url.URL
	automaticReconnect bool
	heartbeatInterval  time.Duration
	connectTimeoutMs   int
	state              ClientState
	transport          *wirepath.Transport
	reader             *bufio.Reader
	writeQueue         *queue.Queue
	readAccumulator    *websocket.FrameAssembler
	continuationKind   MessageKind
	fragmenting        bool
	streamState        websocket.StreamState
	closeDeadline      time.Time
	missedHeartbeats   int
	heartbeatPayload   []byte
	heartbeatSentAt    time.Time
	heartbeatHist      *hdrhistogram.Histogram

	// callbackMu serializes user-callback delivery across goroutines:
	// deliver holds it for the whole callback invocation. Send, Close and
	// Stats never take it (they only take the state mutex), so a handler
	// calling them from inside the callback cannot deadlock against it —
	// reentrant delivery is satisfied by construction rather than by a
	// recursive lock.
	callbackMu sync.Mutex
	onMessage  func(Message)

	verifyPeer bool

	activityFlag  *chanFlag
	readFlag      *condFlag
	heartbeatFlag *chanFlag

	stopCh        chan struct{}
	disconnectOne sync.Once
	startOnce     sync.Once
	startAsyncOne sync.Once
}

// NewClient parses rawURL (scheme must be ws or wss) and returns an idle
// Client. Call Start or StartAsync to connect.
func NewClient(rawURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, wrapErr("parse url", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, ErrUnsupportedScheme
	}
	if u.Hostname() == "" {
		return nil, ErrMissingEndpoint
	}

	c := &Client{
		url:               u,
		verifyPeer:        true,
		state:             StateConnecting,
		heartbeatInterval: defaultHeartbeatInterval,
		connectTimeoutMs:  defaultConnectTimeoutMs,
		writeQueue:        queue.New(),
		readAccumulator:   websocket.NewFrameAssembler(),
		heartbeatHist:     newHeartbeatHistogram(),
		activityFlag:      newChanFlag(),
		readFlag:          newCondFlag(),
		heartbeatFlag:     newChanFlag(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) GetURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.url.String()
}

// SetURL changes the target for the next connect attempt. It has no
// effect on an already-open session.
func (c *Client) SetURL(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return wrapErr("parse url", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return ErrUnsupportedScheme
	}
	c.mu.Lock()
	c.url = u
	c.mu.Unlock()
	return nil
}

func (c *Client) GetAutomaticReconnect() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.automaticReconnect
}

func (c *Client) SetAutomaticReconnect(v bool) {
	c.mu.Lock()
	c.automaticReconnect = v
	c.mu.Unlock()
}

func (c *Client) SetOnMessage(cb func(Message)) {
	c.callbackMu.Lock()
	c.onMessage = cb
	c.callbackMu.Unlock()
}

func (c *Client) State() ClientState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) setState(s ClientState) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *Client) deliver(msg Message) {
	c.callbackMu.Lock()
	defer c.callbackMu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("wsclient: message callback panicked: %v", r)
		}
	}()
	if c.onMessage != nil {
		c.onMessage(msg)
	}
}

// Send enqueues a TEXT frame and returns false if the connection is not
// currently OPEN.
func (c *Client) Send(text string) bool {
	if c.State() != StateOpen {
		return false
	}
	c.enqueue(websocket.OpcodeText, []byte(text), false)
	return true
}

// Close enqueues a CLOSE frame carrying code and reason and transitions
// to CLOSING. Safe to call from any goroutine, including the user
// callback. A no-op once the session is CLOSING or CLOSED.
func (c *Client) Close(code websocket.CloseCode, reason string) {
	c.mu.Lock()
	state := c.state
	c.mu.Unlock()
	if state == StateClosing || state == StateClosed {
		return
	}
	c.enqueue(websocket.OpcodeClose, websocket.EncodeCloseFramePayload(code, reason), true)
}

func (c *Client) enqueue(opcode websocket.Opcode, payload []byte, isClose bool) {
	c.mu.Lock()
	c.writeQueue.Add(&queuedFrame{opcode: opcode, payload: payload, isClose: isClose})
	c.mu.Unlock()
	c.activityFlag.Signal()
}

// Start runs the connect-then-run loop on the calling goroutine, blocking
// until the session ends without automatic_reconnect, or forever if it is
// set. It returns ErrAlreadyStarted if called more than once on the same
// Client.
func (c *Client) Start() error {
	started := false
	c.startOnce.Do(func() { started = true })
	if !started {
		return ErrAlreadyStarted
	}

	for {
		c.resetSessionState()

		if err := c.connectOnce(); err != nil {
			if !c.GetAutomaticReconnect() {
				c.mu.Lock()
				c.state = StateClosed
				c.streamState = websocket.StateTerminated
				c.writeQueue = queue.New()
				c.readAccumulator = websocket.NewFrameAssembler()
				c.mu.Unlock()
				return err
			}
			time.Sleep(reconnectBackoff)
			continue
		}

		c.mu.Lock()
		c.streamState = websocket.StateActive
		c.mu.Unlock()
		c.setState(StateOpen)
		c.deliver(Message{Kind: MessageOpen, Text: "Connected to: " + c.GetURL()})

		c.runSession()

		if !c.GetAutomaticReconnect() {
			return nil
		}
	}
}

// StartAsync starts Start on a dedicated goroutine exactly once.
func (c *Client) StartAsync() {
	c.startAsyncOne.Do(func() {
		go func() { _ = c.Start() }()
	})
}

func (c *Client) resetSessionState() {
	c.mu.Lock()
	c.state = StateConnecting
	c.writeQueue = queue.New()
	c.readAccumulator = websocket.NewFrameAssembler()
	c.streamState = websocket.StateHandshake
	c.fragmenting = false
	c.closeDeadline = time.Time{}
	c.missedHeartbeats = 0
	c.heartbeatPayload = nil
	c.heartbeatSentAt = time.Time{}
	c.mu.Unlock()
	c.activityFlag.Clear()
	c.readFlag.Clear()
	c.heartbeatFlag.Clear()
	c.disconnectOne = sync.Once{}
	c.stopCh = make(chan struct{})
}

func (c *Client) connectOnce() error {
	c.mu.Lock()
	target := c.url
	verifyPeer := c.verifyPeer
	connectTimeoutMs := c.connectTimeoutMs
	c.mu.Unlock()

	host := target.Hostname()
	useTLS := target.Scheme == "wss"
	port := 80
	if useTLS {
		port = 443
	}
	if p := target.Port(); p != "" {
		parsed, err := strconv.Atoi(p)
		if err != nil {
			return wrapErr("connect", err)
		}
		port = parsed
	}

	transport := wirepath.NewTransport(host, port, wirepath.WithTimeoutMs(connectTimeoutMs))
	transport.SetUseTLS(useTLS)
	transport.SetVerifyPeer(verifyPeer)

	ok, err := transport.Connect()
	if err != nil {
		return wrapErr("connect", err)
	}
	if !ok {
		return ErrMissingEndpoint
	}

	handshake, err := websocket.NewHandshake()
	if err != nil {
		transport.Close()
		return wrapErr("handshake", err)
	}

	httpURL := *target
	if useTLS {
		httpURL.Scheme = "https"
	} else {
		httpURL.Scheme = "http"
	}

	leftover, err := handshake.Do(transport.Socket(), &httpURL, nil)
	if err != nil {
		transport.Close()
		return wrapErr("handshake", err)
	}

	reader := bufio.NewReader(io.MultiReader(bytes.NewReader(leftover), transportReader{transport}))

	c.mu.Lock()
	c.transport = transport
	c.reader = reader
	c.mu.Unlock()

	return nil
}

// transportReader adapts Transport's poll-then-read model to io.Reader so
// bufio.Reader (and Frame.ReadFrom's io.ReadFull calls) can pull exactly
// as many bytes as are needed, looping internally until the transport
// reports data ready. bufio.Reader's own internal buffer retains whatever
// a short Read didn't consume, so no separate leftover-byte bookkeeping
// is needed on top of it.
type transportReader struct {
	t *wirepath.Transport
}

func (r transportReader) Read(p []byte) (int, error) {
	for {
		if !r.t.Connected() {
			return 0, io.EOF
		}
		b, err := r.t.Receive(len(p))
		if err != nil {
			return 0, err
		}
		if len(b) == 0 {
			if !r.t.Connected() {
				return 0, io.EOF
			}
			continue
		}
		return copy(p, b), nil
	}
}

// runSession starts the poller, heartbeat, and read-watcher goroutines
// and blocks until the poller tears the session down.
func (c *Client) runSession() {
	var wg sync.WaitGroup
	wg.Add(3)
	go func() { defer wg.Done(); c.pollerLoop() }()
	go func() { defer wg.Done(); c.heartbeatLoop() }()
	go func() { defer wg.Done(); c.readWatcherLoop() }()
	wg.Wait()
}

func (c *Client) transportSocket() io.Writer {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.transport == nil {
		return nil
	}
	return c.transport.Socket()
}

func (c *Client) currentTransport() *wirepath.Transport {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.transport
}

func (c *Client) currentReader() *bufio.Reader {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reader
}

// pollerLoop is the main loop of the session: it drains the read side,
// flushes the write queue, enforces the close deadline, and calls
// disconnect when the session ends (the heartbeat goroutine is the only
// other caller, on too many missed heartbeats).
func (c *Client) pollerLoop() {
	for {
		select {
		case <-c.stopCh:
			return
		case <-c.activityFlag.C():
		case <-time.After(100 * time.Millisecond):
			// bounded idle tick so the close deadline and a dropped
			// connection are noticed even with no further activity.
		}
		c.activityFlag.Clear()

		if c.readFlag.IsSet() {
			if err := c.drainFrames(); err != nil {
				c.disconnect(Message{Kind: MessageClose, Text: err.Error()})
				return
			}
			c.readFlag.Clear()
		}

		c.flushWriteQueue()

		if done, msg := c.checkDisconnectConditions(); done {
			c.disconnect(msg)
			return
		}
	}
}

// drainFrames reads one frame (blocking until it fully arrives, since
// read_flag means the transport reported readiness), then keeps consuming
// whatever is already sitting in the reader's internal buffer without
// touching the network again, so a batch of frames delivered in one TCP
// segment doesn't each require a separate poll round-trip.
func (c *Client) drainFrames() error {
	br := c.currentReader()
	if br == nil {
		return fmt.Errorf("no reader")
	}

	for {
		f := websocket.AcquireFrame()
		_, err := f.ReadFrom(br)
		if err != nil {
			websocket.ReleaseFrame(f)
			return err
		}
		c.processFrame(f)
		websocket.ReleaseFrame(f)

		if br.Buffered() == 0 {
			return nil
		}
	}
}

// protocolViolation closes the session with a protocol-error close code
// and reports reason to the caller through a MessageBad.
func (c *Client) protocolViolation(reason error) {
	c.Close(websocket.CloseProtocolError, reason.Error())
	c.deliver(Message{Kind: MessageBad, Text: reason.Error()})
}

func (c *Client) processFrame(f *websocket.Frame) {
	op := f.Opcode()

	// RFC 6455 §5.2: a server must never mask frames it sends a client;
	// IsMasked would otherwise be a peer telling us to look for a mask key
	// that was never applied.
	if f.IsMasked() {
		c.protocolViolation(websocket.ErrMaskedFramesFromServer)
		return
	}
	if f.IsRSV1() || f.IsRSV2() || f.IsRSV3() {
		c.protocolViolation(websocket.ErrNonZeroReservedBits)
		return
	}
	if op.IsReserved() {
		c.protocolViolation(websocket.ErrReservedOpcode)
		return
	}
	if op.IsControl() {
		if !f.IsFIN() {
			c.protocolViolation(websocket.ErrInvalidControlFrame)
			return
		}
		if f.PayloadLength() > websocket.MaxControlFramePayloadLength {
			c.protocolViolation(websocket.ErrControlFrameTooBig)
			return
		}
	}

	payload := append([]byte(nil), f.Payload()...)

	switch {
	case op.IsText() || op.IsBinary() || op.IsContinuation():
		c.handleDataFrame(op, payload, f.IsFIN())
	case op.IsPing():
		c.enqueue(websocket.OpcodePong, payload, false)
		c.deliver(Message{Kind: MessagePing, Payload: payload})
	case op.IsPong():
		c.handlePong(payload)
	case op.IsClose():
		c.handleCloseFrame(payload)
	}
}

func (c *Client) handleDataFrame(op websocket.Opcode, payload []byte, fin bool) {
	c.mu.Lock()
	if op.IsContinuation() {
		if !c.fragmenting {
			c.mu.Unlock()
			c.protocolViolation(websocket.ErrUnexpectedContinuation)
			return
		}
	} else {
		if c.fragmenting {
			c.mu.Unlock()
			c.protocolViolation(websocket.ErrExpectedContinuation)
			return
		}
		c.continuationKind = MessageText
		if op.IsBinary() {
			c.continuationKind = MessageBinary
		}
	}
	c.fragmenting = !fin

	c.readAccumulator.Append(payload)
	if c.readAccumulator.Length() > websocket.MaxPayloadLen {
		c.mu.Unlock()
		c.protocolViolation(websocket.ErrMessageTooBig)
		return
	}

	kind := c.continuationKind
	var msg Message
	var ready bool
	if fin {
		data := c.readAccumulator.Reassemble()
		msg = Message{Kind: kind, Payload: data, Text: string(data)}
		c.readAccumulator = websocket.NewFrameAssembler()
		c.fragmenting = false
		ready = true
	}
	c.mu.Unlock()

	if ready {
		if kind == MessageText && !utf8.Valid(msg.Payload) {
			c.protocolViolation(websocket.ErrInvalidUTF8)
			return
		}
		c.deliver(msg)
	}
}

func (c *Client) handlePong(payload []byte) {
	c.mu.Lock()
	match := bytes.Equal(payload, c.heartbeatPayload)
	sentAt := c.heartbeatSentAt
	if match {
		c.missedHeartbeats = 0
	}
	hist := c.heartbeatHist
	c.mu.Unlock()

	if match {
		if !sentAt.IsZero() {
			hist.RecordValue(int64(time.Since(sentAt)))
		}
		return
	}
	c.deliver(Message{Kind: MessagePong, Payload: payload})
}

func (c *Client) handleCloseFrame(payload []byte) {
	code, reason := websocket.DecodeCloseFramePayload(payload)
	if code == websocket.CloseNoStatus {
		// 1005 is never put on the wire; echo a status-less close as 1000
		code = websocket.CloseNormal
	}
	c.mu.Lock()
	if c.streamState == websocket.StateClosedByUs {
		c.streamState = websocket.StateCloseAcked
	} else {
		c.streamState = websocket.StateClosedByPeer
	}
	c.mu.Unlock()
	c.Close(code, reason)
}

func (c *Client) flushWriteQueue() {
	for {
		c.mu.Lock()
		if c.writeQueue.Length() == 0 {
			c.mu.Unlock()
			return
		}
		qf := c.writeQueue.Remove().(*queuedFrame)
		c.mu.Unlock()

		if err := c.writeFrame(qf.opcode, qf.payload); err != nil {
			c.disconnect(Message{Kind: MessageClose, Text: err.Error()})
			return
		}

		if qf.opcode == websocket.OpcodePing {
			c.heartbeatFlag.Signal()
		}

		if qf.isClose {
			c.mu.Lock()
			c.writeQueue = queue.New()
			if c.streamState == websocket.StateClosedByPeer {
				c.streamState = websocket.StateCloseAcked
			} else {
				c.streamState = websocket.StateClosedByUs
			}
			c.closeDeadline = time.Now().Add(closeDeadlineDuration)
			c.mu.Unlock()
			c.setState(StateClosing)
			return
		}
	}
}

func (c *Client) writeFrame(opcode websocket.Opcode, payload []byte) error {
	w := c.transportSocket()
	if w == nil {
		return fmt.Errorf("wsclient: no active connection")
	}

	f := websocket.AcquireFrame()
	defer websocket.ReleaseFrame(f)

	f.SetFIN()
	f.SetOpcode(opcode)
	f.SetPayload(payload)
	f.Mask()

	_, err := f.WriteTo(w)
	return err
}

func (c *Client) checkDisconnectConditions() (bool, Message) {
	c.mu.Lock()
	state := c.streamState
	deadline := c.closeDeadline
	c.mu.Unlock()

	if state == websocket.StateCloseAcked {
		return true, Message{Kind: MessageClose, Text: "closed"}
	}
	if state == websocket.StateClosedByUs && !deadline.IsZero() && time.Now().After(deadline) {
		return true, Message{Kind: MessageClose, Text: "close deadline exceeded"}
	}
	if t := c.currentTransport(); t != nil && !t.Connected() {
		return true, Message{Kind: MessageClose, Text: "transport disconnected"}
	}
	return false, Message{}
}

// disconnect is the single termination primitive of a session: transition
// to CLOSED, close the Transport, clear buffers, deliver the close
// message, and wake every worker. Idempotent per session via disconnectOne.
func (c *Client) disconnect(msg Message) {
	c.disconnectOne.Do(func() {
		c.mu.Lock()
		c.state = StateClosed
		c.streamState = websocket.StateTerminated
		c.writeQueue = queue.New()
		c.readAccumulator = websocket.NewFrameAssembler()
		transport := c.transport
		c.mu.Unlock()

		if transport != nil {
			transport.Close()
		}

		close(c.stopCh)
		c.deliver(msg)
	})
}

// heartbeatLoop runs the heartbeat goroutine: every interval, while OPEN,
// enqueue a PING, wait for confirmation it actually reached the wire
// before timestamping the round-trip start, then track missed heartbeats
// and disconnect once they reach maxMissedHeartbeats.
func (c *Client) heartbeatLoop() {
	c.mu.Lock()
	interval := c.heartbeatInterval
	c.mu.Unlock()

	for {
		select {
		case <-c.stopCh:
			return
		case <-time.After(interval):
		}

		if c.State() != StateOpen {
			return
		}

		payload := make([]byte, 8)
		rand.Read(payload)

		c.heartbeatFlag.Clear()
		c.enqueue(websocket.OpcodePing, payload, false)

		select {
		case <-c.heartbeatFlag.C():
			c.mu.Lock()
			c.heartbeatPayload = payload
			c.heartbeatSentAt = time.Now()
			c.mu.Unlock()
		case <-c.stopCh:
			return
		}

		c.mu.Lock()
		c.missedHeartbeats++
		missed := c.missedHeartbeats
		c.mu.Unlock()

		if missed >= maxMissedHeartbeats {
			c.disconnect(Message{Kind: MessageClose, Text: "Too many missed heartbeats."})
			return
		}
	}
}

func (c *Client) readWatcherLoop() {
	for {
		select {
		case <-c.stopCh:
			return
		default:
		}

		t := c.currentTransport()
		if t == nil {
			return
		}

		ready, err := t.Query(true, false)
		if err != nil || !t.Connected() {
			c.activityFlag.Signal()
			return
		}
		if !ready {
			continue
		}

		c.readFlag.Set()
		c.activityFlag.Signal()
		c.readFlag.WaitUntil(false)
	}
}
