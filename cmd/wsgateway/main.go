// Command wsgateway is a worked example of wirepath/wsclient: it connects
// to a gateway-style WebSocket endpoint, logs the messages it receives
// (it sends no identify payload when the connection opens), and reconnects
// after a drop when the configuration enables automatic_reconnect.
// Before connecting it makes a companion HTTP call (wirepath/httpclient)
// to notify an external endpoint, the way a real gateway client would.
package main

import (
	"encoding/json"
	"flag"
	"log"
	"strings"
	"time"

	httpcodec "github.com/wirepath/wirepath/codec/http"
	"github.com/wirepath/wirepath/config"
	"github.com/wirepath/wirepath/diagnostics"
	"github.com/wirepath/wirepath/httpclient"
	"github.com/wirepath/wirepath/wsclient"
)

var (
	configPath = flag.String("config", "wsgateway.yaml", "path to the YAML client configuration")
	tokenURL   = flag.String("token-url", "", "optional HTTP endpoint to POST a session-open notice to before connecting")
	debugAddr  = flag.String("debug-addr", "", "if set, mount /debug/fgprof on this address")
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("wsgateway: %v", err)
	}

	if *debugAddr != "" {
		go func() {
			if err := diagnostics.Serve(*debugAddr); err != nil {
				log.Printf("wsgateway: diagnostics server stopped: %v", err)
			}
		}()
		log.Printf("wsgateway: profiling at http://%s/debug/fgprof", *debugAddr)
	}

	if *tokenURL != "" {
		notifySessionStart(*tokenURL, cfg.ConnectTimeoutMs)
	}

	client, err := wsclient.NewClient(cfg.URL,
		wsclient.WithAutomaticReconnect(cfg.AutomaticReconnect),
		wsclient.WithVerifyPeer(cfg.VerifyPeer),
		wsclient.WithOnMessage(onMessage),
		wsclient.WithHeartbeatInterval(time.Duration(cfg.HeartbeatIntervalS)*time.Second),
		wsclient.WithConnectTimeoutMs(cfg.ConnectTimeoutMs),
	)
	if err != nil {
		log.Fatalf("wsgateway: %v", err)
	}

	log.Printf("wsgateway: connecting to %s", cfg.URL)
	if err := client.Start(); err != nil {
		log.Fatalf("wsgateway: %v", err)
	}
}

// onMessage is the gateway's message handler. Every message is logged;
// the synthetic OPEN message triggers nothing else, and text frames are
// decoded as a gateway event if they look like a JSON object.
func onMessage(msg wsclient.Message) {
	switch msg.Kind {
	case wsclient.MessageOpen:
		log.Println("wsgateway: connection open")
	case wsclient.MessageText:
		logGatewayEvent(msg.Text)
	case wsclient.MessageBinary:
		log.Printf("wsgateway: binary message (%d bytes)", len(msg.Payload))
	case wsclient.MessagePing:
		log.Println("wsgateway: ping")
	case wsclient.MessagePong:
		log.Println("wsgateway: pong")
	case wsclient.MessageClose:
		log.Printf("wsgateway: closed: code=%d reason=%q", msg.CloseCode, msg.Text)
	case wsclient.MessageBad:
		log.Printf("wsgateway: bad frame: %s", msg.Text)
	}
}

func logGatewayEvent(text string) {
	var event struct {
		Op int             `json:"op"`
		T  string          `json:"t"`
		D  json.RawMessage `json:"d"`
	}
	if err := json.Unmarshal([]byte(text), &event); err != nil {
		log.Printf("wsgateway: message: %s", text)
		return
	}
	log.Printf("wsgateway: event op=%d t=%s", event.Op, event.T)
}

// notifySessionStart POSTs a multipart/form-data notice to an external
// endpoint before the WebSocket connects: a "status" field alongside a
// small session.json attachment, exercising an httpclient.Client's Post,
// its connect-timeout override, and codec/http's multipart body builders
// and Content-Type detection.
func notifySessionStart(url string, connectTimeoutMs int) {
	boundary, err := httpcodec.CreateBoundary()
	if err != nil {
		log.Printf("wsgateway: session-start notice failed: %v", err)
		return
	}

	var b strings.Builder
	b.WriteString(httpcodec.CreateMultipartFormData([][2]string{{"status", "connecting"}}, boundary))
	b.WriteString(httpcodec.CreateMultipartFormDataFile("session", []byte(`{"status":"connecting"}`), "session.json", boundary))
	b.WriteString("\r\n--")
	b.WriteString(boundary)
	b.WriteString("--\r\n")

	headers := map[string]string{
		"Content-Type": "multipart/form-data; boundary=" + boundary,
	}

	c := httpclient.NewClient()
	c.SetConnectTimeoutMs(connectTimeoutMs)
	defer c.Close()

	res, err := c.Post(url, headers, []byte(b.String()))
	if err != nil {
		log.Printf("wsgateway: session-start notice failed: %v", err)
		return
	}
	log.Printf("wsgateway: session-start notice: %d %s", res.StatusCode, httpcodec.Status(res.StatusCode))
}
