package channels

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tinyland-inc/truefriend/pkg/logger"
	"github.com/tinyland-inc/truefriend/pkg/model"
)

// ErrBridgeOffline is returned when no WhatsApp sidecar is paired.
var ErrBridgeOffline = errors.New("whatsapp bridge not connected")

// inboundFrame is what the sidecar sends for each received message.
type inboundFrame struct {
	Sender string `json:"sender"`
	Text   string `json:"text"`
}

// outboundFrame is what the gateway writes back for delivery.
type outboundFrame struct {
	Address    string `json:"address"`
	Text       string `json:"text"`
	Attachment string `json:"attachment,omitempty"` // base64 PNG payload
}

// WhatsAppBridgeChannel exposes a websocket endpoint that a WhatsApp
// sidecar process pairs with. The sidecar owns the session and QR login
// UX; this channel only speaks the frame protocol. The platform sender
// key is the WhatsApp JID the sidecar reports.
type WhatsAppBridgeChannel struct {
	*BaseChannel
	listen string
	secret string

	server *http.Server
	addr   net.Addr

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewWhatsAppBridgeChannel(listen, secret string, allowList []string, handler Handler) *WhatsAppBridgeChannel {
	return &WhatsAppBridgeChannel{
		BaseChannel: NewBaseChannel("whatsapp", model.PlatformWhatsApp, handler, allowList),
		listen:      listen,
		secret:      secret,
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

func (c *WhatsAppBridgeChannel) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/bridge", func(w http.ResponseWriter, r *http.Request) {
		c.handleBridge(ctx, w, r)
	})

	ln, err := net.Listen("tcp", c.listen)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", c.listen, err)
	}

	c.server = &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	c.addr = ln.Addr()
	c.SetRunning(true)

	go func() {
		if err := c.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.C("whatsapp").Errorw("bridge server stopped", "error", err)
		}
		c.SetRunning(false)
	}()

	return nil
}

func (c *WhatsAppBridgeChannel) handleBridge(ctx context.Context, w http.ResponseWriter, r *http.Request) {
	log := logger.C("whatsapp")

	if c.secret != "" {
		provided := r.Header.Get("X-Bridge-Secret")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(c.secret)) != 1 {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnw("websocket upgrade failed", "error", err)
		return
	}

	c.mu.Lock()
	if c.conn != nil {
		c.conn.Close()
	}
	c.conn = conn
	c.mu.Unlock()
	log.Infow("sidecar paired", "remote", r.RemoteAddr)

	for {
		var frame inboundFrame
		if err := conn.ReadJSON(&frame); err != nil {
			log.Infow("sidecar disconnected", "error", err)
			break
		}
		if frame.Sender == "" || frame.Text == "" {
			continue
		}

		reply := c.HandleMessage(ctx, frame.Text, frame.Sender)
		if reply == "" {
			continue
		}
		if err := c.writeFrame(outboundFrame{Address: frame.Sender, Text: reply}); err != nil {
			log.Warnw("writing reply failed", "error", err)
		}
	}

	c.mu.Lock()
	if c.conn == conn {
		c.conn = nil
	}
	c.mu.Unlock()
}

// Addr reports the bound listen address once the channel has started,
// useful when configured with port 0.
func (c *WhatsAppBridgeChannel) Addr() string {
	if c.addr == nil {
		return c.listen
	}
	return c.addr.String()
}

func (c *WhatsAppBridgeChannel) writeFrame(frame outboundFrame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrBridgeOffline
	}
	return c.conn.WriteJSON(frame)
}

func (c *WhatsAppBridgeChannel) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()

	if c.server != nil {
		return c.server.Shutdown(ctx)
	}
	return nil
}

// Deliver forwards a relay envelope to the paired sidecar. Attachments
// are inlined as base64 since the sidecar has no filesystem access to
// the gateway host.
func (c *WhatsAppBridgeChannel) Deliver(_ context.Context, env model.OutboundEnvelope) error {
	frame := outboundFrame{Address: env.Address, Text: env.Text}

	if env.AttachmentPath != "" {
		data, err := os.ReadFile(env.AttachmentPath)
		if err != nil {
			return fmt.Errorf("reading attachment: %w", err)
		}
		frame.Attachment = base64.StdEncoding.EncodeToString(data)
	}

	return c.writeFrame(frame)
}
