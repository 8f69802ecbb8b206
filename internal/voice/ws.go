package voice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/chadiek/speaking-coach/internal/logger"
)

// ErrNotConfigured is returned when no voice service URL is set.
var ErrNotConfigured = errors.New("voice: service url not configured")

type outboundFrame struct {
	Type               string           `json:"type"`
	Assistant          *AssistantConfig `json:"assistant,omitempty"`
	AssistantOverrides *Overrides       `json:"assistantOverrides,omitempty"`
	Control            string           `json:"control,omitempty"`
}

type inboundFrame struct {
	Type    EventType `json:"type"`
	Message *Message  `json:"message,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// WSTransport runs one call against the voice service over a websocket.
// Events are dispatched from a single read goroutine in arrival order.
type WSTransport struct {
	url    string
	apiKey string
	dialer websocket.Dialer
	hub    *Hub
	log    *zap.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	muted     bool

	writeMu sync.Mutex
}

func NewWSTransport(url, apiKey string) *WSTransport {
	return &WSTransport{
		url:    url,
		apiKey: apiKey,
		dialer: websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		hub:    NewHub(),
		log:    logger.Named("voice"),
	}
}

// Subscribe registers fn for events of type t.
func (t *WSTransport) Subscribe(et EventType, fn Handler) Unsubscribe {
	return t.hub.Subscribe(et, fn)
}

// Start dials the voice service and asks it to start a call with cfg.
// It returns once the start request has been sent; "call-start" follows
// when the service has connected the call.
func (t *WSTransport) Start(ctx context.Context, cfg AssistantConfig, ov Overrides) error {
	if t.url == "" {
		return ErrNotConfigured
	}
	t.mu.Lock()
	if t.connected {
		t.mu.Unlock()
		return nil
	}
	t.mu.Unlock()

	headers := http.Header{}
	if t.apiKey != "" {
		headers.Set("Authorization", "Bearer "+t.apiKey)
	}
	conn, resp, err := t.dialer.DialContext(ctx, t.url, headers)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("voice: dial failed with status %d: %w", resp.StatusCode, err)
		}
		return fmt.Errorf("voice: dial: %w", err)
	}

	if err := t.writeFrame(conn, outboundFrame{Type: "start", Assistant: &cfg, AssistantOverrides: &ov}); err != nil {
		_ = conn.Close()
		return fmt.Errorf("voice: send start: %w", err)
	}

	t.mu.Lock()
	t.conn = conn
	t.connected = true
	t.muted = false
	t.mu.Unlock()

	go t.readLoop(conn)
	t.log.Info("voice call requested", zap.String("assistant", cfg.Name))
	return nil
}

// Stop ends the call and closes the connection. It is idempotent.
func (t *WSTransport) Stop() error {
	t.mu.Lock()
	if !t.connected {
		t.mu.Unlock()
		return nil
	}
	conn := t.conn
	t.connected = false
	t.conn = nil
	t.mu.Unlock()

	_ = t.writeFrame(conn, outboundFrame{Type: "stop"})
	t.writeMu.Lock()
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "call ended"), time.Now().Add(time.Second))
	t.writeMu.Unlock()
	return conn.Close()
}

// SetMuted mutes or unmutes the learner's microphone.
func (t *WSTransport) SetMuted(muted bool) error {
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil {
		return errors.New("voice: no active call")
	}
	control := "unmute"
	if muted {
		control = "mute"
	}
	if err := t.writeFrame(conn, outboundFrame{Type: "control", Control: control}); err != nil {
		return fmt.Errorf("voice: %s: %w", control, err)
	}
	t.mu.Lock()
	t.muted = muted
	t.mu.Unlock()
	return nil
}

func (t *WSTransport) IsMuted() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.muted
}

func (t *WSTransport) writeFrame(conn *websocket.Conn, f outboundFrame) error {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteJSON(f)
}

// readLoop exits when the connection closes. A close requested through Stop
// is silent, as is the loss of a connection a later Start has replaced; any
// other loss is reported as an error event.
func (t *WSTransport) readLoop(conn *websocket.Conn) {
	defer func() {
		if r := recover(); r != nil {
			t.log.Error("recovered from panic in voice read loop", zap.Any("panic", r))
		}
	}()
	ended := false
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.mu.Lock()
			intentional := t.conn != conn
			if !intentional {
				t.connected = false
				t.conn = nil
			}
			t.mu.Unlock()
			if !intentional && !ended && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				t.hub.Emit(Event{Type: EventError, Err: fmt.Errorf("voice: connection lost: %w", err)})
			} else if !intentional && !ended {
				t.hub.Emit(Event{Type: EventCallEnd})
			}
			return
		}

		var f inboundFrame
		if err := json.Unmarshal(data, &f); err != nil {
			t.log.Warn("dropping malformed voice frame", zap.Error(err))
			continue
		}
		switch f.Type {
		case EventMessage:
			t.hub.Emit(Event{Type: EventMessage, Message: f.Message})
		case EventError:
			msg := f.Error
			if msg == "" {
				msg = "unknown error"
			}
			t.hub.Emit(Event{Type: EventError, Err: fmt.Errorf("voice: %s", msg)})
		case EventCallEnd:
			ended = true
			t.hub.Emit(Event{Type: EventCallEnd})
		case EventCallStart, EventSpeechStart, EventSpeechEnd:
			t.hub.Emit(Event{Type: f.Type})
		default:
			t.log.Debug("ignoring voice frame", zap.String("type", string(f.Type)))
		}
	}
}
