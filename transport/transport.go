// Package transport is the multiplexer between page contexts and the broker:
// it accepts duplex websocket streams, tags every inbound message with the
// origin and ecosystem of its sender, and writes correlated responses back on
// the stream that produced the request. It also fans side-channel events
// (chain switches, approval lifecycle) out to all live streams of an origin.
package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/luminawallet/lumina-go/params"
	"github.com/luminawallet/lumina-go/services/broker/commands"
)

// Dispatcher is the broker API surface the hub feeds requests into.
type Dispatcher interface {
	CallRPC(ctx context.Context, request commands.RPCRequest) (interface{}, error)
}

// inboundMessage is the wire shape of one request. Older injected providers
// send "type" instead of "method"; both are accepted.
type inboundMessage struct {
	ID        json.RawMessage  `json:"id"`
	Method    string           `json:"method,omitempty"`
	Type      string           `json:"type,omitempty"`
	Ecosystem params.Ecosystem `json:"ecosystem,omitempty"`
	Payload   json.RawMessage  `json:"payload,omitempty"`
	Params    json.RawMessage  `json:"params,omitempty"`
}

func (m *inboundMessage) method() string {
	if m.Method != "" {
		return m.Method
	}
	return m.Type
}

func (m *inboundMessage) params() json.RawMessage {
	if len(m.Params) > 0 {
		return m.Params
	}
	return m.Payload
}

// responsePayload never mixes success with error.
type responsePayload struct {
	Success interface{} `json:"success,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type outboundMessage struct {
	Name    string          `json:"name"`
	Payload responsePayload `json:"payload"`
	ID      json.RawMessage `json:"id,omitempty"`
}

// ResponseName derives the outbound message name for a method:
// "eth_chainId" answers as "onETH_CHAINID".
func ResponseName(method string) string {
	return "on" + strings.ToUpper(method)
}

// Config carries the hub's security settings. Token is the secret the
// extension's own content scripts present during the handshake; anything
// else is dropped without a response.
type Config struct {
	Token string
}

type Hub struct {
	mu    sync.Mutex
	conns map[*Conn]struct{}

	dispatcher Dispatcher
	config     Config
	upgrader   websocket.Upgrader
	logger     *zap.Logger
}

func NewHub(dispatcher Dispatcher, config Config, logger *zap.Logger) *Hub {
	return &Hub{
		conns:      make(map[*Conn]struct{}),
		dispatcher: dispatcher,
		config:     config,
		upgrader: websocket.Upgrader{
			// Page origins are validated against the session layer, not
			// the HTTP Origin allowlist.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger.Named("transport"),
	}
}

// ServeHTTP upgrades a page context's stream. The sender identity check is a
// hard security invariant: a missing or wrong token means the peer is not
// one of our own injected providers, and the connection is dropped with no
// response at all.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.config.Token == "" || r.Header.Get("X-Broker-Token") != h.config.Token {
		h.logger.Warn("dropping untrusted stream", zap.String("remote", r.RemoteAddr))
		w.WriteHeader(http.StatusForbidden)
		return
	}

	origin := r.Header.Get("Origin")
	if origin == "" {
		origin = r.URL.Query().Get("origin")
	}
	if origin == "" {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Debug("upgrade failed", zap.Error(err))
		return
	}

	conn := newConn(h, ws, origin)
	h.mu.Lock()
	h.conns[conn] = struct{}{}
	h.mu.Unlock()

	go conn.writeLoop()
	go conn.readLoop()
}

func (h *Hub) removeConn(conn *Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
}

// NotifyOrigin delivers a side-channel event to every live stream of an
// origin. Streams that went away in the meantime are skipped silently.
func (h *Hub) NotifyOrigin(origin, name string, payload interface{}) {
	h.mu.Lock()
	targets := make([]*Conn, 0, len(h.conns))
	for conn := range h.conns {
		if conn.origin == origin {
			targets = append(targets, conn)
		}
	}
	h.mu.Unlock()

	for _, conn := range targets {
		conn.send(outboundMessage{
			Name:    name,
			Payload: responsePayload{Success: payload},
		})
	}
}

// signalEvent is the subset of broker signal envelopes the hub relays.
type signalEvent struct {
	Type  string `json:"type"`
	Event struct {
		Origin string `json:"origin"`
	} `json:"event"`
}

// HandleSignal relays a broker signal to the streams of the origin it names.
// Installed as the signal handler by the embedder; signals without an origin
// are for wallet surfaces only and are not forwarded to pages.
func (h *Hub) HandleSignal(jsonEvent string) {
	var parsed signalEvent
	if err := json.Unmarshal([]byte(jsonEvent), &parsed); err != nil || parsed.Event.Origin == "" {
		return
	}

	var full struct {
		Event json.RawMessage `json:"event"`
	}
	if err := json.Unmarshal([]byte(jsonEvent), &full); err != nil {
		return
	}

	h.NotifyOrigin(parsed.Event.Origin, parsed.Type, full.Event)
}

// Close tears every stream down.
func (h *Hub) Close() error {
	h.mu.Lock()
	conns := make([]*Conn, 0, len(h.conns))
	for conn := range h.conns {
		conns = append(conns, conn)
	}
	h.mu.Unlock()

	var err error
	for _, conn := range conns {
		err = multierr.Append(err, conn.close())
	}
	return err
}
