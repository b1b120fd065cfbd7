package transport

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/luminawallet/lumina-go/services/broker/commands"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 1 << 20
)

// Conn is one page context's stream. All writes go through writeCh so the
// single writer invariant of the underlying websocket holds; once the stream
// is torn down, send becomes a no-op.
type Conn struct {
	hub    *Hub
	ws     *websocket.Conn
	origin string

	writeCh   chan []byte
	closeOnce sync.Once
	quit      chan struct{}
}

func newConn(hub *Hub, ws *websocket.Conn, origin string) *Conn {
	ws.SetReadLimit(maxMessageSize)
	return &Conn{
		hub:     hub,
		ws:      ws,
		origin:  origin,
		writeCh: make(chan []byte, 16),
		quit:    make(chan struct{}),
	}
}

func (c *Conn) readLoop() {
	defer c.close()

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.hub.logger.Debug("read failed", zap.String("origin", c.origin), zap.Error(err))
			}
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.hub.logger.Debug("dropping malformed message", zap.String("origin", c.origin), zap.Error(err))
			continue
		}
		if msg.method() == "" {
			c.send(outboundMessage{
				Name:    "onERROR",
				Payload: responsePayload{Error: "missing method"},
				ID:      msg.ID,
			})
			continue
		}

		// Handlers block on user consent, so each request runs off the
		// read loop. The response carries the request id back, which is
		// what keeps interleaved requests correlated.
		go c.dispatch(msg)
	}
}

func (c *Conn) dispatch(msg inboundMessage) {
	request := commands.RPCRequest{
		JSONRPC:   "2.0",
		ID:        msg.ID,
		Origin:    c.origin,
		Ecosystem: msg.Ecosystem,
		Method:    msg.method(),
		Params:    msg.params(),
	}

	result, err := c.hub.dispatcher.CallRPC(context.Background(), request)

	out := outboundMessage{
		Name: ResponseName(request.Method),
		ID:   msg.ID,
	}
	if err != nil {
		out.Payload = responsePayload{Error: err.Error()}
	} else {
		out.Payload = responsePayload{Success: result}
	}
	c.send(out)
}

func (c *Conn) send(msg outboundMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		c.hub.logger.Error("marshaling outbound message", zap.Error(err))
		return
	}

	select {
	case <-c.quit:
	case c.writeCh <- data:
	}
}

func (c *Conn) writeLoop() {
	defer c.ws.Close()

	for {
		select {
		case <-c.quit:
			deadline := time.Now().Add(writeWait)
			_ = c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
			return
		case data := <-c.writeCh:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.hub.logger.Debug("write failed", zap.String("origin", c.origin), zap.Error(err))
				c.close()
				return
			}
		}
	}
}

func (c *Conn) close() error {
	c.closeOnce.Do(func() {
		close(c.quit)
		c.hub.removeConn(c)
	})
	return nil
}
