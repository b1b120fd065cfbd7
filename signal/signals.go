package signal

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"
)

// Envelope is a general signal sent to the UI surfaces attached to the
// broker. It is pretty much JSON, but we keep it as a struct for
// documentation purposes.
type Envelope struct {
	Type  string      `json:"type"`
	Event interface{} `json:"event"`
}

// NewEnvelope creates new envlope of given type and event payload.
func NewEnvelope(typ string, event interface{}) *Envelope {
	return &Envelope{
		Type:  typ,
		Event: event,
	}
}

// NodeNotificationHandler defines a handler able to process incoming node events.
// Events are encoded as JSON strings.
type NodeNotificationHandler func(jsonEvent string)

var (
	handlerMu sync.RWMutex
	handler   NodeNotificationHandler
	logger    = zap.NewNop()
)

// SetLogger overrides the package logger.
func SetLogger(l *zap.Logger) {
	if l != nil {
		logger = l
	}
}

// SetDefaultNodeNotificationHandler sets notification handler to invoke on send.
func SetDefaultNodeNotificationHandler(fn NodeNotificationHandler) {
	handlerMu.Lock()
	defer handlerMu.Unlock()
	handler = fn
}

// ResetDefaultNodeNotificationHandler drops the installed handler.
func ResetDefaultNodeNotificationHandler() {
	handlerMu.Lock()
	defer handlerMu.Unlock()
	handler = nil
}

// send marshals the event into an envelope and hands it to the installed
// handler. Dropping events when no handler is installed is deliberate: the
// UI re-reads persisted state on attach, signals are only a fast path.
func send(typ string, event interface{}) {
	handlerMu.RLock()
	fn := handler
	handlerMu.RUnlock()
	if fn == nil {
		return
	}

	data, err := json.Marshal(NewEnvelope(typ, event))
	if err != nil {
		logger.Error("marshal signal envelope", zap.String("type", typ), zap.Error(err))
		return
	}
	fn(string(data))
}
