package approvals

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// WindowAPI is the embedder-provided capability that actually opens and
// closes popup windows. The orchestrator never touches windows directly.
type WindowAPI interface {
	Open(surfaceID string, req Request) error
	Close(surfaceID string) error
}

// Orchestrator is the default SurfaceOpener. It mints surface ids, keeps the
// set of currently open surfaces, and forwards open/close to the embedder.
type Orchestrator struct {
	mu      sync.Mutex
	windows WindowAPI
	open    map[string]Request
	logger  *zap.Logger
}

func NewOrchestrator(windows WindowAPI, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{
		windows: windows,
		open:    make(map[string]Request),
		logger:  logger.Named("popups"),
	}
}

func (o *Orchestrator) OpenSurface(req Request) (string, error) {
	surfaceID := uuid.New().String()

	if err := o.windows.Open(surfaceID, req); err != nil {
		return "", err
	}

	o.mu.Lock()
	o.open[surfaceID] = req
	o.mu.Unlock()

	o.logger.Debug("opened approval surface",
		zap.String("surfaceID", surfaceID),
		zap.String("origin", req.Origin),
		zap.String("kind", string(req.Kind)))

	return surfaceID, nil
}

func (o *Orchestrator) CloseSurface(surfaceID string) {
	o.mu.Lock()
	_, known := o.open[surfaceID]
	delete(o.open, surfaceID)
	o.mu.Unlock()

	if !known {
		return
	}
	if err := o.windows.Close(surfaceID); err != nil {
		// The surface may already be gone; closing is best effort.
		o.logger.Debug("close approval surface", zap.String("surfaceID", surfaceID), zap.Error(err))
	}
}

// OpenCount reports how many surfaces are currently open.
func (o *Orchestrator) OpenCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.open)
}
