package approvals

import (
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakeWindows struct {
	mu      sync.Mutex
	open    map[string]Request
	openErr error
}

func (w *fakeWindows) Open(surfaceID string, req Request) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.openErr != nil {
		return w.openErr
	}
	if w.open == nil {
		w.open = make(map[string]Request)
	}
	w.open[surfaceID] = req
	return nil
}

func (w *fakeWindows) Close(surfaceID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.open[surfaceID]; !ok {
		return errors.New("no such window")
	}
	delete(w.open, surfaceID)
	return nil
}

func TestOrchestratorOpenClose(t *testing.T) {
	windows := &fakeWindows{}
	o := NewOrchestrator(windows, zaptest.NewLogger(t))

	surfaceID, err := o.OpenSurface(Request{Origin: "https://app.example", Kind: KindConnect})
	require.NoError(t, err)
	require.NotEmpty(t, surfaceID)
	assert.Equal(t, 1, o.OpenCount())

	o.CloseSurface(surfaceID)
	assert.Zero(t, o.OpenCount())

	// Closing twice is harmless.
	o.CloseSurface(surfaceID)
	assert.Zero(t, o.OpenCount())
}

func TestOrchestratorOpenFailure(t *testing.T) {
	windows := &fakeWindows{openErr: errors.New("window manager unavailable")}
	o := NewOrchestrator(windows, zaptest.NewLogger(t))

	_, err := o.OpenSurface(Request{Origin: "https://app.example"})
	require.Error(t, err)
	assert.Zero(t, o.OpenCount())
}

func TestOrchestratorMintsUniqueIDs(t *testing.T) {
	windows := &fakeWindows{}
	o := NewOrchestrator(windows, zaptest.NewLogger(t))

	first, err := o.OpenSurface(Request{Origin: "https://a.example"})
	require.NoError(t, err)
	second, err := o.OpenSurface(Request{Origin: "https://b.example"})
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}
