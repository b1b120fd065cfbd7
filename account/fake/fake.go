// Package fake provides an in-memory account.Manager for tests.
package fake

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/luminawallet/lumina-go/account"
)

// Manager is a test double for the wallet backend. Zero value is a backend
// with no wallet; call AddKey to create one.
type Manager struct {
	mu     sync.Mutex
	locked bool
	keys   map[string]*account.Key

	// Signature is returned from every signing call.
	Signature []byte
	// SignErr, when set, fails every signing call.
	SignErr error

	DisconnectedChains []string
}

func NewManager() *Manager {
	return &Manager{
		keys:      make(map[string]*account.Key),
		Signature: []byte{0x01, 0x02, 0x03},
	}
}

func (m *Manager) AddKey(chainKey string, key *account.Key) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys[chainKey] = key
}

func (m *Manager) SetLocked(locked bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locked = locked
}

func (m *Manager) HasWallet() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.keys) > 0
}

func (m *Manager) IsLocked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.locked
}

func (m *Manager) GetKey(_ context.Context, chainKey string) (*account.Key, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key, ok := m.keys[chainKey]
	if !ok {
		return nil, account.ErrNoSuchKey
	}
	return key, nil
}

func (m *Manager) sign(doc json.RawMessage) (*account.SignResponse, error) {
	if m.SignErr != nil {
		return nil, m.SignErr
	}
	return &account.SignResponse{Signature: m.Signature, SignedDoc: doc}, nil
}

func (m *Manager) SignDirect(_ context.Context, req account.SignDirectRequest) (*account.SignResponse, error) {
	raw, _ := json.Marshal(req)
	return m.sign(raw)
}

func (m *Manager) SignAmino(_ context.Context, req account.SignAminoRequest) (*account.SignResponse, error) {
	return m.sign(req.SignDoc)
}

func (m *Manager) SignEVMTransaction(_ context.Context, _ uint64, _ json.RawMessage) ([]byte, error) {
	if m.SignErr != nil {
		return nil, m.SignErr
	}
	return m.Signature, nil
}

func (m *Manager) PersonalSign(_ context.Context, _ common.Address, _ []byte) ([]byte, error) {
	if m.SignErr != nil {
		return nil, m.SignErr
	}
	return m.Signature, nil
}

func (m *Manager) SignTypedData(_ context.Context, _ common.Address, _ json.RawMessage) ([]byte, error) {
	if m.SignErr != nil {
		return nil, m.SignErr
	}
	return m.Signature, nil
}

func (m *Manager) Disconnect(_ context.Context, chainKey, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DisconnectedChains = append(m.DisconnectedChains, chainKey)
	return nil
}
