package commands

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"testing"

	"go.uber.org/zap/zaptest"

	"github.com/luminawallet/lumina-go/approvals"
	"github.com/luminawallet/lumina-go/params"
	"github.com/luminawallet/lumina-go/rpc/chains"
	"github.com/luminawallet/lumina-go/t/helpers"
)

const testOrigin = "https://dapp.example"

// fakeApprovals answers every consent question with a canned decision and
// records what was asked.
type fakeApprovals struct {
	mu       sync.Mutex
	decision approvals.Decision
	err      error
	requests []approvals.Request
}

func approveAll() *fakeApprovals {
	return &fakeApprovals{decision: approvals.Decision{Approved: true}}
}

func rejectAll() *fakeApprovals {
	return &fakeApprovals{decision: approvals.Decision{Approved: false}}
}

func (f *fakeApprovals) RequestApproval(req approvals.Request) (approvals.Decision, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return approvals.Decision{}, f.err
	}
	return f.decision, nil
}

func (f *fakeApprovals) requestCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakeApprovals) lastRequest() approvals.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

// fakeRPCClient records node calls and answers them from a canned result.
type fakeRPCClient struct {
	mu      sync.Mutex
	result  json.RawMessage
	err     error
	calls   []string
	chainID uint64
}

func (c *fakeRPCClient) Call(_ context.Context, chainID uint64, result interface{}, method string, _ ...interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, method)
	c.chainID = chainID
	if c.err != nil {
		return c.err
	}
	if result != nil && len(c.result) > 0 {
		return json.Unmarshal(c.result, result)
	}
	return nil
}

func (c *fakeRPCClient) Close() {}

func newTestResolver(t *testing.T) (*ChainResolver, *sql.DB, *chains.Manager) {
	db := helpers.SetupTestDB(t)
	registry := helpers.SetupChainRegistry(t)
	resolver := &ChainResolver{
		Db:       db,
		Registry: registry,
		Config: params.BrokerConfig{
			DefaultChainKey:   "lumina",
			DefaultEVMChainID: 1,
		},
		Logger: zaptest.NewLogger(t),
	}
	return resolver, db, registry
}

func newRequest(method string, ecosystem params.Ecosystem, paramsJSON string) RPCRequest {
	req := RPCRequest{
		JSONRPC:   "2.0",
		ID:        json.RawMessage(`1`),
		Origin:    testOrigin,
		Ecosystem: ecosystem,
		Method:    method,
	}
	if paramsJSON != "" {
		req.Params = json.RawMessage(paramsJSON)
	}
	return req
}
