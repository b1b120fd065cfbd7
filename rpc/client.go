// Package rpc routes EVM JSON-RPC calls to the node endpoint of the chain a
// request resolved to. Connections are cached per chain id.
package rpc

import (
	"context"
	"sync"

	gethrpc "github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/luminawallet/lumina-go/rpc/chains"
)

// ClientInterface is the surface the broker commands depend on; tests swap in
// a fake that never dials out.
type ClientInterface interface {
	Call(ctx context.Context, chainID uint64, result interface{}, method string, args ...interface{}) error
}

type Client struct {
	mu         sync.RWMutex
	registry   *chains.Manager
	rpcClients map[uint64]*gethrpc.Client
	logger     *zap.Logger
}

func NewClient(registry *chains.Manager, logger *zap.Logger) *Client {
	return &Client{
		registry:   registry,
		rpcClients: make(map[uint64]*gethrpc.Client),
		logger:     logger.Named("rpcClient"),
	}
}

func (c *Client) getClientUsingCache(chainID uint64) (*gethrpc.Client, error) {
	c.mu.RLock()
	client, ok := c.rpcClients[chainID]
	c.mu.RUnlock()
	if ok {
		return client, nil
	}

	network := c.registry.FindNetwork(chainID)
	if network == nil {
		return nil, chains.ErrNetworkNotFound
	}
	if network.RPCURL == "" {
		return nil, errors.Errorf("network %d has no RPC URL", chainID)
	}

	client, err := gethrpc.Dial(network.RPCURL)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", network.RPCURL)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if cached, ok := c.rpcClients[chainID]; ok {
		client.Close()
		return cached, nil
	}
	c.rpcClients[chainID] = client
	return client, nil
}

// Call performs a JSON-RPC call against the node serving chainID.
func (c *Client) Call(ctx context.Context, chainID uint64, result interface{}, method string, args ...interface{}) error {
	client, err := c.getClientUsingCache(chainID)
	if err != nil {
		return err
	}

	err = client.CallContext(ctx, result, method, args...)
	if err != nil {
		c.logger.Debug("rpc call failed",
			zap.Uint64("chainID", chainID),
			zap.String("method", method),
			zap.Error(err))
	}
	return err
}

// Close tears down every cached connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, client := range c.rpcClients {
		client.Close()
		delete(c.rpcClients, id)
	}
}
