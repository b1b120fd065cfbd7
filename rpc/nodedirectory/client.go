// Package nodedirectory resolves candidate broadcast endpoints for a chain
// key from a remote directory service. Lookups are cached for a short time
// and the remote fetch is circuit-broken so a dead directory fails fast.
package nodedirectory

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/luminawallet/lumina-go/circuitbreaker"
)

const (
	cacheTTL     = 10 * time.Minute
	fetchTimeout = 15 * time.Second
)

// ErrNoEndpoints is returned when the directory knows the chain but lists no
// usable endpoints, or does not know the chain at all.
var ErrNoEndpoints = errors.New("node directory has no endpoints for chain")

type directoryResponse struct {
	ChainKey     string   `json:"chainKey"`
	LCDEndpoints []string `json:"lcdEndpoints"`
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      *ttlcache.Cache[string, []string]
	breaker    *circuitbreaker.CircuitBreaker
	logger     *zap.Logger
}

func NewClient(baseURL string, logger *zap.Logger) *Client {
	cache := ttlcache.New[string, []string](
		ttlcache.WithTTL[string, []string](cacheTTL),
		ttlcache.WithDisableTouchOnHit[string, []string](),
	)
	go cache.Start()

	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: fetchTimeout},
		cache:      cache,
		breaker: circuitbreaker.NewCircuitBreaker(circuitbreaker.Config{
			Timeout:               int(fetchTimeout / time.Millisecond),
			MaxConcurrentRequests: 10,
			SleepWindow:           5000,
			ErrorPercentThreshold: 50,
		}),
		logger: logger.Named("nodeDirectory"),
	}
}

// Endpoints returns candidate LCD endpoints for the chain, most preferred
// first.
func (c *Client) Endpoints(ctx context.Context, chainKey string) ([]string, error) {
	if item := c.cache.Get(chainKey); item != nil {
		return item.Value(), nil
	}

	cmd := circuitbreaker.NewCommand(ctx, []*circuitbreaker.Functor{
		circuitbreaker.NewFunctor(func() ([]any, error) {
			endpoints, err := c.fetch(ctx, chainKey)
			if err != nil {
				return nil, err
			}
			return []any{endpoints}, nil
		}, "nodeDirectory"),
	})

	result := c.breaker.Execute(cmd)
	if result.Error() != nil {
		return nil, result.Error()
	}

	endpoints := result.Result()[0].([]string)
	c.cache.Set(chainKey, endpoints, ttlcache.DefaultTTL)
	return endpoints, nil
}

func (c *Client) fetch(ctx context.Context, chainKey string) ([]string, error) {
	url := fmt.Sprintf("%s/v1/chains/%s/endpoints", c.baseURL, chainKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "node directory request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("node directory returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var decoded directoryResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, errors.Wrap(err, "malformed node directory response")
	}

	if len(decoded.LCDEndpoints) == 0 {
		return nil, ErrNoEndpoints
	}

	c.logger.Debug("resolved endpoints",
		zap.String("chainKey", chainKey),
		zap.Int("count", len(decoded.LCDEndpoints)))

	return decoded.LCDEndpoints, nil
}

// Stop releases the cache janitor.
func (c *Client) Stop() {
	c.cache.Stop()
}
