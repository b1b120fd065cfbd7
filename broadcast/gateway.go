// Package broadcast is the transaction-broadcast gateway: it encodes a
// signed transaction for the target chain's transport, resolves a node
// endpoint and interprets the submission result.
package broadcast

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/luminawallet/lumina-go/params"
	"github.com/luminawallet/lumina-go/rpc/chains"
)

const submitTimeout = 30 * time.Second

var (
	// ErrEndpointResolution is returned when neither the experimental
	// registry nor the node directory can name an endpoint for the chain.
	ErrEndpointResolution = errors.New("unable to resolve broadcast endpoint")

	ErrEmptyTransaction = errors.New("empty transaction")
)

// DirectoryInterface lists candidate LCD endpoints for a chain key.
type DirectoryInterface interface {
	Endpoints(ctx context.Context, chainKey string) ([]string, error)
}

type Gateway struct {
	registry   *chains.Manager
	directory  DirectoryInterface
	httpClient *http.Client
	logger     *zap.Logger
}

func NewGateway(registry *chains.Manager, directory DirectoryInterface, logger *zap.Logger) *Gateway {
	return &Gateway{
		registry:   registry,
		directory:  directory,
		httpClient: &http.Client{Timeout: submitTimeout},
		logger:     logger.Named("broadcast"),
	}
}

// protoBroadcastBody is the body of /cosmos/tx/v1beta1/txs.
type protoBroadcastBody struct {
	TxBytes string `json:"tx_bytes"`
	Mode    string `json:"mode"`
}

// legacyBroadcastBody is the body of the pre-proto /txs endpoint.
type legacyBroadcastBody struct {
	Tx   json.RawMessage `json:"tx"`
	Mode string          `json:"mode"`
}

type txResponse struct {
	Code   int    `json:"code"`
	TxHash string `json:"txhash"`
	RawLog string `json:"raw_log"`
}

type protoBroadcastResponse struct {
	TxResponse *txResponse `json:"tx_response"`
}

func protoMode(mode params.BroadcastMode) string {
	switch mode {
	case params.BroadcastModeAsync:
		return "BROADCAST_MODE_ASYNC"
	case params.BroadcastModeBlock:
		return "BROADCAST_MODE_BLOCK"
	default:
		return "BROADCAST_MODE_SYNC"
	}
}

// isProtoEncoded decides the wire encoding from the shape of the input: a
// JSON object is a legacy envelope, anything decodable as base64 bytes is a
// proto-encoded TxRaw.
func isProtoEncoded(tx json.RawMessage) (raw []byte, proto bool) {
	trimmed := bytes.TrimSpace(tx)
	if len(trimmed) == 0 || trimmed[0] == '{' {
		return nil, false
	}

	// JSON strings of raw bytes arrive base64 encoded.
	var decoded []byte
	if err := json.Unmarshal(trimmed, &decoded); err == nil {
		return decoded, true
	}
	return nil, false
}

// Submit posts the transaction and returns its hash bytes. Failures are
// reported to the caller as-is: the gateway never retries on its own.
func (g *Gateway) Submit(ctx context.Context, chainKey string, tx json.RawMessage, mode params.BroadcastMode) ([]byte, error) {
	if len(bytes.TrimSpace(tx)) == 0 {
		return nil, ErrEmptyTransaction
	}

	endpoint, err := g.resolveEndpoint(ctx, chainKey)
	if err != nil {
		return nil, err
	}

	var url string
	var body interface{}
	if raw, proto := isProtoEncoded(tx); proto {
		url = endpoint + "/cosmos/tx/v1beta1/txs"
		body = protoBroadcastBody{
			TxBytes: base64.StdEncoding.EncodeToString(raw),
			Mode:    protoMode(mode),
		}
	} else {
		url = endpoint + "/txs"
		body = legacyBroadcastBody{
			Tx:   tx,
			Mode: string(mode),
		}
	}

	response, err := g.post(ctx, url, body)
	if err != nil {
		return nil, err
	}

	return interpretResponse(response)
}

// resolveEndpoint prefers a user-added experimental chain's own endpoint,
// then asks the node directory.
func (g *Gateway) resolveEndpoint(ctx context.Context, chainKey string) (string, error) {
	if chain, err := g.registry.GetExperimentalChain(chainKey); err == nil && chain.LCDURL != "" {
		return chain.LCDURL, nil
	}

	endpoints, err := g.directory.Endpoints(ctx, chainKey)
	if err != nil || len(endpoints) == 0 {
		g.logger.Warn("endpoint resolution failed", zap.String("chainKey", chainKey), zap.Error(err))
		return "", ErrEndpointResolution
	}
	return endpoints[0], nil
}

func (g *Gateway) post(ctx context.Context, url string, body interface{}) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "broadcast request failed")
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "reading broadcast response")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Errorf("node returned status %d: %s", resp.StatusCode, string(responseBody))
	}
	return responseBody, nil
}

// interpretResponse understands both the proto shape {tx_response: {...}}
// and the legacy top-level shape. Code 0 or absent means accepted; anything
// else fails with the node's raw log.
func interpretResponse(body []byte) ([]byte, error) {
	var protoResp protoBroadcastResponse
	if err := json.Unmarshal(body, &protoResp); err != nil {
		return nil, errors.Wrap(err, "malformed broadcast response")
	}

	result := protoResp.TxResponse
	if result == nil {
		var legacy txResponse
		if err := json.Unmarshal(body, &legacy); err != nil {
			return nil, errors.Wrap(err, "malformed broadcast response")
		}
		result = &legacy
	}

	if result.Code != 0 {
		return nil, errors.Errorf("broadcast failed with code %d: %s", result.Code, result.RawLog)
	}

	hash, err := hex.DecodeString(result.TxHash)
	if err != nil {
		return nil, errors.Wrap(err, "decoding tx hash")
	}
	return hash, nil
}
