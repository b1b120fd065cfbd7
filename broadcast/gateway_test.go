package broadcast

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/luminawallet/lumina-go/params"
	"github.com/luminawallet/lumina-go/rpc/chains"
	"github.com/luminawallet/lumina-go/sqlite"
)

type stubDirectory struct {
	endpoints []string
	err       error
}

func (d *stubDirectory) Endpoints(_ context.Context, _ string) ([]string, error) {
	return d.endpoints, d.err
}

func emptyRegistry(t *testing.T) *chains.Manager {
	db, err := sqlite.OpenInMemoryDB()
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, db.Close()) })
	registry, err := chains.NewManager(db)
	require.NoError(t, err)
	return registry
}

func TestSubmitProtoEncoded(t *testing.T) {
	var gotPath string
	var gotBody protoBroadcastBody
	node := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &gotBody))
		_, _ = w.Write([]byte(`{"tx_response": {"code": 0, "txhash": "AA"}}`))
	}))
	defer node.Close()

	gateway := NewGateway(emptyRegistry(t), &stubDirectory{endpoints: []string{node.URL}}, zaptest.NewLogger(t))

	txBytes := []byte{0x0a, 0x01, 0x02}
	tx, err := json.Marshal(txBytes)
	require.NoError(t, err)

	hash, err := gateway.Submit(context.Background(), "lumina", tx, params.BroadcastModeSync)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA}, hash)

	assert.Equal(t, "/cosmos/tx/v1beta1/txs", gotPath)
	assert.Equal(t, base64.StdEncoding.EncodeToString(txBytes), gotBody.TxBytes)
	assert.Equal(t, "BROADCAST_MODE_SYNC", gotBody.Mode)
}

func TestSubmitLegacyEnvelope(t *testing.T) {
	var gotPath string
	var gotBody legacyBroadcastBody
	node := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &gotBody))
		_, _ = w.Write([]byte(`{"code": 0, "txhash": "BB"}`))
	}))
	defer node.Close()

	gateway := NewGateway(emptyRegistry(t), &stubDirectory{endpoints: []string{node.URL}}, zaptest.NewLogger(t))

	tx := json.RawMessage(`{"msg": [], "fee": {"amount": []}, "signatures": []}`)
	hash, err := gateway.Submit(context.Background(), "lumina", tx, params.BroadcastModeBlock)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xBB}, hash)

	assert.Equal(t, "/txs", gotPath)
	assert.Equal(t, "block", gotBody.Mode)
	assert.JSONEq(t, string(tx), string(gotBody.Tx))
}

func TestSubmitNodeRejection(t *testing.T) {
	node := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"tx_response": {"code": 5, "txhash": "", "raw_log": "out of gas"}}`))
	}))
	defer node.Close()

	gateway := NewGateway(emptyRegistry(t), &stubDirectory{endpoints: []string{node.URL}}, zaptest.NewLogger(t))

	tx, _ := json.Marshal([]byte{0x01})
	_, err := gateway.Submit(context.Background(), "lumina", tx, params.BroadcastModeSync)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "code 5")
	assert.Contains(t, err.Error(), "out of gas")
}

func TestSubmitEmptyTransaction(t *testing.T) {
	gateway := NewGateway(emptyRegistry(t), &stubDirectory{}, zaptest.NewLogger(t))
	_, err := gateway.Submit(context.Background(), "lumina", json.RawMessage("  "), params.BroadcastModeSync)
	require.ErrorIs(t, err, ErrEmptyTransaction)
}

func TestSubmitEndpointResolutionFailure(t *testing.T) {
	directory := &stubDirectory{err: errors.New("directory unreachable")}
	gateway := NewGateway(emptyRegistry(t), directory, zaptest.NewLogger(t))

	tx, _ := json.Marshal([]byte{0x01})
	_, err := gateway.Submit(context.Background(), "lumina", tx, params.BroadcastModeSync)
	require.ErrorIs(t, err, ErrEndpointResolution)
}

func TestSubmitPrefersExperimentalChainEndpoint(t *testing.T) {
	node := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"tx_response": {"code": 0, "txhash": "CC"}}`))
	}))
	defer node.Close()

	registry := emptyRegistry(t)
	require.NoError(t, registry.UpsertChain(&params.Chain{
		ChainKey:     "customchain",
		ChainID:      "customchain-1",
		LCDURL:       node.URL,
		Experimental: true,
	}))

	// The directory failing does not matter once the user's own endpoint wins.
	gateway := NewGateway(registry, &stubDirectory{err: errors.New("unreachable")}, zaptest.NewLogger(t))

	tx, _ := json.Marshal([]byte{0x01})
	hash, err := gateway.Submit(context.Background(), "customchain", tx, params.BroadcastModeSync)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xCC}, hash)
}

func TestIsProtoEncoded(t *testing.T) {
	raw, proto := isProtoEncoded(json.RawMessage(`"CgEC"`))
	require.True(t, proto)
	assert.Equal(t, []byte{0x0a, 0x01, 0x02}, raw)

	_, proto = isProtoEncoded(json.RawMessage(`{"msg": []}`))
	assert.False(t, proto)

	_, proto = isProtoEncoded(json.RawMessage(``))
	assert.False(t, proto)
}
