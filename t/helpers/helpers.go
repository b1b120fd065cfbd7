// Package helpers carries shared test fixtures: throwaway databases, a
// seeded chain registry and a logger that routes through the test runner.
package helpers

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/luminawallet/lumina-go/params"
	"github.com/luminawallet/lumina-go/rpc/chains"
	persistence "github.com/luminawallet/lumina-go/services/broker/database"
	"github.com/luminawallet/lumina-go/sqlite"
)

// SetupTestDB opens a throwaway in-memory database with the broker schema
// applied. The database is closed when the test finishes.
func SetupTestDB(t *testing.T) *sql.DB {
	db, err := sqlite.OpenInMemoryDB()
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, db.Close()) })

	require.NoError(t, persistence.InitSchema(db))
	return db
}

// Logger returns a zap logger wired to the test's log output.
func Logger(t *testing.T) *zap.Logger {
	return zaptest.NewLogger(t)
}

// TestChains is the registry fixture most broker tests share: two mainnet
// chains, a testnet variant and an EVM network.
var TestChains = []params.Chain{
	{
		ChainKey:       "lumina",
		ChainName:      "Lumina",
		ChainID:        "lumina-1",
		TestnetChainID: "lumina-testnet-3",
		LCDURL:         "https://lcd.lumina.example",
		BaseDenom:      "ulum",
		Decimals:       6,
		Bech32Prefix:   "lum",
	},
	{
		ChainKey:     "osmosis",
		ChainName:    "Osmosis",
		ChainID:      "osmosis-1",
		LCDURL:       "https://lcd.osmosis.example",
		BaseDenom:    "uosmo",
		Decimals:     6,
		Bech32Prefix: "osmo",
	},
}

var TestNetworks = []params.Network{
	{
		ChainID:   1,
		ChainName: "Ethereum Mainnet",
		RPCURL:    "https://rpc.eth.example",
		Enabled:   true,
	},
	{
		ChainID:   10,
		ChainName: "Optimism",
		RPCURL:    "https://rpc.optimism.example",
		Enabled:   true,
	},
}

// SetupChainRegistry builds a registry on its own in-memory database and
// seeds it with the shared fixtures.
func SetupChainRegistry(t *testing.T) *chains.Manager {
	db, err := sqlite.OpenInMemoryDB()
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, db.Close()) })

	manager, err := chains.NewManager(db)
	require.NoError(t, err)

	for i := range TestChains {
		require.NoError(t, manager.UpsertChain(&TestChains[i]))
	}
	for i := range TestNetworks {
		require.NoError(t, manager.UpsertNetwork(&TestNetworks[i]))
	}
	return manager
}
