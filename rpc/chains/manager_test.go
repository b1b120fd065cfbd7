package chains

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luminawallet/lumina-go/params"
	"github.com/luminawallet/lumina-go/sqlite"
)

func setupManager(t *testing.T) *Manager {
	db, err := sqlite.OpenInMemoryDB()
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, db.Close()) })

	m, err := NewManager(db)
	require.NoError(t, err)

	require.NoError(t, m.UpsertChain(&params.Chain{
		ChainKey:       "lumina",
		ChainName:      "Lumina",
		ChainID:        "lumina-1",
		TestnetChainID: "lumina-testnet-3",
		EVMChainID:     9001,
		Bech32Prefix:   "lum",
	}))
	require.NoError(t, m.UpsertChain(&params.Chain{
		ChainKey:  "osmosis",
		ChainName: "Osmosis",
		ChainID:   "osmosis-1",
	}))
	require.NoError(t, m.UpsertNetwork(&params.Network{
		ChainID:   1,
		ChainName: "Ethereum Mainnet",
		RPCURL:    "https://rpc.eth.example",
		Enabled:   true,
	}))
	return m
}

func TestGetChainByKey(t *testing.T) {
	m := setupManager(t)

	chain, err := m.GetChainByKey("lumina")
	require.NoError(t, err)
	assert.Equal(t, "Lumina", chain.ChainName)

	_, err = m.GetChainByKey("unknown")
	require.ErrorIs(t, err, ErrChainNotFound)
}

func TestGetChainByIDMatchesTestnet(t *testing.T) {
	m := setupManager(t)

	chain, err := m.GetChainByID("lumina-1")
	require.NoError(t, err)
	assert.Equal(t, "lumina", chain.ChainKey)

	// The testnet variant id resolves to the same registry entry.
	chain, err = m.GetChainByID("lumina-testnet-3")
	require.NoError(t, err)
	assert.Equal(t, "lumina", chain.ChainKey)

	_, err = m.GetChainByID("lumina-99")
	require.ErrorIs(t, err, ErrChainNotFound)
}

func TestGetChainByEVMChainID(t *testing.T) {
	m := setupManager(t)

	chain, err := m.GetChainByEVMChainID(9001)
	require.NoError(t, err)
	assert.Equal(t, "lumina", chain.ChainKey)

	_, err = m.GetChainByEVMChainID(12345)
	require.ErrorIs(t, err, ErrChainNotFound)
}

func TestGetExperimentalChain(t *testing.T) {
	m := setupManager(t)

	// Registry-shipped chains are not experimental.
	_, err := m.GetExperimentalChain("lumina")
	require.ErrorIs(t, err, ErrChainNotFound)

	require.NoError(t, m.UpsertChain(&params.Chain{
		ChainKey:     "customchain",
		ChainID:      "customchain-1",
		LCDURL:       "https://lcd.custom.example",
		Experimental: true,
	}))

	chain, err := m.GetExperimentalChain("customchain")
	require.NoError(t, err)
	assert.Equal(t, "https://lcd.custom.example", chain.LCDURL)
}

func TestSupportedChainIDs(t *testing.T) {
	m := setupManager(t)

	ids, err := m.SupportedChainIDs()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"lumina-1", "lumina-testnet-3", "osmosis-1"}, ids)
}

func TestNetworks(t *testing.T) {
	m := setupManager(t)

	network := m.FindNetwork(1)
	require.NotNil(t, network)
	assert.Equal(t, "Ethereum Mainnet", network.ChainName)

	assert.Nil(t, m.FindNetwork(999999))

	require.NoError(t, m.UpsertNetwork(&params.Network{ChainID: 10, ChainName: "Optimism", RPCURL: "https://rpc.optimism.example"}))
	enabled, err := m.GetNetworks(true)
	require.NoError(t, err)
	assert.Len(t, enabled, 1)

	all, err := m.GetNetworks(false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	require.NoError(t, m.DeleteNetwork(10))
	all, err = m.GetNetworks(false)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestInitSeedsOnlyWhenEmpty(t *testing.T) {
	db, err := sqlite.OpenInMemoryDB()
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, db.Close()) })

	m, err := NewManager(db)
	require.NoError(t, err)

	seed := []params.Chain{{ChainKey: "lumina", ChainID: "lumina-1"}}
	require.NoError(t, m.Init(seed, nil))

	chains, err := m.GetChains()
	require.NoError(t, err)
	require.Len(t, chains, 1)

	// A second Init with a different seed is a no-op.
	require.NoError(t, m.Init([]params.Chain{{ChainKey: "other", ChainID: "other-1"}}, nil))
	chains, err = m.GetChains()
	require.NoError(t, err)
	require.Len(t, chains, 1)
	assert.Equal(t, "lumina", chains[0].ChainKey)
}
