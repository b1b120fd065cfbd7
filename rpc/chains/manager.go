package chains

import (
	"database/sql"

	"github.com/luminawallet/lumina-go/params"
)

// Manager answers registry lookups. It owns no chain data itself: the table
// contents are a snapshot written by the embedder (plus experimental chains
// added through wallet_addEthereumChain / suggest-chain flows).
type Manager struct {
	db *sql.DB
}

func NewManager(db *sql.DB) (*Manager, error) {
	if _, err := db.Exec(chainsSchema); err != nil {
		return nil, err
	}
	return &Manager{db: db}, nil
}

// Init seeds the registry when it is empty. Used on first start and by tests.
func (m *Manager) Init(chains []params.Chain, networks []params.Network) error {
	current, err := m.GetChains()
	if err != nil {
		return err
	}
	if len(current) == 0 {
		for i := range chains {
			if err := m.UpsertChain(&chains[i]); err != nil {
				return err
			}
		}
	}

	currentNetworks, err := m.GetNetworks(false)
	if err != nil {
		return err
	}
	if len(currentNetworks) == 0 {
		for i := range networks {
			if err := m.UpsertNetwork(&networks[i]); err != nil {
				return err
			}
		}
	}

	return nil
}

func (m *Manager) UpsertChain(chain *params.Chain) error {
	_, err := m.db.Exec(
		"INSERT OR REPLACE INTO chains (chain_key, chain_name, chain_id, testnet_chain_id, lcd_url, rpc_url, evm_chain_id, base_denom, decimals, bech32_prefix, is_test, experimental) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		chain.ChainKey, chain.ChainName, chain.ChainID, chain.TestnetChainID,
		chain.LCDURL, chain.RPCURL, chain.EVMChainID, chain.BaseDenom,
		chain.Decimals, chain.Bech32Prefix, chain.IsTestnet, chain.Experimental,
	)
	return err
}

func (m *Manager) DeleteChain(chainKey string) error {
	_, err := m.db.Exec("DELETE FROM chains WHERE chain_key = ?", chainKey)
	return err
}

// GetChains returns every chain in the registry.
func (m *Manager) GetChains() ([]*params.Chain, error) {
	return newChainsQuery().exec(m.db)
}

// GetChainByKey finds a chain by its registry key.
func (m *Manager) GetChainByKey(chainKey string) (*params.Chain, error) {
	chains, err := newChainsQuery().filterChainKey(chainKey).exec(m.db)
	if err != nil {
		return nil, err
	}
	if len(chains) != 1 {
		return nil, ErrChainNotFound
	}
	return chains[0], nil
}

// GetChainByID finds a chain by its mainnet or testnet chain id.
func (m *Manager) GetChainByID(chainID string) (*params.Chain, error) {
	chains, err := newChainsQuery().filterChainID(chainID).exec(m.db)
	if err != nil {
		return nil, err
	}
	if len(chains) < 1 {
		return nil, ErrChainNotFound
	}
	return chains[0], nil
}

// GetChainByEVMChainID finds the account-based chain exposing the given EVM
// chain id, if any.
func (m *Manager) GetChainByEVMChainID(evmChainID uint64) (*params.Chain, error) {
	chains, err := newChainsQuery().filterEVMChainID(evmChainID).exec(m.db)
	if err != nil {
		return nil, err
	}
	if len(chains) < 1 {
		return nil, ErrChainNotFound
	}
	return chains[0], nil
}

// GetExperimentalChain returns a chain only if the user added it manually.
func (m *Manager) GetExperimentalChain(chainKey string) (*params.Chain, error) {
	chains, err := newChainsQuery().filterChainKey(chainKey).filterExperimental(true).exec(m.db)
	if err != nil {
		return nil, err
	}
	if len(chains) != 1 {
		return nil, ErrChainNotFound
	}
	return chains[0], nil
}

// SupportedChainIDs returns the ids accepted from enable-access requests:
// every mainnet id plus every non-empty testnet id.
func (m *Manager) SupportedChainIDs() ([]string, error) {
	chains, err := m.GetChains()
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(chains))
	for _, chain := range chains {
		ids = append(ids, chain.ChainID)
		if chain.TestnetChainID != "" {
			ids = append(ids, chain.TestnetChainID)
		}
	}
	return ids, nil
}

func (m *Manager) UpsertNetwork(network *params.Network) error {
	_, err := m.db.Exec(
		"INSERT OR REPLACE INTO networks (chain_id, chain_name, rpc_url, block_explorer_url, native_currency_name, native_currency_symbol, native_currency_decimals, is_test, enabled) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
		network.ChainID, network.ChainName, network.RPCURL, network.BlockExplorerURL,
		network.NativeCurrencyName, network.NativeCurrencySymbol, network.NativeCurrencyDecimals,
		network.IsTest, network.Enabled,
	)
	return err
}

func (m *Manager) DeleteNetwork(chainID uint64) error {
	_, err := m.db.Exec("DELETE FROM networks WHERE chain_id = ?", chainID)
	return err
}

// FindNetwork returns nil when the network is unknown.
func (m *Manager) FindNetwork(chainID uint64) *params.Network {
	networks, err := m.queryNetworks("SELECT chain_id, chain_name, rpc_url, block_explorer_url, native_currency_name, native_currency_symbol, native_currency_decimals, is_test, enabled FROM networks WHERE chain_id = ?", chainID)
	if len(networks) != 1 || err != nil {
		return nil
	}
	return networks[0]
}

// GetNetworks lists EVM networks, optionally only enabled ones.
func (m *Manager) GetNetworks(onlyEnabled bool) ([]*params.Network, error) {
	query := "SELECT chain_id, chain_name, rpc_url, block_explorer_url, native_currency_name, native_currency_symbol, native_currency_decimals, is_test, enabled FROM networks"
	if onlyEnabled {
		query += " WHERE enabled = TRUE"
	}
	return m.queryNetworks(query)
}

func (m *Manager) queryNetworks(query string, args ...interface{}) ([]*params.Network, error) {
	rows, err := m.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	var res []*params.Network
	defer rows.Close()
	for rows.Next() {
		network := params.Network{}
		err := rows.Scan(
			&network.ChainID, &network.ChainName, &network.RPCURL, &network.BlockExplorerURL,
			&network.NativeCurrencyName, &network.NativeCurrencySymbol, &network.NativeCurrencyDecimals,
			&network.IsTest, &network.Enabled,
		)
		if err != nil {
			return nil, err
		}
		res = append(res, &network)
	}
	return res, rows.Err()
}
