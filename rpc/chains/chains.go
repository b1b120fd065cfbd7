// Package chains is the read-only chain registry adapter of the broker. It
// keeps a persisted snapshot of account-based chains and EVM networks and
// answers key/id lookups for both mainnet and testnet variants.
package chains

import (
	"bytes"
	"database/sql"
	"errors"

	"github.com/luminawallet/lumina-go/params"
)

var (
	ErrChainNotFound   = errors.New("chain not found in registry")
	ErrNetworkNotFound = errors.New("network not found in registry")
)

const chainsSchema = `
CREATE TABLE IF NOT EXISTS chains (
	chain_key TEXT PRIMARY KEY,
	chain_name TEXT NOT NULL DEFAULT "",
	chain_id TEXT NOT NULL,
	testnet_chain_id TEXT NOT NULL DEFAULT "",
	lcd_url TEXT NOT NULL DEFAULT "",
	rpc_url TEXT NOT NULL DEFAULT "",
	evm_chain_id UNSIGNED BIGINT NOT NULL DEFAULT 0,
	base_denom TEXT NOT NULL DEFAULT "",
	decimals UNSIGNED INT NOT NULL DEFAULT 0,
	bech32_prefix TEXT NOT NULL DEFAULT "",
	is_test BOOLEAN NOT NULL DEFAULT FALSE,
	experimental BOOLEAN NOT NULL DEFAULT FALSE
) WITHOUT ROWID;
CREATE TABLE IF NOT EXISTS networks (
	chain_id UNSIGNED BIGINT PRIMARY KEY,
	chain_name TEXT NOT NULL DEFAULT "",
	rpc_url TEXT NOT NULL,
	block_explorer_url TEXT NOT NULL DEFAULT "",
	native_currency_name TEXT NOT NULL DEFAULT "",
	native_currency_symbol TEXT NOT NULL DEFAULT "",
	native_currency_decimals UNSIGNED INT NOT NULL DEFAULT 0,
	is_test BOOLEAN NOT NULL DEFAULT FALSE,
	enabled BOOLEAN NOT NULL DEFAULT TRUE
) WITHOUT ROWID;
`

const baseChainsQuery = "SELECT chain_key, chain_name, chain_id, testnet_chain_id, lcd_url, rpc_url, evm_chain_id, base_denom, decimals, bech32_prefix, is_test, experimental FROM chains"

type chainsQuery struct {
	buf   *bytes.Buffer
	args  []interface{}
	added bool
}

func newChainsQuery() *chainsQuery {
	buf := bytes.NewBuffer(nil)
	buf.WriteString(baseChainsQuery)
	return &chainsQuery{buf: buf}
}

func (cq *chainsQuery) andOrWhere() {
	if cq.added {
		cq.buf.WriteString(" AND")
	} else {
		cq.buf.WriteString(" WHERE")
	}
}

func (cq *chainsQuery) filterChainKey(chainKey string) *chainsQuery {
	cq.andOrWhere()
	cq.added = true
	cq.buf.WriteString(" chain_key = ?")
	cq.args = append(cq.args, chainKey)
	return cq
}

func (cq *chainsQuery) filterChainID(chainID string) *chainsQuery {
	cq.andOrWhere()
	cq.added = true
	cq.buf.WriteString(" (chain_id = ? OR testnet_chain_id = ?)")
	cq.args = append(cq.args, chainID, chainID)
	return cq
}

func (cq *chainsQuery) filterEVMChainID(evmChainID uint64) *chainsQuery {
	cq.andOrWhere()
	cq.added = true
	cq.buf.WriteString(" evm_chain_id = ?")
	cq.args = append(cq.args, evmChainID)
	return cq
}

func (cq *chainsQuery) filterExperimental(experimental bool) *chainsQuery {
	cq.andOrWhere()
	cq.added = true
	cq.buf.WriteString(" experimental = ?")
	cq.args = append(cq.args, experimental)
	return cq
}

func (cq *chainsQuery) exec(db *sql.DB) ([]*params.Chain, error) {
	rows, err := db.Query(cq.buf.String(), cq.args...)
	if err != nil {
		return nil, err
	}
	var res []*params.Chain
	defer rows.Close()
	for rows.Next() {
		chain := params.Chain{}
		err := rows.Scan(
			&chain.ChainKey, &chain.ChainName, &chain.ChainID, &chain.TestnetChainID,
			&chain.LCDURL, &chain.RPCURL, &chain.EVMChainID, &chain.BaseDenom,
			&chain.Decimals, &chain.Bech32Prefix, &chain.IsTestnet, &chain.Experimental,
		)
		if err != nil {
			return nil, err
		}
		res = append(res, &chain)
	}

	return res, rows.Err()
}
