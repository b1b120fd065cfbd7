package persistence

import (
	"database/sql"

	"github.com/luminawallet/lumina-go/params"
)

const schema = `
CREATE TABLE IF NOT EXISTS broker_sessions (
	origin TEXT NOT NULL,
	ecosystem TEXT NOT NULL,
	chain_key TEXT NOT NULL DEFAULT "",
	evm_chain_id UNSIGNED BIGINT NOT NULL DEFAULT 0,
	shared_account TEXT NOT NULL DEFAULT "",
	name TEXT NOT NULL DEFAULT "",
	icon_url TEXT NOT NULL DEFAULT "",
	PRIMARY KEY (origin, ecosystem)
) WITHOUT ROWID;
CREATE TABLE IF NOT EXISTS broker_granted_chains (
	origin TEXT NOT NULL,
	chain_id TEXT NOT NULL,
	PRIMARY KEY (origin, chain_id)
) WITHOUT ROWID;
CREATE TABLE IF NOT EXISTS broker_suggested_tokens (
	origin TEXT NOT NULL,
	chain_key TEXT NOT NULL,
	contract_address TEXT NOT NULL DEFAULT "",
	denom TEXT NOT NULL DEFAULT "",
	is_cw20 BOOLEAN NOT NULL DEFAULT FALSE,
	PRIMARY KEY (origin, chain_key, contract_address, denom)
) WITHOUT ROWID;
`

// InitSchema creates the broker tables.
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}

// Session is the per-origin record binding an origin to its active chain.
// Exactly one row exists per (origin, ecosystem); it is only removed by an
// explicit disconnect.
type Session struct {
	Origin        string           `json:"origin"`
	Ecosystem     params.Ecosystem `json:"ecosystem"`
	ChainKey      string           `json:"chainKey,omitempty"`
	EVMChainID    uint64           `json:"evmChainId,omitempty"`
	SharedAccount string           `json:"sharedAccount,omitempty"`
	Name          string           `json:"name,omitempty"`
	IconURL       string           `json:"iconUrl,omitempty"`
}

const upsertSessionQuery = "INSERT INTO broker_sessions (origin, ecosystem, chain_key, evm_chain_id, shared_account, name, icon_url) VALUES (?, ?, ?, ?, ?, ?, ?) ON CONFLICT(origin, ecosystem) DO UPDATE SET chain_key = excluded.chain_key, evm_chain_id = excluded.evm_chain_id, shared_account = excluded.shared_account, name = excluded.name, icon_url = excluded.icon_url"
const selectSessionQuery = "SELECT chain_key, evm_chain_id, shared_account, name, icon_url FROM broker_sessions WHERE origin = ? AND ecosystem = ?"
const deleteSessionQuery = "DELETE FROM broker_sessions WHERE origin = ? AND ecosystem = ?"

func UpsertSession(db *sql.DB, session *Session) error {
	_, err := db.Exec(upsertSessionQuery, session.Origin, session.Ecosystem,
		session.ChainKey, session.EVMChainID, session.SharedAccount, session.Name, session.IconURL)
	return err
}

// SelectSession returns nil when the origin never connected.
func SelectSession(db *sql.DB, origin string, ecosystem params.Ecosystem) (*Session, error) {
	session := &Session{
		Origin:    origin,
		Ecosystem: ecosystem,
	}
	err := db.QueryRow(selectSessionQuery, origin, ecosystem).Scan(
		&session.ChainKey, &session.EVMChainID, &session.SharedAccount, &session.Name, &session.IconURL)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return session, err
}

func DeleteSession(db *sql.DB, origin string, ecosystem params.Ecosystem) error {
	_, err := db.Exec(deleteSessionQuery, origin, ecosystem)
	return err
}

// GrantChains records user-approved chain connections for an origin.
func GrantChains(db *sql.DB, origin string, chainIDs []string) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	for _, chainID := range chainIDs {
		if _, err := tx.Exec("INSERT OR IGNORE INTO broker_granted_chains (origin, chain_id) VALUES (?, ?)", origin, chainID); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// GrantedChains lists the chain ids an origin was approved for.
func GrantedChains(db *sql.DB, origin string) ([]string, error) {
	rows, err := db.Query("SELECT chain_id FROM broker_granted_chains WHERE origin = ?", origin)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []string
	for rows.Next() {
		var chainID string
		if err := rows.Scan(&chainID); err != nil {
			return nil, err
		}
		res = append(res, chainID)
	}
	return res, rows.Err()
}

// RevokeOrigin removes every grant and suggested token of an origin.
func RevokeOrigin(db *sql.DB, origin string) error {
	if _, err := db.Exec("DELETE FROM broker_granted_chains WHERE origin = ?", origin); err != nil {
		return err
	}
	_, err := db.Exec("DELETE FROM broker_suggested_tokens WHERE origin = ?", origin)
	return err
}

// SuggestedToken is a token a dApp asked the wallet to display.
type SuggestedToken struct {
	Origin          string `json:"origin"`
	ChainKey        string `json:"chainKey"`
	ContractAddress string `json:"contractAddress,omitempty"`
	Denom           string `json:"denom,omitempty"`
	IsCW20          bool   `json:"isCW20"`
}

func AddSuggestedToken(db *sql.DB, token *SuggestedToken) error {
	_, err := db.Exec("INSERT OR IGNORE INTO broker_suggested_tokens (origin, chain_key, contract_address, denom, is_cw20) VALUES (?, ?, ?, ?, ?)",
		token.Origin, token.ChainKey, token.ContractAddress, token.Denom, token.IsCW20)
	return err
}

func SuggestedTokens(db *sql.DB, origin string) ([]*SuggestedToken, error) {
	rows, err := db.Query("SELECT origin, chain_key, contract_address, denom, is_cw20 FROM broker_suggested_tokens WHERE origin = ?", origin)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*SuggestedToken
	for rows.Next() {
		token := &SuggestedToken{}
		if err := rows.Scan(&token.Origin, &token.ChainKey, &token.ContractAddress, &token.Denom, &token.IsCW20); err != nil {
			return nil, err
		}
		res = append(res, token)
	}
	return res, rows.Err()
}
