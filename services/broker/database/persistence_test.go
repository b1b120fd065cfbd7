package persistence

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luminawallet/lumina-go/params"
	"github.com/luminawallet/lumina-go/sqlite"
)

const testOrigin = "https://dapp.example"

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sqlite.OpenInMemoryDB()
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, db.Close()) })
	require.NoError(t, InitSchema(db))
	return db
}

func TestSessionRoundTrip(t *testing.T) {
	db := setupDB(t)

	session, err := SelectSession(db, testOrigin, params.EcosystemCosmos)
	require.NoError(t, err)
	assert.Nil(t, session)

	require.NoError(t, UpsertSession(db, &Session{
		Origin:    testOrigin,
		Ecosystem: params.EcosystemCosmos,
		ChainKey:  "lumina",
		Name:      "Example dApp",
		IconURL:   "https://dapp.example/icon.png",
	}))

	session, err = SelectSession(db, testOrigin, params.EcosystemCosmos)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "lumina", session.ChainKey)
	assert.Equal(t, "Example dApp", session.Name)

	// Upsert replaces the existing row.
	require.NoError(t, UpsertSession(db, &Session{
		Origin:    testOrigin,
		Ecosystem: params.EcosystemCosmos,
		ChainKey:  "osmosis",
	}))
	session, err = SelectSession(db, testOrigin, params.EcosystemCosmos)
	require.NoError(t, err)
	assert.Equal(t, "osmosis", session.ChainKey)
}

func TestSessionsScopedPerEcosystem(t *testing.T) {
	db := setupDB(t)

	require.NoError(t, UpsertSession(db, &Session{
		Origin:    testOrigin,
		Ecosystem: params.EcosystemCosmos,
		ChainKey:  "lumina",
	}))
	require.NoError(t, UpsertSession(db, &Session{
		Origin:        testOrigin,
		Ecosystem:     params.EcosystemEthereum,
		EVMChainID:    1,
		SharedAccount: "0xd41c057fd1c78805aac12b0a94a405c0461a6fbb",
	}))

	cosmos, err := SelectSession(db, testOrigin, params.EcosystemCosmos)
	require.NoError(t, err)
	require.NotNil(t, cosmos)
	assert.Equal(t, "lumina", cosmos.ChainKey)
	assert.Empty(t, cosmos.SharedAccount)

	evm, err := SelectSession(db, testOrigin, params.EcosystemEthereum)
	require.NoError(t, err)
	require.NotNil(t, evm)
	assert.Equal(t, uint64(1), evm.EVMChainID)

	require.NoError(t, DeleteSession(db, testOrigin, params.EcosystemCosmos))
	cosmos, err = SelectSession(db, testOrigin, params.EcosystemCosmos)
	require.NoError(t, err)
	assert.Nil(t, cosmos)

	// The EVM session survives its sibling's deletion.
	evm, err = SelectSession(db, testOrigin, params.EcosystemEthereum)
	require.NoError(t, err)
	assert.NotNil(t, evm)
}

func TestGrantChains(t *testing.T) {
	db := setupDB(t)

	granted, err := GrantedChains(db, testOrigin)
	require.NoError(t, err)
	assert.Empty(t, granted)

	require.NoError(t, GrantChains(db, testOrigin, []string{"lumina-1", "osmosis-1"}))
	// Granting again is idempotent.
	require.NoError(t, GrantChains(db, testOrigin, []string{"lumina-1"}))

	granted, err = GrantedChains(db, testOrigin)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"lumina-1", "osmosis-1"}, granted)

	// Grants are per origin.
	other, err := GrantedChains(db, "https://other.example")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestRevokeOrigin(t *testing.T) {
	db := setupDB(t)

	require.NoError(t, GrantChains(db, testOrigin, []string{"lumina-1"}))
	require.NoError(t, AddSuggestedToken(db, &SuggestedToken{
		Origin:   testOrigin,
		ChainKey: "lumina",
		Denom:    "ufoo",
	}))
	require.NoError(t, GrantChains(db, "https://other.example", []string{"lumina-1"}))

	require.NoError(t, RevokeOrigin(db, testOrigin))

	granted, err := GrantedChains(db, testOrigin)
	require.NoError(t, err)
	assert.Empty(t, granted)

	tokens, err := SuggestedTokens(db, testOrigin)
	require.NoError(t, err)
	assert.Empty(t, tokens)

	other, err := GrantedChains(db, "https://other.example")
	require.NoError(t, err)
	assert.Equal(t, []string{"lumina-1"}, other)
}

func TestSuggestedTokens(t *testing.T) {
	db := setupDB(t)

	require.NoError(t, AddSuggestedToken(db, &SuggestedToken{
		Origin:   testOrigin,
		ChainKey: "lumina",
		Denom:    "ufoo",
	}))
	require.NoError(t, AddSuggestedToken(db, &SuggestedToken{
		Origin:          testOrigin,
		ChainKey:        "lumina",
		ContractAddress: "lum1contract",
		IsCW20:          true,
	}))
	// Duplicates are ignored.
	require.NoError(t, AddSuggestedToken(db, &SuggestedToken{
		Origin:   testOrigin,
		ChainKey: "lumina",
		Denom:    "ufoo",
	}))

	tokens, err := SuggestedTokens(db, testOrigin)
	require.NoError(t, err)
	assert.Len(t, tokens, 2)
}
