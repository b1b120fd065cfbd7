package commands

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luminawallet/lumina-go/params"
	persistence "github.com/luminawallet/lumina-go/services/broker/database"
	"github.com/luminawallet/lumina-go/signal"
)

func captureSignals(t *testing.T) func() []signal.Envelope {
	var envelopes []signal.Envelope
	signal.SetDefaultNodeNotificationHandler(func(jsonEvent string) {
		var envelope signal.Envelope
		require.NoError(t, json.Unmarshal([]byte(jsonEvent), &envelope))
		envelopes = append(envelopes, envelope)
	})
	t.Cleanup(signal.ResetDefaultNodeNotificationHandler)
	return func() []signal.Envelope { return envelopes }
}

func TestResolveActiveChainEVMFallback(t *testing.T) {
	resolver, db, _ := newTestResolver(t)

	binding, err := resolver.ResolveActiveChain(testOrigin, params.EcosystemEthereum)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), binding.EVMChainID())

	// Fallbacks are never written back.
	session, err := persistence.SelectSession(db, testOrigin, params.EcosystemEthereum)
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestResolveActiveChainEVMBound(t *testing.T) {
	resolver, db, _ := newTestResolver(t)

	require.NoError(t, persistence.UpsertSession(db, &persistence.Session{
		Origin:     testOrigin,
		Ecosystem:  params.EcosystemEthereum,
		EVMChainID: 10,
	}))

	binding, err := resolver.ResolveActiveChain(testOrigin, params.EcosystemEthereum)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), binding.EVMChainID())
}

func TestResolveActiveChainEVMStaleBindingCleared(t *testing.T) {
	resolver, db, _ := newTestResolver(t)

	// Bound to a network the registry no longer carries.
	require.NoError(t, persistence.UpsertSession(db, &persistence.Session{
		Origin:     testOrigin,
		Ecosystem:  params.EcosystemEthereum,
		EVMChainID: 777,
	}))

	binding, err := resolver.ResolveActiveChain(testOrigin, params.EcosystemEthereum)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), binding.EVMChainID())

	session, err := persistence.SelectSession(db, testOrigin, params.EcosystemEthereum)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Zero(t, session.EVMChainID)
}

func TestResolveActiveChainAccountBased(t *testing.T) {
	resolver, db, _ := newTestResolver(t)

	binding, err := resolver.ResolveActiveChain(testOrigin, params.EcosystemCosmos)
	require.NoError(t, err)
	assert.Equal(t, "lumina", binding.ChainKey())

	require.NoError(t, persistence.UpsertSession(db, &persistence.Session{
		Origin:    testOrigin,
		Ecosystem: params.EcosystemCosmos,
		ChainKey:  "osmosis",
	}))
	binding, err = resolver.ResolveActiveChain(testOrigin, params.EcosystemCosmos)
	require.NoError(t, err)
	assert.Equal(t, "osmosis", binding.ChainKey())
}

func TestResolveActiveChainAccountBasedStaleCleared(t *testing.T) {
	resolver, db, _ := newTestResolver(t)

	require.NoError(t, persistence.UpsertSession(db, &persistence.Session{
		Origin:    testOrigin,
		Ecosystem: params.EcosystemCosmos,
		ChainKey:  "retiredchain",
	}))

	binding, err := resolver.ResolveActiveChain(testOrigin, params.EcosystemCosmos)
	require.NoError(t, err)
	assert.Equal(t, "lumina", binding.ChainKey())

	session, err := persistence.SelectSession(db, testOrigin, params.EcosystemCosmos)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Empty(t, session.ChainKey)
}

func TestSwitchEVMChainUnknownID(t *testing.T) {
	resolver, db, _ := newTestResolver(t)
	signals := captureSignals(t)

	_, err := resolver.SwitchEVMChain(testOrigin, 999999)
	require.ErrorIs(t, err, ErrUnrecognizedChainID)

	// A failed switch leaves no trace: no session, no signal.
	session, err := persistence.SelectSession(db, testOrigin, params.EcosystemEthereum)
	require.NoError(t, err)
	assert.Nil(t, session)
	assert.Empty(t, signals())
}

func TestSwitchEVMChainPersistsAndSignals(t *testing.T) {
	resolver, db, _ := newTestResolver(t)
	signals := captureSignals(t)

	binding, err := resolver.SwitchEVMChain(testOrigin, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(10), binding.EVMChainID())

	session, err := persistence.SelectSession(db, testOrigin, params.EcosystemEthereum)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, uint64(10), session.EVMChainID)

	envelopes := signals()
	require.Len(t, envelopes, 1)
	assert.Equal(t, signal.EventBrokerChainSwitched, envelopes[0].Type)
}

func TestSwitchAccountChainByTestnetID(t *testing.T) {
	resolver, db, _ := newTestResolver(t)

	binding, err := resolver.SwitchAccountChain(testOrigin, "lumina-testnet-3")
	require.NoError(t, err)
	assert.Equal(t, "lumina", binding.ChainKey())

	session, err := persistence.SelectSession(db, testOrigin, params.EcosystemCosmos)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, "lumina", session.ChainKey)
}

func TestSwitchAccountChainUnknownID(t *testing.T) {
	resolver, _, _ := newTestResolver(t)
	_, err := resolver.SwitchAccountChain(testOrigin, "unknown-1")
	require.ErrorIs(t, err, ErrUnrecognizedChainID)
}
