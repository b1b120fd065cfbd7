package transactions

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendTxArgsValid(t *testing.T) {
	var args SendTxArgs
	require.NoError(t, json.Unmarshal([]byte(`{"from": "0x0000000000000000000000000000000000000001"}`), &args))
	assert.True(t, args.Valid())

	require.NoError(t, json.Unmarshal([]byte(`{"input": "0x01"}`), &args))
	assert.True(t, args.Valid())

	// Both fields carrying the same bytes is tolerated.
	require.NoError(t, json.Unmarshal([]byte(`{"input": "0x01", "data": "0x01"}`), &args))
	assert.True(t, args.Valid())

	require.NoError(t, json.Unmarshal([]byte(`{"input": "0x01", "data": "0x02"}`), &args))
	assert.False(t, args.Valid())
}

func TestSendTxArgsGetInput(t *testing.T) {
	var args SendTxArgs
	require.NoError(t, json.Unmarshal([]byte(`{"data": "0x02"}`), &args))
	assert.Equal(t, "0x02", args.GetInput().String())

	require.NoError(t, json.Unmarshal([]byte(`{"input": "0x01", "data": "0x01"}`), &args))
	assert.Equal(t, "0x01", args.GetInput().String())
}

func TestSendTxArgsIsDynamicFeeTx(t *testing.T) {
	var args SendTxArgs
	require.NoError(t, json.Unmarshal([]byte(`{"gasPrice": "0x1"}`), &args))
	assert.False(t, args.IsDynamicFeeTx())

	require.NoError(t, json.Unmarshal([]byte(`{"maxFeePerGas": "0x1", "maxPriorityFeePerGas": "0x1"}`), &args))
	assert.True(t, args.IsDynamicFeeTx())
}
