package account

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/ethereum/go-ethereum/common"
)

// errors
var (
	ErrNoWallet     = errors.New("no wallet")
	ErrWalletLocked = errors.New("wallet is locked")
	ErrNoSuchKey    = errors.New("no key for the requested chain")
)

// Key is the public material of a wallet account on one chain. Private keys
// never leave the backend.
type Key struct {
	Name          string         `json:"name"`
	PubKey        []byte         `json:"pubKey"`
	Bech32Address string         `json:"bech32Address,omitempty"`
	EthereumAddr  common.Address `json:"ethereumAddress,omitempty"`
	IsHardwareKey bool           `json:"isHardwareKey"`
	AlgoName      string         `json:"algo,omitempty"`
}

// SignDirectRequest carries a proto sign doc for the account-based ecosystem.
type SignDirectRequest struct {
	ChainKey  string          `json:"chainKey"`
	Signer    string          `json:"signer"`
	BodyBytes []byte          `json:"bodyBytes"`
	AuthInfo  []byte          `json:"authInfoBytes"`
	ChainID   string          `json:"chainId"`
	Extra     json.RawMessage `json:"extra,omitempty"`
}

// SignAminoRequest carries a legacy amino sign doc.
type SignAminoRequest struct {
	ChainKey string          `json:"chainKey"`
	Signer   string          `json:"signer"`
	SignDoc  json.RawMessage `json:"signDoc"`
}

// SignResponse is the backend's answer to any signing request: the signature
// plus the exact document that was signed (the backend may have patched fees
// or memo before signing).
type SignResponse struct {
	Signature []byte          `json:"signature"`
	PubKey    []byte          `json:"pubKey"`
	SignedDoc json.RawMessage `json:"signedDoc,omitempty"`
}

// Manager is the trusted wallet backend consumed by the broker. The broker
// never sees private keys; it only asks the backend to sign after user
// consent was obtained.
type Manager interface {
	// HasWallet reports whether any wallet account exists. Every broker
	// method fails uniformly with ErrNoWallet while this is false.
	HasWallet() bool

	// IsLocked reports whether the wallet requires a password before keys
	// can be used.
	IsLocked() bool

	// GetKey returns the public key material for a chain.
	GetKey(ctx context.Context, chainKey string) (*Key, error)

	// SignDirect signs a proto sign doc.
	SignDirect(ctx context.Context, req SignDirectRequest) (*SignResponse, error)

	// SignAmino signs a legacy amino sign doc.
	SignAmino(ctx context.Context, req SignAminoRequest) (*SignResponse, error)

	// SignEVMTransaction signs marshalled EVM transaction args and returns
	// the raw signed RLP bytes ready for eth_sendRawTransaction.
	SignEVMTransaction(ctx context.Context, chainID uint64, txArgsJSON json.RawMessage) ([]byte, error)

	// PersonalSign signs a personal message for the EVM ecosystem.
	PersonalSign(ctx context.Context, address common.Address, data []byte) ([]byte, error)

	// SignTypedData signs EIP-712 typed data (v4).
	SignTypedData(ctx context.Context, address common.Address, typedJSON json.RawMessage) ([]byte, error)

	// Disconnect lets the backend drop any per-origin caches it keeps.
	Disconnect(ctx context.Context, chainKey, origin string) error
}
