// Package keystore backs account.Manager with a go-ethereum keystore on
// disk. It serves the EVM-compatible ecosystem; account-based chains need a
// signer from the embedding wallet and answer ErrNoSuchKey here.
package keystore

import (
	"context"
	"encoding/json"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/accounts"
	gethkeystore "github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"
	"github.com/pkg/errors"

	"github.com/luminawallet/lumina-go/account"
	"github.com/luminawallet/lumina-go/transactions"
)

// Manager is a file-keystore wallet backend. Unlock holds the passphrase in
// memory until Lock; signing calls fail with ErrWalletLocked in between.
type Manager struct {
	mu         sync.Mutex
	ks         *gethkeystore.KeyStore
	passphrase string
	unlocked   bool
}

func NewManager(keydir string) *Manager {
	return &Manager{
		ks: gethkeystore.NewKeyStore(keydir, gethkeystore.StandardScryptN, gethkeystore.StandardScryptP),
	}
}

// CreateAccount generates a new key protected by passphrase.
func (m *Manager) CreateAccount(passphrase string) (common.Address, error) {
	acc, err := m.ks.NewAccount(passphrase)
	if err != nil {
		return common.Address{}, err
	}
	return acc.Address, nil
}

// Unlock remembers the passphrase for subsequent signing calls after
// verifying it against the first account.
func (m *Manager) Unlock(passphrase string) error {
	accs := m.ks.Accounts()
	if len(accs) == 0 {
		return account.ErrNoWallet
	}
	if err := m.ks.Unlock(accs[0], passphrase); err != nil {
		return errors.Wrap(err, "unlock keystore")
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.passphrase = passphrase
	m.unlocked = true
	return nil
}

func (m *Manager) Lock() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.passphrase = ""
	m.unlocked = false
	for _, acc := range m.ks.Accounts() {
		_ = m.ks.Lock(acc.Address)
	}
}

func (m *Manager) HasWallet() bool {
	return len(m.ks.Accounts()) > 0
}

func (m *Manager) IsLocked() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.unlocked
}

func (m *Manager) firstAccount() (accounts.Account, string, error) {
	m.mu.Lock()
	passphrase, unlocked := m.passphrase, m.unlocked
	m.mu.Unlock()

	accs := m.ks.Accounts()
	if len(accs) == 0 {
		return accounts.Account{}, "", account.ErrNoWallet
	}
	if !unlocked {
		return accounts.Account{}, "", account.ErrWalletLocked
	}
	return accs[0], passphrase, nil
}

func (m *Manager) accountFor(address common.Address) (accounts.Account, string, error) {
	m.mu.Lock()
	passphrase, unlocked := m.passphrase, m.unlocked
	m.mu.Unlock()

	if !m.HasWallet() {
		return accounts.Account{}, "", account.ErrNoWallet
	}
	if !unlocked {
		return accounts.Account{}, "", account.ErrWalletLocked
	}

	acc, err := m.ks.Find(accounts.Account{Address: address})
	if err != nil {
		return accounts.Account{}, "", account.ErrNoSuchKey
	}
	return acc, passphrase, nil
}

// GetKey answers for EVM chain keys only; the account-based ecosystem is
// served by the embedder's signer.
func (m *Manager) GetKey(_ context.Context, _ string) (*account.Key, error) {
	acc, _, err := m.firstAccount()
	if err != nil {
		return nil, err
	}
	return &account.Key{
		Name:         "primary",
		EthereumAddr: acc.Address,
		AlgoName:     "secp256k1",
	}, nil
}

func (m *Manager) SignDirect(context.Context, account.SignDirectRequest) (*account.SignResponse, error) {
	return nil, account.ErrNoSuchKey
}

func (m *Manager) SignAmino(context.Context, account.SignAminoRequest) (*account.SignResponse, error) {
	return nil, account.ErrNoSuchKey
}

// SignEVMTransaction builds a transaction from the relayed args and signs it
// with the sender's key. Gas and nonce must already be filled in; the broker
// does not talk to the node here.
func (m *Manager) SignEVMTransaction(_ context.Context, chainID uint64, txArgsJSON json.RawMessage) ([]byte, error) {
	var args transactions.SendTxArgs
	if err := json.Unmarshal(txArgsJSON, &args); err != nil {
		return nil, errors.Wrap(err, "decoding transaction args")
	}
	if !args.Valid() {
		return nil, transactions.ErrInvalidSendTxArgs
	}

	acc, passphrase, err := m.accountFor(args.From)
	if err != nil {
		return nil, err
	}

	tx, err := buildTransaction(chainID, args)
	if err != nil {
		return nil, err
	}

	signed, err := m.ks.SignTxWithPassphrase(acc, passphrase, tx, new(big.Int).SetUint64(chainID))
	if err != nil {
		return nil, errors.Wrap(err, "signing transaction")
	}
	return signed.MarshalBinary()
}

func buildTransaction(chainID uint64, args transactions.SendTxArgs) (*types.Transaction, error) {
	if args.To == nil && len(args.GetInput()) == 0 {
		return nil, transactions.ErrInvalidSendTxArgs
	}

	var nonce uint64
	if args.Nonce != nil {
		nonce = uint64(*args.Nonce)
	}
	var gas uint64 = 21000
	if args.Gas != nil {
		gas = uint64(*args.Gas)
	}
	value := new(big.Int)
	if args.Value != nil {
		value = args.Value.ToInt()
	}

	if args.IsDynamicFeeTx() {
		return types.NewTx(&types.DynamicFeeTx{
			ChainID:   new(big.Int).SetUint64(chainID),
			Nonce:     nonce,
			GasTipCap: args.MaxPriorityFeePerGas.ToInt(),
			GasFeeCap: args.MaxFeePerGas.ToInt(),
			Gas:       gas,
			To:        args.To,
			Value:     value,
			Data:      args.GetInput(),
		}), nil
	}

	gasPrice := new(big.Int)
	if args.GasPrice != nil {
		gasPrice = args.GasPrice.ToInt()
	}
	return types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       args.To,
		Value:    value,
		Data:     args.GetInput(),
	}), nil
}

// PersonalSign hashes per EIP-191 and signs with the requested account. The
// recovery id is shifted to the legacy 27/28 form providers expect.
func (m *Manager) PersonalSign(_ context.Context, address common.Address, data []byte) ([]byte, error) {
	acc, passphrase, err := m.accountFor(address)
	if err != nil {
		return nil, err
	}

	hash := accounts.TextHash(data)
	signature, err := m.ks.SignHashWithPassphrase(acc, passphrase, hash)
	if err != nil {
		return nil, errors.Wrap(err, "signing message")
	}
	signature[crypto.RecoveryIDOffset] += 27
	return signature, nil
}

// SignTypedData hashes the payload per EIP-712 and signs the digest.
func (m *Manager) SignTypedData(_ context.Context, address common.Address, typedJSON json.RawMessage) ([]byte, error) {
	acc, passphrase, err := m.accountFor(address)
	if err != nil {
		return nil, err
	}

	var typed apitypes.TypedData
	if err := json.Unmarshal(typedJSON, &typed); err != nil {
		return nil, errors.Wrap(err, "decoding typed data")
	}
	digest, _, err := apitypes.TypedDataAndHash(typed)
	if err != nil {
		return nil, errors.Wrap(err, "hashing typed data")
	}

	signature, err := m.ks.SignHashWithPassphrase(acc, passphrase, digest)
	if err != nil {
		return nil, errors.Wrap(err, "signing typed data")
	}
	signature[crypto.RecoveryIDOffset] += 27
	return signature, nil
}

func (m *Manager) Disconnect(context.Context, string, string) error {
	return nil
}

var _ account.Manager = (*Manager)(nil)
