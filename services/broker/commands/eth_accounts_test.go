package commands

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luminawallet/lumina-go/account"
	"github.com/luminawallet/lumina-go/account/fake"
	"github.com/luminawallet/lumina-go/approvals"
	"github.com/luminawallet/lumina-go/params"
	persistence "github.com/luminawallet/lumina-go/services/broker/database"
)

const testEVMAccount = "0xd41c057fd1c78805AAC12B0A94a405c0461A6FBb"

func newEVMAccounts(t *testing.T) *fake.Manager {
	accounts := fake.NewManager()
	accounts.AddKey("ethereum", &account.Key{Name: "main"})
	return accounts
}

func TestAccountsLockedWalletAnswersEmpty(t *testing.T) {
	_, db, _ := newTestResolver(t)
	accounts := newEVMAccounts(t)
	accounts.SetLocked(true)

	require.NoError(t, persistence.UpsertSession(db, &persistence.Session{
		Origin:        testOrigin,
		Ecosystem:     params.EcosystemEthereum,
		SharedAccount: testEVMAccount,
	}))

	cmd := &AccountsCommand{Db: db, Accounts: accounts}
	result, err := cmd.Execute(context.Background(), newRequest("eth_accounts", params.EcosystemEthereum, ""))

	// Locked is not an error here: dApps poll eth_accounts constantly and an
	// empty list is the conventional "not connected right now" answer.
	require.NoError(t, err)
	assert.Equal(t, []string{}, result)
}

func TestAccountsWithoutSession(t *testing.T) {
	_, db, _ := newTestResolver(t)
	cmd := &AccountsCommand{Db: db, Accounts: newEVMAccounts(t)}

	result, err := cmd.Execute(context.Background(), newRequest("eth_accounts", params.EcosystemEthereum, ""))
	require.NoError(t, err)
	assert.Equal(t, []string{}, result)
}

func TestAccountsReturnsSharedAccount(t *testing.T) {
	_, db, _ := newTestResolver(t)

	require.NoError(t, persistence.UpsertSession(db, &persistence.Session{
		Origin:        testOrigin,
		Ecosystem:     params.EcosystemEthereum,
		SharedAccount: testEVMAccount,
	}))

	cmd := &AccountsCommand{Db: db, Accounts: newEVMAccounts(t)}
	result, err := cmd.Execute(context.Background(), newRequest("eth_accounts", params.EcosystemEthereum, ""))
	require.NoError(t, err)
	assert.Equal(t, []string{"0xd41c057fd1c78805aac12b0a94a405c0461a6fbb"}, result)
}

func TestRequestAccountsNewSession(t *testing.T) {
	resolver, db, _ := newTestResolver(t)

	decisionPayload, _ := json.Marshal(requestAccountsDecision{Account: testEVMAccount})
	approver := &fakeApprovals{decision: approvals.Decision{Approved: true, Payload: decisionPayload}}

	cmd := &RequestAccountsCommand{
		Db:        db,
		Accounts:  newEVMAccounts(t),
		Approvals: approver,
		Resolver:  resolver,
	}

	result, err := cmd.Execute(context.Background(), newRequest("eth_requestAccounts", params.EcosystemEthereum, ""))
	require.NoError(t, err)
	assert.Equal(t, []string{"0xd41c057fd1c78805aac12b0a94a405c0461a6fbb"}, result)

	require.Equal(t, 1, approver.requestCount())
	assert.Equal(t, approvals.KindConnect, approver.lastRequest().Kind)

	session, err := persistence.SelectSession(db, testOrigin, params.EcosystemEthereum)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, testEVMAccount, session.SharedAccount)
	assert.Equal(t, uint64(1), session.EVMChainID)
}

func TestRequestAccountsExistingSessionSkipsConsent(t *testing.T) {
	resolver, db, _ := newTestResolver(t)
	approver := approveAll()

	require.NoError(t, persistence.UpsertSession(db, &persistence.Session{
		Origin:        testOrigin,
		Ecosystem:     params.EcosystemEthereum,
		EVMChainID:    1,
		SharedAccount: testEVMAccount,
	}))

	cmd := &RequestAccountsCommand{
		Db:        db,
		Accounts:  newEVMAccounts(t),
		Approvals: approver,
		Resolver:  resolver,
	}

	result, err := cmd.Execute(context.Background(), newRequest("eth_requestAccounts", params.EcosystemEthereum, ""))
	require.NoError(t, err)
	assert.Equal(t, []string{"0xd41c057fd1c78805aac12b0a94a405c0461a6fbb"}, result)
	assert.Zero(t, approver.requestCount())
}

func TestRequestAccountsRejected(t *testing.T) {
	resolver, db, _ := newTestResolver(t)

	cmd := &RequestAccountsCommand{
		Db:        db,
		Accounts:  newEVMAccounts(t),
		Approvals: rejectAll(),
		Resolver:  resolver,
	}

	_, err := cmd.Execute(context.Background(), newRequest("eth_requestAccounts", params.EcosystemEthereum, ""))
	require.ErrorIs(t, err, ErrUserRejected)

	session, err := persistence.SelectSession(db, testOrigin, params.EcosystemEthereum)
	require.NoError(t, err)
	assert.Nil(t, session)
}

func TestRequestPermissionsEthAccounts(t *testing.T) {
	resolver, db, _ := newTestResolver(t)

	decisionPayload, _ := json.Marshal(requestAccountsDecision{Account: testEVMAccount})
	approver := &fakeApprovals{decision: approvals.Decision{Approved: true, Payload: decisionPayload}}

	cmd := &RequestPermissionsCommand{
		RequestAccounts: &RequestAccountsCommand{
			Db:        db,
			Accounts:  newEVMAccounts(t),
			Approvals: approver,
			Resolver:  resolver,
		},
	}

	result, err := cmd.Execute(context.Background(),
		newRequest("wallet_requestPermissions", params.EcosystemEthereum, `[{"eth_accounts": {}}]`))
	require.NoError(t, err)

	permissions, ok := result.([]Permission)
	require.True(t, ok)
	require.Len(t, permissions, 1)
	assert.Equal(t, "eth_accounts", permissions[0].ParentCapability)
	assert.NotEmpty(t, permissions[0].Date)
}

func TestRequestPermissionsMalformedParams(t *testing.T) {
	cmd := &RequestPermissionsCommand{}

	_, err := cmd.Execute(context.Background(),
		newRequest("wallet_requestPermissions", params.EcosystemEthereum, `[{"a": {}, "b": {}}]`))
	require.ErrorIs(t, err, ErrInvalidParamType)

	_, err = cmd.Execute(context.Background(),
		newRequest("wallet_requestPermissions", params.EcosystemEthereum, ""))
	require.ErrorIs(t, err, ErrEmptyRPCParams)
}
