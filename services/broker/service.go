// Package broker is the message-broker core of the wallet: it correlates
// requests from page-injected clients with responses, obtains user consent
// where required and dispatches chain-specific RPC calls.
package broker

import (
	"database/sql"

	"go.uber.org/zap"

	"github.com/luminawallet/lumina-go/account"
	"github.com/luminawallet/lumina-go/approvals"
	"github.com/luminawallet/lumina-go/params"
	"github.com/luminawallet/lumina-go/rpc"
	"github.com/luminawallet/lumina-go/rpc/chains"
	"github.com/luminawallet/lumina-go/services/broker/commands"
	persistence "github.com/luminawallet/lumina-go/services/broker/database"
)

type Service struct {
	db          *sql.DB
	registry    *chains.Manager
	accounts    account.Manager
	rpcClient   rpc.ClientInterface
	ledger      *approvals.Ledger
	broadcaster commands.BroadcasterInterface
	config      params.BrokerConfig
	logger      *zap.Logger
}

func NewService(
	db *sql.DB,
	registry *chains.Manager,
	accounts account.Manager,
	rpcClient rpc.ClientInterface,
	ledger *approvals.Ledger,
	broadcaster commands.BroadcasterInterface,
	config params.BrokerConfig,
	logger *zap.Logger,
) (*Service, error) {
	if err := persistence.InitSchema(db); err != nil {
		return nil, err
	}

	return &Service{
		db:          db,
		registry:    registry,
		accounts:    accounts,
		rpcClient:   rpcClient,
		ledger:      ledger,
		broadcaster: broadcaster,
		config:      config,
		logger:      logger.Named("broker"),
	}, nil
}

func (s *Service) Start() error {
	return nil
}

func (s *Service) Stop() error {
	return nil
}
