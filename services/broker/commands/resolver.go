package commands

import (
	"database/sql"

	"go.uber.org/zap"

	"github.com/luminawallet/lumina-go/params"
	"github.com/luminawallet/lumina-go/rpc/chains"
	persistence "github.com/luminawallet/lumina-go/services/broker/database"
	"github.com/luminawallet/lumina-go/signal"
)

// ChainResolver computes the ChainBinding of an origin: the session's chosen
// chain combined with registry metadata. Fallbacks are never persisted, so a
// later registry update changes the answer without any session write.
type ChainResolver struct {
	Db       *sql.DB
	Registry *chains.Manager
	Config   params.BrokerConfig
	Logger   *zap.Logger
}

// ResolveActiveChain resolves the chain a request from origin applies to.
// With no session, or a session pointing at a chain the registry no longer
// carries, the configured default is used. A stale persisted binding is
// cleared so the wallet UI stops showing a dead chain, but the fallback
// itself is not written back.
func (r *ChainResolver) ResolveActiveChain(origin string, ecosystem params.Ecosystem) (*chains.Binding, error) {
	session, err := persistence.SelectSession(r.Db, origin, ecosystem)
	if err != nil {
		return nil, err
	}

	if ecosystem == params.EcosystemEthereum {
		return r.resolveEVM(session)
	}
	return r.resolveAccountBased(session)
}

func (r *ChainResolver) resolveEVM(session *persistence.Session) (*chains.Binding, error) {
	if session != nil && session.EVMChainID != 0 {
		if network := r.Registry.FindNetwork(session.EVMChainID); network != nil {
			return &chains.Binding{Network: network}, nil
		}

		// The bound chain was removed from the registry.
		r.Logger.Info("clearing stale EVM chain binding",
			zap.String("origin", session.Origin),
			zap.Uint64("chainID", session.EVMChainID))
		session.EVMChainID = 0
		if err := persistence.UpsertSession(r.Db, session); err != nil {
			return nil, err
		}
	}

	network := r.Registry.FindNetwork(r.Config.DefaultEVMChainID)
	if network == nil {
		return nil, chains.ErrNetworkNotFound
	}
	return &chains.Binding{Network: network}, nil
}

func (r *ChainResolver) resolveAccountBased(session *persistence.Session) (*chains.Binding, error) {
	if session != nil && session.ChainKey != "" {
		chain, err := r.Registry.GetChainByKey(session.ChainKey)
		if err == nil {
			return &chains.Binding{Chain: chain}, nil
		}
		if err != chains.ErrChainNotFound {
			return nil, err
		}

		r.Logger.Info("clearing stale chain binding",
			zap.String("origin", session.Origin),
			zap.String("chainKey", session.ChainKey))
		session.ChainKey = ""
		if err := persistence.UpsertSession(r.Db, session); err != nil {
			return nil, err
		}
	}

	chain, err := r.Registry.GetChainByKey(r.Config.DefaultChainKey)
	if err != nil {
		return nil, err
	}
	return &chains.Binding{Chain: chain}, nil
}

// SwitchEVMChain validates the requested chain id, persists the new binding
// and notifies every live surface of the origin. Unknown ids leave the
// session untouched.
func (r *ChainResolver) SwitchEVMChain(origin string, requestedChainID uint64) (*chains.Binding, error) {
	network := r.Registry.FindNetwork(requestedChainID)
	if network == nil {
		return nil, ErrUnrecognizedChainID
	}

	session, err := persistence.SelectSession(r.Db, origin, params.EcosystemEthereum)
	if err != nil {
		return nil, err
	}
	if session == nil {
		session = &persistence.Session{
			Origin:    origin,
			Ecosystem: params.EcosystemEthereum,
		}
	}
	session.EVMChainID = requestedChainID
	if err := persistence.UpsertSession(r.Db, session); err != nil {
		return nil, err
	}

	// Notification strictly after the session write, so surfaces reading
	// the session on signal observe the new binding.
	signal.SendBrokerChainSwitched(signal.BrokerChainSwitchedSignal{
		Origin:     origin,
		EVMChainID: requestedChainID,
	})

	return &chains.Binding{Network: network}, nil
}

// SwitchAccountChain is the account-based variant: the requested id may be a
// mainnet or testnet chain id string.
func (r *ChainResolver) SwitchAccountChain(origin string, requestedChainID string) (*chains.Binding, error) {
	chain, err := r.Registry.GetChainByID(requestedChainID)
	if err == chains.ErrChainNotFound {
		return nil, ErrUnrecognizedChainID
	}
	if err != nil {
		return nil, err
	}

	session, err := persistence.SelectSession(r.Db, origin, params.EcosystemCosmos)
	if err != nil {
		return nil, err
	}
	if session == nil {
		session = &persistence.Session{
			Origin:    origin,
			Ecosystem: params.EcosystemCosmos,
		}
	}
	session.ChainKey = chain.ChainKey
	if err := persistence.UpsertSession(r.Db, session); err != nil {
		return nil, err
	}

	signal.SendBrokerChainSwitched(signal.BrokerChainSwitchedSignal{
		Origin:   origin,
		ChainKey: chain.ChainKey,
	})

	return &chains.Binding{Chain: chain}, nil
}
