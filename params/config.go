package params

import "time"

// BrokerConfig holds the tunables of the broker core. The embedding
// application fills it in from its own settings store.
type BrokerConfig struct {
	// DataDir is the directory holding the broker databases.
	DataDir string

	// DefaultChainKey is the account-based chain an origin is bound to
	// before it ever switches chains.
	DefaultChainKey string

	// DefaultEVMChainID is the fallback chain for EVM methods when an
	// origin has no binding or its binding went stale.
	DefaultEVMChainID uint64

	// NodeDirectoryURL points at the remote directory service listing
	// candidate endpoints per chain key.
	NodeDirectoryURL string

	// ApprovalExpiry bounds how long a pending approval may wait for the
	// user. Zero disables the expiry; expiry resolves as a rejection.
	ApprovalExpiry time.Duration

	// LogFile enables file logging with rotation when non-empty.
	LogFile  string
	LogLevel string
}

// DefaultApprovalExpiry is how long an approval may stay pending before it
// is resolved as rejected.
const DefaultApprovalExpiry = 20 * time.Minute
