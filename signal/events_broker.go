package signal

const (
	// EventBrokerApprovalPending is triggered when a handler needs user
	// consent and a popup surface should be materialized.
	EventBrokerApprovalPending = "broker.approvalPending"

	// EventBrokerApprovalResolved is triggered when a pending approval
	// reached its terminal state, so stale surfaces can dismiss themselves.
	EventBrokerApprovalResolved = "broker.approvalResolved"

	// EventBrokerChainSwitched is triggered after an origin's active chain
	// binding was persisted.
	EventBrokerChainSwitched = "broker.chainSwitched"

	// EventBrokerPermissionRevoked is triggered when an origin's grants were
	// removed.
	EventBrokerPermissionRevoked = "broker.dAppPermissionRevoked"
)

// BrokerApprovalPendingSignal describes the query the next-opened popup
// should render.
type BrokerApprovalPendingSignal struct {
	CorrelationKey string   `json:"correlationKey"`
	Kind           string   `json:"kind"`
	Origin         string   `json:"origin"`
	ChainIDs       []string `json:"chainIds,omitempty"`
	Payload        string   `json:"payload,omitempty"`
}

type BrokerApprovalResolvedSignal struct {
	CorrelationKey string `json:"correlationKey"`
	Approved       bool   `json:"approved"`
}

type BrokerChainSwitchedSignal struct {
	Origin     string `json:"origin"`
	ChainKey   string `json:"chainKey,omitempty"`
	EVMChainID uint64 `json:"evmChainId,omitempty"`
}

type BrokerPermissionRevokedSignal struct {
	Origin string `json:"origin"`
}

func SendBrokerApprovalPending(event BrokerApprovalPendingSignal) {
	send(EventBrokerApprovalPending, event)
}

func SendBrokerApprovalResolved(event BrokerApprovalResolvedSignal) {
	send(EventBrokerApprovalResolved, event)
}

func SendBrokerChainSwitched(event BrokerChainSwitchedSignal) {
	send(EventBrokerChainSwitched, event)
}

func SendBrokerPermissionRevoked(event BrokerPermissionRevokedSignal) {
	send(EventBrokerPermissionRevoked, event)
}
