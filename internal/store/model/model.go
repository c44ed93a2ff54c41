// Package model defines the gorm-tagged row types for every table in §3.
// Amount fields are always string (integer or exact decimal) — never
// float64 — per the money contract in §9.
package model

import (
	"time"

	"github.com/coinsensei/chain-workers/internal/chain"
)

// Family is the chain family discriminator. It is the same type as
// chain.Family, so a Chain row's Family compares directly against
// chain.FamilyTron and chain.FamilyEVM.
type Family = chain.Family

const (
	FamilyTron Family = "tron"
	FamilyEVM  Family = "evm"
)

// Chain is an immutable-during-a-run row reloaded at boot (§3).
type Chain struct {
	ID                    int64  `gorm:"primary_key"`
	Name                  string `gorm:"unique_index;not null"`
	Family                Family `gorm:"not null"`
	RPCURL                string `gorm:"column:rpc_url;not null"`
	ConfirmationThreshold int    `gorm:"not null"`
	BlockTimeSeconds      int    `gorm:"column:block_time_seconds;not null"`
	ChainID               *int64 `gorm:"column:chain_id"`
	IsActive              bool   `gorm:"column:is_active;not null"`
}

func (Chain) TableName() string { return "chains" }

// Asset is a logical, chain-independent symbol (e.g. USDT).
type Asset struct {
	ID     int64  `gorm:"primary_key"`
	Symbol string `gorm:"unique_index;not null"`
}

func (Asset) TableName() string { return "assets" }

// AssetOnChain is a deployment of an Asset on a Chain.
type AssetOnChain struct {
	ID              int64   `gorm:"primary_key"`
	ChainID         int64   `gorm:"column:chain_id;not null"`
	AssetID         int64   `gorm:"column:asset_id;not null"`
	ContractAddress *string `gorm:"column:contract_address"`
	Decimals        int     `gorm:"not null"`
	IsNative        bool    `gorm:"column:is_native;not null"`
	IsActive        bool    `gorm:"column:is_active;not null"`
}

func (AssetOnChain) TableName() string { return "asset_on_chains" }

// UserWalletAddress is a user's custodial deposit address — never the
// executor of gas/hot/treasury flows.
type UserWalletAddress struct {
	ID               int64  `gorm:"primary_key"`
	UID              string `gorm:"column:uid;not null"`
	ChainID          int64  `gorm:"column:chain_id;not null"`
	Address          string `gorm:"not null"`
	WalletGroupID    string `gorm:"column:wallet_group_id;not null"`
	DerivationIndex  int64  `gorm:"column:derivation_index;not null"`
	IsActive         bool   `gorm:"column:is_active;not null"`
}

func (UserWalletAddress) TableName() string { return "user_wallet_addresses" }

// OperationRole enumerates the funded operation-wallet roles.
type OperationRole string

const (
	RoleGas      OperationRole = "gas"
	RoleHot      OperationRole = "hot"
	RoleTreasury OperationRole = "treasury"
)

// OperationWalletAddress is an internally funded address that sends
// transactions on behalf of users (gas topup, consolidation, withdrawal).
type OperationWalletAddress struct {
	ID              int64         `gorm:"primary_key"`
	ChainID         int64         `gorm:"column:chain_id;not null"`
	Role            OperationRole `gorm:"not null"`
	WalletGroupID   string        `gorm:"column:wallet_group_id;not null"`
	DerivationIndex int64         `gorm:"column:derivation_index;not null"`
	Address         string        `gorm:"not null"`
	IsActive        bool          `gorm:"column:is_active;not null"`
	LastUsedAt      *time.Time    `gorm:"column:last_used_at"`
}

func (OperationWalletAddress) TableName() string { return "operation_wallet_addresses" }

// ProcessingStatus is the wallet_balances general-lease status column.
type ProcessingStatus string

const (
	StatusIdle                   ProcessingStatus = "idle"
	StatusProcessing             ProcessingStatus = "processing"
	StatusConsolidationProcessing ProcessingStatus = "consolidation_processing"
	StatusGasProcessing          ProcessingStatus = "gas_processing"
)

// Priority mirrors the priority ordering used by the planner and
// execution workers' candidate sort (§4.8): high=0, normal=1, low=2,
// unknown=3.
type Priority string

const (
	PriorityHigh    Priority = "high"
	PriorityNormal  Priority = "normal"
	PriorityLow     Priority = "low"
	PriorityUnknown Priority = "unknown"
)

// PriorityRank returns the sort rank for a priority value, per §4.8.
func PriorityRank(p Priority) int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityNormal:
		return 1
	case PriorityLow:
		return 2
	default:
		return 3
	}
}

// WalletBalance is the primary per-(wallet, asset-on-chain) row, carrying
// three independent lease families plus planner flags (§3).
type WalletBalance struct {
	ID             int64  `gorm:"primary_key"`
	WalletID       int64  `gorm:"column:wallet_id;not null"`
	AssetOnChainID int64  `gorm:"column:asset_on_chain_id;not null"`

	OnChainBalanceRaw   string `gorm:"column:on_chain_balance_raw;not null"`
	OnChainBalanceHuman string `gorm:"column:on_chain_balance_human;not null"`

	ProcessingStatus ProcessingStatus `gorm:"column:processing_status;not null"`

	LockedUntil *time.Time `gorm:"column:locked_until"`
	LockedBy    *string    `gorm:"column:locked_by"`

	ConsolidationLockedUntil *time.Time `gorm:"column:consolidation_locked_until"`
	ConsolidationLockedBy    *string    `gorm:"column:consolidation_locked_by"`

	GasLockedUntil *time.Time `gorm:"column:gas_locked_until"`
	GasLockedBy    *string    `gorm:"column:gas_locked_by"`

	NeedsConsolidation    bool     `gorm:"column:needs_consolidation;not null"`
	ConsolidationPriority Priority `gorm:"column:consolidation_priority"`
	NeedsGas              bool     `gorm:"column:needs_gas;not null"`
	GasPriority            Priority `gorm:"column:gas_priority"`

	SyncCount  int64  `gorm:"column:sync_count;not null"`
	ErrorCount int64  `gorm:"column:error_count;not null"`
	LastError  *string `gorm:"column:last_error"`

	LastChecked          *time.Time `gorm:"column:last_checked"`
	LastProcessedAt       *time.Time `gorm:"column:last_processed_at"`
	LastConsolidationAt   *time.Time `gorm:"column:last_consolidation_at"`
}

func (WalletBalance) TableName() string { return "wallet_balances" }

// WorkerChainState tracks the monotonically increasing scan cursor per
// chain (P4).
type WorkerChainState struct {
	ChainID            int64 `gorm:"primary_key;column:chain_id"`
	LastProcessedBlock uint64 `gorm:"column:last_processed_block;not null"`
}

func (WorkerChainState) TableName() string { return "worker_chain_states" }

// DepositStatus is the deposit lifecycle status (§3).
type DepositStatus string

const (
	DepositPending   DepositStatus = "pending"
	DepositConfirmed DepositStatus = "confirmed"
	DepositFailed    DepositStatus = "failed"
)

// Deposit is unique on (TxHash, LogIndex).
type Deposit struct {
	ID             int64  `gorm:"primary_key"`
	ChainID        int64  `gorm:"column:chain_id;not null"`
	AssetOnChainID int64  `gorm:"column:asset_on_chain_id;not null"`

	TxHash   string `gorm:"column:tx_hash;not null"`
	LogIndex int64  `gorm:"column:log_index;not null"`

	FromAddress string `gorm:"column:from_address;not null"`
	ToAddress   string `gorm:"column:to_address;not null"`
	UID         string `gorm:"column:uid;not null"`

	AmountRaw   string `gorm:"column:amount_raw;not null"`
	AmountHuman string `gorm:"column:amount_human;not null"`

	BlockNumber     uint64 `gorm:"column:block_number;not null"`
	FirstSeenBlock  uint64 `gorm:"column:first_seen_block;not null"`

	Status        DepositStatus `gorm:"not null"`
	Confirmations int64         `gorm:"not null"`

	ConfirmedAt *time.Time `gorm:"column:confirmed_at"`
	CreditedAt  *time.Time `gorm:"column:credited_at"`
}

func (Deposit) TableName() string { return "deposits" }

// QueueStatus is the shared execution-queue lifecycle (§4.8).
type QueueStatus string

const (
	QueuePending   QueueStatus = "pending"
	QueueProcessing QueueStatus = "processing"
	QueueConfirming QueueStatus = "confirming"
	QueueConfirmed  QueueStatus = "confirmed"
	QueueFailed     QueueStatus = "failed"
)

// ConsolidationJob is a row in consolidation_queue.
type ConsolidationJob struct {
	ID                       int64  `gorm:"primary_key"`
	ChainID                  int64  `gorm:"column:chain_id;not null"`
	WalletID                 int64  `gorm:"column:wallet_id;not null"`
	WalletBalanceID          int64  `gorm:"column:wallet_balance_id;not null"`
	DestinationWalletID      int64  `gorm:"column:destination_wallet_id;not null"`

	AmountRaw   string `gorm:"column:amount_raw;not null"`
	AmountHuman string `gorm:"column:amount_human;not null"`

	Status      QueueStatus `gorm:"not null"`
	Priority    Priority    `gorm:"not null"`
	TxHash      *string     `gorm:"column:tx_hash"`
	RetryCount  int         `gorm:"column:retry_count;not null"`
	ErrorMessage *string    `gorm:"column:error_message"`

	ScheduledAt time.Time  `gorm:"column:scheduled_at;not null"`
	ProcessedAt *time.Time `gorm:"column:processed_at"`

	GasUsed  *string `gorm:"column:gas_used"`
	GasPrice *string `gorm:"column:gas_price"`
}

func (ConsolidationJob) TableName() string { return "consolidation_queue" }

// GasTopupJob is a row in gas_topup_queue.
type GasTopupJob struct {
	ID          int64 `gorm:"primary_key"`
	ChainID     int64 `gorm:"column:chain_id;not null"`
	GasAssetID  int64 `gorm:"column:gas_asset_id;not null"`
	WalletID    int64 `gorm:"column:wallet_id;not null"`
	DestinationWalletID int64 `gorm:"column:destination_wallet_id;not null"`

	TopupAmountRaw   string `gorm:"column:topup_amount_raw;not null"`
	TopupAmountHuman string `gorm:"column:topup_amount_human;not null"`

	Status       QueueStatus `gorm:"not null"`
	Priority     Priority    `gorm:"not null"`
	TxHash       *string     `gorm:"column:tx_hash"`
	RetryCount   int         `gorm:"column:retry_count;not null"`
	ErrorMessage *string     `gorm:"column:error_message"`

	ScheduledAt time.Time  `gorm:"column:scheduled_at;not null"`
	ProcessedAt *time.Time `gorm:"column:processed_at"`

	GasUsed  *string `gorm:"column:gas_used"`
	GasPrice *string `gorm:"column:gas_price"`
}

func (GasTopupJob) TableName() string { return "gas_topup_queue" }

// WithdrawalRequestStatus is the intent-layer lifecycle (§3).
type WithdrawalRequestStatus string

const (
	WithdrawalPending   WithdrawalRequestStatus = "pending"
	WithdrawalApproved  WithdrawalRequestStatus = "approved"
	WithdrawalQueued    WithdrawalRequestStatus = "queued"
	WithdrawalCompleted WithdrawalRequestStatus = "completed"
	WithdrawalFailedReq WithdrawalRequestStatus = "failed"
)

// WithdrawalRequest is the intent layer a user/operator approves.
type WithdrawalRequest struct {
	ID            int64                   `gorm:"primary_key"`
	UID           string                  `gorm:"column:uid;not null"`
	ChainID       int64                   `gorm:"column:chain_id;not null"`
	AssetOnChainID int64                  `gorm:"column:asset_on_chain_id;not null"`
	ToAddress     string                  `gorm:"column:to_address;not null"`
	AmountRaw     string                  `gorm:"column:amount_raw;not null"`
	AmountHuman   string                  `gorm:"column:amount_human;not null"`
	Status        WithdrawalRequestStatus `gorm:"not null"`
	FinalTxHash   *string                 `gorm:"column:final_tx_hash"`
}

func (WithdrawalRequest) TableName() string { return "withdrawal_requests" }

// WithdrawalJob is the execution-layer row in withdrawal_queue.
type WithdrawalJob struct {
	ID                       int64 `gorm:"primary_key"`
	WithdrawalRequestID      int64 `gorm:"column:withdrawal_request_id;not null"`
	ChainID                  int64 `gorm:"column:chain_id;not null"`
	OperationWalletAddressID int64 `gorm:"column:operation_wallet_address_id;not null"`

	Status       QueueStatus `gorm:"not null"`
	Priority     Priority    `gorm:"not null"`
	TxHash       *string     `gorm:"column:tx_hash"`
	RetryCount   int         `gorm:"column:retry_count;not null"`
	MaxRetries   int         `gorm:"column:max_retries;not null"`
	ErrorMessage *string     `gorm:"column:error_message"`

	ScheduledAt time.Time  `gorm:"column:scheduled_at;not null"`
	ProcessedAt *time.Time `gorm:"column:processed_at"`

	GasUsed  *string `gorm:"column:gas_used"`
	GasPrice *string `gorm:"column:gas_price"`
}

func (WithdrawalJob) TableName() string { return "withdrawal_queue" }

// ConsolidationRule and GasTopupRule supplement spec.md's planner
// description with a concrete rule-row shape (SPEC_FULL.md §3 [NEW]).
type ConsolidationRule struct {
	ID             int64  `gorm:"primary_key"`
	ChainID        int64  `gorm:"column:chain_id;not null"`
	AssetOnChainID int64  `gorm:"column:asset_on_chain_id;not null"`
	Operator       string `gorm:"not null"`
	ThresholdHuman string `gorm:"column:threshold_human;not null"`
	Priority       int    `gorm:"not null"`
	IsActive       bool   `gorm:"column:is_active;not null"`
	Metadata       string `gorm:"type:jsonb"`
}

func (ConsolidationRule) TableName() string { return "consolidation_rules" }

type GasTopupRule struct {
	ID               int64  `gorm:"primary_key"`
	ChainID          int64  `gorm:"column:chain_id;not null"`
	GasAssetID       int64  `gorm:"column:gas_asset_id;not null"`
	Operator         string `gorm:"not null"`
	ThresholdHuman   string `gorm:"column:threshold_human;not null"`
	TopupAmountHuman string `gorm:"column:topup_amount_human;not null"`
	Priority         int    `gorm:"not null"`
	IsActive         bool   `gorm:"column:is_active;not null"`
	Metadata         string `gorm:"type:jsonb"`
}

func (GasTopupRule) TableName() string { return "gas_topup_rules" }

// RuleLog rows are the append-only audit trail of every rule evaluation
// (§3, §4.7).
type ConsolidationRuleLog struct {
	ID              int64     `gorm:"primary_key"`
	WalletBalanceID int64     `gorm:"column:wallet_balance_id;not null"`
	RuleID          *int64    `gorm:"column:rule_id"`
	Matched         bool      `gorm:"not null"`
	BalanceHuman    string    `gorm:"column:balance_human;not null"`
	Operator        string    `gorm:"not null"`
	ThresholdHuman  string    `gorm:"column:threshold_human"`
	EvaluatedAt     time.Time `gorm:"column:evaluated_at;not null"`
}

func (ConsolidationRuleLog) TableName() string { return "consolidation_rule_logs" }

type GasTopupRuleLog struct {
	ID              int64     `gorm:"primary_key"`
	WalletBalanceID int64     `gorm:"column:wallet_balance_id;not null"`
	RuleID          *int64    `gorm:"column:rule_id"`
	Matched         bool      `gorm:"not null"`
	BalanceHuman    string    `gorm:"column:balance_human;not null"`
	Operator        string    `gorm:"not null"`
	ThresholdHuman  string    `gorm:"column:threshold_human"`
	EvaluatedAt     time.Time `gorm:"column:evaluated_at;not null"`
}

func (GasTopupRuleLog) TableName() string { return "gas_topup_rule_logs" }

// IncidentMode gates mutating workers (§4.3).
type IncidentMode string

const (
	ModeNormal    IncidentMode = "normal"
	ModeDegraded  IncidentMode = "degraded"
	ModeEmergency IncidentMode = "emergency"
)

// WorkerStatus is a control-plane heartbeat row (§6).
type WorkerStatus struct {
	WorkerID      string    `gorm:"primary_key;column:worker_id"`
	Role          string    `gorm:"not null"`
	ChainID       *int64    `gorm:"column:chain_id"`
	State         string    `gorm:"not null"`
	LastHeartbeat time.Time `gorm:"column:last_heartbeat;not null"`
}

func (WorkerStatus) TableName() string { return "worker_status" }

// WorkerExecution is one execution-log record per cycle (§4.3, §6).
type WorkerExecution struct {
	ID         int64     `gorm:"primary_key"`
	WorkerID   string    `gorm:"column:worker_id;not null"`
	Type       string    `gorm:"not null"`
	Status     string    `gorm:"not null"`
	DurationMs int64     `gorm:"column:duration_ms;not null"`
	Error      *string   `gorm:"column:error"`
	Metadata   *string   `gorm:"column:metadata;type:jsonb"`
	Timestamp  time.Time `gorm:"column:ts;not null"`
}

func (WorkerExecution) TableName() string { return "worker_executions" }

// WorkerConfig is a key/value control-plane row; key "incident_mode"
// holds {mode, degraded_gas_allowed}, and a maintenance flag lives under
// its own key (§6).
type WorkerConfig struct {
	Key   string `gorm:"primary_key"`
	Value string `gorm:"type:jsonb;not null"`
}

func (WorkerConfig) TableName() string { return "worker_configs" }
