package planner

import (
	"github.com/coinsensei/chain-workers/internal/store"
	"github.com/coinsensei/chain-workers/internal/store/model"
)

// RuleLog appends one audit row per rule considered during planning,
// matched or not, including the terminal "no rule matched" case
// (SPEC_FULL.md §4.7 [NEW]).
type RuleLog struct {
	store *store.Store
}

// LogConsolidation appends a consolidation_rule_logs row.
func (l *RuleLog) LogConsolidation(walletBalanceID int64, ruleID *int64, matched bool, balanceHuman, operator, thresholdHuman string) error {
	return l.store.Rules.LogConsolidationEvaluation(&model.ConsolidationRuleLog{
		WalletBalanceID: walletBalanceID,
		RuleID:          ruleID,
		Matched:         matched,
		BalanceHuman:    balanceHuman,
		Operator:        operator,
		ThresholdHuman:  thresholdHuman,
	})
}

// LogGasTopup appends a gas_topup_rule_logs row.
func (l *RuleLog) LogGasTopup(walletBalanceID int64, ruleID *int64, matched bool, balanceHuman, operator, thresholdHuman string) error {
	return l.store.Rules.LogGasTopupEvaluation(&model.GasTopupRuleLog{
		WalletBalanceID: walletBalanceID,
		RuleID:          ruleID,
		Matched:         matched,
		BalanceHuman:    balanceHuman,
		Operator:        operator,
		ThresholdHuman:  thresholdHuman,
	})
}
