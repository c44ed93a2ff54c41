// Package planner implements the rule-execution planner (§4.7): for
// every idle user-wallet balance row, evaluate gas-topup rules first,
// then evaluate consolidation rules, enqueue a consolidation job only if
// gas is not needed (with a race-safety re-read), and log every rule
// evaluation whether it matched or not.
package planner

import (
	"context"

	"github.com/coinsensei/chain-workers/internal/idgen"
	"github.com/coinsensei/chain-workers/internal/log"
	"github.com/coinsensei/chain-workers/internal/money"
	"github.com/coinsensei/chain-workers/internal/store"
	"github.com/coinsensei/chain-workers/internal/store/model"
)

// Planner drives one chain's rule-evaluation cycle.
type Planner struct {
	chainRow model.Chain
	store    *store.Store
	workerID string
	batch    int
	rulelog  *RuleLog
}

// New builds a Planner for chainRow.
func New(chainRow model.Chain, st *store.Store, batch int) *Planner {
	return &Planner{
		chainRow: chainRow,
		store:    st,
		workerID: idgen.WorkerID("planner", chainRow.Name),
		batch:    batch,
		rulelog:  &RuleLog{store: st},
	}
}

// Cycle implements §4.7 end to end.
func (p *Planner) Cycle(ctx context.Context) error {
	logger := log.NewModuleLogger(log.Planner)

	userWallets, err := p.store.Wallets.MonitoredAddresses(p.chainRow.ID)
	if err != nil {
		return err
	}
	if len(userWallets) == 0 {
		return nil
	}
	userWalletIDs := make([]int64, 0, len(userWallets))
	for _, w := range userWallets {
		userWalletIDs = append(userWalletIDs, w.ID)
	}

	rows, err := p.store.Balances.SelectForPlanner(userWalletIDs, p.batch)
	if err != nil {
		return err
	}

	ids := make([]int64, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID)
	}
	acquired, err := p.store.Balances.AcquireGeneralLease(ids, p.workerID)
	if err != nil {
		return err
	}
	leased := make(map[int64]bool, len(acquired))
	for _, id := range acquired {
		leased[id] = true
	}

	for _, row := range rows {
		if !leased[row.ID] {
			continue
		}
		if err := p.evaluateRow(row); err != nil {
			logger.Warnw("planner row failed", "wallet_balance_id", row.ID, "error", err)
			if ferr := p.store.Balances.FailPlannerRow(row.ID, err.Error()); ferr != nil {
				logger.Warnw("fail planner row failed", "wallet_balance_id", row.ID, "error", ferr)
			}
		}
	}

	return nil
}

func (p *Planner) evaluateRow(row model.WalletBalance) error {
	// Defence-in-depth membership check: SelectForPlanner already scoped
	// to userWalletIDs, but a wallet could have been deactivated between
	// the select and here (§4.7, P7).
	isUser, err := p.store.Wallets.IsActiveUserWallet(row.WalletID)
	if err != nil {
		return err
	}
	if !isUser {
		return p.store.Balances.FinalizePlannerRow(row.ID, false, model.PriorityUnknown, false, model.PriorityUnknown)
	}

	nativeNeedsGas, gasPriority, err := p.evaluateGas(row)
	if err != nil {
		return err
	}

	// Consolidation rules are always evaluated and logged (§4.7 step 2,
	// scenario 6) — a gas match only blocks the *enqueue*, not the
	// evaluation: needs_consolidation is persisted on this row regardless.
	needsConsolidation, consolPriority, err := p.evaluateConsolidation(row)
	if err != nil {
		return err
	}

	if err := p.store.Balances.FinalizePlannerRow(row.ID, needsConsolidation, consolPriority, nativeNeedsGas, gasPriority); err != nil {
		return err
	}

	if needsConsolidation && !nativeNeedsGas {
		if err := p.tryEnqueueConsolidation(row); err != nil {
			return err
		}
	}
	return nil
}

// evaluateGas evaluates gas-topup rules for this row's native-asset
// counterpart and enqueues a gas-topup job on match, per §4.7's
// "gas rules evaluated first" ordering. It returns whether gas is
// currently needed (gas blocks consolidation, P6).
func (p *Planner) evaluateGas(row model.WalletBalance) (needsGas bool, priority model.Priority, err error) {
	asset, err := p.store.Assets.ByID(row.AssetOnChainID)
	if err != nil || asset == nil {
		return false, model.PriorityUnknown, err
	}

	native, err := p.store.Assets.NativeAssetOnChain(p.chainRow.ID)
	if err != nil || native == nil {
		return false, model.PriorityUnknown, err
	}

	nativeRow, err := p.store.Balances.NativeRowForWallet(row.WalletID, native.ID)
	if err != nil {
		return false, model.PriorityUnknown, err
	}
	if nativeRow == nil {
		return false, model.PriorityUnknown, nil
	}

	rules, err := p.store.Rules.ActiveGasTopupRules(native.ID)
	if err != nil {
		return false, model.PriorityUnknown, err
	}

	for _, rule := range rules {
		matched, ok := money.EvalOperator(nativeRow.OnChainBalanceHuman, rule.Operator, rule.ThresholdHuman)
		ruleID := rule.ID
		_ = p.rulelog.LogGasTopup(nativeRow.ID, &ruleID, matched, nativeRow.OnChainBalanceHuman, rule.Operator, rule.ThresholdHuman)
		if !ok || !matched {
			continue
		}

		rulePriority := priorityFromInt(rule.Priority)
		if err := p.store.Balances.SetNeedsGas(nativeRow.ID, true); err != nil {
			return false, model.PriorityUnknown, err
		}
		if err := p.tryEnqueueGasTopup(row, native, nativeRow, rule); err != nil {
			return false, model.PriorityUnknown, err
		}
		return true, rulePriority, nil
	}

	_ = p.rulelog.LogGasTopup(nativeRow.ID, nil, false, nativeRow.OnChainBalanceHuman, "", "")
	return false, model.PriorityUnknown, nil
}

func (p *Planner) evaluateConsolidation(row model.WalletBalance) (needsConsolidation bool, priority model.Priority, err error) {
	rules, err := p.store.Rules.ActiveConsolidationRules(row.AssetOnChainID)
	if err != nil {
		return false, model.PriorityUnknown, err
	}

	for _, rule := range rules {
		matched, ok := money.EvalOperator(row.OnChainBalanceHuman, rule.Operator, rule.ThresholdHuman)
		ruleID := rule.ID
		_ = p.rulelog.LogConsolidation(row.ID, &ruleID, matched, row.OnChainBalanceHuman, rule.Operator, rule.ThresholdHuman)
		if !ok || !matched {
			continue
		}
		return true, priorityFromInt(rule.Priority), nil
	}

	_ = p.rulelog.LogConsolidation(row.ID, nil, false, row.OnChainBalanceHuman, "", "")
	return false, model.PriorityUnknown, nil
}

// tryEnqueueConsolidation re-reads needs_gas fresh before enqueueing —
// the race-safety guard from §4.7 step 3, since gas status could have
// changed between finalization and this point within the same cycle.
func (p *Planner) tryEnqueueConsolidation(row model.WalletBalance) error {
	stillNeedsGas, err := p.store.Balances.ReadNeedsGas(row.ID)
	if err != nil {
		return err
	}
	if stillNeedsGas {
		return nil
	}

	has, err := p.store.Consolidation.HasActiveJob(row.ID)
	if err != nil {
		return err
	}
	if has {
		return nil
	}

	dest, err := p.selectDestination(p.chainRow.ID, model.RoleHot)
	if err != nil {
		return err
	}
	if dest == nil {
		return nil
	}

	_, err = p.store.Consolidation.Enqueue(&model.ConsolidationJob{
		ChainID:             p.chainRow.ID,
		WalletID:            row.WalletID,
		WalletBalanceID:     row.ID,
		DestinationWalletID: dest.ID,
		AmountRaw:           row.OnChainBalanceRaw,
		AmountHuman:         row.OnChainBalanceHuman,
		Status:              model.QueuePending,
		Priority:            model.PriorityNormal,
		ScheduledAt:         store.Now(),
	})
	return err
}

func (p *Planner) tryEnqueueGasTopup(row model.WalletBalance, native *model.AssetOnChain, nativeRow *model.WalletBalance, rule model.GasTopupRule) error {
	has, err := p.store.GasTopup.HasActiveJob(p.chainRow.ID, native.ID, row.WalletID)
	if err != nil {
		return err
	}
	if has {
		return nil
	}

	dest, err := p.selectDestination(p.chainRow.ID, model.RoleGas)
	if err != nil {
		return err
	}
	if dest == nil {
		dest, err = p.selectDestination(p.chainRow.ID, model.RoleHot)
		if err != nil {
			return err
		}
	}
	if dest == nil {
		return nil
	}

	topupRaw, err := money.HumanToRaw(rule.TopupAmountHuman, native.Decimals)
	if err != nil {
		return err
	}

	_, err = p.store.GasTopup.Enqueue(&model.GasTopupJob{
		ChainID:             p.chainRow.ID,
		GasAssetID:          native.ID,
		WalletID:            row.WalletID,
		DestinationWalletID: dest.ID,
		TopupAmountRaw:      topupRaw,
		TopupAmountHuman:    rule.TopupAmountHuman,
		Status:              model.QueuePending,
		Priority:            priorityFromInt(rule.Priority),
		ScheduledAt:         store.Now(),
	})
	return err
}

// selectDestination picks the least-recently-used active operation
// wallet for role on chainID and bumps its last_used_at (best-effort),
// the round-robin tiebreaker from §4.7.
func (p *Planner) selectDestination(chainID int64, role model.OperationRole) (*model.OperationWalletAddress, error) {
	candidates, err := p.store.Wallets.ActiveOperationWallets(chainID, role)
	if err != nil || len(candidates) == 0 {
		return nil, err
	}
	_ = p.store.Wallets.BumpLastUsed(candidates[0].ID)
	return &candidates[0], nil
}

func priorityFromInt(n int) model.Priority {
	switch {
	case n <= 0:
		return model.PriorityHigh
	case n == 1:
		return model.PriorityNormal
	default:
		return model.PriorityLow
	}
}
