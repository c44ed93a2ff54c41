package runtime

import (
	"github.com/coinsensei/chain-workers/internal/store"
)

// Guard consults worker_configs before each cycle: a maintenance flag
// stops every worker, incident mode stops mutating workers unless the
// operator has explicitly allowed degraded-mode gas topups (§4.3, §6).
type Guard struct {
	control *store.ControlRepo
}

// NewGuard builds a Guard over control.
func NewGuard(control *store.ControlRepo) *Guard {
	return &Guard{control: control}
}

// mutatingRoles are the worker roles that write chain state (queue
// execution, not detection/confirmation/sync/planning) and are therefore
// subject to incident-mode gating.
var mutatingRoles = map[string]bool{
	"gas-topup":     true,
	"consolidation": true,
	"withdrawal":    true,
}

// Allow reports whether role should run its cycle this tick, and if not,
// why (for the skip log line).
func (g *Guard) Allow(role string) (bool, string, error) {
	maintenance, err := g.control.ReadMaintenance()
	if err != nil {
		return false, "", err
	}
	if maintenance {
		return false, "maintenance mode", nil
	}

	if !mutatingRoles[role] {
		return true, "", nil
	}

	mode, err := g.control.ReadIncidentMode()
	if err != nil {
		return false, "", err
	}
	switch mode.Mode {
	case "emergency":
		return false, "incident mode: emergency", nil
	case "degraded":
		if role == "gas-topup" && mode.DegradedGasAllowed {
			return true, "", nil
		}
		return false, "incident mode: degraded", nil
	default:
		return true, "", nil
	}
}
