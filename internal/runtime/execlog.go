package runtime

import (
	"time"

	"github.com/coinsensei/chain-workers/internal/errs"
	"github.com/coinsensei/chain-workers/internal/store"
)

// ExecutionLog appends one worker_executions row per cycle, success or
// failure (§4.3, §6).
type ExecutionLog struct {
	control  *store.ControlRepo
	workerID string
	execType string
}

// NewExecutionLog builds an ExecutionLog for workerID/execType (the
// worker's role, used verbatim as the logged "type").
func NewExecutionLog(control *store.ControlRepo, workerID, execType string) *ExecutionLog {
	return &ExecutionLog{control: control, workerID: workerID, execType: execType}
}

// Record writes one execution-log row. A non-nil cycleErr is classified
// via internal/errs and its tagged message stored; metadata carries the
// error kind separately so operators can query by kind without parsing
// the message string.
func (e *ExecutionLog) Record(duration time.Duration, cycleErr error) {
	status := "success"
	var errMsg *string
	var metadata map[string]interface{}

	if cycleErr != nil {
		status = "failed"
		c := errs.As(cycleErr)
		msg := c.Tag()
		errMsg = &msg
		metadata = map[string]interface{}{"kind": string(c.Kind), "retryable": c.Retryable()}
	}

	_ = e.control.RecordExecution(e.workerID, e.execType, status, duration.Milliseconds(), errMsg, metadata)
}
