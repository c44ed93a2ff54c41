package store

import (
	"encoding/json"

	"github.com/jinzhu/gorm"

	"github.com/coinsensei/chain-workers/internal/store/model"
)

// ControlRepo implements the control-plane tables every worker touches:
// heartbeats, the execution log, and the incident-mode/maintenance
// switches (§6).
type ControlRepo struct{ db *gorm.DB }

// Heartbeat upserts this worker's worker_status row. It updates the row
// and inserts it when no row was updated, since gorm v1 has no native
// upsert — mirrors the teacher's "read, then write" state-sync style
// (DESIGN.md).
func (r *ControlRepo) Heartbeat(workerID, role string, chainID *int64, state string) error {
	now := Now()
	tx := r.db.Model(&model.WorkerStatus{}).
		Where("worker_id = ?", workerID).
		Updates(map[string]interface{}{
			"role":           role,
			"chain_id":       chainID,
			"state":          state,
			"last_heartbeat": now,
		})
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected > 0 {
		return nil
	}
	return r.db.Create(&model.WorkerStatus{
		WorkerID:      workerID,
		Role:          role,
		ChainID:       chainID,
		State:         state,
		LastHeartbeat: now,
	}).Error
}

// RecordExecution appends one row to the execution log per cycle (§4.3,
// §6). metadata may be nil.
func (r *ControlRepo) RecordExecution(workerID, execType, status string, durationMs int64, execErr *string, metadata interface{}) error {
	var metaJSON *string
	if metadata != nil {
		b, err := json.Marshal(metadata)
		if err != nil {
			return err
		}
		s := string(b)
		metaJSON = &s
	}
	return r.db.Create(&model.WorkerExecution{
		WorkerID:   workerID,
		Type:       execType,
		Status:     status,
		DurationMs: durationMs,
		Error:      execErr,
		Metadata:   metaJSON,
		Timestamp:  Now(),
	}).Error
}

// IncidentMode is the decoded shape of the worker_configs "incident_mode"
// value (§6).
type IncidentMode struct {
	Mode               model.IncidentMode `json:"mode"`
	DegradedGasAllowed bool               `json:"degraded_gas_allowed"`
}

const incidentModeKey = "incident_mode"
const maintenanceKey = "maintenance"

// ReadIncidentMode reads and decodes the incident_mode config row,
// defaulting to normal/not-allowed if the row is absent (a fresh
// deployment has no operator override yet).
func (r *ControlRepo) ReadIncidentMode() (IncidentMode, error) {
	var row model.WorkerConfig
	err := r.db.Where("key = ?", incidentModeKey).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return IncidentMode{Mode: model.ModeNormal}, nil
	}
	if err != nil {
		return IncidentMode{}, err
	}
	var m IncidentMode
	if err := json.Unmarshal([]byte(row.Value), &m); err != nil {
		return IncidentMode{}, err
	}
	return m, nil
}

// ReadMaintenance reads the maintenance boolean flag, defaulting to
// false if absent.
func (r *ControlRepo) ReadMaintenance() (bool, error) {
	var row model.WorkerConfig
	err := r.db.Where("key = ?", maintenanceKey).First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	var v struct {
		Enabled bool `json:"enabled"`
	}
	if err := json.Unmarshal([]byte(row.Value), &v); err != nil {
		return false, err
	}
	return v.Enabled, nil
}
