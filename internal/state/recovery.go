package state

import (
	"database/sql"
	"fmt"
	"log"

	"github.com/taskfleet/taskfleet/pkg/models"
)

// RecoveryManager handles detection and recovery of work interrupted by a
// crashed or killed process. An assignment left in-progress by a previous
// run will never be re-selected by the sweep, so on startup it is returned
// to the assigned state. The owning agent's load is left as-is: the
// eventual report after re-processing performs the matching decrement.
type RecoveryManager struct {
	db *DB
}

// NewRecoveryManager creates a new RecoveryManager with the given database.
func NewRecoveryManager(db *DB) *RecoveryManager {
	return &RecoveryManager{db: db}
}

// RecoverInterrupted resets all in-progress assignments back to assigned
// in a single transaction, so a failure partway leaves nothing half reset.
// Agent load is left untouched: the increment from assignment creation is
// still outstanding, and the eventual report after re-processing performs
// the matching decrement. Returns the number of assignments recovered.
//
// This must run before the sweeper starts; the process is the single
// owner of the store at that point, so no claim can race with the reset.
func (rm *RecoveryManager) RecoverInterrupted() (int, error) {
	stuck, err := rm.db.ListAssignmentsByStatus(models.AssignmentStatusInProgress)
	if err != nil {
		return 0, fmt.Errorf("list interrupted assignments: %w", err)
	}
	if len(stuck) == 0 {
		return 0, nil
	}

	err = rm.db.Transaction(func(tx *sql.Tx) error {
		for _, a := range stuck {
			_, err := tx.Exec(resetAssignmentSQL,
				string(models.AssignmentStatusAssigned), a.ID, string(models.AssignmentStatusInProgress))
			if err != nil {
				return fmt.Errorf("reset assignment %s: %w", a.ExternalID, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for _, a := range stuck {
		log.Printf("[recovery] assignment %s returned to assigned state", a.ExternalID)
	}
	return len(stuck), nil
}
