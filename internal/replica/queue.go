package replica

import (
	"fmt"
	"time"

	"github.com/MahmoudMosalm88/gymflow-sub002/internal/domain/attendance"
)

// EnqueueSuccess records an offline-admitted check-in and applies the
// optimistic member mutation in the same transaction, so the queue entry and
// the provisional counters are durable together before the scan returns.
func (s *Store) EnqueueSuccess(op QueuedCheckIn) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
		INSERT INTO checkin_queue (operation_id, device_id, member_id, scanned_value, method, offline_ts, status, retries, last_error, created_at)
		VALUES (?, ?, ?, ?, ?, ?, 'pending', 0, '', ?)
	`, op.OperationID, op.DeviceID, op.MemberID, op.ScannedValue, string(op.Method), op.OfflineTimestamp.Unix(), op.CreatedAt.Unix()); err != nil {
		return err
	}
	if err := applyLocalSuccessTx(tx, op.MemberID, op.OfflineTimestamp); err != nil {
		return err
	}
	return tx.Commit()
}

// PendingOps returns pending operations in creation order. FIFO replay
// preserves the sequence in which people were actually admitted.
func (s *Store) PendingOps() ([]QueuedCheckIn, error) {
	rows, err := s.db.Query(`
		SELECT operation_id, device_id, member_id, scanned_value, method, offline_ts, status, retries, last_error, created_at
		FROM checkin_queue
		WHERE status = 'pending'
		ORDER BY created_at, operation_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []QueuedCheckIn
	for rows.Next() {
		var op QueuedCheckIn
		var method string
		var status string
		var offlineTS, createdAt int64
		if err := rows.Scan(&op.OperationID, &op.DeviceID, &op.MemberID, &op.ScannedValue, &method, &offlineTS, &status, &op.Retries, &op.LastError, &createdAt); err != nil {
			return nil, err
		}
		op.Method = attendance.Method(method)
		op.Status = OpStatus(status)
		op.OfflineTimestamp = time.Unix(offlineTS, 0)
		op.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, op)
	}
	return out, rows.Err()
}

// MarkSyncing claims a pending operation for replay. Returns false when the
// operation is no longer pending (claimed elsewhere or already terminal).
func (s *Store) MarkSyncing(operationID string) (bool, error) {
	res, err := s.db.Exec(`
		UPDATE checkin_queue SET status = 'syncing' WHERE operation_id = ? AND status = 'pending'
	`, operationID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

func (s *Store) MarkSynced(operationID string) error {
	return s.transition(operationID, OpSynced, "")
}

// MarkFailed parks the operation in the terminal failed state; only an
// operator requeue brings it back.
func (s *Store) MarkFailed(operationID, lastError string) error {
	return s.transition(operationID, OpFailed, lastError)
}

// RevertPending puts a syncing operation back in the queue after a
// connectivity failure and counts the retry.
func (s *Store) RevertPending(operationID, lastError string) error {
	_, err := s.db.Exec(`
		UPDATE checkin_queue
		SET status = 'pending', retries = retries + 1, last_error = ?
		WHERE operation_id = ?
	`, lastError, operationID)
	return err
}

func (s *Store) transition(operationID string, to OpStatus, lastError string) error {
	res, err := s.db.Exec(`
		UPDATE checkin_queue SET status = ?, last_error = ? WHERE operation_id = ?
	`, string(to), lastError, operationID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("replica queue: unknown operation %s", operationID)
	}
	return nil
}

// RequeueFailed is the operator's "retry everything that needs attention".
func (s *Store) RequeueFailed() (int, error) {
	res, err := s.db.Exec(`
		UPDATE checkin_queue SET status = 'pending', last_error = '' WHERE status = 'failed'
	`)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), err
}

func (s *Store) Counts() (QueueCounts, error) {
	rows, err := s.db.Query(`SELECT status, COUNT(*) FROM checkin_queue GROUP BY status`)
	if err != nil {
		return QueueCounts{}, err
	}
	defer rows.Close()

	var c QueueCounts
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return QueueCounts{}, err
		}
		switch OpStatus(status) {
		case OpPending:
			c.Pending = n
		case OpSyncing:
			c.Syncing = n
		case OpSynced:
			c.Synced = n
		case OpFailed:
			c.Failed = n
		}
	}
	return c, rows.Err()
}
