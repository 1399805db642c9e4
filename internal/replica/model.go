package replica

import (
	"time"

	"github.com/MahmoudMosalm88/gymflow-sub002/internal/domain/attendance"
)

type OpStatus string

const (
	OpPending OpStatus = "pending"
	OpSyncing OpStatus = "syncing"
	OpSynced  OpStatus = "synced"
	OpFailed  OpStatus = "failed"
)

// QueuedCheckIn is one offline-admitted entry awaiting replay against the
// server. OperationID is the idempotency key.
type QueuedCheckIn struct {
	OperationID      string            `json:"operation_id"`
	DeviceID         string            `json:"device_id"`
	MemberID         int64             `json:"member_id"`
	ScannedValue     string            `json:"scanned_value"`
	Method           attendance.Method `json:"method"`
	OfflineTimestamp time.Time         `json:"offline_timestamp"`
	Status           OpStatus          `json:"status"`
	Retries          int               `json:"retries"`
	LastError        string            `json:"last_error,omitempty"`
	CreatedAt        time.Time         `json:"created_at"`
}

// QueueCounts feeds the sync-status indicator. Failed is surfaced apart from
// Pending so an operator can tell "waiting for connectivity" from "needs
// attention".
type QueueCounts struct {
	Pending int `json:"pending"`
	Syncing int `json:"syncing"`
	Synced  int `json:"synced"`
	Failed  int `json:"failed"`
}

// MemberRecord is a replica row: the decoded snapshot plus the provisional
// marker set by optimistic local updates. Provisional state is never merged
// field-by-field; the next bundle sync overwrites it unconditionally.
type MemberRecord struct {
	Snapshot    attendance.Snapshot
	Provisional bool
}
