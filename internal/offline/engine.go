// Package offline decides check-ins from the local replica when the server
// is unreachable, enqueueing successes for later replay. It runs the same
// rule engine as the authoritative service; only the snapshot source and the
// clock differ.
package offline

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MahmoudMosalm88/gymflow-sub002/internal/domain/attendance"
	"github.com/MahmoudMosalm88/gymflow-sub002/internal/domain/settings"
	"github.com/MahmoudMosalm88/gymflow-sub002/internal/infra/metrics"
	"github.com/MahmoudMosalm88/gymflow-sub002/internal/replica"
)

// Decision extends the shared result with the locally resolved member and,
// on success, the operation id queued for replay.
type Decision struct {
	attendance.Result
	MemberID    *int64 `json:"member_id,omitempty"`
	MemberName  string `json:"member_name,omitempty"`
	OperationID string `json:"operation_id,omitempty"`
}

type Engine struct {
	store *replica.Store
	log   *slog.Logger
	now   func() time.Time

	// Serializes scans so an optimistic update is never lost between two
	// concurrent local decisions for the same member.
	mu sync.Mutex
}

func NewEngine(store *replica.Store, log *slog.Logger) *Engine {
	return &Engine{store: store, log: log, now: time.Now}
}

func (e *Engine) CheckIn(scannedValue string, method attendance.Method) (Decision, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	value := strings.TrimSpace(scannedValue)

	rec, err := e.store.ResolveByCredential(value)
	if err != nil {
		return Decision{}, err
	}
	if rec == nil {
		metrics.CheckinDecisions.WithLabelValues(string(attendance.ReasonUnknownMember), "offline").Inc()
		return Decision{Result: attendance.Result{Reason: attendance.ReasonUnknownMember}}, nil
	}

	offset, err := e.store.ServerTimeOffset()
	if err != nil {
		return Decision{}, err
	}
	now := e.now().Add(offset)

	setts, err := e.store.Settings()
	if err != nil {
		return Decision{}, err
	}
	cooldown := settings.Cooldown(setts)

	res := attendance.Evaluate(rec.Snapshot, now, cooldown)
	member := rec.Snapshot.Member
	metrics.CheckinDecisions.WithLabelValues(string(res.Reason), "offline").Inc()
	if !res.Allowed {
		return Decision{Result: res, MemberID: &member.ID, MemberName: member.Name}, nil
	}

	deviceID, err := e.store.DeviceID()
	if err != nil {
		return Decision{}, err
	}
	op := replica.QueuedCheckIn{
		OperationID:      uuid.NewString(),
		DeviceID:         deviceID,
		MemberID:         member.ID,
		ScannedValue:     value,
		Method:           method,
		OfflineTimestamp: now,
		Status:           replica.OpPending,
		CreatedAt:        e.now(),
	}
	if err := e.store.EnqueueSuccess(op); err != nil {
		return Decision{}, err
	}

	e.log.Info("offline check-in queued", "member_id", member.ID, "operation_id", op.OperationID)
	return Decision{Result: res, MemberID: &member.ID, MemberName: member.Name, OperationID: op.OperationID}, nil
}
