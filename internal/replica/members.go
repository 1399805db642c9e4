package replica

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/MahmoudMosalm88/gymflow-sub002/internal/domain/attendance"
)

func (s *Store) MemberByID(id int64) (*MemberRecord, error) {
	return s.memberWhere(`id = ?`, id)
}

func (s *Store) MemberByPhone(phone string) (*MemberRecord, error) {
	return s.memberWhere(`phone = ?`, phone)
}

func (s *Store) MemberByCardCode(code string) (*MemberRecord, error) {
	return s.memberWhere(`card_code = ?`, code)
}

// ResolveByCredential mirrors the server-side resolution order: numeric
// member id, then phone, then card code.
func (s *Store) ResolveByCredential(value string) (*MemberRecord, error) {
	if id, err := strconv.ParseInt(value, 10, 64); err == nil {
		rec, err := s.MemberByID(id)
		if err != nil || rec != nil {
			return rec, err
		}
	}
	rec, err := s.MemberByPhone(value)
	if err != nil || rec != nil {
		return rec, err
	}
	return s.MemberByCardCode(value)
}

func (s *Store) memberWhere(cond string, arg any) (*MemberRecord, error) {
	row := s.db.QueryRow(`SELECT snapshot, provisional FROM members WHERE `+cond, arg)

	var raw string
	var provisional int
	if err := row.Scan(&raw, &provisional); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	var rec MemberRecord
	if err := json.Unmarshal([]byte(raw), &rec.Snapshot); err != nil {
		return nil, fmt.Errorf("replica snapshot decode: %w", err)
	}
	rec.Provisional = provisional != 0
	return &rec, nil
}

// ApplyBundle replaces the members and settings tables with the server
// snapshot (clear-then-repopulate, never merge) and records the clock
// offset and refresh instant in sync_meta. Provisional local state is
// overwritten wholesale.
func (s *Store) ApplyBundle(b *attendance.Bundle, localNow time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM members`); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM settings`); err != nil {
		return err
	}

	for _, mb := range b.Members {
		snap := mb.Snapshot
		if snap.LastSuccess == nil && mb.LastSuccessUnix != nil {
			t := time.Unix(*mb.LastSuccessUnix, 0)
			snap.LastSuccess = &t
		}
		raw, err := json.Marshal(snap)
		if err != nil {
			return fmt.Errorf("replica snapshot encode: %w", err)
		}
		if _, err := tx.Exec(`
			INSERT INTO members (id, phone, card_code, snapshot, provisional)
			VALUES (?, ?, ?, ?, 0)
		`, snap.Member.ID, snap.Member.Phone, snap.Member.CardCode, string(raw)); err != nil {
			return err
		}
	}

	for k, v := range b.Settings {
		if _, err := tx.Exec(`INSERT INTO settings (key, value) VALUES (?, ?)`, k, v); err != nil {
			return err
		}
	}

	offset := b.ServerNow - localNow.Unix()
	if err := setMetaTx(tx, MetaServerTimeOffset, strconv.FormatInt(offset, 10)); err != nil {
		return err
	}
	if err := setMetaTx(tx, MetaLastBundleSync, strconv.FormatInt(localNow.Unix(), 10)); err != nil {
		return err
	}

	return tx.Commit()
}

// ApplyLocalSuccess performs the optimistic post-admit mutation: bump the
// current-cycle quota, stamp the last success, and mark the row provisional
// so the next bundle sync reconciles it. Immediately-following local scans
// see the updated counters.
func (s *Store) ApplyLocalSuccess(memberID int64, at time.Time) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := applyLocalSuccessTx(tx, memberID, at); err != nil {
		return err
	}
	return tx.Commit()
}

func applyLocalSuccessTx(tx *sql.Tx, memberID int64, at time.Time) error {
	row := tx.QueryRow(`SELECT snapshot FROM members WHERE id = ?`, memberID)
	var raw string
	if err := row.Scan(&raw); err != nil {
		return err
	}
	var snap attendance.Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		return fmt.Errorf("replica snapshot decode: %w", err)
	}

	ts := at
	snap.LastSuccess = &ts

	if sub := snap.Subscription; sub != nil {
		if cycleStart, cycleEnd, ok := attendance.MonthlyCycleWindow(sub.StartDate, sub.EndDate, at); ok {
			if q := snap.Quota; q != nil && q.CycleStart.Equal(cycleStart) {
				q.SessionsUsed++
			} else {
				snap.Quota = &attendance.Quota{
					SubscriptionID: sub.ID,
					SessionsUsed:   1,
					SessionsCap:    attendance.EffectiveCap(snap),
					CycleStart:     cycleStart,
					CycleEnd:       cycleEnd,
				}
			}
		}
	}

	out, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("replica snapshot encode: %w", err)
	}
	_, err = tx.Exec(`UPDATE members SET snapshot = ?, provisional = 1 WHERE id = ?`, string(out), memberID)
	return err
}

func (s *Store) Settings() (map[string]string, error) {
	rows, err := s.db.Query(`SELECT key, value FROM settings`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, rows.Err()
}
