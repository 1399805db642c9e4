package replica

import (
	"database/sql"
	"strconv"
	"time"

	"github.com/google/uuid"
)

const (
	MetaServerTimeOffset = "server_time_offset"
	MetaLastBundleSync   = "last_bundle_sync"
	MetaDeviceID         = "device_id"
)

func (s *Store) Meta(key string) (string, bool, error) {
	row := s.db.QueryRow(`SELECT value FROM sync_meta WHERE key = ?`, key)
	var v string
	if err := row.Scan(&v); err != nil {
		if err == sql.ErrNoRows {
			return "", false, nil
		}
		return "", false, err
	}
	return v, true, nil
}

func (s *Store) SetMeta(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO sync_meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

func setMetaTx(tx *sql.Tx, key, value string) error {
	_, err := tx.Exec(`
		INSERT INTO sync_meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

// ServerTimeOffset is serverNow − localNow from the last bundle sync. Zero
// until the first bundle lands.
func (s *Store) ServerTimeOffset() (time.Duration, error) {
	v, ok, err := s.Meta(MetaServerTimeOffset)
	if err != nil || !ok {
		return 0, err
	}
	secs, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, nil
	}
	return time.Duration(secs) * time.Second, nil
}

func (s *Store) LastBundleSync() (time.Time, bool, error) {
	v, ok, err := s.Meta(MetaLastBundleSync)
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	secs, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, false, nil
	}
	return time.Unix(secs, 0), true, nil
}

// DeviceID returns this device's stable identifier, generating and
// persisting one on first use. It is never reset except by wiping the
// replica file.
func (s *Store) DeviceID() (string, error) {
	v, ok, err := s.Meta(MetaDeviceID)
	if err != nil {
		return "", err
	}
	if ok {
		return v, nil
	}
	id := uuid.NewString()
	if err := s.SetMeta(MetaDeviceID, id); err != nil {
		return "", err
	}
	return id, nil
}
