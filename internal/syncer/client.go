package syncer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/MahmoudMosalm88/gymflow-sub002/internal/domain/attendance"
	"github.com/MahmoudMosalm88/gymflow-sub002/internal/replica"
)

// ErrUnreachable classifies connectivity-class failures: the server may be
// fine, we just could not talk to it. Callers keep the operation pending.
var ErrUnreachable = errors.New("syncer: server unreachable")

// ErrRejected classifies permanent server-side validation rejections; the
// operation will never succeed as-is.
var ErrRejected = errors.New("syncer: operation rejected")

type Client struct {
	baseURL  string
	http     *http.Client
	orgID    int64
	branchID int64
}

func NewClient(baseURL string, orgID, branchID int64) *Client {
	return &Client{
		baseURL:  baseURL,
		http:     &http.Client{Timeout: 10 * time.Second},
		orgID:    orgID,
		branchID: branchID,
	}
}

// CheckIn performs the online check-in call. operationID is empty for live
// scans and set for queue replays.
func (c *Client) CheckIn(ctx context.Context, scannedValue string, method attendance.Method, operationID string) (attendance.Decision, error) {
	req := attendance.Request{
		ScannedValue: scannedValue,
		Method:       method,
		OrgID:        c.orgID,
		BranchID:     c.branchID,
		OperationID:  operationID,
	}
	body, err := json.Marshal(req)
	if err != nil {
		return attendance.Decision{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/v1/checkin", bytes.NewReader(body))
	if err != nil {
		return attendance.Decision{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return attendance.Decision{}, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	defer func() { _, _ = io.Copy(io.Discard, resp.Body); _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusOK:
		var dec attendance.Decision
		if err := json.NewDecoder(resp.Body).Decode(&dec); err != nil {
			return attendance.Decision{}, fmt.Errorf("%w: decode: %v", ErrUnreachable, err)
		}
		return dec, nil
	case resp.StatusCode >= 500:
		// Includes 503 from the server's own infra failures: retriable.
		return attendance.Decision{}, fmt.Errorf("%w: status %d", ErrUnreachable, resp.StatusCode)
	default:
		return attendance.Decision{}, fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
	}
}

// Replay pushes one queued operation through the idempotent check-in path.
func (c *Client) Replay(ctx context.Context, op replica.QueuedCheckIn) (attendance.Decision, error) {
	return c.CheckIn(ctx, op.ScannedValue, op.Method, op.OperationID)
}

// FetchBundle pulls the branch bundle, retrying transient failures with
// capped exponential backoff before giving up.
func (c *Client) FetchBundle(ctx context.Context) (*attendance.Bundle, error) {
	var bundle *attendance.Bundle

	backoff := retry.WithMaxRetries(3, retry.NewExponential(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		url := fmt.Sprintf("%s/api/v1/offline-bundle?org_id=%d&branch_id=%d", c.baseURL, c.orgID, c.branchID)
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := c.http.Do(httpReq)
		if err != nil {
			return retry.RetryableError(fmt.Errorf("%w: %v", ErrUnreachable, err))
		}
		defer func() { _, _ = io.Copy(io.Discard, resp.Body); _ = resp.Body.Close() }()

		if resp.StatusCode != http.StatusOK {
			err := fmt.Errorf("%w: status %d", ErrUnreachable, resp.StatusCode)
			if resp.StatusCode >= 500 {
				return retry.RetryableError(err)
			}
			return err
		}

		var b attendance.Bundle
		if err := json.NewDecoder(resp.Body).Decode(&b); err != nil {
			return fmt.Errorf("bundle decode: %w", err)
		}
		bundle = &b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return bundle, nil
}
