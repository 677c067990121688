// Package remote is the client for the recommendation service's
// rate-limited HTTP API. All write calls are idempotent from the
// caller's perspective and safe to issue at least once.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized means the api key/secret pair was rejected.
	// Terminal, never retried.
	ErrUnauthorized = errors.New("remote: unauthorized")
)

// RetryExhaustedError wraps a transient failure that survived every
// retry attempt. Jobs failing with it are marked FAILURE and left for
// the next reconciliation pass.
type RetryExhaustedError struct {
	Attempts int
	Err      error
}

func (e *RetryExhaustedError) Error() string {
	return fmt.Sprintf("remote: %d attempts exhausted: %v", e.Attempts, e.Err)
}

func (e *RetryExhaustedError) Unwrap() error {
	return e.Err
}

// KindDiff is one entity kind's entry in a push-diff manifest: either
// the "full" signal or an explicit list of changed ids.
type KindDiff struct {
	Full bool
	IDs  []int64
}

func (d *KindDiff) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if s != "full" {
			return fmt.Errorf("unknown diff signal %q", s)
		}
		d.Full = true
		d.IDs = nil
		return nil
	}

	var ids []int64
	if err := json.Unmarshal(data, &ids); err != nil {
		return fmt.Errorf("diff entry: %w", err)
	}
	d.Full = false
	d.IDs = ids
	return nil
}

func (d KindDiff) MarshalJSON() ([]byte, error) {
	if d.Full {
		return json.Marshal("full")
	}
	return json.Marshal(d.IDs)
}

// SyncManifest is the remote service's answer to "what changed since
// the last reconciliation". Absent fields mean "nothing to do".
type SyncManifest struct {
	Users    *KindDiff `json:"users,omitempty"`
	Products *KindDiff `json:"products,omitempty"`
	Orders   *KindDiff `json:"orders,omitempty"`
}

// API is the narrow contract the sync engine consumes. Identity keys
// address a record on the remote side (e.g. product id plus variant id).
type API interface {
	Create(ctx context.Context, kind string, item any) error
	Update(ctx context.Context, kind string, identity []string, item any) error
	Delete(ctx context.Context, kind string, identity []string) error
	DeleteAll(ctx context.Context, kind string) error
	BatchCreate(ctx context.Context, kind string, items []any) error
	Cancel(ctx context.Context, kind string, id string) error

	// Overview returns the full set of ids the remote service already
	// knows for a kind.
	Overview(ctx context.Context, kind string) ([]int64, error)

	// Sync returns the push-diff manifest since the last reconciliation.
	Sync(ctx context.Context) (*SyncManifest, error)
}
