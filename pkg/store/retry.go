package store

import (
	"context"
	"errors"
	"time"

	"github.com/avast/retry-go/v5"
)

// RetryConfig bounds the retry behavior of a RetryStore.
type RetryConfig struct {
	// Attempts is the total number of tries per call, including the first.
	Attempts uint

	// Delay is the base delay between tries.
	Delay time.Duration
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		Attempts: 3,
		Delay:    250 * time.Millisecond,
	}
}

// RetryStore decorates a PolicyStore with bounded retry and backoff.
// The reconciler consumes it through the PolicyStore interface and stays
// retry-agnostic; retry policy changes never touch reconciliation logic.
//
// Not-found and precondition failures are permanent and returned without
// further tries.
type RetryStore struct {
	next PolicyStore
	cfg  RetryConfig
}

// NewRetryStore wraps next with the given retry configuration.
func NewRetryStore(next PolicyStore, cfg RetryConfig) *RetryStore {
	if cfg.Attempts == 0 {
		cfg = DefaultRetryConfig()
	}
	return &RetryStore{next: next, cfg: cfg}
}

// do runs op under the retry policy.
func (s *RetryStore) do(ctx context.Context, op func() error) error {
	var permanent error

	r := retry.New(
		retry.Context(ctx),
		retry.Attempts(s.cfg.Attempts),
		retry.Delay(s.cfg.Delay),
	)

	err := r.Do(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if isPermanent(err) {
			// Report success to stop the retry loop; the error is
			// surfaced below.
			permanent = err
			return nil
		}
		return err
	})

	if permanent != nil {
		return permanent
	}
	return err
}

// isPermanent reports whether retrying err can never succeed.
func isPermanent(err error) bool {
	var notFound *NotFoundError
	var precondition *PreconditionError
	return errors.As(err, &notFound) || errors.As(err, &precondition)
}

// CheckSession implements PolicyStore.
func (s *RetryStore) CheckSession(ctx context.Context) error {
	return s.do(ctx, func() error { return s.next.CheckSession(ctx) })
}

// ListPolicies implements PolicyStore.
func (s *RetryStore) ListPolicies(ctx context.Context, cursor string) (policies []RemotePolicy, next string, err error) {
	err = s.do(ctx, func() error {
		var e error
		policies, next, e = s.next.ListPolicies(ctx, cursor)
		return e
	})
	return policies, next, err
}

// CreatePolicy implements PolicyStore.
func (s *RetryStore) CreatePolicy(ctx context.Context, name, description, content string) (id string, err error) {
	err = s.do(ctx, func() error {
		var e error
		id, e = s.next.CreatePolicy(ctx, name, description, content)
		return e
	})
	return id, err
}

// UpdatePolicy implements PolicyStore.
func (s *RetryStore) UpdatePolicy(ctx context.Context, id, name, description, content string) error {
	return s.do(ctx, func() error { return s.next.UpdatePolicy(ctx, id, name, description, content) })
}

// ListRoots implements PolicyStore.
func (s *RetryStore) ListRoots(ctx context.Context, cursor string) (roots []HierarchyNode, next string, err error) {
	err = s.do(ctx, func() error {
		var e error
		roots, next, e = s.next.ListRoots(ctx, cursor)
		return e
	})
	return roots, next, err
}

// ListChildren implements PolicyStore.
func (s *RetryStore) ListChildren(ctx context.Context, parentID, cursor string) (children []HierarchyNode, next string, err error) {
	err = s.do(ctx, func() error {
		var e error
		children, next, e = s.next.ListChildren(ctx, parentID, cursor)
		return e
	})
	return children, next, err
}

// ListAttachments implements PolicyStore.
func (s *RetryStore) ListAttachments(ctx context.Context, policyID, cursor string) (targetIDs []string, next string, err error) {
	err = s.do(ctx, func() error {
		var e error
		targetIDs, next, e = s.next.ListAttachments(ctx, policyID, cursor)
		return e
	})
	return targetIDs, next, err
}

// Attach implements PolicyStore.
func (s *RetryStore) Attach(ctx context.Context, policyID, targetID string) error {
	return s.do(ctx, func() error { return s.next.Attach(ctx, policyID, targetID) })
}

// Detach implements PolicyStore.
func (s *RetryStore) Detach(ctx context.Context, policyID, targetID string) error {
	return s.do(ctx, func() error { return s.next.Detach(ctx, policyID, targetID) })
}
