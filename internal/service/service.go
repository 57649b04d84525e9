// Package service holds the collaborators that call the backend and
// dispatch the resulting start/success/failure intents into the store.
package service

import (
	"context"

	"snapfeed/internal/models"
	"snapfeed/internal/observability"
	"snapfeed/internal/store"
)

// StateStore is the part of the store services need.
type StateStore interface {
	Dispatch(intent store.Intent)
	GetState() store.RootState
}

// requireUser returns the signed-in user's id or an unauthorized error.
func requireUser(st StateStore) (string, error) {
	id := store.CurrentUserID(st.GetState())
	if id == "" {
		return "", models.NewUnauthorizedError("You must be signed in")
	}
	return id, nil
}

// track wraps one backend operation with the async operation logs.
func track(ctx context.Context, operation string, fields map[string]interface{}, fn func(context.Context) error) error {
	ctx = observability.EnsureCorrelationID(ctx)
	observability.LogAsyncOperationStart(ctx, operation, fields)
	if err := fn(ctx); err != nil {
		observability.LogAsyncOperationError(ctx, operation, err, fields)
		return err
	}
	observability.LogAsyncOperationEnd(ctx, operation, fields)
	return nil
}
