package account

import (
	"context"

	"go.uber.org/zap"

	"snap-backend/backend/internal/auth"
	"snap-backend/backend/internal/store"
	serrors "snap-backend/backend/pkg/errors"
	"snap-backend/backend/pkg/logger"
)

// ConnectionManager maintains the directed follow graph between accounts.
// An edge (from, to) puts to in from's followList and from in to's
// followedList; the store updates both sides atomically. Direction is
// caller-defined: a mutual follow is two edges with the ids swapped.
// Self-edges are accepted.
type ConnectionManager struct {
	store  store.Store
	creds  auth.Credentials
	logger *zap.Logger
}

// NewConnectionManager creates a connection manager.
func NewConnectionManager(st store.Store, creds auth.Credentials) *ConnectionManager {
	return &ConnectionManager{
		store:  st,
		creds:  creds,
		logger: logger.Get(),
	}
}

// Connect records a follow edge and returns the updated "to" account. The
// token is checked before any store mutation is attempted.
func (m *ConnectionManager) Connect(ctx context.Context, token, fromID, toID string) (store.Record, error) {
	if _, ok := m.creds.Authenticate(token); !ok {
		return nil, serrors.NewAuthenticationFailed("invalid token")
	}
	if fromID == "" || toID == "" {
		return nil, serrors.NewInvalidInput("both account ids are required")
	}

	to, err := m.store.Connect(ctx, store.KindAccount, fromID, toID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, serrors.NewNotFound(err.Error())
		}
		return nil, serrors.NewStoreFailure("failed to create connection", err)
	}

	m.logger.Debug("accounts connected", zap.String("from", fromID), zap.String("to", toID))
	return scrub(to), nil
}

// Disconnect removes a follow edge and returns the updated "to" account.
func (m *ConnectionManager) Disconnect(ctx context.Context, token, fromID, toID string) (store.Record, error) {
	if _, ok := m.creds.Authenticate(token); !ok {
		return nil, serrors.NewAuthenticationFailed("invalid token")
	}
	if fromID == "" || toID == "" {
		return nil, serrors.NewInvalidInput("both account ids are required")
	}

	to, err := m.store.Disconnect(ctx, store.KindAccount, fromID, toID)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, serrors.NewNotFound(err.Error())
		}
		return nil, serrors.NewStoreFailure("failed to remove connection", err)
	}

	m.logger.Debug("accounts disconnected", zap.String("from", fromID), zap.String("to", toID))
	return scrub(to), nil
}
