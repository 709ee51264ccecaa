// Package content implements the content side of the domain core: creation,
// filtered lookups and in-place updates of content items owned by accounts.
package content

import (
	"context"

	"go.uber.org/zap"

	"snap-backend/backend/internal/auth"
	"snap-backend/backend/internal/pipeline"
	"snap-backend/backend/internal/store"
	serrors "snap-backend/backend/pkg/errors"
	"snap-backend/backend/pkg/logger"
)

// Service orchestrates content operations. Every operation requires a valid
// token; the creator of new content is always derived from the token, never
// from caller-supplied data.
type Service struct {
	store    store.Store
	creds    auth.Credentials
	builders *pipeline.Registry
	reducers *pipeline.Registry
	logger   *zap.Logger
}

// NewService creates a content service sharing the caller-owned registries.
func NewService(st store.Store, creds auth.Credentials, builders, reducers *pipeline.Registry) *Service {
	return &Service{
		store:    st,
		creds:    creds,
		builders: builders,
		reducers: reducers,
		logger:   logger.Get(),
	}
}

// Create persists a content record owned by the authenticated account. The
// new item is linked to its creator and appended to the creator's content
// list in the same store operation.
func (s *Service) Create(ctx context.Context, token string, payload store.Record, builderNames []string) (store.Record, error) {
	claims, ok := s.creds.Authenticate(token)
	if !ok {
		return nil, serrors.NewAuthenticationFailed("invalid token")
	}
	if payload == nil {
		return nil, serrors.NewInvalidInput("content payload is required")
	}

	rec := s.builders.Run(payload, builderNames)

	created, err := s.store.CreateOwnedNode(ctx, store.KindContent, store.KindAccount, claims.AccountID, rec)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, serrors.NewNotFound(err.Error())
		}
		return nil, serrors.NewStoreFailure("failed to create content", err)
	}

	s.logger.Debug("content created",
		zap.String("id", store.String(created, store.KeyID)),
		zap.String("creator", claims.AccountID))
	return created, nil
}

// CreateText wraps a bare text value as {contentString: text} and creates it
// like any other payload.
func (s *Service) CreateText(ctx context.Context, token, text string, builderNames []string) (store.Record, error) {
	return s.Create(ctx, token, store.Record{store.KeyContentString: text}, builderNames)
}

// Get returns every content item matching the exact-match filter, shaped by
// the requested read transforms. Queries fail closed on a bad token.
func (s *Service) Get(ctx context.Context, token string, filter store.Record, reducerNames []string) ([]store.Record, error) {
	if _, ok := s.creds.Authenticate(token); !ok {
		return nil, serrors.NewAuthenticationFailed("invalid token")
	}

	found, err := s.store.FindNodes(ctx, store.KindContent, filter)
	if err != nil {
		return nil, serrors.NewStoreFailure("failed to query content", err)
	}

	out := make([]store.Record, 0, len(found))
	for _, rec := range found {
		out = append(out, s.reducers.Run(rec, reducerNames))
	}
	return out, nil
}

// Update replaces the stored payload of an existing content item wholesale,
// keyed by the id carried in payload: fields absent from the new payload are
// removed, there is no partial merge. The id and creatorId are preserved; a
// missing target is reported as not found rather than silently creating a new
// record. The token only has to be valid, it does not have to belong to the
// creator.
func (s *Service) Update(ctx context.Context, token string, payload store.Record, builderNames []string) (store.Record, error) {
	if _, ok := s.creds.Authenticate(token); !ok {
		return nil, serrors.NewAuthenticationFailed("invalid token")
	}
	id := store.String(payload, store.KeyID)
	if id == "" {
		return nil, serrors.NewInvalidInput("content id is required for update")
	}

	rec := s.builders.Run(payload, builderNames)

	updated, err := s.store.ReplaceNode(ctx, store.KindContent, id, rec)
	if err != nil {
		if store.IsNotFound(err) {
			return nil, serrors.NewNotFound(err.Error())
		}
		return nil, serrors.NewStoreFailure("failed to update content", err)
	}
	return updated, nil
}
