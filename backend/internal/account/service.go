// Package account implements the account side of the domain core:
// registration, login/logout, token authentication, filtered lookups and the
// follow graph between accounts.
package account

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"snap-backend/backend/internal/auth"
	"snap-backend/backend/internal/pipeline"
	"snap-backend/backend/internal/store"
	serrors "snap-backend/backend/pkg/errors"
	"snap-backend/backend/pkg/logger"
)

// RegisterInput carries the caller-supplied data for account creation.
// Builders may attach further attributes through the Extra map.
type RegisterInput struct {
	UserName        string
	Password        string
	PasswordConfirm string
	Extra           store.Record
}

// Credentials carries a login attempt.
type Credentials struct {
	UserName string
	Password string
}

// Service orchestrates account operations. Every mutating operation and
// every read is gated behind token authentication except Register and Login,
// which establish the credentials in the first place.
type Service struct {
	store    store.Store
	creds    auth.Credentials
	builders *pipeline.Registry
	reducers *pipeline.Registry
	conns    *ConnectionManager
	logger   *zap.Logger
}

// NewService creates an account service. The builder and reducer registries
// are owned by the caller so embedding applications can register transforms
// on them before serving.
func NewService(st store.Store, creds auth.Credentials, builders, reducers *pipeline.Registry) *Service {
	return &Service{
		store:    st,
		creds:    creds,
		builders: builders,
		reducers: reducers,
		conns:    NewConnectionManager(st, creds),
		logger:   logger.Get(),
	}
}

// Register creates an account. The password is hashed before persistence and
// never returned; the follow and content lists start empty and the account
// starts offline. builderNames selects additional write transforms to run
// after the reserved default.
func (s *Service) Register(ctx context.Context, input RegisterInput, builderNames []string) (store.Record, error) {
	if !credentialsValid(input.UserName, input.Password) {
		return nil, serrors.NewInvalidInput("userName and password must be non-empty and contain no whitespace")
	}
	if input.Password != input.PasswordConfirm {
		return nil, serrors.NewInvalidInput("password confirmation does not match")
	}

	existing, err := s.store.FindNodes(ctx, store.KindAccount, store.Record{store.KeyUserName: input.UserName})
	if err != nil {
		return nil, serrors.NewStoreFailure("failed to check userName availability", err)
	}
	if len(existing) > 0 {
		return nil, serrors.NewDuplicateAccount(input.UserName)
	}

	hashed, err := s.creds.Hash(ctx, input.Password)
	if err != nil {
		return nil, serrors.NewStoreFailure("failed to hash password", err)
	}

	rec := store.Record{}
	for k, v := range input.Extra {
		rec[k] = v
	}
	// Reserved fields are written after the caller-supplied extras, so an
	// Extra entry can never override the hash, the online flag or the
	// list initializations.
	rec[store.KeyUserName] = input.UserName
	rec[store.KeyHashedPassword] = hashed
	rec[store.KeyOnline] = false
	rec[store.KeyFollowList] = []string{}
	rec[store.KeyFollowedList] = []string{}
	rec[store.KeyContent] = []string{}
	rec = s.builders.Run(rec, builderNames)

	created, err := s.store.CreateNode(ctx, store.KindAccount, rec)
	if err != nil {
		return nil, serrors.NewStoreFailure("failed to create account", err)
	}

	s.logger.Info("account registered",
		zap.String("userName", input.UserName),
		zap.String("id", store.String(created, store.KeyID)))
	return scrub(created), nil
}

// Login verifies the credentials, marks the account online and returns the
// account record augmented with a signed token under the "token" key.
func (s *Service) Login(ctx context.Context, creds Credentials) (store.Record, error) {
	if !credentialsValid(creds.UserName, creds.Password) {
		return nil, serrors.NewInvalidInput("userName and password must be non-empty and contain no whitespace")
	}

	found, err := s.store.FindNodes(ctx, store.KindAccount, store.Record{store.KeyUserName: creds.UserName})
	if err != nil {
		return nil, serrors.NewStoreFailure("failed to look up account", err)
	}
	if len(found) == 0 || !s.creds.Verify(creds.Password, store.String(found[0], store.KeyHashedPassword)) {
		return nil, serrors.NewAuthenticationFailed("unknown userName or wrong password")
	}

	id := store.String(found[0], store.KeyID)
	token, err := s.creds.Sign(id, creds.UserName)
	if err != nil {
		return nil, serrors.NewStoreFailure("failed to sign token", err)
	}

	updated, err := s.store.UpdateNode(ctx, store.KindAccount, id, store.Record{store.KeyOnline: true})
	if err != nil {
		return nil, serrors.NewStoreFailure("failed to mark account online", err)
	}

	updated[store.KeyToken] = token
	s.logger.Info("account logged in", zap.String("userName", creds.UserName))
	return scrub(updated), nil
}

// Logout flips the account offline. The token itself stays valid until it
// expires; session revocation is a client responsibility.
func (s *Service) Logout(ctx context.Context, token string) (store.Record, error) {
	claims, ok := s.creds.Authenticate(token)
	if !ok {
		return nil, serrors.NewAuthenticationFailed("invalid token")
	}

	found, err := s.store.FindNodes(ctx, store.KindAccount, store.Record{store.KeyID: claims.AccountID})
	if err != nil {
		return nil, serrors.NewStoreFailure("failed to look up account", err)
	}
	if len(found) == 0 {
		return nil, serrors.NewNotFound("account not found: " + claims.AccountID)
	}

	updated, err := s.store.UpdateNode(ctx, store.KindAccount, claims.AccountID, store.Record{store.KeyOnline: false})
	if err != nil {
		if store.IsNotFound(err) {
			return nil, serrors.NewNotFound("account not found: " + claims.AccountID)
		}
		return nil, serrors.NewStoreFailure("failed to mark account offline", err)
	}
	return scrub(updated), nil
}

// Authenticate verifies a token and returns its claims. It is used both as a
// public operation and as the internal gate of every protected call.
func (s *Service) Authenticate(token string) (*auth.Claims, bool) {
	return s.creds.Authenticate(token)
}

// Get returns every account matching the exact-match filter, shaped by the
// requested read transforms. The token must be valid; queries fail closed.
func (s *Service) Get(ctx context.Context, token string, filter store.Record, reducerNames []string) ([]store.Record, error) {
	if _, ok := s.creds.Authenticate(token); !ok {
		return nil, serrors.NewAuthenticationFailed("invalid token")
	}

	found, err := s.store.FindNodes(ctx, store.KindAccount, filter)
	if err != nil {
		return nil, serrors.NewStoreFailure("failed to query accounts", err)
	}

	out := make([]store.Record, 0, len(found))
	for _, rec := range found {
		out = append(out, scrub(s.reducers.Run(rec, reducerNames)))
	}
	return out, nil
}

// Connect records that the account fromID follows toID.
func (s *Service) Connect(ctx context.Context, token, fromID, toID string) (store.Record, error) {
	return s.conns.Connect(ctx, token, fromID, toID)
}

// Disconnect removes the follow edge from fromID to toID.
func (s *Service) Disconnect(ctx context.Context, token, fromID, toID string) (store.Record, error) {
	return s.conns.Disconnect(ctx, token, fromID, toID)
}

// credentialsValid rejects empty values and embedded whitespace in either
// field.
func credentialsValid(userName, password string) bool {
	if userName == "" || password == "" {
		return false
	}
	return !strings.ContainsAny(userName, " \t\n\r") && !strings.ContainsAny(password, " \t\n\r")
}

// scrub removes the password hash from an outgoing record. This runs after
// the reducer pipeline and cannot be skipped or overridden: re-registering
// the "default" reducer changes baseline shaping only, never this.
func scrub(rec store.Record) store.Record {
	if rec != nil {
		delete(rec, store.KeyHashedPassword)
	}
	return rec
}
