// Package snap is the embedding surface of the backend toolkit. It wires the
// store adapter, credential service, pipeline registries and the account and
// content services into one value, the way an application consumes them:
//
//	cfg, _ := config.Load()
//	app, err := snap.Open(cfg)
//	defer app.Close()
//	app.Users.Builders.Register("addRegisterTimestamp", ...)
//	acct, err := app.Users.Register(ctx, input, []string{"addRegisterTimestamp"})
package snap

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"snap-backend/backend/internal/account"
	"snap-backend/backend/internal/auth"
	"snap-backend/backend/internal/content"
	"snap-backend/backend/internal/pipeline"
	"snap-backend/backend/internal/store"
	"snap-backend/backend/pkg/config"
)

// Users bundles the account operations with the account pipeline registries.
type Users struct {
	*account.Service
	Builders *pipeline.Registry
	Reducers *pipeline.Registry
}

// Content bundles the content operations with the content pipeline
// registries.
type Content struct {
	*content.Service
	Builders *pipeline.Registry
	Reducers *pipeline.Registry
}

// Snap is the assembled backend core.
type Snap struct {
	Users   *Users
	Content *Content

	closer func() error
}

// New assembles a Snap on top of the given store and credential service and
// seeds the stock transforms. Registries start populated with an identity
// "default" plus addRegisterTimestamp (accounts) and addCreationTimestamp
// (content); embedding applications may register more, or override
// "default", before serving.
func New(st store.Store, creds auth.Credentials) *Snap {
	userBuilders := pipeline.NewRegistry()
	userReducers := pipeline.NewRegistry()
	contentBuilders := pipeline.NewRegistry()
	contentReducers := pipeline.NewRegistry()

	userBuilders.Register("addRegisterTimestamp", func(rec store.Record) store.Record {
		rec["registerTimestamp"] = time.Now().UnixMilli()
		return rec
	})
	contentBuilders.Register("addCreationTimestamp", func(rec store.Record) store.Record {
		rec["createTimestamp"] = time.Now().UnixMilli()
		return rec
	})

	return &Snap{
		Users: &Users{
			Service:  account.NewService(st, creds, userBuilders, userReducers),
			Builders: userBuilders,
			Reducers: userReducers,
		},
		Content: &Content{
			Service:  content.NewService(st, creds, contentBuilders, contentReducers),
			Builders: contentBuilders,
			Reducers: contentReducers,
		},
	}
}

// Open dials the Neo4j store described by cfg, verifies connectivity and
// assembles a Snap with JWT credentials.
func Open(cfg *config.Config) (*Snap, error) {
	driver, err := neo4j.NewDriverWithContext(
		cfg.Neo4jURI,
		neo4j.BasicAuth(cfg.Neo4jUser, cfg.Neo4jPassword, ""),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(context.Background()); err != nil {
		_ = driver.Close(context.Background())
		return nil, fmt.Errorf("failed to verify Neo4j connectivity: %w", err)
	}

	st := store.NewNeo4jStore(driver)
	creds := auth.NewJWTCredentials([]byte(cfg.JWTSecret), cfg.TokenTTL, cfg.BcryptCost)

	app := New(st, creds)
	app.closer = st.Close
	return app, nil
}

// Close releases the underlying store connection, if Snap owns one.
func (s *Snap) Close() error {
	if s.closer != nil {
		return s.closer()
	}
	return nil
}
