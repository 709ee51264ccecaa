package store

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	"snap-backend/backend/pkg/logger"
)

// Neo4jStore implements Store on top of a Neo4j database. Nodes are labeled
// with their kind, directed edges are FOLLOWS relationships, and the mirrored
// adjacency lists live as node properties so that a single Cypher statement
// keeps edge and lists consistent.
type Neo4jStore struct {
	driver neo4j.DriverWithContext
	logger *zap.Logger
}

// NewNeo4jStore creates a store backed by the given driver.
func NewNeo4jStore(driver neo4j.DriverWithContext) *Neo4jStore {
	return &Neo4jStore{
		driver: driver,
		logger: logger.Get(),
	}
}

// Close closes the underlying Neo4j driver connection.
func (s *Neo4jStore) Close() error {
	return s.driver.Close(context.Background())
}

// labelPattern restricts node kinds to safe Cypher label identifiers; kinds
// are interpolated into queries because labels cannot be parameterized.
var labelPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

func validLabel(kind string) error {
	if !labelPattern.MatchString(kind) {
		return fmt.Errorf("invalid node kind: %q", kind)
	}
	return nil
}

func (s *Neo4jStore) CreateNode(ctx context.Context, kind string, rec Record) (Record, error) {
	if err := validLabel(kind); err != nil {
		return nil, err
	}
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	props := copyRecord(rec)
	props[KeyID] = uuid.NewString()

	query := fmt.Sprintf(`CREATE (n:%s $props) RETURN n`, kind)
	result, err := session.Run(ctx, query, map[string]any{"props": props})
	if err != nil {
		return nil, fmt.Errorf("failed to create %s node: %w", kind, err)
	}
	if result.Next(ctx) {
		return nodeRecord(result.Record(), "n"), nil
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to create %s node: %w", kind, err)
	}
	return nil, fmt.Errorf("create %s node returned no record", kind)
}

func (s *Neo4jStore) FindNodes(ctx context.Context, kind string, filter Record) ([]Record, error) {
	if err := validLabel(kind); err != nil {
		return nil, err
	}
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	where, params := buildFilter(filter)
	query := fmt.Sprintf(`MATCH (n:%s)%s RETURN n`, kind, where)

	result, err := session.Run(ctx, query, params)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s nodes: %w", kind, err)
	}

	var records []Record
	for result.Next(ctx) {
		records = append(records, nodeRecord(result.Record(), "n"))
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s nodes: %w", kind, err)
	}
	return records, nil
}

func (s *Neo4jStore) UpdateNode(ctx context.Context, kind string, id string, patch Record) (Record, error) {
	if err := validLabel(kind); err != nil {
		return nil, err
	}
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	props := copyRecord(patch)
	delete(props, KeyID) // the id is immutable

	query := fmt.Sprintf(`
		MATCH (n:%s {id: $id})
		SET n += $props
		RETURN n
	`, kind)

	result, err := session.Run(ctx, query, map[string]any{"id": id, "props": props})
	if err != nil {
		return nil, fmt.Errorf("failed to update %s node: %w", kind, err)
	}
	if result.Next(ctx) {
		return nodeRecord(result.Record(), "n"), nil
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to update %s node: %w", kind, err)
	}
	return nil, ErrNodeNotFound{Kind: kind, ID: id}
}

func (s *Neo4jStore) ReplaceNode(ctx context.Context, kind string, id string, rec Record) (Record, error) {
	if err := validLabel(kind); err != nil {
		return nil, err
	}
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	props := copyRecord(rec)
	delete(props, KeyID)
	delete(props, KeyCreatorID)

	// SET n = $props drops every property not present in props; id and
	// creatorId are captured before the swap and written back.
	query := fmt.Sprintf(`
		MATCH (n:%s {id: $id})
		WITH n, n.creatorId AS creator
		SET n = $props
		SET n.id = $id, n.creatorId = creator
		RETURN n
	`, kind)

	result, err := session.Run(ctx, query, map[string]any{"id": id, "props": props})
	if err != nil {
		return nil, fmt.Errorf("failed to replace %s node: %w", kind, err)
	}
	if result.Next(ctx) {
		return nodeRecord(result.Record(), "n"), nil
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to replace %s node: %w", kind, err)
	}
	return nil, ErrNodeNotFound{Kind: kind, ID: id}
}

func (s *Neo4jStore) CreateOwnedNode(ctx context.Context, kind, ownerKind, ownerID string, rec Record) (Record, error) {
	if err := validLabel(kind); err != nil {
		return nil, err
	}
	if err := validLabel(ownerKind); err != nil {
		return nil, err
	}
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	props := copyRecord(rec)
	props[KeyID] = uuid.NewString()
	props[KeyCreatorID] = ownerID

	query := fmt.Sprintf(`
		MATCH (o:%s {id: $ownerID})
		CREATE (c:%s $props)
		MERGE (o)-[:OWNS]->(c)
		SET o.content = coalesce(o.content, []) + $childID
		RETURN c
	`, ownerKind, kind)

	result, err := session.Run(ctx, query, map[string]any{
		"ownerID": ownerID,
		"props":   props,
		"childID": props[KeyID],
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create owned %s node: %w", kind, err)
	}
	if result.Next(ctx) {
		return nodeRecord(result.Record(), "c"), nil
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to create owned %s node: %w", kind, err)
	}
	return nil, ErrNodeNotFound{Kind: ownerKind, ID: ownerID}
}

func (s *Neo4jStore) Connect(ctx context.Context, kind, fromID, toID string) (Record, error) {
	if err := validLabel(kind); err != nil {
		return nil, err
	}
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	s.logger.Debug("creating follow edge",
		zap.String("from", fromID),
		zap.String("to", toID))

	// Edge and both adjacency lists change in one statement so a partial
	// write can never be observed.
	query := fmt.Sprintf(`
		MATCH (a:%s {id: $fromID})
		MATCH (b:%s {id: $toID})
		MERGE (a)-[:FOLLOWS]->(b)
		SET a.followList = CASE
				WHEN $toID IN coalesce(a.followList, []) THEN a.followList
				ELSE coalesce(a.followList, []) + $toID
			END
		SET b.followedList = CASE
				WHEN $fromID IN coalesce(b.followedList, []) THEN b.followedList
				ELSE coalesce(b.followedList, []) + $fromID
			END
		RETURN b
	`, kind, kind)

	result, err := session.Run(ctx, query, map[string]any{"fromID": fromID, "toID": toID})
	if err != nil {
		return nil, fmt.Errorf("failed to connect %s nodes: %w", kind, err)
	}
	if result.Next(ctx) {
		return nodeRecord(result.Record(), "b"), nil
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to connect %s nodes: %w", kind, err)
	}
	return nil, ErrNodeNotFound{Kind: kind, ID: fromID + "->" + toID}
}

func (s *Neo4jStore) Disconnect(ctx context.Context, kind, fromID, toID string) (Record, error) {
	if err := validLabel(kind); err != nil {
		return nil, err
	}
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	query := fmt.Sprintf(`
		MATCH (a:%s {id: $fromID})
		MATCH (b:%s {id: $toID})
		OPTIONAL MATCH (a)-[f:FOLLOWS]->(b)
		DELETE f
		SET a.followList = [x IN coalesce(a.followList, []) WHERE x <> $toID]
		SET b.followedList = [x IN coalesce(b.followedList, []) WHERE x <> $fromID]
		RETURN b
	`, kind, kind)

	result, err := session.Run(ctx, query, map[string]any{"fromID": fromID, "toID": toID})
	if err != nil {
		return nil, fmt.Errorf("failed to disconnect %s nodes: %w", kind, err)
	}
	if result.Next(ctx) {
		return nodeRecord(result.Record(), "b"), nil
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to disconnect %s nodes: %w", kind, err)
	}
	return nil, ErrNodeNotFound{Kind: kind, ID: fromID + "->" + toID}
}

// buildFilter renders an exact-match conjunction over the filter keys. Keys
// are sorted for stable query text, which keeps the server-side query cache
// warm across calls.
func buildFilter(filter Record) (string, map[string]any) {
	params := map[string]any{}
	if len(filter) == 0 {
		return "", params
	}
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	clauses := make([]string, 0, len(keys))
	for i, k := range keys {
		param := fmt.Sprintf("f%d", i)
		clauses = append(clauses, fmt.Sprintf("n.`%s` = $%s", strings.ReplaceAll(k, "`", ""), param))
		params[param] = filter[k]
	}
	return " WHERE " + strings.Join(clauses, " AND "), params
}

func nodeRecord(record *neo4j.Record, key string) Record {
	val, ok := record.Get(key)
	if !ok {
		return Record{}
	}
	if node, ok := val.(neo4j.Node); ok {
		return copyRecord(node.Props)
	}
	return Record{}
}

// copyRecord copies a record one level deep. List-valued properties get their
// own backing array so callers can never mutate stored state through a
// returned record.
func copyRecord(rec Record) Record {
	out := make(Record, len(rec))
	for k, v := range rec {
		switch list := v.(type) {
		case []string:
			out[k] = append([]string(nil), list...)
		case []any:
			out[k] = append([]any(nil), list...)
		default:
			out[k] = v
		}
	}
	return out
}
