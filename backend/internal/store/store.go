// Package store provides the persistence boundary of the backend: node CRUD,
// exact-match attribute queries and directed edges between nodes. Two
// implementations exist, a Neo4j-backed one for production and an in-memory
// one for tests.
package store

import (
	"context"
	"fmt"
)

// Record is the schemaless representation of a persisted entity. Write
// pipelines may attach arbitrary extension attributes, so entities travel
// through the core as property maps rather than closed structs.
type Record = map[string]any

// Well-known record keys shared by the account and content services.
const (
	KeyID             = "id"
	KeyUserName       = "userName"
	KeyHashedPassword = "hashedPassword"
	KeyOnline         = "online"
	KeyFollowList     = "followList"
	KeyFollowedList   = "followedList"
	KeyContent        = "content"
	KeyCreatorID      = "creatorId"
	KeyContentString  = "contentString"
	KeyToken          = "token"
)

// Node kinds used by the services.
const (
	KindAccount = "Account"
	KindContent = "Content"
)

// Store is the persistence contract consumed by the domain services.
// Connect and Disconnect maintain a directed edge together with the mirrored
// followList/followedList entries of both endpoints as one atomic operation;
// both return the updated "to" node.
type Store interface {
	// CreateNode persists rec under kind, assigns an id and returns the
	// stored record.
	CreateNode(ctx context.Context, kind string, rec Record) (Record, error)
	// FindNodes returns every node of kind whose properties equal all
	// key/value pairs in filter. A nil or empty filter matches everything.
	FindNodes(ctx context.Context, kind string, filter Record) ([]Record, error)
	// UpdateNode applies patch to the node with the given id and returns
	// the updated record. The id itself is never changed.
	UpdateNode(ctx context.Context, kind string, id string, patch Record) (Record, error)
	// ReplaceNode swaps the node's payload for rec wholesale: properties
	// absent from rec are removed. The id and creatorId survive the
	// replacement.
	ReplaceNode(ctx context.Context, kind string, id string, rec Record) (Record, error)
	// CreateOwnedNode persists rec under kind, links it to the owner node
	// and appends the new id to the owner's content list, atomically.
	CreateOwnedNode(ctx context.Context, kind, ownerKind, ownerID string, rec Record) (Record, error)
	// Connect records a directed edge from fromID to toID: toID is appended
	// to the from node's followList and fromID to the to node's
	// followedList. Repeated calls are idempotent.
	Connect(ctx context.Context, kind, fromID, toID string) (Record, error)
	// Disconnect removes the edge and both list entries.
	Disconnect(ctx context.Context, kind, fromID, toID string) (Record, error)
}

// ErrNodeNotFound is returned when an operation targets a node that does not
// exist in the store.
type ErrNodeNotFound struct {
	Kind string
	ID   string
}

func (e ErrNodeNotFound) Error() string {
	return fmt.Sprintf("%s node not found: %s", e.Kind, e.ID)
}

// IsNotFound reports whether err is an ErrNodeNotFound.
func IsNotFound(err error) bool {
	_, ok := err.(ErrNodeNotFound)
	return ok
}

// Strings reads a list-valued record key as a string slice. Neo4j returns
// lists as []any, the in-memory store keeps []string; both are handled.
func Strings(rec Record, key string) []string {
	switch v := rec[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// String reads a string-valued record key, returning "" when absent.
func String(rec Record, key string) string {
	if s, ok := rec[key].(string); ok {
		return s
	}
	return ""
}

// Bool reads a bool-valued record key, returning false when absent.
func Bool(rec Record, key string) bool {
	if b, ok := rec[key].(bool); ok {
		return b
	}
	return false
}
