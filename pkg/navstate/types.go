package navstate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	queryopts "github.com/goliatone/go-queryopts"
)

var (
	// ErrETagMismatch indicates a commit based on a stale read.
	ErrETagMismatch = errors.New("navstate: etag mismatch")
	// ErrRouteRequired indicates a Ref without a route.
	ErrRouteRequired = errors.New("navstate: route is required")
)

// Ref identifies the committed query state of one route, optionally scoped to
// a session.
type Ref struct {
	Route   string
	Session string
}

// Identifier returns the deterministic storage key for r.
func (r Ref) Identifier() (string, error) {
	route := strings.TrimSpace(r.Route)
	if route == "" {
		return "", ErrRouteRequired
	}
	if !strings.HasPrefix(route, "/") {
		route = "/" + route
	}
	session := strings.TrimSpace(r.Session)
	if session == "" {
		return "route" + route, nil
	}
	return fmt.Sprintf("session/%s%s", session, route), nil
}

// Meta is storage-owned metadata used for audit and optimistic concurrency.
type Meta struct {
	SnapshotID string            `json:"snapshot_id,omitempty"`
	ETag       string            `json:"etag,omitempty"`
	UpdatedAt  time.Time         `json:"updated_at,omitempty"`
	Extra      map[string]string `json:"extra,omitempty"`
}

// Extra keys read by the Resolver when emitting activity.
const (
	ExtraActorID  = "actor_id"
	ExtraUserID   = "user_id"
	ExtraTenantID = "tenant_id"
)

// Store loads and saves the committed params for a single Ref.
type Store interface {
	Load(ctx context.Context, ref Ref) (params queryopts.Params, meta Meta, ok bool, err error)
	Save(ctx context.Context, ref Ref, params queryopts.Params, meta Meta) (Meta, error)
}

// Snapshot is a decoded view of one route's query state.
type Snapshot struct {
	Ref    Ref
	State  queryopts.State
	Params queryopts.Params
	Trace  queryopts.Trace
	Meta   Meta
	// Found is false when the store held nothing and State is all defaults.
	Found bool
}

// Query renders the canonical query string of the snapshot.
func (s Snapshot) Query() string {
	return s.Params.Encode()
}

func mergeMeta(base, override Meta) Meta {
	out := base
	if override.SnapshotID != "" {
		out.SnapshotID = override.SnapshotID
	}
	if override.ETag != "" {
		out.ETag = override.ETag
	}
	if !override.UpdatedAt.IsZero() {
		out.UpdatedAt = override.UpdatedAt
	}
	if override.Extra != nil {
		out.Extra = override.Extra
	}
	return out
}

func cloneMeta(meta Meta) Meta {
	out := meta
	if meta.Extra == nil {
		return out
	}
	out.Extra = make(map[string]string, len(meta.Extra))
	for k, v := range meta.Extra {
		out.Extra[k] = v
	}
	return out
}
