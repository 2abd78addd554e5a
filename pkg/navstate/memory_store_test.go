package navstate

import (
	"context"
	"testing"

	queryopts "github.com/goliatone/go-queryopts"
)

func TestRefIdentifier(t *testing.T) {
	cases := []struct {
		ref  Ref
		want string
	}{
		{Ref{Route: "/practice"}, "route/practice"},
		{Ref{Route: "practice"}, "route/practice"},
		{Ref{Route: "/practice", Session: "s1"}, "session/s1/practice"},
	}
	for _, tc := range cases {
		got, err := tc.ref.Identifier()
		if err != nil {
			t.Fatalf("identifier %+v: %v", tc.ref, err)
		}
		if got != tc.want {
			t.Fatalf("expected %q, got %q", tc.want, got)
		}
	}
	if _, err := (Ref{Route: "  "}).Identifier(); err != ErrRouteRequired {
		t.Fatalf("expected ErrRouteRequired, got %v", err)
	}
}

func TestMemoryStoreIsolatesCopies(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	ref := Ref{Route: "/practice"}
	params := queryopts.Params{"m": "t"}

	meta, err := store.Save(ctx, ref, params, Meta{Extra: map[string]string{"k": "v"}})
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if meta.SnapshotID == "" || meta.UpdatedAt.IsZero() {
		t.Fatalf("expected snapshot id and timestamp, got %+v", meta)
	}
	params["m"] = "c"
	meta.Extra["k"] = "changed"

	loaded, loadedMeta, ok, err := store.Load(ctx, ref)
	if err != nil || !ok {
		t.Fatalf("load: %v (%v)", err, ok)
	}
	if loaded["m"] != "t" || loadedMeta.Extra["k"] != "v" {
		t.Fatalf("expected stored copies, got %v %+v", loaded, loadedMeta)
	}
	if store.Len() != 1 {
		t.Fatalf("expected one record, got %d", store.Len())
	}
}

func TestETagIsContentDerived(t *testing.T) {
	a := ETagFor(queryopts.Params{"m": "t", "r": "1"})
	b := ETagFor(queryopts.Params{"r": "1", "m": "t"})
	if a != b {
		t.Fatalf("expected equal etags for equal params")
	}
	if a == ETagFor(queryopts.Params{"m": "t"}) {
		t.Fatalf("expected different etags for different params")
	}
}
