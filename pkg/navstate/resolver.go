package navstate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	queryopts "github.com/goliatone/go-queryopts"
	"github.com/goliatone/go-queryopts/pkg/activity"
)

// Resolver reads and commits route query state through a codec.
type Resolver struct {
	Store Store
	Codec *queryopts.Codec
	// Logger receives decode fallbacks and activity failures. Nil discards.
	Logger *slog.Logger
	// Emitter receives change events after each commit. Nil disables emission.
	Emitter *activity.Emitter
	// Now overrides the commit clock.
	Now func() time.Time
}

func (r Resolver) validate(ref Ref) error {
	if r.Store == nil {
		return fmt.Errorf("navstate: store is required")
	}
	if r.Codec == nil {
		return fmt.Errorf("navstate: codec is required")
	}
	if _, err := ref.Identifier(); err != nil {
		return err
	}
	return nil
}

// Resolve loads and decodes the state committed for ref. A missing record
// resolves to the defaults. Params in the snapshot are canonical, so stale or
// unknown parameters held by the store do not leak to callers.
func (r Resolver) Resolve(ctx context.Context, ref Ref) (Snapshot, error) {
	if err := r.validate(ref); err != nil {
		return Snapshot{}, err
	}
	raw, meta, ok, err := r.Store.Load(ctx, ref)
	if err != nil {
		return Snapshot{}, fmt.Errorf("navstate: load %q: %w", ref.Route, err)
	}
	return r.snapshot(ctx, ref, raw, meta, ok), nil
}

func (r Resolver) snapshot(ctx context.Context, ref Ref, raw queryopts.Params, meta Meta, found bool) Snapshot {
	state, trace := r.Codec.DeserializeWithTrace(raw)
	r.logTrace(ctx, ref, trace)
	return Snapshot{
		Ref:    ref,
		State:  state,
		Params: r.Codec.Serialize(state),
		Trace:  trace,
		Meta:   meta,
		Found:  found,
	}
}

// Mutate merges patch over the committed state of ref and commits the
// canonical result as a single replacement. A non-empty meta.ETag must match
// the stored ETag when a record exists. Nothing is saved when the canonical params are unchanged.
func (r Resolver) Mutate(ctx context.Context, ref Ref, meta Meta, patch queryopts.State) (Snapshot, error) {
	if err := r.validate(ref); err != nil {
		return Snapshot{}, err
	}
	raw, loadedMeta, ok, err := r.Store.Load(ctx, ref)
	if err != nil {
		return Snapshot{}, fmt.Errorf("navstate: load %q: %w", ref.Route, err)
	}
	if err := checkETag(meta, loadedMeta); err != nil {
		return Snapshot{}, err
	}
	current := r.Codec.Deserialize(raw)
	next := r.Codec.Merge(current, patch)
	return r.commit(ctx, ref, meta, raw, loadedMeta, ok, next)
}

// Replace commits params as the new state of ref after normalizing them.
func (r Resolver) Replace(ctx context.Context, ref Ref, meta Meta, params queryopts.Params) (Snapshot, error) {
	if err := r.validate(ref); err != nil {
		return Snapshot{}, err
	}
	raw, loadedMeta, ok, err := r.Store.Load(ctx, ref)
	if err != nil {
		return Snapshot{}, fmt.Errorf("navstate: load %q: %w", ref.Route, err)
	}
	if err := checkETag(meta, loadedMeta); err != nil {
		return Snapshot{}, err
	}
	state, trace := r.Codec.DeserializeWithTrace(params)
	r.logTrace(ctx, ref, trace)
	return r.commit(ctx, ref, meta, raw, loadedMeta, ok, state)
}

// checkETag rejects stale writes. A missing record never conflicts.
func checkETag(want, loaded Meta) error {
	if want.ETag != "" && loaded.ETag != "" && want.ETag != loaded.ETag {
		return fmt.Errorf("%w: expected %q, got %q", ErrETagMismatch, want.ETag, loaded.ETag)
	}
	return nil
}

func (r Resolver) commit(ctx context.Context, ref Ref, meta Meta, raw queryopts.Params, loadedMeta Meta, found bool, next queryopts.State) (Snapshot, error) {
	before := r.Codec.Normalize(raw)
	after := r.Codec.Serialize(next)
	changes := r.diff(before, after)
	if len(changes) == 0 && raw.Encode() == after.Encode() {
		return Snapshot{
			Ref:    ref,
			State:  next,
			Params: after,
			Trace:  r.trace(after),
			Meta:   loadedMeta,
			Found:  found,
		}, nil
	}

	saveMeta := mergeMeta(loadedMeta, meta)
	saveMeta.UpdatedAt = r.now()
	savedMeta, err := r.Store.Save(ctx, ref, after, saveMeta)
	if err != nil {
		return Snapshot{}, fmt.Errorf("navstate: save %q: %w", ref.Route, err)
	}

	r.emit(ctx, ref, savedMeta, after, changes)
	return Snapshot{
		Ref:    ref,
		State:  next,
		Params: after,
		Trace:  r.trace(after),
		Meta:   savedMeta,
		Found:  true,
	}, nil
}

func (r Resolver) trace(params queryopts.Params) queryopts.Trace {
	_, trace := r.Codec.DeserializeWithTrace(params)
	return trace
}

// diff compares two canonical param maps option by option.
func (r Resolver) diff(before, after queryopts.Params) []activity.OptionChange {
	oldState := r.Codec.Deserialize(before)
	newState := r.Codec.Deserialize(after)
	var changes []activity.OptionChange
	for _, def := range r.Codec.Schema().Definitions() {
		oldWire, oldPresent := before[def.WireCode]
		newWire, newPresent := after[def.WireCode]
		if oldPresent == newPresent && oldWire == newWire {
			continue
		}
		changes = append(changes, activity.OptionChange{
			Key:        def.Key,
			WireCode:   def.WireCode,
			OldWire:    oldWire,
			NewWire:    newWire,
			OldPresent: oldPresent,
			NewPresent: newPresent,
			OldValue:   eventValue(oldState[def.Key]),
			NewValue:   eventValue(newState[def.Key]),
		})
	}
	return changes
}

// eventValue flattens selections into enabled keys for event payloads.
func eventValue(value any) any {
	selection, ok := value.(map[string]bool)
	if !ok {
		return value
	}
	keys := make([]string, 0, len(selection))
	for key, on := range selection {
		if on {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

func (r Resolver) emit(ctx context.Context, ref Ref, meta Meta, params queryopts.Params, changes []activity.OptionChange) {
	if !r.Emitter.Enabled() || len(changes) == 0 {
		return
	}
	input := activity.ChangeInput{
		ActorID:    meta.Extra[ExtraActorID],
		UserID:     meta.Extra[ExtraUserID],
		TenantID:   meta.Extra[ExtraTenantID],
		Route:      ref.Route,
		SnapshotID: meta.SnapshotID,
		Query:      params.Encode(),
		Changes:    changes,
		OccurredAt: meta.UpdatedAt,
	}
	if ref.Session != "" {
		input.Metadata = map[string]any{"session": ref.Session}
	}
	events := append([]activity.Event{activity.BuildParamsUpdatedEvent(input)}, activity.BuildOptionChangedEvents(input)...)
	if err := r.Emitter.EmitAll(ctx, events...); err != nil {
		r.logger().WarnContext(ctx, "navstate: activity emission failed",
			slog.String("route", ref.Route),
			slog.Any("error", err),
		)
	}
}

func (r Resolver) logTrace(ctx context.Context, ref Ref, trace queryopts.Trace) {
	logger := r.logger()
	for _, entry := range trace.Degraded() {
		logger.WarnContext(ctx, "navstate: query value replaced",
			slog.String("route", ref.Route),
			slog.String("key", entry.Key),
			slog.String("wire_code", entry.WireCode),
			slog.String("raw", entry.Raw),
			slog.String("source", string(entry.Source)),
			slog.Any("dropped", entry.Dropped),
		)
	}
	if len(trace.Unknown) > 0 {
		logger.DebugContext(ctx, "navstate: unknown query parameters ignored",
			slog.String("route", ref.Route),
			slog.Any("params", trace.Unknown),
		)
	}
}

func (r Resolver) logger() *slog.Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return slog.New(slog.DiscardHandler)
}

func (r Resolver) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now()
}

// IsConflict reports whether err came from an ETag mismatch.
func IsConflict(err error) bool {
	return errors.Is(err, ErrETagMismatch)
}
