// Package navstate is the host side of the query-state contract: it owns the
// committed parameter map for each route and uses a queryopts.Codec to read
// and rewrite it.
//
// Responsibilities:
//   - Store only loads and saves the canonical Params for a single Ref.
//   - Resolver decodes what the store holds into a fully populated State and
//     commits merged patches as one replacement, so readers never observe a
//     partially applied update.
//   - The codec stays pure; logging and activity emission happen here.
//
// Data flow:
//
//	Store -> Resolver.Resolve -> Codec.DeserializeWithTrace -> Snapshot
//	Snapshot + patch -> Codec.Merge -> Codec.Serialize -> Store.Save -> activity
package navstate
