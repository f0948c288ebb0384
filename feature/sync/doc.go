// Package sync implements the offline-first mobile synchronization engine.
//
// Mobile clients cache library state locally and record actions while
// offline. This feature reconciles both directions:
//
//  1. Changesets: bounded, cursor-based reads of what changed on the
//     server since the client's last sync (downloads, playlists, liked
//     songs, play history, artist follows, new releases from followed
//     artists), plus a full-sync variant for bootstrapping.
//  2. Replay: idempotent application of client-recorded offline actions
//     (plays, like/unlike, follow/unfollow) against server state.
//
// # Components
//
//   - ResolveCursor: effective lookback cursor (client timestamp or a
//     bounded default window; never in the future, never fails).
//   - Assembler: per-kind bounded changeset queries; pure read path.
//   - Replayer: per-item isolated batch replay; business failures go into
//     the response's errors array, infrastructure failures abort.
//   - Guard: couples each relation mutation with its paired counter delta
//     in one transaction, applying the delta only on actual state change.
//   - ResponseBuilder: the unified response envelope carrying the new
//     client cursor.
//   - Service/Handler: validation, identity, dispatch.
//
// # Correctness
//
// Counters never diverge from the relations they summarize because the
// Guard is their only mutator, and replays are idempotent because every
// relation carries a database-level unique index over its idempotency
// key; a duplicate submission becomes an insert-or-ignore no-op with no
// counter movement.
//
// # HTTP Endpoints
//
//   - GET  /sync/changes  : incremental changesets
//   - GET  /sync/full     : bootstrap full sync
//   - POST /sync/history  : replay offline play events
//   - POST /sync/actions  : replay offline like/follow actions
package sync
