// Package repositories implements SQLite persistence for jamlist.
//
// Key Implementations:
//   - [KVRepository] : durable key/value storage for credentials, the PKCE verifier and draft metadata
//   - [DraftRepository] : the ordered working set of tracks, deduplicated by track id
//
// Tables are created by the migrations in the shared package.
package repositories
