// Package repositories implements SQLite persistence for the sync client.
//
// Key Implementations:
//   - [CredentialRepository] : durable key/value storage of the session credential, a session.Store
//   - [SnapshotRepository] : last good collection per resource type, used to warm the sync coordinator
//
// Writes that touch more than one row run inside a single transaction so a crash never leaves a half-written credential.
package repositories
