// Package siteuser keeps the local, site-scoped record of every user whose
// identity lives at the remote provider.
//
// A User is identified by its natural key (external id, site id). Creating a user
// makes sure a matching remote record exists first; names and email verification
// live in the remote profile and are reached through the Service.
//
// Storage is pluggable: InMemoryRepository for tests and tools,
// PostgresRepository (pgx) and SQLiteRepository (modernc) for deployments. Open
// picks one from a database URL.
package siteuser
