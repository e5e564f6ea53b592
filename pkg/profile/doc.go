// Package profile mirrors remote user records locally through a TTL cache.
//
// Entries are keyed "auth0user.userprofile.<external id>" and live for
// AUTH0_PROFILE_CACHE. The cache is either process memory (MemoryCache) or Redis
// (RedisCache); both are last-write-wins.
//
// Reads never fail. When the provider cannot produce a record the caller gets the
// empty default profile and the failure is logged.
package profile
