// Package passwords hashes local user passwords.
//
// New passwords are argon2id. Passwords stored with plain bcrypt or the salted
// "salt:hash" bcrypt format still verify, and Verify reports them as needing a
// rehash so callers can upgrade them on the next successful check. A password
// starting with "!" is unusable and never matches.
package passwords
