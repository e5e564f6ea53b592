// Package sessions keeps users logged in with a signed cookie.
//
// The cookie holds an HS256 token (go-chi/jwtauth) naming the session, the local
// user and the backend that authenticated it, plus a hash derived from the
// user's password hash. Nothing is stored server side. With WithUserValidation
// every request reloads the user through that backend, so deactivation or a
// password change ends existing sessions.
package sessions
