// Package loginflow handles the authorization code callback of the hosted login.
//
// The callback runs as an ordered list of steps on a FlowExecutor:
//
//  1. session guard: authenticated callers go straight to the redirect target;
//     callers without a code are sent to the login page with ?next=
//  2. code exchange for an access token
//  3. user info lookup
//  4. authentication against the site's backends
//  5. session establishment, then a redirect to state (or the admin URL)
//
// Provider failures answer 502 and a caller without a matching local user
// answers 403, both as JSON.
//
//	flow := loginflow.BuildAuthorizationCodeFlow(&loginflow.ServiceDependencies{
//		Provider:      auth0Client,
//		Authenticator: authenticator,
//		Sessions:      sessionManager,
//		Settings:      settings,
//	})
//	loginflow.NewHandle(flow, "/login", sessionManager.IsAuthenticated).Routes(router)
package loginflow
