// Package server provides the HTTP router, middleware, and read-only status handlers for the local status service.
//
// # Router Infrastructure
//
// [NewRouter] builds a chi router with request IDs, real IP resolution, request logging and panic recovery,
// then mounts every [Handler]. Handlers own their route definitions through [Handler.Routes].
//
// [Middleware] has the standard func(http.Handler) http.Handler shape so chi middleware and local middleware mix.
//
// # Status Handler
//
// [StatusHandler] serves the coordinator's cached collections:
//
//	GET /healthz                   → liveness
//	GET /status                    → every collection's count, refresh time, loading flag, error and staleness
//	GET /collections/{type}        → status plus cached items
//	GET /collections/{type}/status → status for one collection
//	GET /account                   → account profile (token claims fallback)
//	GET /events                    → server-sent coordinator events
//
// The handler never triggers fetches; the coordinator's background loop keeps the collections fresh.
//
// # Lifecycle
//
// [Server.Run] serves until its context is cancelled and then shuts down gracefully.
package server
