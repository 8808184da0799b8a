// Package server exposes the stream resolver and the catalog over HTTP.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
// The chain installed by [NewRouter] is RequestID, Logging, Recover, CORS and an optional per-client RateLimit.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering. Middleware runs before
// the method check so CORS preflight requests are answered for every route.
//
// # Endpoints
//
//   - GET /stream?videoId= redirects (302) to a freshly resolved audio URL.
//   - GET /stream-url?videoId= returns {"url": ...} instead of redirecting.
//   - GET /search, /watch, /album, /playlist, /lyrics return {"data": ...} from the catalog.
//   - GET /health reports {"status": "ok", "cache_entries": N}.
//   - GET / is a liveness message.
//
// Failures are returned as {"detail": "..."}. Search failures degrade to {"data": []} and lyrics failures to
// {"data": null}; every other lookup failure is a 500.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
