// Package server provides HTTP routing, middleware, and the loopback authorization callback for the CLI.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] added first runs outermost.
//
// [BasicRouter] registers "METHOD /path" patterns on [http.ServeMux], so method mismatches answer 405.
//
// # Callback Browser
//
// [CallbackBrowser] is the host environment for the authorization flow when running in a terminal.
// Navigate opens the system browser at the authorization URL and starts a temporary server on the redirect
// address. The single callback it accepts becomes the browser location, which the auth controller reads
// to find the authorization code and then replaces to drop it.
//
// # Handler Interface
//
// Custom handlers implement the [Handler] interface, which wraps the stdlib handler interface and adds routes,
// allowing handlers to register multiple routes to encapsulate route definitions within the implementation.
package server
