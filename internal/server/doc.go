// Package server assembles the HTTP stack for the clipstream API: the route
// table, and the middleware chain enforcing request IDs, security headers,
// logging, metrics, rate limiting, and session authentication.
package server
