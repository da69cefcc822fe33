// Package http implements the HTTP handlers of the license gate service.
// Handlers stay thin: they decode and validate requests with the validation
// middleware, call the services, and render contract types or RFC 7807
// problem documents with go-chi/render.
//
// # Endpoints
//
//	POST   /api/license/authorize     submit a token to the process gate
//	GET    /api/license/status        process gate snapshot
//	POST   /api/trim                  gated trim on the process gate
//	POST   /api/sessions              open a per-session gate
//	GET    /api/sessions/stats        session store statistics
//	GET    /api/sessions/{id}         describe a session
//	DELETE /api/sessions/{id}         lock and drop a session
//	POST   /api/sessions/{id}/trim    gated trim on a session gate
//	GET    /api/health                health report
//	GET    /api/version               build information
//
// Each handler exposes Routes so the application can mount it under its
// prefix.
package http
