// Package gate holds the session gate that licensed operations consult
// before running.
//
// A Gate is Locked until Authorize is called with a valid token, and every
// Authorize call re-evaluates from scratch: an invalid token re-locks a gate
// that was unlocked before. Gated code calls Require, which returns
// ErrNotAuthorized instead of aborting the process.
//
// The application owns its gates explicitly. One Gate serves the
// process-wide authorize/trim surface; a Store hands out independent
// per-session gates keyed by UUID for callers that must not share state.
package gate
