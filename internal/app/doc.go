// Package app wires the license gate service together and manages its
// lifecycle.
//
// # Initialization Flow
//
//	1. OpenTelemetry providers and license instruments
//	2. Key selection, verifier and the cipher self-test
//	3. Process gate, session store and WebSocket hub
//	4. Services, handlers and middleware
//	5. HTTP server
//
// # Usage
//
//	application, err := app.NewApplication(cfg, logger)
//	if err != nil {
//	    return err
//	}
//	return application.Run(ctx)
//
// Run blocks until ctx is cancelled, then drains HTTP requests, closes
// WebSocket clients, stops the session sweeper and flushes telemetry.
// Initialization errors are returned to the caller; the package never calls
// os.Exit.
package app
