// Package shared holds helpers used by more than one package.
//
// The testutil subpackage provides:
//
//   - a buffered slog handler for asserting on log output
//   - license token fixtures signed with a fixed test key
//
// Example usage:
//
//	func TestSomething(t *testing.T) {
//		logger, logs := testutil.NewTestLogger(t)
//		tokens := testutil.NewTokenFixtures(t)
//		// ...
//		testutil.AssertLogContains(t, logs, slog.LevelInfo, "License authorized")
//	}
//
// Nothing here may import business packages other than license.
package shared
