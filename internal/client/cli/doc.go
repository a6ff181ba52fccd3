// Package cli is the interactive command-line shell of the client.
//
// The shell is thin: every command resolves a fetcher or poster through the
// app's fetch constructor, brings it up to date, and prints what it holds.
// Cached data is shown when the service cannot be reached.
//
// The REPL is started via Shell.Run(ctx), which blocks until the user exits.
package cli
