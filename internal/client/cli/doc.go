// Package cli provides the interactive contactbook terminal client.
//
// The client talks to the database directly through its own connection
// pool and the same services the HTTP API uses. The logged-in identity lives
// only in the App for the duration of the process.
//
// Commands:
//   - register / login / logout / passwd
//   - add / list / search / update / remove
//   - help / exit
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli
