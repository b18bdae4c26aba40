// Package cli provides the interactive agrodetect command-line client.
//
// It wires configuration and the HTTP API client into a REPL:
//   - register / login / logout / delete manage the account; the access
//     token lives in memory only
//   - predict <path> uploads a leaf photo and prints the diagnosis
//
// A background watcher probes the server's /health endpoint and shows
// online/offline in the prompt. The REPL is started via App.Run(ctx).
package cli
