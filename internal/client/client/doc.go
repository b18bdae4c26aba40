// Package client talks to the agrodetect HTTP API.
//
// HTTPClient covers the whole public surface: register, login, account
// deletion, prediction and the health check. Server-side failures come
// back as *APIError carrying the status code and the server's "detail"
// message; transport failures match ErrUnavailable, and 401 responses also
// match ErrUnauthorized so callers can drop a stale token.
package client
