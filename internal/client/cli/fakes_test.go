package cli

import (
	"bufio"
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/dmitrijs2005/agrodetect/internal/client/client"
	"github.com/dmitrijs2005/agrodetect/internal/client/config"
)

type fakeAPI struct {
	registerArgs []string
	loginArgs    []string
	deletedToken string
	predictPath  string
	predictData  []byte

	authRes    *client.AuthResult
	authErr    error
	deleteErr  error
	predictRes *client.Prediction
	predictErr error
	pingErr    error
}

func (f *fakeAPI) Register(_ context.Context, fullName, email, password string) (*client.AuthResult, error) {
	f.registerArgs = []string{fullName, email, password}
	return f.authRes, f.authErr
}

func (f *fakeAPI) Login(_ context.Context, email, password string) (*client.AuthResult, error) {
	f.loginArgs = []string{email, password}
	return f.authRes, f.authErr
}

func (f *fakeAPI) DeleteAccount(_ context.Context, token string) error {
	f.deletedToken = token
	return f.deleteErr
}

func (f *fakeAPI) Predict(_ context.Context, filename string, data []byte) (*client.Prediction, error) {
	f.predictPath = filename
	f.predictData = data
	return f.predictRes, f.predictErr
}

func (f *fakeAPI) Ping(context.Context) error { return f.pingErr }

// newTestApp returns an App reading input from stdin and printing to out.
// Passwords are read as plain lines since tests never run on a terminal.
func newTestApp(t *testing.T, api *fakeAPI, stdin string) (*App, *bytes.Buffer) {
	t.Helper()

	origTerm := isTerminal
	isTerminal = func(int) bool { return false }
	t.Cleanup(func() { isTerminal = origTerm })

	out := &bytes.Buffer{}
	cfg := &config.Config{}
	cfg.LoadDefaults()

	return &App{
		config: cfg,
		api:    api,
		reader: bufio.NewReader(strings.NewReader(stdin)),
		out:    out,
	}, out
}

func janeAuth() *client.AuthResult {
	return &client.AuthResult{
		AccessToken: "tok-123",
		TokenType:   "bearer",
		User:        client.User{ID: 7, FullName: "Jane", Email: "jane@x.com"},
	}
}
