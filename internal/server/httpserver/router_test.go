package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/dmitrijs2005/agrodetect/internal/server/auth"
	"github.com/dmitrijs2005/agrodetect/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const janeBody = `{"full_name":"Jane","email":"jane@x.com","password":"pw"}`

func decodeDetail(t *testing.T, body []byte) string {
	t.Helper()
	var v struct {
		Detail string `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(body, &v))
	return v.Detail
}

func TestHealth(t *testing.T) {
	api := newTestAPI(t, Options{})

	rec := api.do(jsonRequest(http.MethodGet, "/health", ""))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestRegister_ReturnsTokenForEmail(t *testing.T) {
	api := newTestAPI(t, Options{})

	rec := api.do(jsonRequest(http.MethodPost, "/auth/register", janeBody))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res models.AuthResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.Equal(t, "bearer", res.TokenType)
	assert.Equal(t, "jane@x.com", res.User.Email)
	assert.Equal(t, "Jane", res.User.FullName)
	assert.NotContains(t, rec.Body.String(), "password")

	sub, err := api.tokens.Parse(res.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "jane@x.com", sub)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	api := newTestAPI(t, Options{})

	require.Equal(t, http.StatusOK, api.do(jsonRequest(http.MethodPost, "/auth/register", janeBody)).Code)

	rec := api.do(jsonRequest(http.MethodPost, "/auth/register", janeBody))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "user with this email already exists", decodeDetail(t, rec.Body.Bytes()))
}

func TestRegister_InvalidBody(t *testing.T) {
	api := newTestAPI(t, Options{})

	tests := []struct {
		name string
		body string
	}{
		{"not json", `{`},
		{"bad email", `{"full_name":"Jane","email":"nope","password":"pw"}`},
		{"missing name", `{"email":"jane@x.com","password":"pw"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(jsonRequest(http.MethodPost, "/auth/register", tt.body))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.NotEmpty(t, decodeDetail(t, rec.Body.Bytes()))
		})
	}
}

func TestLogin(t *testing.T) {
	api := newTestAPI(t, Options{})
	require.Equal(t, http.StatusOK, api.do(jsonRequest(http.MethodPost, "/auth/register", janeBody)).Code)

	t.Run("ok", func(t *testing.T) {
		rec := api.do(jsonRequest(http.MethodPost, "/auth/login", `{"email":"jane@x.com","password":"pw"}`))
		require.Equal(t, http.StatusOK, rec.Code)
		var res models.AuthResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
		assert.NotEmpty(t, res.AccessToken)
	})

	t.Run("wrong password and unknown email look the same", func(t *testing.T) {
		wrong := api.do(jsonRequest(http.MethodPost, "/auth/login", `{"email":"jane@x.com","password":"bad"}`))
		unknown := api.do(jsonRequest(http.MethodPost, "/auth/login", `{"email":"ghost@x.com","password":"pw"}`))

		assert.Equal(t, http.StatusUnauthorized, wrong.Code)
		assert.Equal(t, http.StatusUnauthorized, unknown.Code)
		assert.Equal(t, wrong.Body.String(), unknown.Body.String())
		assert.Equal(t, "invalid email or password", decodeDetail(t, wrong.Body.Bytes()))
		assert.Equal(t, "Bearer", wrong.Header().Get("WWW-Authenticate"))
	})
}

func TestDeleteAccount(t *testing.T) {
	api := newTestAPI(t, Options{})

	rec := api.do(jsonRequest(http.MethodPost, "/auth/register", janeBody))
	require.Equal(t, http.StatusOK, rec.Code)
	var res models.AuthResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))

	req := jsonRequest(http.MethodDelete, "/auth/delete", "")
	req.Header.Set("Authorization", "Bearer "+res.AccessToken)
	rec = api.do(req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	rec = api.do(jsonRequest(http.MethodPost, "/auth/login", `{"email":"jane@x.com","password":"pw"}`))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// the token outlives the account but no longer resolves to a user
	req = jsonRequest(http.MethodDelete, "/auth/delete", "")
	req.Header.Set("Authorization", "Bearer "+res.AccessToken)
	rec = api.do(req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDeleteAccount_Unauthorized(t *testing.T) {
	api := newTestAPI(t, Options{})

	expiredIssuer, err := auth.NewTokenIssuer([]byte("test-secret"), "HS256", -time.Minute)
	require.NoError(t, err)
	expired, err := expiredIssuer.Issue("jane@x.com")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		detail string
	}{
		{"missing header", "", "could not validate credentials"},
		{"wrong scheme", "Basic abc", "could not validate credentials"},
		{"garbage token", "Bearer not-a-jwt", "could not validate credentials"},
		{"expired token", "Bearer " + expired, "token expired"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := jsonRequest(http.MethodDelete, "/auth/delete", "")
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := api.do(req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
			assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
			assert.Equal(t, tt.detail, decodeDetail(t, rec.Body.Bytes()))
		})
	}
}

func TestPredict_BestCandidateWithMetadata(t *testing.T) {
	api := newTestAPI(t, Options{})
	api.model.set(`{"boxes":{"cls":[0,1],"conf":[0.87,0.12]}}`)

	rec := api.do(uploadRequest(t, "file", pngBytes(t)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var res models.DetectionResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &res))
	assert.InDelta(t, 0.87, res.Confidence, 1e-9)
	assert.Equal(t, wheatRust.CropName, res.CropName)
	assert.Equal(t, wheatRust.CareDescription, res.CareDescription)
	require.NotNil(t, res.DiseaseName)
	assert.Equal(t, "Leaf rust", *res.DiseaseName)
}

func TestPredict_NoObjectDetected(t *testing.T) {
	api := newTestAPI(t, Options{})
	api.model.set(`{"boxes":{"cls":[],"conf":[]}}`)

	rec := api.do(uploadRequest(t, "file", pngBytes(t)))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "no object detected", decodeDetail(t, rec.Body.Bytes()))
}

func TestPredict_MetadataMissing(t *testing.T) {
	api := newTestAPI(t, Options{})
	api.model.set(`{"boxes":{"cls":[2],"conf":[0.66]}}`)

	rec := api.do(uploadRequest(t, "file", pngBytes(t)))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "no data found for detected class", decodeDetail(t, rec.Body.Bytes()))
}

func TestPredict_BadUploads(t *testing.T) {
	api := newTestAPI(t, Options{MaxUploadBytes: 1 << 10})
	api.model.set(`{"boxes":{"cls":[0],"conf":[0.9]}}`)

	tests := []struct {
		name  string
		field string
		data  []byte
	}{
		{"wrong field", "image", pngBytes(t)},
		{"empty file", "file", []byte{}},
		{"not an image", "file", []byte("hello, world")},
		{"too large", "file", make([]byte, 4<<10)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := api.do(uploadRequest(t, tt.field, tt.data))
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decodeDetail(t, rec.Body.Bytes()))
		})
	}
}

func TestPredict_UnrecognizedModelOutput(t *testing.T) {
	api := newTestAPI(t, Options{})
	api.model.set(`{"weird":true}`)

	rec := api.do(uploadRequest(t, "file", pngBytes(t)))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "unrecognized model output", decodeDetail(t, rec.Body.Bytes()))
}

func TestRateLimit(t *testing.T) {
	api := newTestAPI(t, Options{RateLimitRPS: 0.001, RateLimitBurst: 2})

	login := `{"email":"ghost@x.com","password":"pw"}`
	for i := 0; i < 2; i++ {
		rec := api.do(jsonRequest(http.MethodPost, "/auth/login", login))
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}

	rec := api.do(jsonRequest(http.MethodPost, "/auth/login", login))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "too many requests", decodeDetail(t, rec.Body.Bytes()))

	// health is not limited
	assert.Equal(t, http.StatusOK, api.do(jsonRequest(http.MethodGet, "/health", "")).Code)
}

func TestRateLimit_ForwardedFor(t *testing.T) {
	login := `{"email":"ghost@x.com","password":"pw"}`
	send := func(api *testAPI, n int) map[int]int {
		codes := map[int]int{}
		for i := 0; i < n; i++ {
			req := jsonRequest(http.MethodPost, "/auth/login", login)
			req.Header.Set("X-Forwarded-For", fmt.Sprintf("10.0.0.%d", i+1))
			codes[api.do(req).Code]++
		}
		return codes
	}

	t.Run("ignored from untrusted peer", func(t *testing.T) {
		api := newTestAPI(t, Options{RateLimitRPS: 0.001, RateLimitBurst: 2})
		codes := send(api, 20)
		assert.Equal(t, 2, codes[http.StatusUnauthorized])
		assert.Equal(t, 18, codes[http.StatusTooManyRequests])
	})

	t.Run("honoured from trusted proxy", func(t *testing.T) {
		// httptest requests come from 192.0.2.1
		api := newTestAPI(t, Options{RateLimitRPS: 0.001, RateLimitBurst: 2, TrustedProxies: []string{"192.0.2.0/24"}})
		codes := send(api, 20)
		assert.Equal(t, map[int]int{http.StatusUnauthorized: 20}, codes)
	})

	t.Run("invalid proxy list trusts none", func(t *testing.T) {
		api := newTestAPI(t, Options{RateLimitRPS: 0.001, RateLimitBurst: 2, TrustedProxies: []string{"not-an-ip"}})
		codes := send(api, 5)
		assert.Equal(t, 3, codes[http.StatusTooManyRequests])
	})
}

func TestCORSPreflight(t *testing.T) {
	api := newTestAPI(t, Options{CORSOrigins: []string{"https://farm.example"}})

	req := jsonRequest(http.MethodOptions, "/predict", "")
	req.Header.Set("Origin", "https://farm.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Authorization")

	rec := api.do(req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "https://farm.example", rec.Header().Get("Access-Control-Allow-Origin"))
}
