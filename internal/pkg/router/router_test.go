package router

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shandysiswandi/posture/internal/pkg/config"
	"github.com/shandysiswandi/posture/internal/pkg/goerror"
	"github.com/shandysiswandi/posture/internal/pkg/jwt"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubJWT struct {
	claims jwt.Claims
	err    error
}

func (s stubJWT) Generate(string, string) (string, error) { return "", nil }

func (s stubJWT) Verify(string) (jwt.Claims, error) { return s.claims, s.err }

type fixedID string

func (f fixedID) Generate() string { return string(f) }

func newTestRouter(verifier jwt.JWT) *Router {
	r := NewRouter(Config{UUID: fixedID("cid-1"), JWT: verifier})
	r.GET("/health", func(*Request) (any, error) {
		return map[string]string{"status": "ok"}, nil
	})
	r.POST("/echo", func(req *Request) (any, error) {
		var body map[string]any
		if err := req.DecodeBody(&body); err != nil {
			return nil, err
		}
		body["identity"] = jwt.GetAuth(req.Context()).Identity()
		return body, nil
	})
	r.POST("/fail", func(*Request) (any, error) {
		return nil, goerror.NewBusiness("TOTP not enabled", goerror.CodeTOTPNotEnabled)
	})
	r.POST("/opaque", func(*Request) (any, error) {
		return nil, errors.New("dial tcp: refused")
	})
	r.POST("/panic", func(*Request) (any, error) {
		panic("boom")
	})
	return r
}

func do(t *testing.T, h http.Handler, method, path, body, token string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func TestRouter_HealthIsPublic(t *testing.T) {
	rec, out := do(t, newTestRouter(stubJWT{err: jwt.ErrInvalidToken}), http.MethodGet, "/health", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", out["status"])
	assert.Equal(t, "cid-1", rec.Header().Get(HeaderCorrelationID))
}

func TestRouter_Authentication(t *testing.T) {
	claims := jwt.Claims{}
	claims.Subject = "user-1"

	t.Run("missing header", func(t *testing.T) {
		rec, out := do(t, newTestRouter(stubJWT{claims: claims}), http.MethodPost, "/echo", `{}`, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "unauthenticated", out["code"])
		assert.NotEmpty(t, out["error"])
	})

	t.Run("rejected token", func(t *testing.T) {
		rec, out := do(t, newTestRouter(stubJWT{err: jwt.ErrTokenExpired}), http.MethodPost, "/echo", `{}`, "tok")
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "unauthenticated", out["code"])
	})

	t.Run("raw success body carries identity", func(t *testing.T) {
		rec, out := do(t, newTestRouter(stubJWT{claims: claims}), http.MethodPost, "/echo", `{"action":"status"}`, "tok")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "status", out["action"])
		assert.Equal(t, "user-1", out["identity"])
		assert.NotContains(t, out, "data")
	})
}

func TestRouter_ErrorBodies(t *testing.T) {
	claims := jwt.Claims{}
	claims.Subject = "user-1"
	r := newTestRouter(stubJWT{claims: claims})

	rec, out := do(t, r, http.MethodPost, "/fail", `{}`, "tok")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, map[string]any{"error": "TOTP not enabled", "code": "totp_not_enabled"}, out)

	rec, out = do(t, r, http.MethodPost, "/echo", `{"action":`, "tok")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", out["code"])

	rec, out = do(t, r, http.MethodPost, "/opaque", `{}`, "tok")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal", out["code"])
	assert.NotContains(t, out["error"], "refused")

	rec, out = do(t, r, http.MethodPost, "/panic", `{}`, "tok")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal", out["code"])

	rec, _ = do(t, r, http.MethodPost, "/nowhere", `{}`, "tok")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		order = append(order, "handler")
	}), mw("a"), mw("b"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, []string{"a", "b", "handler"}, order)
}

func TestRealIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	assert.Equal(t, "203.0.113.9", realIP(req))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	assert.Equal(t, "192.0.2.1", realIP(req))
}

func TestActionOf(t *testing.T) {
	assert.Equal(t, "validate", actionOf([]byte(`{"action":" Validate ","code":"123456"}`)))
	assert.Empty(t, actionOf([]byte(`not json`)))
	assert.Empty(t, actionOf(nil))
}

func TestExchange_ErrorCode(t *testing.T) {
	ex := &exchange{ResponseWriter: httptest.NewRecorder()}
	ex.WriteHeader(http.StatusBadRequest)
	_, err := ex.Write([]byte(`{"error":"Invalid verification code","code":"invalid_code"}`))
	require.NoError(t, err)
	assert.Equal(t, "invalid_code", ex.errorCode())

	ok := &exchange{ResponseWriter: httptest.NewRecorder()}
	_, err = ok.Write([]byte(`{"valid":true}`))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, ok.statusCode())
	assert.Empty(t, ok.errorCode())
}

func TestPeekBody_KeepsBodyReadable(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"action":"status"}`))

	assert.JSONEq(t, `{"action":"status"}`, string(peekBody(req)))

	var body map[string]string
	require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
	assert.Equal(t, "status", body["action"])
}

func TestRouter_Maintenance(t *testing.T) {
	cfg, err := config.NewViperFromBytes("yaml", []byte(`
app:
  maintenance:
    endpoints:
      - /api/v1/twofactor
`))
	require.NoError(t, err)

	r := NewRouter(Config{Config: cfg, UUID: fixedID("cid-1"), JWT: stubJWT{claims: jwt.Claims{}}})
	r.GET("/health", func(*Request) (any, error) {
		return map[string]string{"status": "ok"}, nil
	})
	r.POST("/api/v1/twofactor", func(*Request) (any, error) {
		return map[string]bool{"enabled": true}, nil
	})

	rec, out := do(t, r, http.MethodPost, "/api/v1/twofactor", `{"action":"status"}`, "tok")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "maintenance", out["code"])

	rec, out = do(t, r, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", out["status"])
}

func TestGetMaskKeys_Defaults(t *testing.T) {
	keys := getMaskKeys(nil)
	for _, f := range []string{"authorization", "secret", "code", "verificationcode", "provisioninguri"} {
		assert.Contains(t, keys, f)
	}

	cfg, err := config.NewViperFromBytes("yaml", []byte("instrument:\n  log_mask_fields: [apikey]\n"))
	require.NoError(t, err)
	keys = getMaskKeys(cfg)
	assert.Contains(t, keys, "apikey")
	assert.Contains(t, keys, "secret")

	body := maskedJSON([]byte(`{"action":"verify","secret":"JBSWY3DP","verificationCode":"123456"}`), getMaskKeys(nil))
	assert.Equal(t, map[string]any{"action": "verify", "secret": "***", "verificationCode": "***"}, body)

	h := maskedHeaders(http.Header{"Authorization": {"Bearer u1"}}, getMaskKeys(nil))
	assert.Equal(t, "***", h.Get("Authorization"))
}
