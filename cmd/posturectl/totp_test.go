package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shandysiswandi/posture/internal/challenge"
	"github.com/shandysiswandi/posture/internal/pkg/otp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("POSTURE_TOKEN", "")

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func fakeService(t *testing.T, validCode string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer tok" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "Unauthorized", "code": "unauthenticated"})
			return
		}

		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)

		w.Header().Set("Content-Type", "application/json")
		switch body["action"] {
		case "status":
			_ = json.NewEncoder(w).Encode(map[string]bool{"enabled": true})
		case "validate":
			_ = json.NewEncoder(w).Encode(map[string]bool{"valid": body["code"] == validCode})
		default:
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "Invalid action", "code": "invalid_action"})
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestStatusCmd(t *testing.T) {
	srv := fakeService(t, "")

	out, err := execute(t, "", "totp", "status", "--server", srv.URL, "--token", "tok")
	require.NoError(t, err)
	assert.Contains(t, out, "Two-factor authentication is enabled.")

	out, err = execute(t, "", "totp", "status", "--server", srv.URL, "--token", "tok", "--json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"enabled":true}`, out)
}

func TestStatusCmd_RequiresToken(t *testing.T) {
	_, err := execute(t, "", "totp", "status")
	assert.ErrorIs(t, err, errNotAuthenticated)
}

func TestStatusCmd_ServiceError(t *testing.T) {
	srv := fakeService(t, "")

	_, err := execute(t, "", "totp", "status", "--server", srv.URL, "--token", "wrong")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unauthenticated")
}

func TestCodeCmd(t *testing.T) {
	key, err := otp.NewTOTP(otp.Config{Issuer: "Posture"}).Generate("ops@example.com")
	require.NoError(t, err)

	out, err := execute(t, "", "totp", "code", "--secret", key.Secret)
	require.NoError(t, err)

	code := strings.TrimSpace(out)
	assert.Len(t, code, 6)
	assert.True(t, otp.NewTOTP(otp.Config{}).Validate(code, key.Secret, time.Now()))
}

func TestChallengeCmd(t *testing.T) {
	srv := fakeService(t, "123456")

	t.Run("valid code", func(t *testing.T) {
		out, err := execute(t, "123456\n", "totp", "challenge", "--server", srv.URL, "--token", "tok", "--settle", "1ms")
		require.NoError(t, err)
		assert.Contains(t, out, "[submitting] ******")
		assert.Contains(t, out, "Verified.")
	})

	t.Run("wrong code", func(t *testing.T) {
		_, err := execute(t, "654321\n", "totp", "challenge", "--server", srv.URL, "--token", "tok", "--settle", "1ms")
		require.Error(t, err)
		assert.Equal(t, challenge.MessageInvalidCode, err.Error())
	})

	t.Run("cancel", func(t *testing.T) {
		_, err := execute(t, "12q", "totp", "challenge", "--server", srv.URL, "--token", "tok")
		assert.ErrorIs(t, err, errChallengeCancelled)
	})

	t.Run("incomplete", func(t *testing.T) {
		_, err := execute(t, "12", "totp", "challenge", "--server", srv.URL, "--token", "tok")
		require.Error(t, err)
		assert.Equal(t, "incomplete code", err.Error())
	})
}

func TestRender(t *testing.T) {
	assert.Equal(t, "[idle] **____", render(challenge.Snapshot{State: challenge.Idle, Input: "12"}))
	assert.Equal(t, "[recoverable_failure] ______  oops",
		render(challenge.Snapshot{State: challenge.RecoverableFailure, Message: "oops"}))
}
