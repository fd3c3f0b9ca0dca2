package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/shandysiswandi/posture/internal/pkg/session"
	"github.com/shandysiswandi/posture/internal/pkg/totpclient"
	"github.com/spf13/cobra"
)

const defaultServer = "http://localhost:8080"

var errNotAuthenticated = errors.New(`not authenticated, pass --token or set POSTURE_TOKEN`)

type globals struct {
	server  string
	path    string
	token   string
	json    bool
	timeout time.Duration
}

func newRootCmd() *cobra.Command {
	g := &globals{}

	root := &cobra.Command{
		Use:   "posturectl",
		Short: "Manage TOTP two-factor authentication from the terminal",
		Long: `posturectl talks to the posture two-factor endpoint with your access token.

Get started:
  posturectl totp generate               Create a secret to enroll
  posturectl totp verify -s S -c 123456  Confirm the enrollment
  posturectl totp challenge              Answer a sign-in challenge`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&g.server, "server", envOr("POSTURE_SERVER", defaultServer), "Service base URL")
	root.PersistentFlags().StringVar(&g.path, "path", totpclient.DefaultPath, "Endpoint path")
	root.PersistentFlags().StringVar(&g.token, "token", os.Getenv("POSTURE_TOKEN"), "Bearer access token")
	root.PersistentFlags().BoolVar(&g.json, "json", false, "Output as JSON")
	root.PersistentFlags().DurationVar(&g.timeout, "timeout", 30*time.Second, "Timeout for enrollment calls")

	root.AddCommand(newTOTPCmd(g))
	return root
}

// client opens a session for the configured token. The caller closes it.
func (g *globals) client() (*totpclient.Client, *session.Session, error) {
	if g.token == "" {
		return nil, nil, errNotAuthenticated
	}
	sess, err := session.FromAccessToken(g.token)
	if err != nil {
		return nil, nil, err
	}
	return totpclient.New(g.server, sess, totpclient.WithPath(g.path)), sess, nil
}

func (g *globals) print(w io.Writer, v any, human string, args ...any) error {
	if g.json {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := fmt.Fprintf(w, human+"\n", args...)
	return err
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
