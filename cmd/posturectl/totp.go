package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shandysiswandi/posture/internal/challenge"
	"github.com/shandysiswandi/posture/internal/pkg/otp"
	"github.com/shandysiswandi/posture/internal/pkg/totpclient"
	"github.com/spf13/cobra"
)

var _ challenge.Validator = (*totpclient.Client)(nil)

var errChallengeCancelled = errors.New("challenge cancelled")

func newTOTPCmd(g *globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "totp",
		Short: "TOTP enrollment and challenges",
	}

	cmd.AddCommand(
		newGenerateCmd(g),
		newVerifyCmd(g),
		newStatusCmd(g),
		newDisableCmd(g),
		newCodeCmd(g),
		newChallengeCmd(g),
	)
	return cmd
}

// withClient runs fn with a client whose session ends when fn returns.
func withClient(cmd *cobra.Command, g *globals, fn func(ctx context.Context, c *totpclient.Client) error) error {
	c, sess, err := g.client()
	if err != nil {
		return err
	}
	defer sess.Close()

	ctx, cancel := context.WithTimeout(cmd.Context(), g.timeout)
	defer cancel()
	return fn(ctx, c)
}

func newGenerateCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Create a new secret to add to an authenticator app",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(cmd, g, func(ctx context.Context, c *totpclient.Client) error {
				res, err := c.Generate(ctx)
				if err != nil {
					return fmt.Errorf("generating secret: %w", err)
				}
				return g.print(cmd.OutOrStdout(), res,
					"Secret:           %s\nProvisioning URI: %s\n\nAdd it to your authenticator, then run: posturectl totp verify --secret %s --code <code>",
					res.Secret, res.ProvisioningURI, res.Secret)
			})
		},
	}
}

func newVerifyCmd(g *globals) *cobra.Command {
	var secret, code string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Confirm enrollment with a code from the authenticator",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(cmd, g, func(ctx context.Context, c *totpclient.Client) error {
				if err := c.Verify(ctx, secret, code); err != nil {
					return fmt.Errorf("verifying code: %w", err)
				}
				return g.print(cmd.OutOrStdout(), map[string]bool{"success": true}, "Two-factor authentication enabled.")
			})
		},
	}

	cmd.Flags().StringVarP(&secret, "secret", "s", "", "Secret returned by generate")
	cmd.Flags().StringVarP(&code, "code", "c", "", "Current 6-digit code")
	_ = cmd.MarkFlagRequired("secret")
	_ = cmd.MarkFlagRequired("code")
	return cmd
}

func newStatusCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show whether two-factor authentication is enabled",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(cmd, g, func(ctx context.Context, c *totpclient.Client) error {
				enabled, err := c.Status(ctx)
				if err != nil {
					return fmt.Errorf("fetching status: %w", err)
				}
				label := "disabled"
				if enabled {
					label = "enabled"
				}
				return g.print(cmd.OutOrStdout(), map[string]bool{"enabled": enabled}, "Two-factor authentication is %s.", label)
			})
		},
	}
}

func newDisableCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "disable",
		Short: "Turn off two-factor authentication",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withClient(cmd, g, func(ctx context.Context, c *totpclient.Client) error {
				if err := c.Disable(ctx); err != nil {
					return fmt.Errorf("disabling: %w", err)
				}
				return g.print(cmd.OutOrStdout(), map[string]bool{"success": true}, "Two-factor authentication disabled.")
			})
		},
	}
}

// newCodeCmd prints the current code for a secret, for scripted enrollment.
func newCodeCmd(g *globals) *cobra.Command {
	var secret string
	var period uint

	cmd := &cobra.Command{
		Use:   "code",
		Short: "Print the current code for a secret",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			code, err := otp.NewTOTP(otp.Config{Period: period}).GenerateCode(secret, time.Now())
			if err != nil {
				return fmt.Errorf("generating code: %w", err)
			}
			return g.print(cmd.OutOrStdout(), map[string]string{"code": code}, "%s", code)
		},
	}

	cmd.Flags().StringVarP(&secret, "secret", "s", "", "Base32 secret")
	cmd.Flags().UintVar(&period, "period", 30, "Time step in seconds")
	_ = cmd.MarkFlagRequired("secret")
	return cmd
}

func newChallengeCmd(g *globals) *cobra.Command {
	var settle, requestTimeout, watchdog time.Duration

	cmd := &cobra.Command{
		Use:   "challenge",
		Short: "Answer a sign-in challenge interactively",
		Long: `Type the 6-digit code. It is submitted automatically once complete.

Keys: digits enter the code, backspace deletes, r retries after the service
was unavailable, q cancels.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, sess, err := g.client()
			if err != nil {
				return err
			}
			defer sess.Close()

			return runChallenge(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), c,
				challenge.WithSettleDelay(settle),
				challenge.WithRequestTimeout(requestTimeout),
				challenge.WithWatchdog(watchdog),
			)
		},
	}

	cmd.Flags().DurationVar(&settle, "settle", challenge.DefaultSettleDelay, "Delay before auto-submit")
	cmd.Flags().DurationVar(&requestTimeout, "request-timeout", challenge.DefaultRequestTimeout, "Per-request timeout, 0 disables")
	cmd.Flags().DurationVar(&watchdog, "watchdog", challenge.DefaultWatchdog, "Time before the service is reported unavailable")
	return cmd
}

func runChallenge(ctx context.Context, in io.Reader, out io.Writer, v challenge.Validator, opts ...challenge.Option) error {
	success := make(chan struct{})
	cancelled := make(chan struct{})
	changes := make(chan challenge.Snapshot, 64)

	opts = append(opts,
		challenge.OnChange(func(s challenge.Snapshot) {
			fmt.Fprintln(out, render(s))
			select {
			case changes <- s:
			default:
			}
		}),
		challenge.OnSuccess(func() { close(success) }),
		challenge.OnCancel(func() { close(cancelled) }),
	)

	d := challenge.New(v, opts...)
	defer d.Close()

	fmt.Fprintln(out, "Enter the 6-digit code from your authenticator:")

	done := make(chan struct{})
	defer close(done)

	keys := make(chan rune)
	go readKeys(in, keys, done)

	for {
		select {
		case <-success:
			fmt.Fprintln(out, "Verified.")
			return nil
		case <-cancelled:
			return errChallengeCancelled
		default:
		}

		select {
		case <-success:
			fmt.Fprintln(out, "Verified.")
			return nil
		case <-cancelled:
			return errChallengeCancelled
		case <-ctx.Done():
			d.Cancel()
			return ctx.Err()
		case s := <-changes:
			if keys == nil && stalled(s) {
				return outcome(s)
			}
		case r, ok := <-keys:
			if !ok {
				keys = nil
				if s := d.Snapshot(); stalled(s) {
					return outcome(s)
				}
				continue
			}
			press(d, r)
		}
	}
}

func press(d *challenge.Dialog, r rune) {
	switch r {
	case '\b', 0x7f:
		d.Backspace()
	case 'r', 'R':
		d.Retry()
	case 'q', 'Q':
		d.Cancel()
	default:
		d.Type(r)
	}
}

func readKeys(in io.Reader, keys chan<- rune, done <-chan struct{}) {
	defer close(keys)

	br := bufio.NewReader(in)
	for {
		r, _, err := br.ReadRune()
		if err != nil {
			return
		}
		select {
		case keys <- r:
		case <-done:
			return
		}
	}
}

// stalled reports whether the dialog waits for input that will never come
// once stdin is exhausted.
func stalled(s challenge.Snapshot) bool {
	switch s.State {
	case challenge.RecoverableFailure, challenge.UnavailableFailure:
		return true
	case challenge.Idle:
		return len(s.Input) < challenge.CodeLength
	default:
		return false
	}
}

func outcome(s challenge.Snapshot) error {
	if s.Message != "" {
		return errors.New(s.Message)
	}
	return errors.New("incomplete code")
}

func render(s challenge.Snapshot) string {
	masked := strings.Repeat("*", len(s.Input)) + strings.Repeat("_", challenge.CodeLength-len(s.Input))
	if s.Message == "" {
		return fmt.Sprintf("[%s] %s", s.State, masked)
	}
	return fmt.Sprintf("[%s] %s  %s", s.State, masked, s.Message)
}
