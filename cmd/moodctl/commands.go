package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/satriahrh/mindwell/internal/auth"
	"github.com/satriahrh/mindwell/internal/heuristic"
)

type clientOptions struct {
	server string
	uid    string
	token  string
	secret string
}

func newRootCmd() *cobra.Command {
	opts := &clientOptions{}

	root := &cobra.Command{
		Use:           "moodctl",
		Short:         "Command line companion for the mindwell server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.server, "server", envOr("MINDWELL_SERVER", "http://localhost:8080"), "Server base URL")
	root.PersistentFlags().StringVar(&opts.uid, "uid", envOr("MINDWELL_UID", ""), "User ID")
	root.PersistentFlags().StringVar(&opts.token, "token", envOr("MINDWELL_TOKEN", ""), "Bearer token (issued from --secret when empty)")
	root.PersistentFlags().StringVar(&opts.secret, "secret", envOr("JWT_SECRET", auth.LocalDevSecret), "JWT secret used to issue tokens")

	root.AddCommand(newClassifyCmd())
	root.AddCommand(newTokenCmd(opts))
	root.AddCommand(newAnalyzeCmd(opts))
	root.AddCommand(newWatchCmd(opts))
	return root
}

func newClassifyCmd() *cobra.Command {
	var jsonOutput bool
	cmd := &cobra.Command{
		Use:   "classify <text>",
		Short: "Classify text with the offline keyword heuristic",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			result := heuristic.Classify(strings.Join(args, " "))
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), result)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Category: %s\nMood:     %s\nStress:   %d/100\n%s\n",
				result.Category, result.Mood, result.StressLevel, result.Summary)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newTokenCmd(opts *clientOptions) *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for --uid",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := auth.NewAuthenticator(opts.secret, ttl)
			if err != nil {
				return err
			}
			token, err := a.GenerateUserToken(opts.uid)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", auth.DefaultTokenTTL, "Token lifetime")
	return cmd
}

func newAnalyzeCmd(opts *clientOptions) *cobra.Command {
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "analyze <text>",
		Short: "Send a journal entry to /api/analyze-text",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := opts.bearer()
			if err != nil {
				return err
			}
			body, err := json.Marshal(map[string]string{"uid": opts.uid, "text": strings.Join(args, " ")})
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, strings.TrimRight(opts.server, "/")+"/api/analyze-text", bytes.NewReader(body))
			if err != nil {
				return err
			}
			req.Header.Set("Content-Type", "application/json")
			req.Header.Set("Authorization", "Bearer "+token)

			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				return fmt.Errorf("request failed: %w", err)
			}
			defer resp.Body.Close()

			payload, err := io.ReadAll(resp.Body)
			if err != nil {
				return err
			}
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(payload)))
			}

			var out bytes.Buffer
			if err := json.Indent(&out, payload, "", "  "); err != nil {
				return fmt.Errorf("invalid response: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), out.String())
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 90*time.Second, "Request timeout")
	return cmd
}

func newWatchCmd(opts *clientOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Print mood records for --uid as they are stored",
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := opts.bearer()
			if err != nil {
				return err
			}
			wsURL, err := feedURL(opts.server)
			if err != nil {
				return err
			}

			header := http.Header{}
			header.Set("Authorization", "Bearer "+token)
			conn, resp, err := websocket.DefaultDialer.DialContext(cmd.Context(), wsURL, header)
			if err != nil {
				if resp != nil {
					return fmt.Errorf("websocket connection failed with status %d: %w", resp.StatusCode, err)
				}
				return fmt.Errorf("websocket connection failed: %w", err)
			}
			defer conn.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			go func() {
				<-ctx.Done()
				conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				conn.Close()
			}()

			fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s\n", wsURL)
			for {
				_, message, err := conn.ReadMessage()
				if err != nil {
					if ctx.Err() != nil || websocket.IsCloseError(err, websocket.CloseNormalClosure) {
						return nil
					}
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(message))
			}
		},
	}
}

func (o *clientOptions) bearer() (string, error) {
	if o.token != "" {
		return o.token, nil
	}
	if o.uid == "" {
		return "", fmt.Errorf("--uid is required")
	}
	a, err := auth.NewAuthenticator(o.secret, 0)
	if err != nil {
		return "", err
	}
	return a.GenerateUserToken(o.uid)
}

func feedURL(server string) (string, error) {
	u, err := url.Parse(server)
	if err != nil {
		return "", fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http", "":
		u.Scheme = "ws"
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/ws/moods"
	return u.String(), nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}
