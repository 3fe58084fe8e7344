package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
)

const defaultServer = "http://localhost:8080"

type sessionResponse struct {
	SessionID string `json:"session_id"`
	Token     string `json:"token"`
}

type tokenData struct {
	Server string `json:"server"`
	Token  string `json:"token"`
}

type remoteFlags struct {
	server    string
	token     string
	tokenPath string
}

func (f *remoteFlags) register(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&f.server, "server", defaultServer, "artdiscover API server")
	cmd.PersistentFlags().StringVar(&f.token, "token", "", "session token (default: saved token, or a new session)")
	cmd.PersistentFlags().StringVar(&f.tokenPath, "token-file", defaultTokenPath(), "where the session token is kept")
}

// resolveToken returns the flag token, the saved token for the server, or
// a freshly issued one which is then saved.
func (f *remoteFlags) resolveToken(ctx context.Context, client *http.Client) (string, error) {
	if f.token != "" {
		return f.token, nil
	}
	if td, err := readToken(f.tokenPath); err == nil && td.Server == f.server && td.Token != "" {
		return td.Token, nil
	}

	var resp sessionResponse
	if err := doJSON(ctx, client, http.MethodGet, f.server+"/api/session", "", nil, &resp); err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	if err := saveToken(f.tokenPath, tokenData{Server: f.server, Token: resp.Token}); err != nil {
		return "", fmt.Errorf("save token: %w", err)
	}
	fmt.Fprintf(os.Stderr, "new session %s\n", resp.SessionID)
	return resp.Token, nil
}

func newWatchCmd() *cobra.Command {
	var (
		rf     remoteFlags
		format string
	)
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream session state events from a running server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			client := &http.Client{Timeout: 15 * time.Second}
			token, err := rf.resolveToken(ctx, client)
			if err != nil {
				return err
			}
			wsURL, err := websocketURL(rf.server, "/ws")
			if err != nil {
				return err
			}

			for {
				err := runWebSocket(ctx, wsURL, token, format, cmd.OutOrStdout())
				if ctx.Err() != nil {
					return nil
				}
				fmt.Fprintf(os.Stderr, "[watch] disconnected: %v\n", err)
				select {
				case <-ctx.Done():
					return nil
				case <-time.After(time.Second): // auto reconnect
				}
			}
		},
	}
	rf.register(cmd)
	cmd.Flags().StringVar(&format, "format", "pretty", "event output: pretty, raw or summary")
	return cmd
}

func newRemoteCmd() *cobra.Command {
	var rf remoteFlags
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Drive a session on a running server",
	}
	rf.register(cmd)

	client := &http.Client{Timeout: 15 * time.Second}

	discoverCmd := &cobra.Command{
		Use:   "discover",
		Short: "Start a new fetch cycle",
		RunE: func(cmd *cobra.Command, _ []string) error {
			token, err := rf.resolveToken(cmd.Context(), client)
			if err != nil {
				return err
			}
			var out map[string]any
			if err := doJSON(cmd.Context(), client, http.MethodPost, rf.server+"/api/discover", token, struct{}{}, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}

	var kind, value string
	banCmd := &cobra.Command{
		Use:   "ban",
		Short: "Toggle a ban on the session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			token, err := rf.resolveToken(cmd.Context(), client)
			if err != nil {
				return err
			}
			payload := map[string]string{"kind": kind, "value": value}
			var out map[string]any
			if err := doJSON(cmd.Context(), client, http.MethodPost, rf.server+"/api/bans", token, payload, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}
	banCmd.Flags().StringVar(&kind, "kind", "", "artist, century or culture")
	banCmd.Flags().StringVar(&value, "value", "", "attribute value")
	_ = banCmd.MarkFlagRequired("kind")
	_ = banCmd.MarkFlagRequired("value")

	stateCmd := &cobra.Command{
		Use:   "state",
		Short: "Print the session state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			token, err := rf.resolveToken(cmd.Context(), client)
			if err != nil {
				return err
			}
			var out map[string]any
			if err := doJSON(cmd.Context(), client, http.MethodGet, rf.server+"/api/state", token, nil, &out); err != nil {
				return err
			}
			return printJSON(out)
		},
	}

	cmd.AddCommand(discoverCmd, banCmd, stateCmd)
	return cmd
}

func runWebSocket(ctx context.Context, wsURL, token, format string, w io.Writer) error {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return fmt.Errorf("dial %s: %w", wsURL, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	fmt.Fprintf(os.Stderr, "[watch] connected to %s\n", wsURL)
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		fmt.Fprintln(w, formatEvent(msg, format))
	}
}

func formatEvent(msg []byte, format string) string {
	if !gjson.ValidBytes(msg) {
		return string(msg)
	}
	switch format {
	case "raw":
		return string(msg)
	case "summary":
		return summarizeEvent(msg)
	}
	var obj map[string]any
	if err := json.Unmarshal(msg, &obj); err != nil {
		return string(msg)
	}
	b, _ := json.MarshalIndent(obj, "", "  ")
	return string(b)
}

// summarizeEvent renders a state event as one line.
func summarizeEvent(msg []byte) string {
	ev := gjson.ParseBytes(msg)
	st := ev.Get("state")

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] v%d %s", ev.Get("type").String(), st.Get("version").Uint(), st.Get("status").String())
	if art := st.Get("artwork"); art.Exists() {
		fmt.Fprintf(&b, "  %s / %s", art.Get("title").String(), art.Get("artist").String())
	}
	if e := st.Get("error"); e.Exists() {
		fmt.Fprintf(&b, "  error: %s", e.String())
	}
	fmt.Fprintf(&b, "  bans=%d", len(st.Get("bans").Array()))
	return b.String()
}

func doJSON(ctx context.Context, client *http.Client, method, endpoint, token string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = strings.NewReader(string(b))
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s failed: %s", method, endpoint, strings.TrimSpace(string(data)))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(data, out)
}

func defaultTokenPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./.artdiscover-token.json"
	}
	return filepath.Join(home, ".artdiscover", "token.json")
}

func saveToken(path string, td tokenData) error {
	if td.Token == "" {
		return errors.New("empty token")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(td, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func readToken(path string) (tokenData, error) {
	var td tokenData
	data, err := os.ReadFile(path)
	if err != nil {
		return td, err
	}
	if err := json.Unmarshal(data, &td); err != nil {
		return td, err
	}
	td.Token = strings.TrimSpace(td.Token)
	return td, nil
}

func websocketURL(baseURL, path string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}
	scheme := "ws"
	if u.Scheme == "https" {
		scheme = "wss"
	}
	return (&url.URL{
		Scheme: scheme,
		Host:   u.Host,
		Path:   path,
	}).String(), nil
}
