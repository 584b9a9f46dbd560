package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gsheet "google.golang.org/api/sheets/v4"
)

// ErrNotAuthorized means no token is stored yet; run the login flow first.
var ErrNotAuthorized = errors.New("not authorized with Google (run: pmeds sheets login)")

// OAuthConfig reads a Google OAuth client file (installed-app JSON).
func OAuthConfig(clientFile string) (*oauth2.Config, error) {
	b, err := os.ReadFile(clientFile)
	if err != nil {
		return nil, fmt.Errorf("read client file: %w", err)
	}
	cfg, err := google.ConfigFromJSON(b, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	return cfg, nil
}

// TokenFile stores an OAuth token as JSON.
type TokenFile string

// Load returns the stored token, or nil when none has been saved.
func (f TokenFile) Load() (*oauth2.Token, error) {
	data, err := os.ReadFile(string(f))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading token file: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("corrupt token file (delete %s to re-authenticate): %w", string(f), err)
	}
	return &tok, nil
}

// Save writes tok atomically with owner-only permissions.
func (f TokenFile) Save(tok *oauth2.Token) error {
	path := string(f)
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("creating auth directory: %w", err)
	}
	data, err := json.MarshalIndent(tok, "", "  ")
	if err != nil {
		return fmt.Errorf("marshalling token: %w", err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("saving token file: %w", err)
	}
	return nil
}

// savingTokenSource persists every token it hands out, so refreshes survive.
type savingTokenSource struct {
	ts   oauth2.TokenSource
	file TokenFile
	last string
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.ts.Token()
	if err != nil {
		return nil, err
	}
	if tok.AccessToken != s.last {
		// Best-effort save.
		_ = s.file.Save(tok)
		s.last = tok.AccessToken
	}
	return tok, nil
}

// HTTPClient returns a client authorized with the stored token.
func HTTPClient(ctx context.Context, cfg *oauth2.Config, file TokenFile) (*http.Client, error) {
	tok, err := file.Load()
	if err != nil {
		return nil, err
	}
	if tok == nil {
		return nil, ErrNotAuthorized
	}
	ts := &savingTokenSource{ts: cfg.TokenSource(ctx, tok), file: file, last: tok.AccessToken}
	return oauth2.NewClient(ctx, ts), nil
}

// Login runs the loopback authorization-code flow: it prints the consent
// URL, waits for Google to redirect to a local callback and stores the
// exchanged token.
func Login(ctx context.Context, cfg *oauth2.Config, file TokenFile, port string, out io.Writer) error {
	if port == "" {
		port = "8085"
	}
	ln, err := net.Listen("tcp", "127.0.0.1:"+port)
	if err != nil {
		return fmt.Errorf("listen for callback: %w", err)
	}
	cfg.RedirectURL = "http://localhost:" + port + "/callback"

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)
	mux := http.NewServeMux()
	mux.Handle("/callback", callbackHandler(codeCh, errCh))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() { _ = srv.Serve(ln) }()
	defer srv.Close()

	fmt.Fprintf(out, "Open this URL to authorize:\n%s\n", cfg.AuthCodeURL("pmeds", oauth2.AccessTypeOffline))

	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()
	select {
	case code := <-codeCh:
		tok, err := cfg.Exchange(ctx, code)
		if err != nil {
			return fmt.Errorf("token exchange: %w", err)
		}
		if err := file.Save(tok); err != nil {
			return err
		}
		fmt.Fprintf(out, "Saved token to %s\n", string(file))
		return nil
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return fmt.Errorf("authorization: %w", ctx.Err())
	}
}

func callbackHandler(codeCh chan<- string, errCh chan<- error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if e := r.URL.Query().Get("error"); e != "" {
			http.Error(w, "OAuth error: "+e, http.StatusBadRequest)
			select {
			case errCh <- fmt.Errorf("oauth error: %s", e):
			default:
			}
			return
		}
		code := r.URL.Query().Get("code")
		if code == "" {
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}
		fmt.Fprintln(w, "You may close this window and return to the terminal.")
		select {
		case codeCh <- code:
		default:
		}
	}
}
