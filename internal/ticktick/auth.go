package ticktick

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"
)

// callbackTimeout bounds how long the authorization flow waits for the
// browser redirect.
const callbackTimeout = 60 * time.Second

// AuthURL builds the authorization URL the user must visit.
func (c *Client) AuthURL(redirectURI string) string {
	params := url.Values{}
	params.Set("client_id", c.cfg.ClientID)
	params.Set("response_type", "code")
	params.Set("redirect_uri", redirectURI)
	params.Set("scope", "tasks:read tasks:write")
	return c.cfg.AuthURL + "?" + params.Encode()
}

// Authenticate runs the full authorization flow: open the authorization
// URL in a browser, wait for the local callback to deliver a code,
// exchange it for a credential, and persist it. A valid existing
// credential short-circuits the flow unless force is set.
func (c *Client) Authenticate(ctx context.Context, force bool) error {
	if !force && c.Authenticated() {
		return nil
	}

	redirectURI := fmt.Sprintf("http://localhost:%d/callback", c.cfg.RedirectPort)

	cb, err := startCallbackServer(fmt.Sprintf("127.0.0.1:%d", c.cfg.RedirectPort))
	if err != nil {
		return fmt.Errorf("start callback server: %w", err)
	}

	authURL := c.AuthURL(redirectURI)
	slog.Info("Waiting for authorization", "url", authURL)
	openBrowser(authURL)

	code, err := cb.waitForCode(ctx, callbackTimeout)
	if err != nil {
		return err
	}

	cred, err := c.exchangeCode(ctx, code, redirectURI)
	if err != nil {
		return err
	}
	if err := saveCredential(c.cfg.TokenFile, cred); err != nil {
		return fmt.Errorf("persist credential: %w", err)
	}
	c.setCredential(cred)
	return nil
}

// exchangeCode trades an authorization code for a credential.
func (c *Client) exchangeCode(ctx context.Context, code, redirectURI string) (*Credential, error) {
	form := url.Values{}
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("code", code)
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", redirectURI)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token exchange: %w", err)
	}
	defer resp.Body.Close()

	var raw struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		Scope       string `json:"scope"`
		ExpiresIn   int    `json:"expires_in"`
		Error       string `json:"error"`
		ErrorDesc   string `json:"error_description"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if raw.Error != "" {
			return nil, fmt.Errorf("token exchange failed: %s (%s)", raw.Error, raw.ErrorDesc)
		}
		return nil, fmt.Errorf("token exchange failed: status %d", resp.StatusCode)
	}
	if raw.AccessToken == "" {
		return nil, errors.New("token response missing access_token")
	}

	return &Credential{
		AccessToken: raw.AccessToken,
		ExpiresAt:   c.now().Add(time.Duration(raw.ExpiresIn) * time.Second),
		TokenType:   raw.TokenType,
		Scope:       raw.Scope,
	}, nil
}

type callbackServer struct {
	listener  net.Listener
	server    *http.Server
	resultCh  chan callbackResult
	resultOne sync.Once
	closeOne  sync.Once
}

type callbackResult struct {
	code string
	err  error
}

func startCallbackServer(listenAddr string) (*callbackServer, error) {
	listener, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return nil, err
	}

	cb := &callbackServer{
		listener: listener,
		resultCh: make(chan callbackResult, 1),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", cb.handleCallback)
	cb.server = &http.Server{Handler: mux}

	go func() {
		if serveErr := cb.server.Serve(cb.listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			cb.trySendResult(callbackResult{err: serveErr})
		}
	}()

	return cb, nil
}

func (s *callbackServer) waitForCode(ctx context.Context, timeout time.Duration) (string, error) {
	defer s.close()

	select {
	case result := <-s.resultCh:
		return result.code, result.err
	case <-time.After(timeout):
		return "", ErrAuthorizationTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s *callbackServer) close() error {
	var closeErr error
	s.closeOne.Do(func() {
		closeErr = s.server.Close()
	})
	return closeErr
}

func (s *callbackServer) handleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		s.trySendResult(callbackResult{err: errors.New("missing authorization code")})
		http.Error(w, "Authorization failed! No code received.", http.StatusBadRequest)
		return
	}
	s.trySendResult(callbackResult{code: code})
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Authorization successful! You can close this window."))
}

func (s *callbackServer) trySendResult(result callbackResult) {
	s.resultOne.Do(func() {
		s.resultCh <- result
	})
}

// openBrowser launches the platform browser; failures are logged only,
// since the URL is also printed for manual use.
func openBrowser(target string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", target)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", target)
	default:
		cmd = exec.Command("xdg-open", target)
	}
	if err := cmd.Start(); err != nil {
		slog.Warn("Failed to open browser", "error", err)
	}
}
