package googletasks

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
)

const (
	// CallbackTimeout bounds how long the flow waits for the browser.
	CallbackTimeout = 5 * time.Minute

	// DefaultStartPort is the first loopback port tried for the callback.
	DefaultStartPort = 8085

	tokenExchangeTimeout = 30 * time.Second
	maxPortAttempts      = 5
)

// Flow is the OAuth 2.0 loopback flow with PKCE.
type Flow struct {
	Config *oauth2.Config

	// Prompt shows the consent URL to the user.
	Prompt func(authURL string)

	// StartPort is the first port tried; zero picks any free port.
	StartPort int

	// Timeout bounds the wait for the callback; zero means CallbackTimeout.
	Timeout time.Duration
}

// Run starts a loopback listener, prompts with the consent URL and exchanges
// the returned code for a token.
func (f *Flow) Run(ctx context.Context) (*oauth2.Token, error) {
	listener, port, err := listen(f.StartPort)
	if err != nil {
		return nil, errors.New("could not bind to local port for OAuth callback")
	}
	defer listener.Close()

	conf := *f.Config
	conf.RedirectURL = fmt.Sprintf("http://localhost:%d/callback", port)

	verifier := oauth2.GenerateVerifier()
	state := uuid.NewString()
	authURL := conf.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.S256ChallengeOption(verifier),
	)

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != state {
			http.Error(w, "State mismatch", http.StatusBadRequest)
			sendErr(errCh, errors.New("oauth state mismatch"))
			return
		}
		code := q.Get("code")
		if code == "" {
			http.Error(w, "No code in callback", http.StatusBadRequest)
			sendErr(errCh, errors.New("no code in callback"))
			return
		}
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body><h1>Google Tasks linked</h1><p>You may close this window.</p></body></html>")
		select {
		case codeCh <- code:
		default:
		}
	})

	server := &http.Server{Handler: mux}
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			sendErr(errCh, err)
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if f.Prompt != nil {
		f.Prompt(authURL)
	}

	timeout := f.Timeout
	if timeout == 0 {
		timeout = CallbackTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var code string
	select {
	case code = <-codeCh:
	case err := <-errCh:
		return nil, err
	case <-timer.C:
		return nil, errors.New("oauth callback timed out")
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	exchangeCtx, cancel := context.WithTimeout(ctx, tokenExchangeTimeout)
	defer cancel()
	token, err := conf.Exchange(exchangeCtx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("failed to exchange code for token: %w", err)
	}
	return token, nil
}

func sendErr(ch chan<- error, err error) {
	select {
	case ch <- err:
	default:
	}
}

// listen binds the callback listener, trying consecutive ports from start.
func listen(start int) (net.Listener, int, error) {
	if start == 0 {
		l, err := net.Listen("tcp", "localhost:0")
		if err != nil {
			return nil, 0, err
		}
		return l, l.Addr().(*net.TCPAddr).Port, nil
	}
	for i := 0; i < maxPortAttempts; i++ {
		port := start + i
		l, err := net.Listen("tcp", fmt.Sprintf("localhost:%d", port))
		if err == nil {
			return l, port, nil
		}
	}
	return nil, 0, errors.New("no available port found")
}
