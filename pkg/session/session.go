// Package session authenticates against the spreadsheet service and carries
// the credential on every feed request.
package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"gspreadsheet/pkg/feed"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	DefaultAuthURL = "https://www.google.com/accounts/ClientLogin"
	DefaultSource  = "gspreadsheet-1.0"

	authService     = "wise"
	authAccountType = "HOSTED_OR_GOOGLE"
)

// RecoverFunc is called when authentication has failed. Returning true means
// the session state was repaired (typically by calling Login again) and the
// failed request should be retried. Calls made from inside the callback must
// use the ctx it receives.
type RecoverFunc func(ctx context.Context, s *Session) bool

// RetryPolicy reports whether recovery may run for the given attempt,
// counting from 1 for each request.
type RetryPolicy func(attempt int) bool

// Unbounded allows recovery on every attempt. A RecoverFunc that keeps
// returning true without fixing the credential will loop forever.
func Unbounded() RetryPolicy {
	return func(int) bool { return true }
}

// MaxAttempts allows at most n recoveries per request.
func MaxAttempts(n int) RetryPolicy {
	return func(attempt int) bool { return attempt <= n }
}

type Options struct {
	AuthURL    string
	Source     string
	HTTPClient *http.Client
	OnAuthFail RecoverFunc
	// Retry defaults to Unbounded.
	Retry RetryPolicy
	// RequestsPerSecond throttles outgoing requests. Zero disables throttling.
	RequestsPerSecond float64
}

// Session holds the auth token shared by every worksheet built on it. It is
// safe for concurrent use; recovery callbacks are serialized.
type Session struct {
	mu    sync.RWMutex
	token string

	recoverMu  sync.Mutex
	onAuthFail RecoverFunc
	retry      RetryPolicy

	authURL string
	source  string
	client  *http.Client
	limiter *rate.Limiter
}

// New creates a session with the given token, which may be empty.
func New(token string, opts Options) *Session {
	s := &Session{
		token:      token,
		onAuthFail: opts.OnAuthFail,
		retry:      opts.Retry,
		authURL:    opts.AuthURL,
		source:     opts.Source,
		client:     opts.HTTPClient,
	}
	if s.retry == nil {
		s.retry = Unbounded()
	}
	if s.authURL == "" {
		s.authURL = DefaultAuthURL
	}
	if s.source == "" {
		s.source = DefaultSource
	}
	if s.client == nil {
		s.client = &http.Client{Timeout: 60 * time.Second}
	}
	if opts.RequestsPerSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return s
}

// Login creates a session and authenticates it.
func Login(ctx context.Context, email, password string, opts Options) (*Session, error) {
	s := New("", opts)
	if err := s.Login(ctx, email, password); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) SetToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// Login exchanges email and password for a token. On failure the recovery
// callback gets a chance to repair the session; if it reports success the
// failure is swallowed.
func (s *Session) Login(ctx context.Context, email, password string) error {
	token, err := s.clientLogin(ctx, email, password)
	if err != nil {
		s.SetToken("")
		if s.tryRecover(ctx, 1, "") {
			return nil
		}
		return &AuthenticationError{Account: email, Err: err}
	}
	s.SetToken(token)
	log.WithField("account", email).Debug("logged in")
	return nil
}

func (s *Session) clientLogin(ctx context.Context, email, password string) (string, error) {
	form := url.Values{
		"accountType": {authAccountType},
		"Email":       {email},
		"Passwd":      {password},
		"service":     {authService},
		"source":      {s.source},
	}
	if err := s.wait(ctx); err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &RemoteError{
			Method:     http.MethodPost,
			URL:        s.authURL,
			StatusCode: resp.StatusCode,
			Body:       html.UnescapeString(string(data)),
		}
	}
	for _, line := range strings.Split(string(data), "\n") {
		if token, ok := strings.CutPrefix(strings.TrimSpace(line), "Auth="); ok && token != "" {
			return token, nil
		}
	}
	return "", errors.New("no Auth token in response")
}

type recoveringKey struct{}

// tryRecover runs the recovery callback under the retry policy. failedToken is
// the token the failed request carried; if another caller already replaced
// it, the request is retried without invoking the callback again.
func (s *Session) tryRecover(ctx context.Context, attempt int, failedToken string) bool {
	if s.onAuthFail == nil || ctx.Value(recoveringKey{}) != nil {
		return false
	}
	if !s.retry(attempt) {
		log.WithField("attempt", attempt).Debug("auth retry policy exhausted")
		return false
	}
	s.recoverMu.Lock()
	defer s.recoverMu.Unlock()
	if s.Token() != failedToken {
		return true
	}
	log.WithField("attempt", attempt).Debug("authentication failed, running recovery")
	return s.onAuthFail(context.WithValue(ctx, recoveringKey{}, true), s)
}

func (s *Session) wait(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	return s.limiter.Wait(ctx)
}

func (s *Session) Get(ctx context.Context, url string) ([]byte, error) {
	return s.do(ctx, http.MethodGet, url, nil)
}

func (s *Session) Post(ctx context.Context, url string, body []byte) ([]byte, error) {
	return s.do(ctx, http.MethodPost, url, body)
}

func (s *Session) Put(ctx context.Context, url string, body []byte) ([]byte, error) {
	return s.do(ctx, http.MethodPut, url, body)
}

func (s *Session) Delete(ctx context.Context, url string) ([]byte, error) {
	return s.do(ctx, http.MethodDelete, url, nil)
}

func (s *Session) do(ctx context.Context, method, url string, body []byte) ([]byte, error) {
	for attempt := 1; ; attempt++ {
		if err := s.wait(ctx); err != nil {
			return nil, err
		}
		token := s.Token()
		var rd io.Reader
		if body != nil {
			rd = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, rd)
		if err != nil {
			return nil, err
		}
		if token != "" {
			req.Header.Set("Authorization", "GoogleLogin auth="+token)
		}
		if method != http.MethodGet {
			req.Header.Set("Content-Type", feed.ContentType)
		}

		resp, err := s.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", method, url, err)
		}
		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("%s %s: %w", method, url, err)
		}
		log.WithFields(log.Fields{
			"method": method,
			"url":    url,
			"status": resp.StatusCode,
		}).Debug("feed request")

		if resp.StatusCode == http.StatusUnauthorized {
			if s.tryRecover(ctx, attempt, token) {
				continue
			}
			return nil, &AuthenticationError{URL: url, Err: &RemoteError{
				Method:     method,
				URL:        url,
				StatusCode: resp.StatusCode,
				Body:       html.UnescapeString(string(data)),
			}}
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, &RemoteError{
				Method:     method,
				URL:        url,
				StatusCode: resp.StatusCode,
				Body:       html.UnescapeString(string(data)),
			}
		}
		return data, nil
	}
}
