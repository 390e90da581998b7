package services

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/logger"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"prizedraw/internal/models"
)

// Scopes requested by the consent flow.
var Scopes = []string{"tweet.read", "users.read", "like.read"}

// AuthState is a step of the consent handshake.
type AuthState string

const (
	StateIdle             AuthState = "idle"
	StateAwaitingRedirect AuthState = "awaiting_redirect"
	StateCodeReceived     AuthState = "code_received"
	StateTokenExchanged   AuthState = "token_exchanged"
	StateFailed           AuthState = "failed"
)

// Receiver is a short-lived local listener for the redirect. It sends the first
// callback it observes on the channel it was built with.
type Receiver interface {
	Start() error
	Stop(ctx context.Context) error
}

// ReceiverFactory builds a fresh receiver bound to a single-use handoff channel.
type ReceiverFactory func(handoff chan<- models.Callback) Receiver

// BrowserOpener opens a URL for the user.
type BrowserOpener func(url string) error

// BrokerConfig holds the client identity and endpoints of the consent flow.
type BrokerConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	AuthURL      string
	TokenURL     string
	Timeout      time.Duration
	HTTPClient   *http.Client // optional, used for the token exchange
}

// AuthorizationBroker obtains a user-scoped token through a redirect-based consent flow.
type AuthorizationBroker struct {
	oauth       *oauth2.Config
	newReceiver ReceiverFactory
	open        BrowserOpener
	timeout     time.Duration
	httpClient  *http.Client

	mu    sync.Mutex
	state AuthState
}

// NewAuthorizationBroker creates a broker.
func NewAuthorizationBroker(cfg BrokerConfig, newReceiver ReceiverFactory, open BrowserOpener) *AuthorizationBroker {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}
	if open == nil {
		open = func(string) error { return nil }
	}
	return &AuthorizationBroker{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		newReceiver: newReceiver,
		open:        open,
		timeout:     timeout,
		httpClient:  cfg.HTTPClient,
		state:       StateIdle,
	}
}

// State returns the current handshake state.
func (b *AuthorizationBroker) State() AuthState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *AuthorizationBroker) setState(s AuthState) {
	b.mu.Lock()
	b.state = s
	b.mu.Unlock()
	logger.Infof("authorization: %s", s)
}

// Authorize runs one consent handshake and blocks until it completes, fails,
// or the configured timeout elapses. The redirect receiver is always stopped
// before returning.
func (b *AuthorizationBroker) Authorize(ctx context.Context) (models.AuthorizationToken, error) {
	b.setState(StateIdle)

	verifier := oauth2.GenerateVerifier()
	state := uuid.NewString()

	handoff := make(chan models.Callback, 1)
	receiver := b.newReceiver(handoff)
	if err := receiver.Start(); err != nil {
		b.setState(StateFailed)
		return models.AuthorizationToken{}, models.NewAuthError("receiver_start", "cannot start redirect receiver", err)
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := receiver.Stop(stopCtx); err != nil {
			logger.Warningf("authorization: stopping redirect receiver: %v", err)
		}
	}()

	authURL := b.oauth.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
	b.setState(StateAwaitingRedirect)
	logger.Infof("authorization: open %s to grant access", authURL)
	if err := b.open(authURL); err != nil {
		logger.Warningf("authorization: cannot open browser: %v", err)
	}

	cb, err := b.await(ctx, handoff)
	if err != nil {
		b.setState(StateFailed)
		return models.AuthorizationToken{}, err
	}
	if err := checkCallback(cb, state); err != nil {
		b.setState(StateFailed)
		return models.AuthorizationToken{}, err
	}
	b.setState(StateCodeReceived)

	exchangeCtx := ctx
	if b.httpClient != nil {
		exchangeCtx = context.WithValue(ctx, oauth2.HTTPClient, b.httpClient)
	}
	tok, err := b.oauth.Exchange(exchangeCtx, cb.Code, oauth2.VerifierOption(verifier))
	if err != nil {
		b.setState(StateFailed)
		return models.AuthorizationToken{}, models.NewAuthError("exchange_rejected", "token exchange rejected", err)
	}
	b.setState(StateTokenExchanged)

	return models.AuthorizationToken{
		AccessToken: tok.AccessToken,
		TokenType:   tok.TokenType,
		Expiry:      tok.Expiry,
	}, nil
}

func (b *AuthorizationBroker) await(ctx context.Context, handoff <-chan models.Callback) (models.Callback, error) {
	timer := time.NewTimer(b.timeout)
	defer timer.Stop()

	select {
	case cb := <-handoff:
		return cb, nil
	case <-timer.C:
		return models.Callback{}, models.NewAuthError("timeout", "no redirect received within "+b.timeout.String(), nil)
	case <-ctx.Done():
		return models.Callback{}, models.NewAuthError("canceled", "authorization canceled", ctx.Err())
	}
}

func checkCallback(cb models.Callback, state string) error {
	if cb.Error != "" {
		msg := "consent denied: " + cb.Error
		if cb.ErrorDescription != "" {
			msg += " (" + cb.ErrorDescription + ")"
		}
		return models.NewAuthError("consent_denied", msg, nil)
	}
	if cb.Code == "" {
		return models.NewAuthError("no_code", "redirect carried no code", models.ErrNoCode)
	}
	if cb.State != state {
		return models.NewAuthError("state_mismatch", "redirect state does not match", nil)
	}
	return nil
}
