package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prizedraw/internal/models"
)

type fakeReceiver struct {
	startErr error
	started  bool
	stopped  bool
}

func (r *fakeReceiver) Start() error {
	r.started = true
	return r.startErr
}

func (r *fakeReceiver) Stop(context.Context) error {
	r.stopped = true
	return nil
}

type brokerFixture struct {
	broker     *AuthorizationBroker
	receiver   *fakeReceiver
	authURL    string
	tokenCalls atomic.Int32
	tokenForm  url.Values
}

// newBrokerFixture wires a broker to a fake receiver and a test token endpoint.
// respond turns the consent URL into the callback the "browser" redirects with;
// a nil respond simulates a user who never finishes consent.
func newBrokerFixture(t *testing.T, tokenStatus int, respond func(authURL *url.URL) models.Callback) *brokerFixture {
	t.Helper()
	f := &brokerFixture{receiver: &fakeReceiver{}}

	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls.Add(1)
		assert.NoError(t, r.ParseForm())
		f.tokenForm = r.PostForm
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "client", user)
		assert.Equal(t, "secret", pass)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(tokenStatus)
		if tokenStatus != http.StatusOK {
			w.Write([]byte(`{"error":"invalid_request","error_description":"Value passed for the authorization code was invalid."}`))
			return
		}
		w.Write([]byte(`{"access_token":"user-token","token_type":"bearer","expires_in":7200,"scope":"tweet.read users.read like.read"}`))
	}))
	t.Cleanup(tokenSrv.Close)

	var handoff chan<- models.Callback
	factory := func(ch chan<- models.Callback) Receiver {
		handoff = ch
		return f.receiver
	}
	open := func(raw string) error {
		f.authURL = raw
		if respond == nil {
			return nil
		}
		u, err := url.Parse(raw)
		if err != nil {
			return err
		}
		handoff <- respond(u)
		return nil
	}

	f.broker = NewAuthorizationBroker(BrokerConfig{
		ClientID:     "client",
		ClientSecret: "secret",
		RedirectURL:  "http://localhost:8000",
		AuthURL:      "https://twitter.com/i/oauth2/authorize",
		TokenURL:     tokenSrv.URL,
		Timeout:      200 * time.Millisecond,
	}, factory, open)
	return f
}

func grant(u *url.URL) models.Callback {
	return models.Callback{Code: "the-code", State: u.Query().Get("state")}
}

func TestAuthorizationBroker_Authorize(t *testing.T) {
	t.Run("successful handshake", func(t *testing.T) {
		f := newBrokerFixture(t, http.StatusOK, grant)

		tok, err := f.broker.Authorize(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "user-token", tok.AccessToken)
		assert.Equal(t, StateTokenExchanged, f.broker.State())
		assert.True(t, f.receiver.stopped)

		u, err := url.Parse(f.authURL)
		require.NoError(t, err)
		q := u.Query()
		assert.Equal(t, "code", q.Get("response_type"))
		assert.Equal(t, "tweet.read users.read like.read", q.Get("scope"))
		assert.Equal(t, "S256", q.Get("code_challenge_method"))
		assert.NotEmpty(t, q.Get("code_challenge"))
		assert.Equal(t, "http://localhost:8000", q.Get("redirect_uri"))

		assert.Equal(t, "the-code", f.tokenForm.Get("code"))
		assert.Equal(t, "authorization_code", f.tokenForm.Get("grant_type"))
		assert.NotEmpty(t, f.tokenForm.Get("code_verifier"))
	})

	t.Run("consent denied", func(t *testing.T) {
		f := newBrokerFixture(t, http.StatusOK, func(u *url.URL) models.Callback {
			return models.Callback{Error: "access_denied", State: u.Query().Get("state")}
		})

		_, err := f.broker.Authorize(context.Background())
		require.Error(t, err)
		assert.True(t, models.IsKind(err, models.KindAuth))
		assert.Equal(t, StateFailed, f.broker.State())
		assert.True(t, f.receiver.stopped)
		assert.Zero(t, f.tokenCalls.Load())
	})

	t.Run("redirect without code", func(t *testing.T) {
		f := newBrokerFixture(t, http.StatusOK, func(u *url.URL) models.Callback {
			return models.Callback{State: u.Query().Get("state")}
		})

		_, err := f.broker.Authorize(context.Background())
		require.Error(t, err)
		assert.True(t, models.IsKind(err, models.KindAuth))
		assert.True(t, errors.Is(err, models.ErrNoCode))
		assert.True(t, f.receiver.stopped)
	})

	t.Run("state mismatch", func(t *testing.T) {
		f := newBrokerFixture(t, http.StatusOK, func(*url.URL) models.Callback {
			return models.Callback{Code: "the-code", State: "forged"}
		})

		_, err := f.broker.Authorize(context.Background())
		require.Error(t, err)
		assert.True(t, models.IsKind(err, models.KindAuth))
		assert.Zero(t, f.tokenCalls.Load())
	})

	t.Run("exchange rejected", func(t *testing.T) {
		f := newBrokerFixture(t, http.StatusBadRequest, grant)

		_, err := f.broker.Authorize(context.Background())
		require.Error(t, err)
		assert.True(t, models.IsKind(err, models.KindAuth))
		assert.Equal(t, StateFailed, f.broker.State())
		assert.True(t, f.receiver.stopped)
	})

	t.Run("times out without redirect", func(t *testing.T) {
		f := newBrokerFixture(t, http.StatusOK, nil)

		start := time.Now()
		_, err := f.broker.Authorize(context.Background())
		require.Error(t, err)
		assert.True(t, models.IsKind(err, models.KindAuth))
		assert.Less(t, time.Since(start), 5*time.Second)
		assert.True(t, f.receiver.stopped)
	})

	t.Run("canceled context", func(t *testing.T) {
		f := newBrokerFixture(t, http.StatusOK, nil)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := f.broker.Authorize(ctx)
		require.Error(t, err)
		assert.True(t, models.IsKind(err, models.KindAuth))
		assert.True(t, errors.Is(err, context.Canceled))
	})

	t.Run("receiver cannot start", func(t *testing.T) {
		f := newBrokerFixture(t, http.StatusOK, grant)
		f.receiver.startErr = errors.New("address in use")

		_, err := f.broker.Authorize(context.Background())
		require.Error(t, err)
		assert.True(t, models.IsKind(err, models.KindAuth))
		assert.Empty(t, f.authURL)
	})
}
