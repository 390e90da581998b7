package twitter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/logger"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"prizedraw/internal/metrics"
	"prizedraw/internal/models"
)

const (
	defaultBaseURL = "https://api.twitter.com"

	// PageSize is the single page fetched per signal. Engagement beyond it is not considered.
	PageSize = 100

	maxRateLimitWait = 15 * time.Minute
)

// Client talks to the platform API v2. The app bearer is used for public reads;
// LikingUsers needs a user-context token passed per call.
type Client struct {
	http    *http.Client
	baseURL string
	bearer  string
	limiter *rate.Limiter
	metrics *metrics.Metrics
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRate paces requests at rps with a burst of one.
func WithRate(rps float64) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), 1) }
}

// WithMetrics records every request on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// NewClient creates a platform client.
func NewClient(baseURL, bearer string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	c := &Client{
		http:    &http.Client{Timeout: 30 * time.Second},
		baseURL: strings.TrimRight(baseURL, "/"),
		bearer:  bearer,
		limiter: rate.NewLimiter(rate.Inf, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type user struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

type tweet struct {
	ID       string `json:"id"`
	AuthorID string `json:"author_id"`
	Entities *struct {
		Mentions []struct {
			Username string `json:"username"`
		} `json:"mentions"`
	} `json:"entities"`
}

// LikingUsers returns the users who liked postID, with full profile fields.
func (c *Client) LikingUsers(ctx context.Context, postID, userToken string) ([]models.Participant, error) {
	q := url.Values{
		"user.fields": {"id,username,name"},
		"max_results": {strconv.Itoa(PageSize)},
	}
	var users []user
	if err := c.get(ctx, "liking_users", "/2/tweets/"+url.PathEscape(postID)+"/liking_users", q, userToken, &users); err != nil {
		return nil, err
	}
	out := make([]models.Participant, 0, len(users))
	for _, u := range users {
		out = append(out, models.Participant{ID: u.ID, Username: u.Username, Name: u.Name})
	}
	return out, nil
}

// Retweeters returns the ids of users who reshared postID.
func (c *Client) Retweeters(ctx context.Context, postID string) ([]string, error) {
	q := url.Values{"max_results": {strconv.Itoa(PageSize)}}
	var users []user
	if err := c.get(ctx, "retweeted_by", "/2/tweets/"+url.PathEscape(postID)+"/retweeted_by", q, c.bearer, &users); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}
	return ids, nil
}

// SearchReplies returns one page of recent replies to postID with their mention entities.
func (c *Client) SearchReplies(ctx context.Context, postID string) ([]models.Reply, error) {
	q := url.Values{
		"query":        {"in_reply_to_tweet_id:" + postID},
		"tweet.fields": {"author_id,entities"},
		"expansions":   {"author_id"},
		"max_results":  {strconv.Itoa(PageSize)},
	}
	var tweets []tweet
	if err := c.get(ctx, "search_recent", "/2/tweets/search/recent", q, c.bearer, &tweets); err != nil {
		return nil, err
	}
	out := make([]models.Reply, 0, len(tweets))
	for _, tw := range tweets {
		r := models.Reply{ID: tw.ID, AuthorID: tw.AuthorID}
		if tw.Entities != nil {
			for _, m := range tw.Entities.Mentions {
				r.Mentions = append(r.Mentions, m.Username)
			}
		}
		out = append(out, r)
	}
	return out, nil
}

// get performs one GET and decodes the "data" member into out.
// A 429 is waited out once, until x-rate-limit-reset or ctx ends.
func (c *Client) get(ctx context.Context, operation, path string, q url.Values, token string, out any) error {
	if token == "" {
		return fmt.Errorf("twitter: %s: empty credential", operation)
	}
	endpoint := c.baseURL + path + "?" + q.Encode()

	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("twitter: %s: %w", operation, err)
		}
		start := time.Now()
		status, header, body, err := c.do(ctx, endpoint, token)
		if err != nil {
			c.metrics.ObservePlatformRequest(operation, start, err)
			return fmt.Errorf("twitter: %s: %w", operation, err)
		}
		if status == http.StatusTooManyRequests && attempt == 0 {
			c.metrics.ObservePlatformRequest(operation, start, errRateLimited)
			wait := rateLimitWait(header, time.Now())
			logger.Warningf("twitter: %s rate limited, waiting %s", operation, wait)
			if err := sleep(ctx, wait); err != nil {
				return fmt.Errorf("twitter: %s: %w", operation, err)
			}
			continue
		}
		err = decode(status, body, out)
		c.metrics.ObservePlatformRequest(operation, start, err)
		if err != nil {
			return fmt.Errorf("twitter: %s: %w", operation, err)
		}
		return nil
	}
}

func (c *Client) do(ctx context.Context, endpoint, token string) (int, http.Header, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, resp.Header, body, nil
}

var errRateLimited = errors.New("rate limited")

// decode maps an API response to out. A 200 without "data" is an empty page,
// unless the body carries an "errors" array (e.g. the post does not exist).
func decode(status int, body []byte, out any) error {
	res := gjson.ParseBytes(body)
	if status >= 400 {
		return fmt.Errorf("status %d: %s", status, apiMessage(res))
	}
	data := res.Get("data")
	if !data.Exists() {
		if res.Get("errors").IsArray() {
			return fmt.Errorf("api error: %s", apiMessage(res))
		}
		return nil
	}
	if err := json.Unmarshal([]byte(data.Raw), out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func apiMessage(res gjson.Result) string {
	for _, path := range []string{"errors.0.detail", "errors.0.message", "detail", "title"} {
		if v := res.Get(path); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return "unknown error"
}

func rateLimitWait(h http.Header, now time.Time) time.Duration {
	wait := time.Second
	if reset, err := strconv.ParseInt(h.Get("x-rate-limit-reset"), 10, 64); err == nil {
		if d := time.Unix(reset, 0).Sub(now); d > wait {
			wait = d
		}
	}
	if wait > maxRateLimitWait {
		wait = maxRateLimitWait
	}
	return wait
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
