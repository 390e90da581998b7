package services

import (
	"context"
	"errors"
	"sync"

	"github.com/google/logger"

	"prizedraw/internal/metrics"
	"prizedraw/internal/models"
)

// Platform is the subset of the platform API the collector needs.
// Each call returns one page or fails; pacing and rate-limit waits are its own business.
type Platform interface {
	LikingUsers(ctx context.Context, postID, userToken string) ([]models.Participant, error)
	Retweeters(ctx context.Context, postID string) ([]string, error)
	SearchReplies(ctx context.Context, postID string) ([]models.Reply, error)
}

// SignalResult is the tagged outcome of one signal fetch.
type SignalResult struct {
	Kind models.SignalKind
	Size int
	Err  error
}

// SignalCollector fetches the three engagement signals of a post.
type SignalCollector struct {
	platform Platform
	metrics  *metrics.Metrics
}

// NewSignalCollector creates a collector. m may be nil.
func NewSignalCollector(platform Platform, m *metrics.Metrics) *SignalCollector {
	return &SignalCollector{platform: platform, metrics: m}
}

// Collect runs the three fetches concurrently and waits for all of them.
// If any fetch fails the returned error joins one SignalFetchError per failed
// signal, and the signals must not be used.
func (c *SignalCollector) Collect(ctx context.Context, postID string, token models.AuthorizationToken) (models.EngagementSignals, error) {
	var (
		wg      sync.WaitGroup
		signals models.EngagementSignals
		results [3]SignalResult
	)

	wg.Add(3)
	go func() {
		defer wg.Done()
		users, err := c.platform.LikingUsers(ctx, postID, token.AccessToken)
		if err == nil {
			signals.Likers = make(map[string]string, len(users))
			for _, u := range users {
				signals.Likers[u.ID] = u.Label()
			}
		}
		results[0] = SignalResult{Kind: models.SignalLikes, Size: len(signals.Likers), Err: err}
	}()
	go func() {
		defer wg.Done()
		ids, err := c.platform.Retweeters(ctx, postID)
		if err == nil {
			signals.Reshares = models.NewIDSet(ids...)
		}
		results[1] = SignalResult{Kind: models.SignalReshares, Size: len(signals.Reshares), Err: err}
	}()
	go func() {
		defer wg.Done()
		replies, err := c.platform.SearchReplies(ctx, postID)
		if err == nil {
			signals.Replies = QualifyingReplyAuthors(replies)
		}
		results[2] = SignalResult{Kind: models.SignalReplies, Size: len(signals.Replies), Err: err}
	}()
	wg.Wait()

	var errs []error
	for _, r := range results {
		c.metrics.ObserveSignal(string(r.Kind), r.Size, r.Err)
		if r.Err != nil {
			logger.Errorf("signal %s failed: %v", r.Kind, r.Err)
			errs = append(errs, models.NewSignalFetchError(r.Kind, r.Err))
			continue
		}
		logger.Infof("signal %s: %d users", r.Kind, r.Size)
	}
	if len(errs) > 0 {
		return models.EngagementSignals{}, errors.Join(errs...)
	}
	return signals, nil
}
