package services

import (
	"context"
	"errors"
	"strings"

	"github.com/google/logger"
	"github.com/google/uuid"

	"prizedraw/internal/metrics"
	"prizedraw/internal/models"
)

// Authorizer obtains the user-scoped token needed for the likes signal.
type Authorizer interface {
	Authorize(ctx context.Context) (models.AuthorizationToken, error)
}

// Collector fetches the three engagement signals of a post.
type Collector interface {
	Collect(ctx context.Context, postID string, token models.AuthorizationToken) (models.EngagementSignals, error)
}

// DrawService runs one draw: authorize, collect, resolve, select.
// Stages are strictly sequential; each needs the previous one's output.
type DrawService struct {
	auth      Authorizer
	collector Collector
	selector  *WinnerSelector
	metrics   *metrics.Metrics
}

// NewDrawService creates a DrawService. m may be nil.
func NewDrawService(auth Authorizer, collector Collector, selector *WinnerSelector, m *metrics.Metrics) *DrawService {
	return &DrawService{auth: auth, collector: collector, selector: selector, metrics: m}
}

// Run performs the draw described by cfg.
// Config and auth errors abort before any signal is collected. A failed signal
// fetch aborts with an error naming every failed signal. Zero eligible
// participants is not an error: the result has OutcomeNoEligible and no winners.
func (s *DrawService) Run(ctx context.Context, cfg models.DrawConfig) (*models.DrawResult, error) {
	result, err := s.run(ctx, cfg)
	if err != nil {
		s.metrics.ObserveDraw("failed")
		return nil, err
	}
	s.metrics.ObserveDraw(string(result.Outcome))
	return result, nil
}

func (s *DrawService) run(ctx context.Context, cfg models.DrawConfig) (*models.DrawResult, error) {
	if strings.TrimSpace(cfg.PostID) == "" {
		return nil, models.NewConfigError("post_id", "no post id", nil)
	}
	if cfg.MaxWinners < 0 {
		return nil, models.NewConfigError("max_winners", "max winners must be non-negative", nil)
	}

	drawID := uuid.NewString()
	logger.Infof("draw %s: post %s, up to %d winner(s)", drawID, cfg.PostID, cfg.MaxWinners)

	token, err := s.auth.Authorize(ctx)
	if err != nil {
		var de *models.Error
		if !errors.As(err, &de) {
			err = models.NewAuthError("authorize", "authorization failed", err)
		}
		return nil, err
	}

	signals, err := s.collector.Collect(ctx, cfg.PostID, token)
	if err != nil {
		return nil, err
	}

	eligible := ResolveEligible(signals.Likers, signals.Reshares, signals.Replies)
	result := &models.DrawResult{
		ID:     drawID,
		PostID: cfg.PostID,
		Counts: models.SignalCounts{
			Likes:    len(signals.Likers),
			Reshares: len(signals.Reshares),
			Replies:  len(signals.Replies),
			Eligible: len(eligible),
		},
		Eligible: eligible,
		Winners:  map[string]string{},
	}
	logger.Infof("draw %s: %d liked, %d reshared, %d replied with mentions, %d met all criteria",
		drawID, result.Counts.Likes, result.Counts.Reshares, result.Counts.Replies, result.Counts.Eligible)

	if len(eligible) == 0 {
		result.Outcome = models.OutcomeNoEligible
		logger.Infof("draw %s: no eligible participants", drawID)
		return result, nil
	}

	result.Winners = s.selector.Select(eligible, cfg.MaxWinners)
	result.Outcome = models.OutcomeWinnersDrawn
	logger.Infof("draw %s: selected %d winner(s)", drawID, len(result.Winners))
	return result, nil
}
