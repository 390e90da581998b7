package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"prizedraw/internal/models"
)

type fakePlatform struct {
	likers     []models.Participant
	retweeters []string
	replies    []models.Reply

	likesErr, resharesErr, repliesErr error

	gotUserToken string
}

func (f *fakePlatform) LikingUsers(_ context.Context, _ string, userToken string) ([]models.Participant, error) {
	f.gotUserToken = userToken
	return f.likers, f.likesErr
}

func (f *fakePlatform) Retweeters(context.Context, string) ([]string, error) {
	return f.retweeters, f.resharesErr
}

func (f *fakePlatform) SearchReplies(context.Context, string) ([]models.Reply, error) {
	return f.replies, f.repliesErr
}

func TestSignalCollector_Collect(t *testing.T) {
	token := models.AuthorizationToken{AccessToken: "user-token"}

	t.Run("all signals succeed", func(t *testing.T) {
		platform := &fakePlatform{
			likers: []models.Participant{
				{ID: "1", Username: "a", Name: "Ann"},
				{ID: "2", Username: "b", Name: "Bob"},
			},
			retweeters: []string{"2", "3"},
			replies: []models.Reply{
				{ID: "10", AuthorID: "2", Mentions: []string{"x"}},
				{ID: "11", AuthorID: "3"},
			},
		}

		signals, err := NewSignalCollector(platform, nil).Collect(context.Background(), "42", token)
		require.NoError(t, err)
		assert.Equal(t, "user-token", platform.gotUserToken)
		assert.Equal(t, map[string]string{"1": "@a (Ann)", "2": "@b (Bob)"}, signals.Likers)
		assert.Equal(t, models.NewIDSet("2", "3"), signals.Reshares)
		assert.Equal(t, models.NewIDSet("2"), signals.Replies)
	})

	t.Run("reply failure is named, not an empty set", func(t *testing.T) {
		platform := &fakePlatform{
			likers:     []models.Participant{{ID: "1", Username: "a", Name: "Ann"}},
			retweeters: []string{"1"},
			repliesErr: errors.New("search unavailable"),
		}

		_, err := NewSignalCollector(platform, nil).Collect(context.Background(), "42", token)
		require.Error(t, err)
		assert.True(t, models.IsKind(err, models.KindSignalFetch))
		assert.Equal(t, []models.SignalKind{models.SignalReplies}, models.FailedSignals(err))
		assert.Contains(t, err.Error(), "replies")
	})

	t.Run("every failed signal is reported", func(t *testing.T) {
		platform := &fakePlatform{
			likesErr:   errors.New("unauthorized"),
			repliesErr: errors.New("timeout"),
		}

		_, err := NewSignalCollector(platform, nil).Collect(context.Background(), "42", token)
		require.Error(t, err)
		assert.ElementsMatch(t,
			[]models.SignalKind{models.SignalLikes, models.SignalReplies},
			models.FailedSignals(err))
	})

	t.Run("zero engagement is not an error", func(t *testing.T) {
		signals, err := NewSignalCollector(&fakePlatform{}, nil).Collect(context.Background(), "42", token)
		require.NoError(t, err)
		assert.Empty(t, signals.Likers)
		assert.Empty(t, signals.Reshares)
		assert.Empty(t, signals.Replies)
	})
}
