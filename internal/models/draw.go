package models

import (
	"fmt"
	"time"
)

// Participant represents a platform user taking part in the draw.
// The label is "@handle (Name)" and only ever comes from the likes signal,
// which is the one source that returns full profiles.
type Participant struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

// Label returns the display label used on the console and the results page.
func (p Participant) Label() string {
	return fmt.Sprintf("@%s (%s)", p.Username, p.Name)
}

// ProfileURL links to the participant's profile by stable id.
func ProfileURL(id string) string {
	return "https://twitter.com/i/user/" + id
}

// SignalKind names one engagement dimension of a post.
type SignalKind string

const (
	SignalLikes    SignalKind = "likes"
	SignalReshares SignalKind = "reshares"
	SignalReplies  SignalKind = "replies"
)

// IDSet is a set of participant ids.
type IDSet map[string]struct{}

// NewIDSet builds a set from the given ids.
func NewIDSet(ids ...string) IDSet {
	s := make(IDSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether id is in the set.
func (s IDSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Reply is a reply to the target post as returned by recent search.
type Reply struct {
	ID       string   `json:"id"`
	AuthorID string   `json:"author_id"`
	Mentions []string `json:"mentions"` // mentioned usernames, in entity order
}

// EngagementSignals holds the three raw signal sets of one draw.
type EngagementSignals struct {
	Likers   map[string]string // id -> label
	Reshares IDSet
	Replies  IDSet // authors of replies with at least one mention
}

// DrawConfig is the validated input of one draw.
type DrawConfig struct {
	PostID     string
	MaxWinners int
}

// AuthorizationToken is the user-scoped credential obtained by the consent flow.
// It lives for a single draw and is never persisted.
type AuthorizationToken struct {
	AccessToken string
	TokenType   string
	Expiry      time.Time
}

// Outcome tells how a completed draw ended.
type Outcome string

const (
	OutcomeWinnersDrawn Outcome = "winners_drawn"
	OutcomeNoEligible   Outcome = "no_eligible"
)

// DrawResult stores the outcome of one complete draw.
type DrawResult struct {
	ID       string
	PostID   string
	Outcome  Outcome
	Counts   SignalCounts
	Eligible map[string]string // id -> label
	Winners  map[string]string // id -> label, subset of Eligible
}

// SignalCounts summarises the size of each set for reporting.
type SignalCounts struct {
	Likes    int
	Reshares int
	Replies  int
	Eligible int
}

// Callback is what the redirect receiver observed on the first redirect request.
type Callback struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}
