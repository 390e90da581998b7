package services

import "prizedraw/internal/models"

// ResolveEligible restricts likers to the ids present in both other signals.
// Labels only ever come from likers; reshares and replies are membership only.
// The inputs are not modified.
func ResolveEligible(likers map[string]string, reshares, replies models.IDSet) map[string]string {
	eligible := make(map[string]string)
	for id, label := range likers {
		if reshares.Has(id) && replies.Has(id) {
			eligible[id] = label
		}
	}
	return eligible
}

// QualifyingReplyAuthors returns the authors of replies that mention at least one user.
// A reply without mentions never qualifies its author, even if the author has other
// replies that do not count.
func QualifyingReplyAuthors(replies []models.Reply) models.IDSet {
	authors := make(models.IDSet)
	for _, r := range replies {
		if len(r.Mentions) >= 1 && r.AuthorID != "" {
			authors[r.AuthorID] = struct{}{}
		}
	}
	return authors
}
