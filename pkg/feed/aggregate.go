package feed

import (
	"fmt"
	"sort"
	"time"
)

// Aggregate joins memes with their upvotes as seen by viewer. An empty
// viewer never has upvoted. The result keeps the order of memes.
func Aggregate(memes []Meme, upvotes []Upvote, viewer string) []Entry {
	byMeme := make(map[string][]Upvote, len(memes))
	for _, u := range upvotes {
		byMeme[u.MemeID] = append(byMeme[u.MemeID], u)
	}
	entries := make([]Entry, len(memes))
	for i, m := range memes {
		votes := byMeme[m.ID]
		e := Entry{Meme: m, Upvotes: len(votes)}
		if viewer != "" {
			for _, u := range votes {
				if u.VoterID == viewer {
					e.HasUpvoted = true
					e.UserUpvoteID = u.ID
					break
				}
			}
		}
		entries[i] = e
	}
	return entries
}

// SortEntries orders entries in place. Newest sorts by creation time
// descending; popular sorts by upvotes descending and breaks ties by
// creation time descending.
func SortEntries(entries []Entry, by Sort) {
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if by == SortPopular && a.Upvotes != b.Upvotes {
			return a.Upvotes > b.Upvotes
		}
		return a.CreatedAt > b.CreatedAt
	})
}

// RelativeTime formats t relative to now: "just now" under a minute, then
// minutes, hours and days ("5m ago", "3h ago", "2d ago"), and a plain date
// from seven days on.
func RelativeTime(t, now time.Time) string {
	seconds := int64(now.Sub(t) / time.Second)
	if seconds < 60 {
		return "just now"
	}
	minutes := seconds / 60
	if minutes < 60 {
		return fmt.Sprintf("%dm ago", minutes)
	}
	hours := minutes / 60
	if hours < 24 {
		return fmt.Sprintf("%dh ago", hours)
	}
	days := hours / 24
	if days < 7 {
		return fmt.Sprintf("%dd ago", days)
	}
	return t.Format("Jan 2, 2006")
}
