// Package feed stores published memes and their upvotes and builds the
// public feed.
//
// Persistence sits behind [Store]; [MemoryStore] serves tests and
// single-process use, and the mongostore subpackage backs production
// servers. [Service] layers the feed rules on top:
//
//   - the feed aggregates upvote counts per meme and marks the viewer's own
//     upvote
//   - "newest" orders by creation time, "popular" by upvote count and then
//     creation time
//   - an upvote toggles: the viewer's existing upvote is removed, otherwise
//     one is created
//   - only the author may delete a meme; its upvotes are removed first
//
// Every mutation is announced on a [Broker] so connected viewers can
// refresh. Two viewers toggling at the same moment may both create an
// upvote; the feed counts what is stored.
package feed
