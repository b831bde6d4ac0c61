// Package api serves memeforge over HTTP and provides a client for it.
//
// # Routes
//
//	POST   /api/auth/code          email a sign-in code
//	POST   /api/auth/verify        exchange a code for a bearer token
//	GET    /api/auth/me            current identity
//	POST   /api/auth/logout        end the session
//	GET    /api/templates          bundled templates
//	POST   /api/render             render a draft to a data URL
//	GET    /api/memes              feed (?sort=newest|popular, ?images=true)
//	POST   /api/memes              publish a draft or an encoded image
//	GET    /api/memes/{id}         one feed entry with its image
//	GET    /api/memes/{id}/image   the decoded image
//	DELETE /api/memes/{id}         delete (author only)
//	POST   /api/memes/{id}/upvote  toggle the caller's upvote
//	GET    /api/events             server-sent feed events
//	GET    /healthz                liveness and build info
//
// Authenticated routes expect "Authorization: Bearer <token>". Errors are
// returned as {"code": "...", "message": "..."} with a status derived from
// the error code.
package api
