// Package http exposes the conference API over JSON.
//
// Routes are registered by NewRouter:
//   - POST /conference, PUT|GET|POST|DELETE /conference/{websafeConferenceKey}:
//     create, update, read, register for and unregister from a conference.
//     Bodies use the conferenceRequest/conferenceForm shapes in forms.go.
//   - POST /getConferencesCreated, POST /queryConferences, GET /conferences/attending:
//     conference listings. Query bodies carry {"filters":[{"field","operator","value"}]}
//     and an optional AIP-160 "filter" expression.
//   - GET /conference/announcement/get, GET /speaker/featured: cached strings.
//   - GET|POST /profile: the caller's profile, created on first access.
//   - POST /session and the GET /sessions/... listings.
//   - GET /profile/wishlist, POST|DELETE /profile/wishlist/{websafeSessionKey}.
//
// Booleans are returned as {"data":true}, strings as {"data":"..."} and lists
// as {"items":[...]}. Errors use {"error_code","message","errors"}.
//
// Callers authenticate with an HS256 bearer token (see TokenAuthority). Routes
// that need a principal answer 401 when none is attached.
package http
