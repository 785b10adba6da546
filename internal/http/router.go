package http

import (
	"net/http"
)

type RouterConfig struct {
	Conferences *ConferenceHandler
	Sessions    *SessionHandler
	Profiles    *ProfileHandler
	Middleware  []func(http.Handler) http.Handler
}

// NewRouter registers the API routes. Method mismatches are answered with
// 405 by the mux itself.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	if c := cfg.Conferences; c != nil {
		mux.HandleFunc("POST /conference", c.Create)
		mux.HandleFunc("GET /conference/{websafeConferenceKey}", c.Get)
		mux.HandleFunc("PUT /conference/{websafeConferenceKey}", c.Update)
		mux.HandleFunc("POST /conference/{websafeConferenceKey}", c.Register)
		mux.HandleFunc("DELETE /conference/{websafeConferenceKey}", c.Unregister)
		mux.HandleFunc("GET /conference/announcement/get", c.Announcement)
		mux.HandleFunc("POST /getConferencesCreated", c.Created)
		mux.HandleFunc("POST /queryConferences", c.Query)
		mux.HandleFunc("GET /conferences/attending", c.Attending)
	}

	if s := cfg.Sessions; s != nil {
		mux.HandleFunc("POST /session", s.Create)
		mux.HandleFunc("GET /sessions/{websafeConferenceKey}", s.ByConference)
		mux.HandleFunc("GET /sessions/{websafeConferenceKey}/type/{typeOfSession}", s.ByType)
		mux.HandleFunc("GET /sessions/{websafeConferenceKey}/exclude/{excludedTypeOfSession}", s.ExcludingType)
		mux.HandleFunc("GET /sessions/speaker/{speaker}", s.BySpeaker)
		mux.HandleFunc("GET /sessions/date/{date}", s.ByDate)
		mux.HandleFunc("GET /sessions/non-workshop/before-seven", s.NonWorkshopBeforeSeven)
		mux.HandleFunc("GET /profile/wishlist", s.Wishlist)
		mux.HandleFunc("POST /profile/wishlist/{websafeSessionKey}", s.AddToWishlist)
		mux.HandleFunc("DELETE /profile/wishlist/{websafeSessionKey}", s.RemoveFromWishlist)
		mux.HandleFunc("GET /speaker/featured", s.FeaturedSpeaker)
	}

	if p := cfg.Profiles; p != nil {
		mux.HandleFunc("GET /profile", p.Get)
		mux.HandleFunc("POST /profile", p.Save)
	}

	var handler http.Handler = mux
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}

	return handler
}
