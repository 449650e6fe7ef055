// internal/httpserver/routes_daily.go
//
// HTTP route for the "number of the day" mode.
//   - POST /daily/new → start a game whose target is today's number
//
// Everyone starting a daily game on the same UTC date with the same range
// plays against the same target.

package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/numguess/internal/daily"
	"github.com/robalobadob/numguess/internal/game"
)

// mountDaily registers the /daily routes.
func (s *Server) mountDaily(r chi.Router) {
	r.Route("/daily", func(r chi.Router) {
		r.Post("/new", s.handleDailyNew)
	})
}

func (s *Server) handleDailyNew(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeNewGame(w, r)
	if !ok {
		return
	}
	now := time.Now().UTC()
	target, err := daily.Target(now, s.cfg.DailySalt, req.MaxNumber)
	if err != nil {
		log.Error().Err(err).Msg("daily target")
		http.Error(w, `{"error":"daily_unavailable"}`, http.StatusInternalServerError)
		return
	}
	g, err := game.New(req.MaxNumber, target)
	if err != nil {
		http.Error(w, `{"error":"bad_target"}`, http.StatusBadRequest)
		return
	}
	s.startGame(w, r, g, daily.DateKey(now))
}
