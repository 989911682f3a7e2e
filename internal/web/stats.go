package web

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"volleyladder/internal/back"

	"github.com/go-chi/chi"
)

func (s *Server) getRatings(w http.ResponseWriter, _ *http.Request) {
	ratings, err := s.back.GetCurrentRatings()
	if err != nil {
		s.error(w, err, http.StatusInternalServerError)
		return
	}

	s.cache(w, "public", 1*time.Minute)
	s.response(w, http.StatusOK, ratings)
}

func (s *Server) getLeaderboard(w http.ResponseWriter, r *http.Request) {
	minGames := s.back.MinLeaderboardGames()
	if str := r.URL.Query().Get("min_games"); str != "" {
		v, err := strconv.Atoi(str)
		if err != nil || v < 0 {
			s.error(w, errors.New("invalid min_games"), http.StatusBadRequest)
			return
		}
		minGames = v
	}

	leaderboard, err := s.back.GetLeaderboard(minGames)
	if err != nil {
		s.error(w, err, http.StatusInternalServerError)
		return
	}

	s.cache(w, "public", 1*time.Minute)
	s.response(w, http.StatusOK, leaderboard)
}

func (s *Server) getPlayerStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.back.GetPlayerStats(chi.URLParam(r, "name"))
	if err != nil {
		var notFound back.ErrPlayerNotFound
		if errors.As(err, &notFound) {
			s.error(w, err, http.StatusNotFound)
			return
		}

		s.error(w, err, http.StatusInternalServerError)
		return
	}

	s.cache(w, "public", 1*time.Minute)
	s.response(w, http.StatusOK, stats)
}

type playerHistoryPayload struct {
	PlayerName string
	History    []back.RatingPoint
	Weekly     []back.WeeklyAverage
}

func (s *Server) getPlayerHistory(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	history, err := s.back.GetPlayerRatingHistory(name)
	if err != nil {
		var notFound back.ErrPlayerNotFound
		if errors.As(err, &notFound) {
			s.error(w, err, http.StatusNotFound)
			return
		}

		s.error(w, err, http.StatusInternalServerError)
		return
	}

	s.cache(w, "public", 5*time.Minute)
	s.response(w, http.StatusOK, playerHistoryPayload{
		PlayerName: name,
		History:    history,
		Weekly:     back.WeeklyAverages(history),
	})
}
