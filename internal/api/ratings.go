package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"tpvrestaurante/internal/httpx"
	"tpvrestaurante/internal/pos"
)

type ratingRequest struct {
	ItemID  string `json:"itemId"`
	Score   int    `json:"score"`
	Comment string `json:"comment"`
}

type ratingsBatchRequest struct {
	Ratings []ratingRequest `json:"ratings"`
}

// ratedDish resolves the dish in the URL. Only dishes take ratings.
func (s *Server) ratedDish(r *http.Request) (string, error) {
	kind, err := kindParam(r)
	if err != nil {
		return "", err
	}
	if kind != pos.KindDish {
		return "", &pos.ValidationError{Reason: "only dishes can be rated"}
	}
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if _, err := s.catalog.GetItem(r.Context(), pos.KindDish, id); err != nil {
		return "", err
	}
	return id, nil
}

func (s *Server) newRating(ctx context.Context, req ratingRequest) (*pos.Rating, error) {
	rating, err := pos.NewRating(uuid.NewString(), req.ItemID, req.Score, req.Comment, s.now())
	if err != nil {
		return nil, err
	}
	if _, err := s.catalog.GetItem(ctx, pos.KindDish, rating.ItemID); err != nil {
		return nil, err
	}
	return rating, nil
}

func (s *Server) handleRatingsList(w http.ResponseWriter, r *http.Request) {
	id, err := s.ratedDish(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ratings, err := s.catalog.ListRatings(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"ratings": ratings,
		"summary": pos.SummarizeRatings(ratings),
	})
}

func (s *Server) handleRatingCreate(w http.ResponseWriter, r *http.Request) {
	id, err := s.ratedDish(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var req ratingRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	req.ItemID = id
	rating, err := s.newRating(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.catalog.CreateRating(r.Context(), rating); err != nil {
		s.fail(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"rating":  rating,
	})
}

// handleRatingsBatch stores the ratings a diner leaves for a whole meal. Every rating is
// checked before any is written.
func (s *Server) handleRatingsBatch(w http.ResponseWriter, r *http.Request) {
	var req ratingsBatchRequest
	if err := httpx.ReadJSON(r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if len(req.Ratings) == 0 {
		s.fail(w, r, &pos.ValidationError{Reason: "ratings must not be empty"})
		return
	}

	ratings := make([]*pos.Rating, 0, len(req.Ratings))
	for _, in := range req.Ratings {
		rating, err := s.newRating(r.Context(), in)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		ratings = append(ratings, rating)
	}
	for i, rating := range ratings {
		if err := s.catalog.CreateRating(r.Context(), rating); err != nil {
			if i > 0 {
				err = &pos.PartialFailureError{Op: "save ratings", Step: fmt.Sprintf("rating %d of %d", i+1, len(ratings)), Err: err}
			}
			s.fail(w, r, err)
			return
		}
	}
	httpx.WriteJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"ratings": ratings,
	})
}
