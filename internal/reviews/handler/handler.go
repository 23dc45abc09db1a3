package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/internal/catalog"
	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/internal/reviews"
	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/internal/reviews/validator"
	apperrors "github.com/Adithya-Monish-Kumar-K/College-Search-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/College-Search-Platform/pkg/metrics"
)

const maxBodyBytes = 64 << 10

type Submitter interface {
	Submit(ctx context.Context, review catalog.Review) error
}

type Handler struct {
	submitter Submitter
	tracker   analytics.Tracker
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// New builds the review handler. tracker and m may be nil.
func New(submitter Submitter, tracker analytics.Tracker, m *metrics.Metrics) *Handler {
	return &Handler{
		submitter: submitter,
		tracker:   tracker,
		metrics:   m,
		logger:    slog.Default().With("component", "review-handler"),
	}
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	req, err := decodeSubmission(w, r)
	if err != nil {
		h.count("bad_request")
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	review, err := validator.ValidateSubmission(req)
	if err != nil {
		h.count("invalid")
		var verr *validator.ValidationError
		if errors.As(err, &verr) {
			h.writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":  "validation failed",
				"fields": verr.Fields,
			})
			return
		}
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.submitter.Submit(ctx, review); err != nil {
		status := apperrors.HTTPStatusCode(err)
		if status == http.StatusNotFound {
			h.count("not_found")
			h.writeError(w, status, apperrors.Message(err))
			return
		}
		h.count("error")
		log.Error("review submission failed", "college", review.CollegeName, "error", err, "status_code", status)
		h.writeError(w, status, "review submission failed")
		return
	}

	h.count("accepted")
	log.Info("review accepted", "college", review.CollegeName, "rating", review.Rating)
	if h.tracker != nil {
		h.tracker.Track(analytics.ReviewEvent{
			Type:        analytics.EventReviewSubmitted,
			CollegeName: review.CollegeName,
			Rating:      review.Rating,
			Timestamp:   time.Now().UTC(),
			RequestID:   logger.RequestID(ctx),
		})
	}
	h.writeJSON(w, http.StatusCreated, reviews.SubmitResponse{
		Status:      "accepted",
		CollegeName: review.CollegeName,
		Rating:      review.Rating,
		Message:     "review submitted successfully",
	})
}

// decodeSubmission reads a JSON body, or form fields for any other content
// type.
func decodeSubmission(w http.ResponseWriter, r *http.Request) (*reviews.SubmitRequest, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var req reviews.SubmitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, errors.New("invalid JSON body")
		}
		return &req, nil
	}
	if err := r.ParseForm(); err != nil {
		return nil, errors.New("invalid form body")
	}
	return &reviews.SubmitRequest{
		CollegeName: r.FormValue("college_name"),
		ReviewText:  r.FormValue("review_text"),
		Rating:      reviews.FlexString(r.FormValue("rating")),
	}, nil
}

func (h *Handler) count(status string) {
	if h.metrics != nil {
		h.metrics.ReviewsSubmittedTotal.WithLabelValues(status).Inc()
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
