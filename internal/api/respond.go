package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/model"
	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/review"
	"github.com/adeelyj/rapiddraft-utumpitch-sub000/internal/store"
)

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

// writeError maps err to a status code. Request errors carry their field.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if re, ok := model.AsRequestError(err); ok {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: re.Message, Field: re.Field})
		return
	}
	switch {
	case errors.Is(err, errBodyTooLarge):
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "request body too large"})
	case eris.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	case eris.Is(err, review.ErrStoreDisabled):
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "persistence is disabled"})
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "request cancelled"})
	default:
		zap.L().Error("api: internal error",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}
