// Package rest exposes the pipeline as an HTTP API for operator tooling.
package rest

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/prefpoll/prefpoll/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// writeDomainError maps pipeline errors onto HTTP statuses: missing
// entities 404, rejected input 400, provider failures 502, everything
// else 500.
func writeDomainError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	var serviceErr *domain.ServiceError

	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.As(err, &validationErr):
		writeError(w, http.StatusBadRequest, validationErr.Error())
	case errors.As(err, &serviceErr):
		writeError(w, http.StatusBadGateway, serviceErr.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
