package utils

import (
	"encoding/json"
	"net/http"

	"github.com/nijaru/yt-summary/apperrors"
	"github.com/sirupsen/logrus"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logrus.WithError(err).Error("Failed to encode JSON response")
	}
}

// HandleError writes err as a JSON error body with the status its kind maps
// to. Causes of internal errors are logged, never sent.
func HandleError(w http.ResponseWriter, err error) {
	WriteJSON(w, apperrors.StatusCode(err), ErrorResponse{
		Error:   string(apperrors.KindOf(err)),
		Message: apperrors.PublicMessage(err),
	})
}

func MethodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
}
