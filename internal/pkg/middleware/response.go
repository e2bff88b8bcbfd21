package middleware

import (
	"encoding/json"
	"net/http"

	"lojasocial/internal/domain"
	apperror "lojasocial/internal/errors"
)

// writeError responde no mesmo formato JSON que os handlers ({code, category, message}).
func writeError(w http.ResponseWriter, err error) {
	status, category, message := apperror.MapToHTTPStatus(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(domain.ErrorResponse{Code: status, Category: category, Message: message})
}
