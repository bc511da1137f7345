package httpadapter

import (
	"net/http"

	"github.com/kirillkom/vat-compliance-checker/internal/core/domain"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var statusByCode = map[string]int{
	domain.CodeInvalidInput: http.StatusBadRequest,
	domain.CodeUnauthorized: http.StatusUnauthorized,
	domain.CodeNotFound:     http.StatusNotFound,
	domain.CodeTemporary:    http.StatusServiceUnavailable,
}

func mapErrorToHTTPStatus(err error) int {
	if status, ok := statusByCode[domain.ErrorCode(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// writeError reports a failed check. Temporary failures carry Retry-After.
func writeError(w http.ResponseWriter, err error) {
	status := mapErrorToHTTPStatus(err)
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "5")
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), Code: domain.ErrorCode(err)})
}
