package http

import (
	"encoding/json"
	"net/http"

	dErrors "popreg/pkg/domain-errors"
)

// errorBody is the client-facing error surface: every rejection carries a
// machine-readable code and a human-readable message.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError centralizes domain error translation to HTTP responses. Only
// logical rejections reach here; infrastructure errors were already degraded
// inside the component that saw them.
func writeError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	writeJSON(w, dErrors.ToHTTPStatus(code), errorBody{
		Code:    string(code),
		Message: dErrors.MessageOf(err),
	})
}
