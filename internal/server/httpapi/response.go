// Package httpapi is the REST surface of the server: routing, request
// parsing, cookies and the auth gate in front of services.UserService.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/dmitrijs2005/vidtube/internal/common"
	"github.com/dmitrijs2005/vidtube/internal/logging"
)

// envelope is the body of every successful response.
type envelope struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

// errorEnvelope is the body of every failed response.
type errorEnvelope struct {
	StatusCode int      `json:"statusCode"`
	Data       any      `json:"data"`
	Message    string   `json:"message"`
	Success    bool     `json:"success"`
	Errors     []string `json:"errors"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respond(w http.ResponseWriter, status int, data any, message string) {
	writeJSON(w, status, envelope{StatusCode: status, Data: data, Message: message, Success: true})
}

func respondStatus(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorEnvelope{StatusCode: status, Message: message, Errors: []string{}})
}

// respondError serializes err as an error envelope. Causes are logged, never sent.
func respondError(ctx context.Context, w http.ResponseWriter, logger logging.Logger, err error) {
	apiErr := common.AsAPIError(err)
	status := apiErr.StatusCode()

	if apiErr.Kind == common.KindInternal {
		logger.Error(ctx, "request failed", "error", err)
	} else {
		logger.Debug(ctx, "request rejected", "status", status, "error", err)
	}

	errs := apiErr.Errors
	if errs == nil {
		errs = []string{}
	}
	writeJSON(w, status, errorEnvelope{StatusCode: status, Message: apiErr.Message, Errors: errs})
}
