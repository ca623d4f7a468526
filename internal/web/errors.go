package web

// errors.go writes every API failure the same way: the technical error is
// logged with the request id, and the client receives the user message and
// support code from core.MapError with the matching HTTP status.

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/JonMunkholm/sheets/internal/core"
	"github.com/JonMunkholm/sheets/internal/logging"
	"github.com/JonMunkholm/sheets/internal/sheet"
)

var (
	errRateLimited = errors.New("rate limit exceeded")
)

// ErrorResponse is the JSON body of every error reply.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
	Kind    string `json:"kind,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func respondError(w http.ResponseWriter, r *http.Request, err error) {
	msg := core.MapError(err)
	status := msg.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}

	log := logging.FromContext(r.Context()).With(
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"code", msg.Code,
		"error", err.Error(),
	)
	if status >= 500 {
		log.Error("request error")
	} else {
		log.Warn("request error")
	}

	body := ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	}
	var se *sheet.Error
	if errors.As(err, &se) {
		body.Kind = se.Kind.Code()
		body.Data = jsonSafe(se.Data)
	}

	writeJSON(w, r, status, body)
}

// jsonSafe drops error data that cannot be encoded.
func jsonSafe(v any) any {
	if v == nil {
		return nil
	}
	if _, err := json.Marshal(v); err != nil {
		return nil
	}
	return v
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(r.Context()).Error("json encode error", "error", err)
	}
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
