package jobsapi

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/temirrrr/job-tracker/internal/domain"
)

// errorBody matches FastAPI style payloads: detail is either a message or
// a list of field errors.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
}

type fieldDetail struct {
	Loc []any  `json:"loc"`
	Msg string `json:"msg"`
}

func mapStatus(op string, status int, payload []byte) error {
	message, fields := parseDetail(payload)

	var e *domain.Error
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		e = domain.AuthError(op, message)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		e = domain.ValidationError(op, message)
	case http.StatusNotFound, http.StatusConflict, http.StatusGone:
		e = domain.NotFoundError(op, message)
	default:
		e = domain.NetworkError(op, fmt.Errorf("unexpected status %d", status))
		e.Message = message
	}
	e.Status = status
	for field, msg := range fields {
		e.WithField(field, msg)
	}
	return e
}

func parseDetail(payload []byte) (string, map[string]string) {
	var body errorBody
	if err := json.Unmarshal(payload, &body); err != nil || len(body.Detail) == 0 {
		return strings.TrimSpace(string(payload)), nil
	}

	var msg string
	if err := json.Unmarshal(body.Detail, &msg); err == nil {
		return msg, nil
	}

	var details []fieldDetail
	if err := json.Unmarshal(body.Detail, &details); err != nil {
		return strings.TrimSpace(string(body.Detail)), nil
	}
	fields := make(map[string]string, len(details))
	for _, d := range details {
		fields[fieldName(d.Loc)] = d.Msg
	}
	return "invalid request", fields
}

// fieldName takes the last string element of a loc path like ["body", "title"].
func fieldName(loc []any) string {
	for i := len(loc) - 1; i >= 0; i-- {
		if s, ok := loc[i].(string); ok {
			return s
		}
	}
	return "request"
}
