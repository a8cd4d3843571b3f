package restapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"

	"todoctl/internal/service"
)

// Error is a non-2xx response from the store.
type Error struct {
	StatusCode int

	// Detail is the store's message, taken from the FastAPI "detail" field.
	Detail string

	kind error
}

func (e *Error) Error() string {
	switch {
	case errors.Is(e.kind, service.ErrAuth):
		msg := "not authenticated"
		if e.StatusCode == http.StatusForbidden {
			msg = "access denied"
		}
		return msg + " (run: todoctl login)"
	case e.Detail != "":
		return e.Detail
	default:
		return fmt.Sprintf("store returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
}

// Unwrap returns the service sentinel the status maps to, if any.
func (e *Error) Unwrap() error {
	return e.kind
}

// wrapError converts transport and HTTP errors into user-friendly messages.
func wrapError(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("request timed out: %w", err)
	}

	var gerr *googleapi.Error
	if !errors.As(err, &gerr) {
		return fmt.Errorf("request failed: %w", err)
	}

	e := &Error{
		StatusCode: gerr.Code,
		Detail:     parseDetail(gerr.Body),
	}
	switch gerr.Code {
	case http.StatusNotFound:
		e.kind = service.ErrNotFound
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		e.kind = service.ErrValidation
	case http.StatusUnauthorized, http.StatusForbidden:
		e.kind = service.ErrAuth
	}
	return e
}

// parseDetail extracts the message from a FastAPI error body. The detail is
// either a string or a list of validation issues.
func parseDetail(body string) string {
	var reply struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal([]byte(body), &reply); err != nil || len(reply.Detail) == 0 {
		return ""
	}

	var msg string
	if err := json.Unmarshal(reply.Detail, &msg); err == nil {
		return msg
	}

	var issues []struct {
		Loc []any  `json:"loc"`
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(reply.Detail, &issues); err != nil {
		return ""
	}
	msgs := make([]string, 0, len(issues))
	for _, issue := range issues {
		if n := len(issue.Loc); n > 0 {
			msgs = append(msgs, fmt.Sprintf("%v: %s", issue.Loc[n-1], issue.Msg))
			continue
		}
		msgs = append(msgs, issue.Msg)
	}
	return strings.Join(msgs, "; ")
}
