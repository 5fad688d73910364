package ingest

import (
	"errors"
	"net/http"
	"strings"
)

type Status int

const (
	StatusCreated Status = iota
	StatusNoNewContent
	StatusInvalid
	StatusInternalFailure
)

func (s Status) String() string {
	switch s {
	case StatusCreated:
		return "created"
	case StatusNoNewContent:
		return "no_new_content"
	case StatusInvalid:
		return "invalid"
	case StatusInternalFailure:
		return "internal_failure"
	}
	return "unknown"
}

// Outcome is the result of one ingestion call.
type Outcome struct {
	Status  Status
	IDs     []int64 // set for StatusCreated, in input order
	Message string
}

func (o Outcome) HTTPStatus() int {
	switch o.Status {
	case StatusCreated:
		return http.StatusCreated
	case StatusNoNewContent:
		return http.StatusNoContent
	case StatusInvalid:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (o Outcome) Succeeded() bool {
	return o.Status == StatusCreated
}

const messageHeader = "Error while submitting an XML feed:"

func failure(status Status, reasons []string) Outcome {
	var b strings.Builder
	b.WriteString(messageHeader)
	for _, r := range reasons {
		b.WriteString("\n- ")
		b.WriteString(r)
	}
	return Outcome{Status: status, Message: b.String()}
}

// RootMessage returns the message of the innermost error in err's chain.
func RootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}
