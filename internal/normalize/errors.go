package normalize

import (
	"fmt"
	"strings"
)

// Kind classifies why a webhook response could not be turned into a reply.
type Kind string

const (
	KindServerError       Kind = "SERVER_ERROR"
	KindEmptyResponse     Kind = "EMPTY_RESPONSE"
	KindEmptyPayload      Kind = "EMPTY_PAYLOAD"
	KindUnrecognizedShape Kind = "UNRECOGNIZED_SHAPE"
)

// Error is a classified normalization failure. Detail is meant for logs.
type Error struct {
	Kind       Kind
	StatusCode int
	Detail     string
	Fields     []string
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("normalize: %s: %s", e.Kind, e.Detail)
}

func serverError(statusCode int, detail string) *Error {
	return &Error{Kind: KindServerError, StatusCode: statusCode, Detail: detail}
}

func emptyResponse(statusCode int) *Error {
	return &Error{
		Kind:       KindEmptyResponse,
		StatusCode: statusCode,
		Detail:     "The server returned an empty successful response. Ensure your n8n 'Respond to Webhook' node has a body defined.",
	}
}

func emptyPayload(statusCode int) *Error {
	return &Error{
		Kind:       KindEmptyPayload,
		StatusCode: statusCode,
		Detail:     "The server returned an empty data object.",
	}
}

func unrecognizedShape(statusCode int, fields []string) *Error {
	listed := strings.Join(fields, ", ")
	if listed == "" {
		listed = "none"
	}
	return &Error{
		Kind:       KindUnrecognizedShape,
		StatusCode: statusCode,
		Detail:     "Could not find a valid response field. Available fields: " + listed,
		Fields:     fields,
	}
}
