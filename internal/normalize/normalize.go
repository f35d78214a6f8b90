// Package normalize turns the body of a webhook response into the text shown
// as the assistant reply.
//
// Automation backends answer in many shapes: a bare JSON string, an object with
// a conventional key, an array wrapping such an object, an object with custom
// keys, or plain text. Reply picks one display string from any of them in a
// fixed priority order, or returns a classified *Error.
package normalize

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf16"
)

const unusedRespondMarker = "Unused Respond to Webhook"

// priorityKeys are checked in order before any other key of an object.
var priorityKeys = []string{"answer", "output", "text", "response"}

// extractor pulls a display string out of a parsed target, if it can.
type extractor func(target Value) (string, bool)

var extractors = []extractor{
	bareString,
	priorityKey,
	firstStringField,
	messageInKeyName,
}

// Reply maps an HTTP outcome to the reply text. The returned string is never
// blank and is always trimmed.
func Reply(statusOK bool, statusCode int, body string) (string, error) {
	if !statusOK {
		return "", serverError(statusCode, serverDetail(statusCode, body))
	}
	if trim(body) == "" {
		return "", emptyResponse(statusCode)
	}

	doc, ok := Parse(body)
	if !ok {
		return trim(body), nil
	}

	target := doc
	if doc.Type == TypeArray {
		if len(doc.Items) == 0 {
			return "", emptyPayload(statusCode)
		}
		target = doc.Items[0]
	}
	if target.Type == TypeNull {
		return "", emptyPayload(statusCode)
	}

	for _, extract := range extractors {
		if reply, ok := extract(target); ok {
			return reply, nil
		}
	}
	return "", unrecognizedShape(statusCode, target.Keys())
}

func serverDetail(statusCode int, body string) string {
	detail := fmt.Sprintf("Server Error (%d)", statusCode)
	if doc, ok := Parse(body); ok && doc.Type == TypeObject {
		if msg, found := doc.Get("message"); found && msg.Type == TypeString && msg.Str != "" {
			detail = msg.Str
		} else if body != "" {
			detail = body
		}
	} else if body != "" {
		detail = body
	}

	if strings.Contains(detail, unusedRespondMarker) {
		detail = fmt.Sprintf("n8n Configuration Error: %s. (Tip: This usually means your n8n workflow isn't 'Active' "+
			"or the execution path didn't reach a 'Respond to Webhook' node. Please check your n8n workflow connections.)", detail)
	}
	return detail
}

func bareString(target Value) (string, bool) {
	if target.Type != TypeString {
		return "", false
	}
	return nonBlank(target)
}

func priorityKey(target Value) (string, bool) {
	for _, key := range priorityKeys {
		v, ok := target.Get(key)
		if !ok {
			continue
		}
		if s, ok := nonBlank(v); ok {
			return s, true
		}
	}
	return "", false
}

func firstStringField(target Value) (string, bool) {
	for _, m := range target.fields() {
		if s, ok := nonBlank(m.Value); ok {
			return s, true
		}
	}
	return "", false
}

// messageInKeyName is a heuristic for backends that serialize the reply as the
// only key of an object. It has no correctness criterion beyond compatibility.
func messageInKeyName(target Value) (string, bool) {
	keys := target.Keys()
	if len(keys) != 1 {
		return "", false
	}
	key := keys[0]
	if len(utf16.Encode([]rune(key))) <= 20 || !strings.Contains(key, " ") {
		return "", false
	}
	if s := trim(key); s != "" {
		return s, true
	}
	return "", false
}

func nonBlank(v Value) (string, bool) {
	if v.Type != TypeString {
		return "", false
	}
	s := trim(v.Str)
	if s == "" {
		return "", false
	}
	return s, true
}

// trim strips surrounding whitespace including a byte order mark.
func trim(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return unicode.IsSpace(r) || r == '\uFEFF'
	})
}
