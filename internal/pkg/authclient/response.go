package authclient

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
)

const (
	maxBodyBytes    = 1 << 20
	fallbackMessage = "Request failed"
)

// Response is an HTTP response whose body has already been consumed.
type Response struct {
	// Status is the HTTP status code.
	Status int
	// Data holds the decoded JSON body, or nil when the body is empty or not JSON.
	Data any
	// Text is the raw body.
	Text string
}

// ReadResponse reads the body of resp exactly once and closes it.
func ReadResponse(resp *http.Response) (Response, error) {
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Response{Status: resp.StatusCode}, err
	}

	return ParseBody(resp.StatusCode, body), nil
}

// ParseBody interprets body as JSON when it is non-empty and valid, and as
// plain text otherwise. The raw text is kept in both cases.
func ParseBody(status int, body []byte) Response {
	res := Response{Status: status, Text: string(body)}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return res
	}

	var data any
	if err := json.Unmarshal(trimmed, &data); err == nil {
		res.Data = data
	}

	return res
}

// OK reports a 2xx status.
func (r Response) OK() bool {
	return r.Status >= http.StatusOK && r.Status < http.StatusMultipleChoices
}

// Field returns a top-level string field of a JSON object body.
func (r Response) Field(key string) string {
	obj, ok := r.Data.(map[string]any)
	if !ok {
		return ""
	}
	return stringField(obj, key)
}

// Err converts a non-2xx response into a RequestError.
func (r Response) Err() *RequestError {
	return &RequestError{
		Status:  r.Status,
		Code:    r.Field("code"),
		Message: ExtractMessage(r.Status, r.Data, r.Text),
	}
}

// Decode unmarshals the body into dst. An empty body leaves dst untouched.
func (r Response) Decode(dst any) error {
	if r.Data == nil {
		return nil
	}
	return json.Unmarshal([]byte(r.Text), dst)
}

// ExtractMessage picks the user-facing error text for a failed response.
//
// The order is fixed: a structured "message", a structured "error", the raw
// body text, the HTTP status phrase, and finally a generic fallback.
func ExtractMessage(status int, data any, text string) string {
	if obj, ok := data.(map[string]any); ok {
		if msg := stringField(obj, "message"); msg != "" {
			return msg
		}
		if msg := stringField(obj, "error"); msg != "" {
			return msg
		}
	}

	if msg := strings.TrimSpace(text); msg != "" {
		return msg
	}

	if msg := http.StatusText(status); msg != "" {
		return msg
	}

	return fallbackMessage
}

func stringField(obj map[string]any, key string) string {
	s, ok := obj[key].(string)
	if !ok || strings.TrimSpace(s) == "" {
		return ""
	}
	return s
}
