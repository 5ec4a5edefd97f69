package channel

import (
	"encoding/json"
	"fmt"
)

// Arguments are the named arguments of a method call.
type Arguments map[string]any

// String returns a string argument.
func (a Arguments) String(key string) (string, bool) {
	v, ok := a[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Float returns a numeric argument.
func (a Arguments) Float(key string) (float64, bool) {
	switch v := a[key].(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// Call is a method invocation from the host.
type Call struct {
	Method    string
	Arguments Arguments
}

// Result is the outcome of a dispatched call.
type Result struct {
	Value          any
	Err            *Error
	NotImplemented bool
}

// request is the wire form of a Call.
type request struct {
	ID        json.RawMessage `json:"id,omitempty"`
	Method    string          `json:"method"`
	Arguments Arguments       `json:"arguments,omitempty"`
}

// response is the wire form of a Result.
type response struct {
	ID             json.RawMessage `json:"id,omitempty"`
	Result         any             `json:"result,omitempty"`
	Error          *Error          `json:"error,omitempty"`
	NotImplemented bool            `json:"notImplemented,omitempty"`
}

// event is the wire form of a notification to the host.
type event struct {
	Event     string         `json:"event"`
	Arguments map[string]any `json:"arguments"`
}

func decodeRequest(line []byte) (request, error) {
	var req request
	if err := json.Unmarshal(line, &req); err != nil {
		return request{}, fmt.Errorf("malformed call: %w", err)
	}
	if req.Method == "" {
		return req, fmt.Errorf("malformed call: method is required")
	}
	return req, nil
}

func newResponse(id json.RawMessage, res Result) response {
	return response{
		ID:             id,
		Result:         res.Value,
		Error:          res.Err,
		NotImplemented: res.NotImplemented,
	}
}
