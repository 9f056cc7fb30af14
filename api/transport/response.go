package transport

import "encoding/json"

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Envelope wraps every API payload. Meta carries paging for list endpoints
// and conflict details (holder, current status) for error responses.
type Envelope struct {
	Status    string      `json:"status"`
	Code      string      `json:"code,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Meta      interface{} `json:"meta,omitempty"`
	RequestID string      `json:"requestId,omitempty"`
}

func NewSuccess(data interface{}, meta interface{}) Envelope {
	return Envelope{Status: StatusSuccess, Data: data, Meta: meta}
}

func NewError(code, message string, meta interface{}) Envelope {
	return Envelope{Status: StatusError, Code: code, Error: message, Meta: meta}
}

// WithRequestID tags the envelope so clients can quote it when reporting a failure.
func (e Envelope) WithRequestID(id string) Envelope {
	e.RequestID = id
	return e
}

// Bytes marshals the envelope, falling back to a bare internal error.
func (e Envelope) Bytes() []byte {
	out, err := json.Marshal(e)
	if err != nil {
		return []byte(`{"status":"error","code":"INTERNAL","error":"internal server error"}`)
	}
	return out
}
