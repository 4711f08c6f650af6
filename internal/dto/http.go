package dto

import (
	"golang-jobrunner/internal/status"
	"net/http"
)

// Response is the envelope of every API answer. Messages are the status
// messages collected while serving the request; Errors repeats the failure
// and every error-severity message as plain text.
type Response struct {
	Code     int              `json:"code"`
	Message  string           `json:"message"`
	Data     interface{}      `json:"data,omitempty"`
	Messages []status.Message `json:"messages"`
	Errors   []string         `json:"errors,omitempty"`
}

func NewResponse(code int, message string, data interface{}) *Response {
	return &Response{
		Code:     code,
		Message:  message,
		Data:     data,
		Messages: []status.Message{},
	}
}

func NewSuccessResponse(message string, data interface{}) *Response {
	return NewResponse(http.StatusOK, message, data)
}

func NewBadRequestResponse(message string) *Response {
	resp := NewResponse(http.StatusBadRequest, message, nil)
	resp.Errors = []string{message}
	return resp
}

// NewErrorResponse reports err with the messages collected before it.
func NewErrorResponse(code int, err error, messages []status.Message) *Response {
	resp := NewResponse(code, err.Error(), nil).WithMessages(messages)
	resp.Errors = append(resp.Errors, err.Error())
	for _, m := range resp.Messages {
		if m.Severity == status.Error && m.Text != err.Error() {
			resp.Errors = append(resp.Errors, m.Text)
		}
	}
	return resp
}

func (r *Response) WithMessages(messages []status.Message) *Response {
	if messages != nil {
		r.Messages = messages
	}
	return r
}
