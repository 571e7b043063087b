package http

import (
	"encoding/json"
	"net/http"
)

const (
	MessageFailure  string = "failure"
	MessageNotFound string = "not found"
	MessageBusy     string = "run in progress"
	MessageSuccess  string = "success"
)

type Response struct {
	Message  string      `json:"message"`
	Data     interface{} `json:"data,omitempty"`
	Error    string      `json:"error,omitempty"`
	Metadata interface{} `json:"metadata,omitempty"`
}

func Write(w http.ResponseWriter, httpcode int, r *Response) {
	js, err := json.Marshal(r)
	if err != nil {
		httpcode = http.StatusInternalServerError
		js, _ = json.Marshal(&Response{Message: MessageFailure, Error: err.Error()})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpcode)
	w.Write(js)
}

// Error writes err with the failure message.
func Error(w http.ResponseWriter, httpcode int, err error) {
	Write(w, httpcode, &Response{
		Message: MessageFailure,
		Error:   err.Error(),
	})
}
