package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// GenericResponse is a standard API response structure
type GenericResponse struct {
	Body    any    `json:"body,omitempty"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
}

// parseBody decodes a JSON request body into target. An empty body leaves target untouched
// unless requireBody is set. On failure the 400 response has already been written.
func parseBody(writer http.ResponseWriter, request *http.Request, target any, requireBody bool) error {
	var err error
	if request.Body == nil {
		err = io.EOF
	} else {
		decoder := json.NewDecoder(request.Body)
		decoder.DisallowUnknownFields()
		err = decoder.Decode(target)
	}

	if err == nil || (errors.Is(err, io.EOF) && !requireBody) {
		return nil
	}

	writeResult(writer, http.StatusBadRequest, GenericResponse{
		Body:    nil,
		Message: "invalid request body",
		Error:   err.Error(),
	})
	return err
}

// writeResult writes a JSON response with the given status code
func writeResult(writer http.ResponseWriter, statusCode int, response GenericResponse) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(statusCode)
	json.NewEncoder(writer).Encode(response)
}

// writeBytes writes raw bytes with the given content type and status code
func writeBytes(writer http.ResponseWriter, statusCode int, contentType string, data []byte) {
	writer.Header().Set("Content-Type", contentType)
	writer.WriteHeader(statusCode)
	writer.Write(data)
}
