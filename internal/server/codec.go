package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/agbru/dftcalc/pkg/models"
)

const (
	contentTypeJSON    = "application/json"
	contentTypeMsgpack = "application/msgpack"
)

// ErrorResponse is the body of every non-2xx answer except extraction
// failures, which use models.ExtractResponse.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// RequestError is a malformed request with the status to answer it with.
type RequestError struct {
	Message    string
	StatusCode int
}

func (e RequestError) Error() string {
	return e.Message
}

// isMsgpack reports whether a Content-Type or Accept value names
// MessagePack, including the legacy x- subtype.
func isMsgpack(header string) bool {
	for _, part := range strings.Split(header, ",") {
		mediaType, _, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			continue
		}
		if mediaType == contentTypeMsgpack || mediaType == "application/x-msgpack" {
			return true
		}
	}
	return false
}

// decodeExtractRequest reads a JSON or MessagePack body, chosen by
// Content-Type, of at most maxBytes.
func decodeExtractRequest(w http.ResponseWriter, r *http.Request, maxBytes int64) (models.ExtractRequest, error) {
	var req models.ExtractRequest
	var body io.Reader = r.Body
	if maxBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, maxBytes)
	}

	var err error
	if isMsgpack(r.Header.Get("Content-Type")) {
		dec := msgpack.NewDecoder(body)
		dec.SetCustomStructTag("json")
		err = dec.Decode(&req)
	} else {
		dec := json.NewDecoder(body)
		dec.DisallowUnknownFields()
		err = dec.Decode(&req)
	}

	var tooLarge *http.MaxBytesError
	switch {
	case err == nil:
		return req, nil
	case errors.As(err, &tooLarge):
		return req, RequestError{
			Message:    fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit),
			StatusCode: http.StatusRequestEntityTooLarge,
		}
	case errors.Is(err, io.EOF):
		return req, RequestError{Message: "empty request body", StatusCode: http.StatusBadRequest}
	default:
		return req, RequestError{Message: "invalid request body: " + err.Error(), StatusCode: http.StatusBadRequest}
	}
}

// writeResponse encodes data as MessagePack when the client accepts it and
// as JSON otherwise.
func (s *Server) writeResponse(w http.ResponseWriter, r *http.Request, statusCode int, data any) {
	if !isMsgpack(r.Header.Get("Accept")) {
		s.writeJSONResponse(w, statusCode, data)
		return
	}

	w.Header().Set("Content-Type", contentTypeMsgpack)
	w.WriteHeader(statusCode)
	enc := msgpack.NewEncoder(w)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(data); err != nil {
		s.logger.Error("failed to encode MessagePack response", err)
	}
}
