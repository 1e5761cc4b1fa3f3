// Package httpshared holds the URL and header construction shared by the
// three HTTP-based transports (streaming, SSE, long-polling).
package httpshared

import (
	"errors"
	"io"
	"net/http"
	"net/url"

	"github.com/MaTriXy/wasync/request"
)

// BuildURL renders req's URI with its query parameters appended (spec §6:
// tracking id, transport name, etc. all travel as query parameters).
func BuildURL(req *request.Request) string {
	u, err := url.Parse(req.URI)
	if err != nil {
		return req.URI
	}

	q := u.Query()
	for _, k := range req.Query.Keys() {
		for _, v := range req.Query.All(k) {
			q.Add(k, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// ApplyHeaders copies req's headers onto httpReq, preserving casing.
func ApplyHeaders(httpReq *http.Request, req *request.Request) {
	for _, k := range req.Headers.Keys() {
		for _, v := range req.Headers.All(k) {
			httpReq.Header.Add(k, v)
		}
	}
}

// IsPeerClose reports whether err is the kind of clean stream termination
// (io.EOF, io.ErrUnexpectedEOF) that the teacher's own polling decoder
// treats as "the other side hung up" rather than a failure worth logging
// as an error (see engineio/transport/polling's "err != io.EOF" checks).
func IsPeerClose(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}
