// Package response serializes the server's minimal HTTP/1.1 responses:
// a status line, Content-Length and Content-Type, a blank line and the body.
package response

import (
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"
)

// Status is one of the three statuses the server emits.
type Status int

const (
	StatusOK        Status = 200
	StatusForbidden Status = 403
	StatusNotFound  Status = 404
)

// Text is the reason phrase, as written on the status line.
func (s Status) Text() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusForbidden:
		return "FORBIDDEN"
	case StatusNotFound:
		return "NOT FOUND"
	default:
		return "UNKNOWN"
	}
}

// String renders "200 OK" style text used in log records.
func (s Status) String() string {
	return fmt.Sprintf("%d %s", int(s), s.Text())
}

// Line returns the full status line without the terminator.
func (s Status) Line() string {
	return "HTTP/1.1 " + s.String()
}

const (
	TypeHTML  = "text/html"
	TypePlain = "text/plain"
)

var mimeTypes = map[string]string{
	"jpg":  "image/jpeg",
	"png":  "image/png",
	"html": "text/html",
	"txt":  "text/plain",
	"css":  "text/css",
	"xml":  "application/xml",
	"mp4":  "video/mp4",
}

// MimeType resolves a content type from the file extension of name.
// Unknown extensions map to text/plain.
func MimeType(name string) string {
	ext := strings.TrimPrefix(path.Ext(name), ".")
	if t, ok := mimeTypes[ext]; ok {
		return t
	}
	return TypePlain
}

// Response is a fully buffered reply.
type Response struct {
	Status      Status
	ContentType string
	Body        []byte
}

// New builds a response.
func New(status Status, contentType string, body []byte) *Response {
	return &Response{Status: status, ContentType: contentType, Body: body}
}

// HTML builds a text/html response from a rendered string.
func HTML(status Status, body string) *Response {
	return New(status, TypeHTML, []byte(body))
}

// NotFound is the generic reply for requests that match no virtual host.
func NotFound() *Response {
	return New(StatusNotFound, TypePlain, []byte("404 not found"))
}

// Bytes returns the serialized response.
func (r *Response) Bytes() []byte {
	var buf bytes.Buffer
	buf.Grow(len(r.Body) + 96)
	fmt.Fprintf(&buf, "%s\r\nContent-Length: %d\r\nContent-Type: %s\r\n\r\n",
		r.Status.Line(), len(r.Body), r.ContentType)
	buf.Write(r.Body)
	return buf.Bytes()
}

// WriteTo writes the serialized response to w in a single call.
func (r *Response) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(r.Bytes())
	return int64(n), err
}
