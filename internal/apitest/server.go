// Package apitest runs an in-process stand-in for the portal API. Every
// route it serves must exist in api/openapi.yml, and JSON request bodies
// are checked against the documented schemas.
package apitest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"

	"github.com/frahmantamala/employee-portal/api"
	"github.com/frahmantamala/employee-portal/internal/transport"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/go-chi/chi"
)

const prefix = "/api"

// Request is a call the fake received.
type Request struct {
	Method  string
	Pattern string
	Path    string
	Header  http.Header
	Body    []byte
	Token   string
}

// JSONBody decodes the recorded body into v.
func (r Request) JSONBody(v interface{}) error {
	return json.Unmarshal(r.Body, v)
}

type Server struct {
	*httptest.Server

	base   *transport.BaseHandler
	doc    *openapi3.T
	router chi.Router

	mu         sync.Mutex
	requests   []Request
	violations []string
}

func New() *Server {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(api.OpenAPI)
	if err != nil {
		panic(fmt.Sprintf("apitest: load openapi: %v", err))
	}
	if err := doc.Validate(context.Background()); err != nil {
		panic(fmt.Sprintf("apitest: invalid openapi: %v", err))
	}

	s := &Server{
		base:   transport.NewBaseHandler(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))),
		doc:    doc,
		router: chi.NewRouter(),
	}
	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.violate("undocumented call %s %s", r.Method, r.URL.Path)
		s.base.WriteError(w, http.StatusNotFound, "Not Found")
	})
	s.Server = httptest.NewServer(s.router)
	return s
}

// Endpoint is the API root to hand to apiclient.
func (s *Server) Endpoint() string {
	return s.URL + prefix
}

// Handle mounts h for an operation documented under pattern, e.g.
// Handle("PUT", "/employee/{userCode}/status", h).
func (s *Server) Handle(method, pattern string, h http.HandlerFunc) {
	item := s.doc.Paths.Find(pattern)
	if item == nil {
		panic(fmt.Sprintf("apitest: %s is not documented", pattern))
	}
	op := item.GetOperation(method)
	if op == nil {
		panic(fmt.Sprintf("apitest: %s %s is not documented", method, pattern))
	}

	s.router.MethodFunc(method, prefix+pattern, func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(body))

		req := Request{
			Method:  r.Method,
			Pattern: pattern,
			Path:    r.URL.Path,
			Header:  r.Header.Clone(),
			Body:    body,
			Token:   s.base.ExtractTokenFromHeader(r),
		}
		s.mu.Lock()
		s.requests = append(s.requests, req)
		s.mu.Unlock()

		if requiresAuth(s.doc, op) && req.Token == "" {
			s.base.WriteError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		if msg := s.checkBody(op, r, body); msg != "" {
			s.violate("%s %s: %s", method, pattern, msg)
			s.base.WriteError(w, http.StatusUnprocessableEntity, msg)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		h(w, r)
	})
}

func requiresAuth(doc *openapi3.T, op *openapi3.Operation) bool {
	if op.Security != nil {
		return len(*op.Security) > 0
	}
	return len(doc.Security) > 0
}

func (s *Server) checkBody(op *openapi3.Operation, r *http.Request, body []byte) string {
	if op.RequestBody == nil || op.RequestBody.Value == nil {
		return ""
	}
	contentType := r.Header.Get("Content-Type")

	switch {
	case strings.HasPrefix(contentType, "application/json"):
		media := op.RequestBody.Value.Content.Get("application/json")
		if media == nil {
			return "JSON body not accepted here"
		}
		var value interface{}
		if err := json.Unmarshal(body, &value); err != nil {
			return "body is not valid JSON"
		}
		if media.Schema != nil && media.Schema.Value != nil {
			if err := media.Schema.Value.VisitJSON(value); err != nil {
				return err.Error()
			}
		}
	case strings.HasPrefix(contentType, "multipart/form-data"):
		media := op.RequestBody.Value.Content.Get("multipart/form-data")
		if media == nil {
			return "multipart body not accepted here"
		}
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			return "malformed multipart body"
		}
		if media.Schema != nil && media.Schema.Value != nil {
			for _, name := range media.Schema.Value.Required {
				_, hasValue := r.MultipartForm.Value[name]
				_, hasFile := r.MultipartForm.File[name]
				if !hasValue && !hasFile {
					return fmt.Sprintf("multipart field %q is required", name)
				}
			}
		}
	default:
		if op.RequestBody.Value.Required {
			return fmt.Sprintf("unsupported content type %q", contentType)
		}
	}
	return ""
}

func (s *Server) violate(format string, args ...interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.violations = append(s.violations, fmt.Sprintf(format, args...))
}

// Violations lists calls that did not match the documented contract.
func (s *Server) Violations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.violations...)
}

// Requests returns every call recorded for method and pattern.
func (s *Server) Requests(method, pattern string) []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Request
	for _, r := range s.requests {
		if r.Method == method && r.Pattern == pattern {
			out = append(out, r)
		}
	}
	return out
}

func (s *Server) Calls(method, pattern string) int {
	return len(s.Requests(method, pattern))
}

// JSON answers with status and body encoded as JSON.
func (s *Server) JSON(status int, body interface{}) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		s.base.WriteJSON(w, status, body)
	}
}

// Error answers with the portal's error shape.
func (s *Server) Error(status int, message string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		s.base.WriteError(w, status, message)
	}
}

// Text answers with a non-JSON body.
func (s *Server) Text(status int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}
}
