package apitest

import (
	"context"
	"net/http"
	"strings"

	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/gorilla/mux"

	"github.com/felixgeelhaar/approvals/internal/domain"
)

type ctxKey struct{}

func userFrom(r *http.Request) domain.User {
	u, _ := r.Context().Value(ctxKey{}).(domain.User)
	return u
}

func routeName(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		return route.GetName()
	}
	return ""
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.calls = append(s.calls, routeName(r))
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		op := routeName(r)
		s.mu.Lock()
		var h http.HandlerFunc
		if queue := s.intercepts[op]; len(queue) > 0 {
			h = queue[0]
			s.intercepts[op] = queue[1:]
		}
		s.mu.Unlock()

		if h != nil {
			h(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if routeName(r) == OpLogin {
			next.ServeHTTP(w, r)
			return
		}

		header := r.Header.Get("Authorization")
		if header == "" {
			writeDetail(w, http.StatusUnauthorized, "Missing authorization header")
			return
		}
		user, err := s.tokens.verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			writeDetail(w, http.StatusUnauthorized, "Invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, user)))
	})
}

// validate checks the request against the contract and answers 422 with a
// FastAPI-style detail list when it does not conform.
func (s *Server) validate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route, params, err := s.contract.FindRoute(r)
		if err != nil {
			writeDetail(w, http.StatusNotFound, "Not Found")
			return
		}

		input := &openapi3filter.RequestValidationInput{
			Request:    r,
			PathParams: params,
			Route:      route,
			Options: &openapi3filter.Options{
				AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
			},
		}
		if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"detail": []map[string]any{{"msg": err.Error(), "type": "value_error"}},
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
