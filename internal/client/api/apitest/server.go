// Package apitest provides an in-memory implementation of the product API
// for tests. It issues HS256 tokens, enforces the admin role on writes and
// records every request it receives.
package apitest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/atinyakov/productdesk/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
)

// Account is a user known to the fake API.
type Account struct {
	ID       int
	Name     string
	Email    string
	Password string
	Role     string
}

// Request is what the fake API saw of one incoming request.
type Request struct {
	Method        string
	Path          string
	Authorization string
	HasAuth       bool
	RequestID     string
}

type claims struct {
	UserID int    `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"status"`
	jwt.RegisteredClaims
}

type ctxKey struct{}

// Server is a running fake API.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	secret   []byte
	legacy   bool
	accounts []Account
	products map[int]models.Product
	nextID   int
	requests []Request
}

// Option configures a Server.
type Option func(*Server)

// WithLegacyAuthResponse makes login and register answer with the
// name/email/status form instead of user/role.
func WithLegacyAuthResponse() Option {
	return func(s *Server) { s.legacy = true }
}

// WithAccounts replaces the seeded accounts.
func WithAccounts(accounts ...Account) Option {
	return func(s *Server) { s.accounts = accounts }
}

// New starts a fake API seeded with an admin, a user and three products.
// The server is closed when the test finishes.
func New(tb testing.TB, opts ...Option) *Server {
	tb.Helper()
	s := &Server{
		secret: []byte("apitest-secret"),
		accounts: []Account{
			{ID: 1, Name: "Admin User", Email: "admin@example.com", Password: "admin123", Role: "admin"},
			{ID: 2, Name: "Regular User", Email: "user@example.com", Password: "user123", Role: "user"},
		},
		products: map[int]models.Product{
			1: {ID: 1, Name: "Apples", Category: "Fruit", Price: 89.99, Quantity: 100},
			2: {ID: 2, Name: "Milk", Category: "Dairy", Price: 75.50, Quantity: 50},
			3: {ID: 3, Name: "Bread", Category: "Bakery", Price: 45.00, Quantity: 30},
		},
		nextID: 4,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Server = httptest.NewServer(s.routes())
	tb.Cleanup(s.Close)
	return s
}

// Requests returns a copy of the requests received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Request, len(s.requests))
	copy(out, s.requests)
	return out
}

// LastRequest returns the most recent request, or the zero Request.
func (s *Server) LastRequest() Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return Request{}
	}
	return s.requests[len(s.requests)-1]
}

// Products returns the stored products ordered by id.
func (s *Server) Products() []models.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sortedProducts(func(models.Product) bool { return true })
}

// IssueToken signs a token for the account with the given email.
func (s *Server) IssueToken(tb testing.TB, email string) string {
	tb.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Email == email {
			tok, err := s.sign(a)
			if err != nil {
				tb.Fatalf("sign token: %v", err)
			}
			return tok
		}
	}
	tb.Fatalf("no account %q", email)
	return ""
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(s.record)

	r.Route("/api", func(r chi.Router) {
		r.Post("/login", s.login)
		r.Post("/register", s.register)
		r.Get("/products", s.listProducts)
		r.Get("/products/{id}", s.getProduct)
		r.Get("/products/category/{category}", s.productsByCategory)

		r.Group(func(r chi.Router) {
			r.Use(s.requireToken)
			r.Get("/profile", s.profile)

			r.Group(func(r chi.Router) {
				r.Use(requireAdmin)
				r.Post("/products", s.createProduct)
				r.Put("/products/{id}", s.updateProduct)
				r.Delete("/products/{id}", s.deleteProduct)
			})
		})
	})
	return r
}

func (s *Server) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, has := r.Header["Authorization"]
		s.mu.Lock()
		s.requests = append(s.requests, Request{
			Method:        r.Method,
			Path:          r.URL.Path,
			Authorization: r.Header.Get("Authorization"),
			HasAuth:       has,
			RequestID:     r.Header.Get("X-Request-ID"),
		})
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			http.Error(w, "Authorization header required", http.StatusUnauthorized)
			return
		}
		c := &claims{}
		token, err := jwt.ParseWithClaims(strings.TrimPrefix(header, "Bearer "), c, func(*jwt.Token) (any, error) {
			return s.secret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(contextWithClaims(r, c)))
	})
}

func contextWithClaims(r *http.Request, c *claims) context.Context {
	return context.WithValue(r.Context(), ctxKey{}, c)
}

func requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, _ := r.Context().Value(ctxKey{}).(*claims)
		if c == nil || c.Role != "admin" {
			http.Error(w, "Admin access required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var req models.Credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if (a.Email == req.Username || a.Name == req.Username) && a.Password == req.Password {
			s.writeAuth(w, a)
			return
		}
	}
	http.Error(w, "Invalid credentials", http.StatusUnauthorized)
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Email == "" {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.accounts {
		if a.Email == req.Email {
			http.Error(w, "User with this email already exists", http.StatusConflict)
			return
		}
	}
	a := Account{
		ID:       len(s.accounts) + 1,
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     "user",
	}
	s.accounts = append(s.accounts, a)
	s.writeAuth(w, a)
}

// writeAuth must be called with s.mu held.
func (s *Server) writeAuth(w http.ResponseWriter, a Account) {
	tok, err := s.sign(a)
	if err != nil {
		http.Error(w, "Error generating token", http.StatusInternalServerError)
		return
	}
	body := map[string]string{"token": tok}
	if s.legacy {
		body["message"] = "Login successful"
		body["name"] = a.Name
		body["email"] = a.Email
		body["status"] = a.Role
	} else {
		body["user"] = a.Name
		body["role"] = a.Role
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) sign(a Account) (string, error) {
	c := claims{
		UserID: a.ID,
		Name:   a.Name,
		Email:  a.Email,
		Role:   a.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   a.Email,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
}

func (s *Server) profile(w http.ResponseWriter, r *http.Request) {
	c := r.Context().Value(ctxKey{}).(*claims)
	writeJSON(w, http.StatusOK, models.Profile{
		UserID: c.UserID,
		Name:   c.Name,
		Email:  c.Email,
		Status: c.Role,
	})
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.sortedProducts(func(models.Product) bool { return true }))
}

func (s *Server) productsByCategory(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.sortedProducts(func(p models.Product) bool {
		return p.Category == category
	}))
}

func (s *Server) getProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p, found := s.products[id]
	if !found {
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) createProduct(w http.ResponseWriter, r *http.Request) {
	var p models.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = s.nextID
	s.nextID++
	s.products[p.ID] = p
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	var p models.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = id
	s.products[id] = p
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	s.mu.Lock()
	delete(s.products, id)
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

// sortedProducts must be called with s.mu held.
func (s *Server) sortedProducts(keep func(models.Product) bool) []models.Product {
	out := []models.Product{}
	for _, p := range s.products {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func productID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "Invalid product ID", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
