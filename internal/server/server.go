package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/apex/log"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"safedrive/internal/config"
	"safedrive/internal/quote"
	"safedrive/internal/store"
	"safedrive/internal/types"
)

// noResponse is the plain-text body of a failed chat reply.
const noResponse = "No response generated."

// Agent produces a reply for a chat message carrying the user context.
type Agent interface {
	Reply(ctx context.Context, message string) (string, error)
}

// Store is everything the HTTP handlers need from the database.
type Store interface {
	CreateUser(ctx context.Context, u *store.User, password string) (int64, error)
	GetUser(ctx context.Context, id int64) (*store.User, error)
	Authenticate(ctx context.Context, username, password string) (*store.User, error)
	UpdateProfile(ctx context.Context, u *store.User) error

	ListProducts(ctx context.Context) ([]store.Product, error)
	GetProduct(ctx context.Context, id int64) (*store.Product, error)

	CreateCar(ctx context.Context, c *store.Car) (int64, error)
	ListCars(ctx context.Context, userID int64) ([]store.Car, error)
	GetOwnedCar(ctx context.Context, id, userID int64) (*store.Car, error)
	UpdateCar(ctx context.Context, c *store.Car) error
	DeleteCar(ctx context.Context, id, userID int64) error

	CreateQuote(ctx context.Context, q *store.Quote) (int64, error)
	ListUserQuotes(ctx context.Context, userID int64) ([]store.QuoteDetail, error)
}

type pinger interface {
	Ping(ctx context.Context) error
}

const defaultChatTimeout = 55 * time.Second

type Server struct {
	router   *chi.Mux
	cfg      config.Config
	store    Store
	sessions *store.SessionStore
	agent    Agent
	signer   cookieSigner
	// year cars are aged against when pricing
	year int
	// upper bound for a single chat reply, tool calls included
	chatTimeout time.Duration
}

func NewServer(cfg config.Config, st Store, agent Agent) *Server {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.AllowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Requested-With", "X-Session-Id"},
		ExposedHeaders:   []string{"X-Session-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	s := &Server{
		router:      r,
		cfg:         cfg,
		store:       st,
		sessions:    store.NewSessionStore(CookieMaxAge),
		agent:       agent,
		signer:      newCookieSigner(cfg.SecretKey),
		year:        quote.ReferenceYear,
		chatTimeout: cfg.ChatTimeout,
	}
	if s.chatTimeout <= 0 {
		s.chatTimeout = defaultChatTimeout
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Post("/chat", s.handleChat)
	s.router.Get("/products", s.handleProducts)

	s.router.Route("/auth", func(r chi.Router) {
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
		r.Post("/logout", s.handleLogout)
		r.Group(func(r chi.Router) {
			r.Use(s.requireUser)
			r.Get("/profile", s.handleGetAccount)
			r.Put("/profile", s.handleUpdateProfile)
		})
	})

	s.router.Group(func(r chi.Router) {
		r.Use(s.requireUser)
		r.Get("/profile", s.handleProfile)
		r.Post("/cars", s.handleAddCar)
		r.Put("/cars/{id}", s.handleEditCar)
		r.Delete("/cars/{id}", s.handleDeleteCar)
		r.Get("/cars/{id}/quotes", s.handleCarQuotes)
		r.Post("/quotes", s.handleSaveQuote)
	})
}

func (s *Server) Router() http.Handler { return s.router }

// Sessions exposes the session store so callers can sweep expired entries.
func (s *Server) Sessions() *store.SessionStore { return s.sessions }

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if p, ok := s.store.(pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := p.Ping(ctx); err != nil {
			log.WithError(err).Warn("health.database")
			s.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleChat forwards the message to the agent, prefixed with who is asking.
// A body that is not valid JSON is treated as an empty message.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req types.ChatRequest
	body, _ := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			req.Message = ""
		}
	}

	user := s.currentUser(r)
	full := chatPrompt(user, req.Message)

	ctx, cancel := context.WithTimeout(r.Context(), s.chatTimeout)
	defer cancel()

	started := time.Now()
	reply, err := s.agent.Reply(ctx, full)
	fields := log.Fields{"authenticated": user != nil, "took": time.Since(started).String()}
	if err != nil || strings.TrimSpace(reply) == "" {
		if err != nil {
			fields["error"] = err.Error()
		}
		log.WithFields(fields).Error("chat.reply.failed")
		http.Error(w, noResponse, http.StatusInternalServerError)
		return
	}
	log.WithFields(fields).Info("chat.reply")
	s.writeJSON(w, http.StatusOK, types.ChatResponse{Response: reply})
}

// chatPrompt builds the message the agent sees.
func chatPrompt(user *store.User, message string) string {
	var userContext string
	if user != nil {
		userContext = fmt.Sprintf("AUTHENTICATED USER: %s (ID: %d, Name: %s %s)", user.Username, user.ID, user.FirstName, user.LastName)
	} else {
		userContext = "GUEST USER: Not logged in"
	}
	return userContext + "\n\nUser message: " + message
}

type ctxKey string

const userKey ctxKey = "user"

// currentUser resolves the signed-in user, or nil for guests.
func (s *Server) currentUser(r *http.Request) *store.User {
	if u, ok := r.Context().Value(userKey).(*store.User); ok {
		return u
	}
	sess, ok := s.sessions.Get(s.sessionID(r))
	if !ok {
		return nil
	}
	u, err := s.store.GetUser(r.Context(), sess.UserID)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log.WithError(err).Warn("session.user_lookup")
		}
		return nil
	}
	return u
}

func (s *Server) requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u := s.currentUser(r)
		if u == nil {
			s.writeError(w, http.StatusUnauthorized, "Please log in to continue.")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, u)))
	})
}

// startSession binds a fresh session id to the user and sets the cookie.
func (s *Server) startSession(w http.ResponseWriter, r *http.Request, u *store.User) string {
	if old := s.sessionID(r); old != "" {
		s.sessions.Logout(old)
	}
	sid := uuid.NewString()
	s.sessions.Login(sid, u.ID, u.Username)
	s.SetSessionCookie(w, r, sid)
	w.Header().Set("X-Session-Id", s.signer.Sign(sid))
	log.WithFields(log.Fields{"user_id": u.ID}).Info("session.start")
	return sid
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, code int, msg string) {
	s.writeJSON(w, code, types.ErrorResponse{Error: msg})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	return dec.Decode(v)
}
