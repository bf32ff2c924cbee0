package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/apex/log"

	"safedrive/internal/store"
	"safedrive/internal/types"
)

// POST /auth/register
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req types.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var msg string
	switch {
	case strings.TrimSpace(req.Username) == "":
		msg = "Username is required."
	case req.Password == "":
		msg = "Password is required."
	case strings.TrimSpace(req.Email) == "":
		msg = "Email is required."
	case strings.TrimSpace(req.FirstName) == "":
		msg = "First name is required."
	case strings.TrimSpace(req.LastName) == "":
		msg = "Last name is required."
	case strings.TrimSpace(req.Phone) == "":
		msg = "Phone number is required."
	}
	if msg != "" {
		s.writeError(w, http.StatusBadRequest, msg)
		return
	}

	u := &store.User{
		Username:  strings.TrimSpace(req.Username),
		Email:     strings.TrimSpace(req.Email),
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Phone:     strings.TrimSpace(req.Phone),
	}
	if _, err := s.store.CreateUser(r.Context(), u, req.Password); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			s.writeError(w, http.StatusConflict, "Registration failed: username or email already in use.")
			return
		}
		log.WithError(err).Error("auth.register")
		s.writeError(w, http.StatusInternalServerError, "Registration failed.")
		return
	}

	log.WithFields(log.Fields{"user_id": u.ID, "username": u.Username}).Info("auth.register")
	s.writeJSON(w, http.StatusCreated, types.MessageResponse{Message: "Registration successful! Please log in."})
}

// POST /auth/login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req types.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	u, err := s.store.Authenticate(r.Context(), strings.TrimSpace(req.Username), req.Password)
	switch {
	case errors.Is(err, store.ErrUnknownUser):
		s.writeError(w, http.StatusUnauthorized, "Incorrect username.")
		return
	case errors.Is(err, store.ErrWrongPassword):
		s.writeError(w, http.StatusUnauthorized, "Incorrect password.")
		return
	case err != nil:
		log.WithError(err).Error("auth.login")
		s.writeError(w, http.StatusInternalServerError, "Login failed.")
		return
	}

	s.startSession(w, r, u)
	s.writeJSON(w, http.StatusOK, u)
}

// POST /auth/logout
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sid := s.sessionID(r); sid != "" {
		s.sessions.Logout(sid)
	}
	ClearSessionCookie(w)
	s.writeJSON(w, http.StatusOK, types.MessageResponse{Message: "Logged out."})
}

// GET /auth/profile
func (s *Server) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.currentUser(r))
}

// PUT /auth/profile
func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req types.ProfileRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var msg string
	switch {
	case strings.TrimSpace(req.Email) == "":
		msg = "Email is required."
	case strings.TrimSpace(req.FirstName) == "":
		msg = "First name is required."
	case strings.TrimSpace(req.LastName) == "":
		msg = "Last name is required."
	case strings.TrimSpace(req.Phone) == "":
		msg = "Phone is required."
	}
	if msg != "" {
		s.writeError(w, http.StatusBadRequest, msg)
		return
	}

	u := *s.currentUser(r)
	u.Email = strings.TrimSpace(req.Email)
	u.FirstName = strings.TrimSpace(req.FirstName)
	u.LastName = strings.TrimSpace(req.LastName)
	u.Phone = strings.TrimSpace(req.Phone)

	if err := s.store.UpdateProfile(r.Context(), &u); err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			s.writeError(w, http.StatusNotFound, "User not found.")
		case errors.Is(err, store.ErrDuplicate):
			s.writeError(w, http.StatusConflict, "Update failed: email already in use.")
		default:
			log.WithError(err).Error("auth.profile.update")
			s.writeError(w, http.StatusInternalServerError, "Update failed.")
		}
		return
	}
	s.writeJSON(w, http.StatusOK, types.MessageResponse{Message: "Profile updated successfully!"})
}
