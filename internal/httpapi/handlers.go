package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	logintypes "github.com/classdesk/session-gateway/internal/login/types"
	"github.com/classdesk/session-gateway/internal/session"
	"github.com/classdesk/session-gateway/internal/utils"
)

// maxRequestBody bounds login payloads. They are tiny; anything larger is
// abuse.
const maxRequestBody = 64 * 1024

// sessionResponse is the envelope every session endpoint returns. The UI can
// always render something from it: state and last_error are always present in
// the record even when the login failed.
type sessionResponse struct {
	Session session.Record `json:"session"`
	Token   string         `json:"token,omitempty"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type oauthRequest struct {
	IDToken      string `json:"id_token"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// withRequestID attaches a request id to the log context and times the call.
func (s *Server) withRequestID(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()[:8]
		start := time.Now()
		next(w, r)
		log.Debug().
			Str("request_id", reqID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("elapsed", time.Since(start)).
			Msg("httpapi: request")
	}
}

// handleLogin runs the credential path.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !s.decode(w, r, &req) {
		return
	}

	attempt := logintypes.CredentialLogin{
		Identifier: req.Username,
		Secret:     req.Password,
	}
	rec := s.assembler.Login(r.Context(), session.Record{}, attempt)
	s.respondSession(w, rec)
}

// handleOAuth consumes a fresh authorization result. When the request
// carries a valid session token, the OAuth data merges onto that session so
// a previously captured provider refresh token survives a repeat consent.
func (s *Server) handleOAuth(w http.ResponseWriter, r *http.Request) {
	var req oauthRequest
	if !s.decode(w, r, &req) {
		return
	}

	current := s.currentSession(r)
	attempt := logintypes.OAuthLogin{
		IDToken:      req.IDToken,
		AccessToken:  req.AccessToken,
		RefreshToken: req.RefreshToken,
	}
	rec := s.assembler.Login(r.Context(), current, attempt)
	s.respondSession(w, rec)
}

// handleRead is the session read operation: re-enrich and re-sign.
func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	current := s.currentSession(r)
	if current.BackendAccessToken == "" {
		s.writeJSON(w, http.StatusUnauthorized, sessionResponse{
			Session: session.Record{State: session.StateUnauthenticated},
		})
		return
	}

	rec := s.assembler.Read(r.Context(), current)
	s.respondSession(w, rec)
}

// handleLogout discards the session regardless of token validity.
func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	current := s.currentSession(r)
	rec := s.assembler.Logout(r.Context(), current)
	// No token is issued for a cleared session.
	s.writeJSON(w, http.StatusOK, sessionResponse{Session: rec})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.metrics.FullStats())
}

// currentSession parses the bearer session token, if any. An absent or
// invalid token is simply "no session"; the caller decides whether that is an
// error.
func (s *Server) currentSession(r *http.Request) session.Record {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return session.Record{State: session.StateUnauthenticated}
	}
	signed := strings.TrimSpace(auth[len(prefix):])

	rec, err := s.codec.Parse(signed)
	if err != nil {
		log.Debug().
			Str("token", utils.MaskToken(signed)).
			Msg("httpapi: rejected session token")
		return session.Record{State: session.StateUnauthenticated}
	}
	return rec
}

// respondSession signs the record and writes the envelope. An unauthenticated
// record gets no token but still a 200: login failure is a state, not a
// transport error, and the UI must be able to render it.
func (s *Server) respondSession(w http.ResponseWriter, rec session.Record) {
	resp := sessionResponse{Session: rec}

	if rec.State.Usable() {
		signed, err := s.codec.Sign(rec)
		if err != nil {
			log.Error().Err(err).Msg("httpapi: failed to sign session token")
			s.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to issue session token"})
			return
		}
		resp.Token = signed
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(v); err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed request body"})
		return false
	}
	return true
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := utils.MarshalNoEscape(v)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}
