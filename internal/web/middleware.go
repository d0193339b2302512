package web

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/unklstewy/planes-near-me/internal/session"
)

// SessionCookie names the cookie carrying the signed session id.
const SessionCookie = "pnm_session"

type contextKey string

const sessionKey contextKey = "session_id"

// sessionMiddleware resolves the session id from the cookie, issuing a new
// session when the cookie is missing or fails validation.
func (s *Server) sessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var id string
		if c, err := r.Cookie(SessionCookie); err == nil {
			if parsed, err := s.state.Tokens.Parse(c.Value); err == nil {
				id = parsed
			}
		}

		if id == "" {
			id = session.NewID()
			token, err := s.state.Tokens.Issue(id)
			if err != nil {
				s.logger.Error("Failed to issue session token", slog.Any("err", err))
				http.Error(w, "Failed to start session", http.StatusInternalServerError)
				return
			}
			cookie := &http.Cookie{
				Name:     SessionCookie,
				Value:    token,
				Path:     "/",
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
				Secure:   r.TLS != nil,
			}
			if ttl := s.state.Config.Session.TTL(); ttl > 0 {
				cookie.MaxAge = int(ttl / time.Second)
			}
			http.SetCookie(w, cookie)
		}

		ctx := context.WithValue(r.Context(), sessionKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionID returns the id stored by sessionMiddleware.
func sessionID(r *http.Request) string {
	id, _ := r.Context().Value(sessionKey).(string)
	return id
}

// rateLimitMiddleware applies the configured limiter keyed by client address.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.state.Limiter == nil {
			next.ServeHTTP(w, r)
			return
		}

		ok, retryAfter, err := s.state.Limiter.Allow(r.Context(), clientAddr(r))
		if err != nil {
			// The endpoint stays available when the limiter backend is down
			s.logger.Warn("Rate limiter unavailable", slog.Any("err", err))
			next.ServeHTTP(w, r)
			return
		}
		if !ok {
			if retryAfter > 0 {
				w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter.Seconds()+0.5)))
			}
			respondJSON(w, http.StatusTooManyRequests, map[string]string{
				"error":   "Rate limit exceeded",
				"message": "You have reached the maximum number of allowed requests. Please try again later.",
			})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// realIP applies middleware.RealIP only when the socket peer is a trusted
// proxy. Anyone else could rotate X-Forwarded-For to dodge the rate limit.
func (s *Server) realIP(next http.Handler) http.Handler {
	forwarded := middleware.RealIP(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.trustedPeer(r.RemoteAddr) {
			forwarded.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) trustedPeer(remoteAddr string) bool {
	if len(s.proxies) == 0 {
		return false
	}
	addr, err := netip.ParseAddr(hostOnly(remoteAddr))
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range s.proxies {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// clientAddr strips the port from RemoteAddr. Forwarded headers have been
// applied by realIP for trusted proxies only.
func clientAddr(r *http.Request) string {
	return hostOnly(r.RemoteAddr)
}

func hostOnly(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
