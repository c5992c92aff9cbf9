package handler

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/harvestiq/harvestiq/internal/api/middleware"
)

// maxSessionIDLength bounds client-supplied session identifiers.
const maxSessionIDLength = 128

// GetUserID retrieves the authenticated user ID from the context.
// This is a convenience wrapper around middleware.GetUserID.
func GetUserID(ctx context.Context) string {
	return middleware.GetUserID(ctx)
}

// SessionKey identifies the forecast session a request belongs to: the
// authenticated user, else the X-Session-Id header, else the client IP.
func SessionKey(r *http.Request) string {
	if userID := GetUserID(r.Context()); userID != "" {
		return "user:" + userID
	}
	if session := strings.TrimSpace(r.Header.Get(middleware.SessionHeader)); session != "" {
		if len(session) > maxSessionIDLength {
			session = session[:maxSessionIDLength]
		}
		return "session:" + session
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
