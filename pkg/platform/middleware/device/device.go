// Package device summarizes the calling device from its User-Agent. The
// summary ends up on audit entries and in escalation messages, where "A's
// iPhone triggered an alert" is worth more to a recipient than a raw UA
// string.
package device

import (
	"net"
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"haven/pkg/requestcontext"
)

// Middleware parses the User-Agent into a short device description and
// records the client IP.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithDevice(r.Context(), Summarize(r.UserAgent()))
		ctx = requestcontext.WithClientIP(ctx, clientIP(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Summarize reduces a User-Agent to "Platform / Browser". Unknown agents
// come back as "unknown device" rather than the raw string, which may be
// arbitrarily long.
func Summarize(ua string) string {
	if ua == "" {
		return "unknown device"
	}
	parsed := useragent.New(ua)
	name, _ := parsed.Browser()
	platform := parsed.Platform()
	if parsed.Mobile() && parsed.OS() != "" {
		platform = parsed.OS()
	}
	parts := make([]string, 0, 2)
	if platform != "" {
		parts = append(parts, platform)
	}
	if name != "" {
		parts = append(parts, name)
	}
	if len(parts) == 0 {
		return "unknown device"
	}
	return strings.Join(parts, " / ")
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
