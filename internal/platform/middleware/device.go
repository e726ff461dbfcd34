package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/mssola/useragent"

	"certifai/pkg/requestcontext"
)

// Device normalizes the User-Agent into a compact "browser/major os platform"
// summary and injects it into the context. Audit entries carry the summary so a
// verification run can be correlated with the client that triggered it.
// Register after ClientMetadata.
func Device(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if raw := requestcontext.UserAgent(ctx); raw != "" {
			ctx = requestcontext.WithDevice(ctx, summarizeUserAgent(raw))
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func summarizeUserAgent(raw string) string {
	ua := useragent.New(raw)
	browser, version := ua.Browser()

	major := "unknown"
	if version != "" {
		parts := strings.Split(version, ".")
		if len(parts) > 0 && parts[0] != "" {
			major = parts[0]
		}
	}

	os := strings.ToLower(strings.TrimSpace(ua.OS()))
	if os == "" {
		os = "unknown"
	}
	browser = strings.ToLower(strings.TrimSpace(browser))
	if browser == "" {
		browser = "unknown"
	}
	platform := "desktop"
	if ua.Mobile() {
		platform = "mobile"
	} else if ua.Bot() {
		platform = "bot"
	}

	return fmt.Sprintf("%s/%s %s %s", browser, major, os, platform)
}
