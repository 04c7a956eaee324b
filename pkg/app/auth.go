package app

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"github.com/docker/mcp-widgets/pkg/contextkeys"
	"github.com/docker/mcp-widgets/pkg/log"
)

const (
	tokenLength = 50
	// Characters to use for random token generation (lowercase letters and numbers)
	tokenCharset = "abcdefghijklmnopqrstuvwxyz0123456789"

	// GenerateToken as MCP_WIDGETS_AUTH_TOKEN asks for a random token printed at startup.
	GenerateToken = "generate"
)

// generateAuthToken generates a random 50-character string using lowercase letters and numbers
func generateAuthToken() (string, error) {
	token := make([]byte, tokenLength)
	charsetLen := big.NewInt(int64(len(tokenCharset)))

	for i := range tokenLength {
		num, err := rand.Int(rand.Reader, charsetLen)
		if err != nil {
			return "", fmt.Errorf("failed to generate random token: %w", err)
		}
		token[i] = tokenCharset[num.Int64()]
	}

	return string(token), nil
}

// resolveAuthToken turns the configured token into the one to enforce.
// An empty value disables authentication.
func resolveAuthToken(configured string) (token string, generated bool, err error) {
	if configured != GenerateToken {
		return configured, false, nil
	}
	token, err = generateAuthToken()
	if err != nil {
		return "", false, err
	}
	return token, true, nil
}

// authenticationMiddleware rejects requests without "Authorization: Bearer <authToken>".
// The /health endpoint and CORS preflight requests are not authenticated.
func authenticationMiddleware(authToken string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" || r.Method == http.MethodOptions {
			next.ServeHTTP(w, r)
			return
		}

		const bearerPrefix = "Bearer "
		authHeader := r.Header.Get("Authorization")
		bearerToken, hasPrefix := strings.CutPrefix(authHeader, bearerPrefix)

		// Constant-time comparison
		if !hasPrefix || bearerToken == "" || subtle.ConstantTimeCompare([]byte(bearerToken), []byte(authToken)) != 1 {
			log.Logf("! Unauthorized %s %s (%s)", r.Method, r.URL.Path, contextkeys.RequestID(r.Context()))
			w.Header().Set("WWW-Authenticate", `Bearer realm="MCP Widgets"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// formatBearerToken formats the Bearer token for display in the Authorization header
func formatBearerToken(authToken string) string {
	return fmt.Sprintf("Authorization: Bearer %s", authToken)
}
