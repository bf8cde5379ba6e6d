package adapthttp

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"cura/internal/app"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
)

// OIDCConfig holds the single sign-on provider. The zero value disables SSO.
type OIDCConfig struct {
	Enabled      bool
	Provider     *oidc.Provider
	OAuth2Config oauth2.Config
}

// NewOIDCConfig discovers the issuer and prepares the OAuth2 client.
func NewOIDCConfig(ctx context.Context, issuer, clientID, clientSecret, redirectURL string) (OIDCConfig, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return OIDCConfig{}, fmt.Errorf("oidc discovery: %w", err)
	}
	return OIDCConfig{
		Enabled:  true,
		Provider: provider,
		OAuth2Config: oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
	}, nil
}

// Server is the driving HTTP adapter that routes requests to the
// application.
type Server struct {
	app        *app.App
	webDir     string
	oidcConfig OIDCConfig
	log        *slog.Logger
}

// New creates a Server wired to the given application.
func New(a *app.App, webDir string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{app: a, webDir: webDir, log: logger}
}

// WithOIDC enables single sign-on.
func (s *Server) WithOIDC(cfg OIDCConfig) *Server {
	s.oidcConfig = cfg
	return s
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	api.HandleFunc("/state", s.handleState)

	api.HandleFunc("/auth/register", s.handleRegister)
	api.HandleFunc("/auth/login", s.handleLogin)
	api.HandleFunc("/auth/logout", s.handleLogout)
	api.HandleFunc("/auth/config", s.handleConfig)
	api.HandleFunc("/auth/sso/login", s.handleSSOLogin)
	api.HandleFunc("/auth/sso/callback", s.handleSSOCallback)

	api.Handle("/account/delete", s.requireUser(http.HandlerFunc(s.handleDeleteAccount)))
	api.Handle("/sessions/new", s.requireUser(http.HandlerFunc(s.handleNewSession)))
	api.Handle("/sessions/select", s.requireUser(http.HandlerFunc(s.handleSelectSession)))
	api.Handle("/sessions/delete", s.requireUser(http.HandlerFunc(s.handleDeleteSessions)))
	api.Handle("/sessions/delete-all", s.requireUser(http.HandlerFunc(s.handleDeleteAllChats)))
	api.Handle("/sessions/archive", s.requireUser(http.HandlerFunc(s.handleArchiveSessions)))
	api.Handle("/messages", s.requireUser(http.HandlerFunc(s.handleSendMessage)))

	api.HandleFunc("/confirm", s.handleConfirm)
	api.HandleFunc("/cancel", s.handleCancel)

	api.HandleFunc("/settings/theme", s.handleTheme)
	api.HandleFunc("/settings/show-archived", s.handleShowArchived)

	root := http.NewServeMux()
	root.Handle("/api/", http.StripPrefix("/api", api))
	root.Handle("/", spaFromDisk(s.webDir))

	return s.loggingMiddleware(withNoCache(root))
}
