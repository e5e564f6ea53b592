package loginflow

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/tendant/siteuser/pkg/auth0"
)

// AuthenticatedFunc reports whether r already carries a session.
type AuthenticatedFunc func(r *http.Request) bool

// Handle serves the authorization code callback.
type Handle struct {
	flow            *FlowExecutor
	loginPath       string
	isAuthenticated AuthenticatedFunc
}

func NewHandle(flow *FlowExecutor, loginPath string, isAuthenticated AuthenticatedFunc) Handle {
	return Handle{
		flow:            flow,
		loginPath:       loginPath,
		isAuthenticated: isAuthenticated,
	}
}

// Routes mounts the callback on r.
func (h Handle) Routes(r chi.Router) {
	r.Get(h.loginPath, h.Login)
}

func (h Handle) Login(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	request := Request{
		Code:          query.Get("code"),
		State:         query.Get("state"),
		FullPath:      r.URL.RequestURI(),
		Authenticated: h.isAuthenticated(r),
	}
	if params, ok := auth0.ConnectionFromContext(r.Context()); ok && params.RedirectHost != "" {
		request.RedirectHost = params.RedirectHost
	} else {
		request.RedirectHost = auth0.RedirectHost(r)
	}

	result := h.flow.Execute(w, r, request)
	if result.ErrorResponse != nil {
		slog.Info("Login failed", "type", result.ErrorResponse.Type)
		render.Status(r, result.ErrorResponse.Status)
		render.JSON(w, r, result.ErrorResponse)
		return
	}

	http.Redirect(w, r, result.Redirect, http.StatusFound)
}
