package loginflow

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
)

// SessionGuardStep short-circuits requests that need no code exchange.
type SessionGuardStep struct{}

func NewSessionGuardStep() *SessionGuardStep {
	return &SessionGuardStep{}
}

func (s *SessionGuardStep) Name() string {
	return "session_guard"
}

func (s *SessionGuardStep) Order() int {
	return OrderSessionGuard
}

func (s *SessionGuardStep) ShouldSkip(ctx context.Context, flowContext *FlowContext) bool {
	return false
}

func (s *SessionGuardStep) Execute(ctx context.Context, flowContext *FlowContext) (*StepResult, error) {
	req := flowContext.Request
	settings := flowContext.Services.Settings

	// an authenticated caller never triggers outbound calls, even with a code
	if req.Authenticated {
		flowContext.Result.Redirect = redirectTarget(req.State, settings)
		return &StepResult{EarlyReturn: true}, nil
	}

	if req.Code == "" {
		flowContext.Result.Redirect = loginRedirect(settings.LoginURL, req.FullPath)
		return &StepResult{EarlyReturn: true}, nil
	}

	return &StepResult{Continue: true}, nil
}

// CodeExchangeStep trades the authorization code for an access token.
type CodeExchangeStep struct{}

func NewCodeExchangeStep() *CodeExchangeStep {
	return &CodeExchangeStep{}
}

func (s *CodeExchangeStep) Name() string {
	return "code_exchange"
}

func (s *CodeExchangeStep) Order() int {
	return OrderCodeExchange
}

func (s *CodeExchangeStep) ShouldSkip(ctx context.Context, flowContext *FlowContext) bool {
	return false
}

func (s *CodeExchangeStep) Execute(ctx context.Context, flowContext *FlowContext) (*StepResult, error) {
	redirectURI := flowContext.Request.RedirectHost + flowContext.Services.Settings.LoginPath
	token, err := flowContext.Services.Provider.ExchangeAuthorizationCode(ctx, flowContext.Request.Code, redirectURI)
	if err != nil {
		return nil, fmt.Errorf("code exchange: %w", err)
	}
	flowContext.AccessToken = token
	return &StepResult{Continue: true}, nil
}

// UserInfoStep identifies the caller with the access token.
type UserInfoStep struct{}

func NewUserInfoStep() *UserInfoStep {
	return &UserInfoStep{}
}

func (s *UserInfoStep) Name() string {
	return "user_info"
}

func (s *UserInfoStep) Order() int {
	return OrderUserInfo
}

func (s *UserInfoStep) ShouldSkip(ctx context.Context, flowContext *FlowContext) bool {
	return false
}

func (s *UserInfoStep) Execute(ctx context.Context, flowContext *FlowContext) (*StepResult, error) {
	info, err := flowContext.Services.Provider.FetchUserInfo(ctx, flowContext.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("user info: %w", err)
	}
	flowContext.UserInfo = info
	return &StepResult{Continue: true}, nil
}

// AuthenticationStep maps the remote identity to a local user of this site.
type AuthenticationStep struct{}

func NewAuthenticationStep() *AuthenticationStep {
	return &AuthenticationStep{}
}

func (s *AuthenticationStep) Name() string {
	return "authentication"
}

func (s *AuthenticationStep) Order() int {
	return OrderAuthentication
}

func (s *AuthenticationStep) ShouldSkip(ctx context.Context, flowContext *FlowContext) bool {
	return false
}

func (s *AuthenticationStep) Execute(ctx context.Context, flowContext *FlowContext) (*StepResult, error) {
	externalID := flowContext.UserInfo.ExternalID
	siteID := flowContext.Services.Settings.SiteID

	u, err := flowContext.Services.Authenticator.Authenticate(ctx, externalID, siteID)
	if err != nil {
		slog.Warn("Login rejected", "external_id", externalID, "site_id", siteID, "err", err)
		return nil, err
	}
	flowContext.User = u
	return &StepResult{Continue: true}, nil
}

// SessionEstablishmentStep logs the user in and sends them to the target.
type SessionEstablishmentStep struct{}

func NewSessionEstablishmentStep() *SessionEstablishmentStep {
	return &SessionEstablishmentStep{}
}

func (s *SessionEstablishmentStep) Name() string {
	return "session_establishment"
}

func (s *SessionEstablishmentStep) Order() int {
	return OrderSessionEstablishment
}

func (s *SessionEstablishmentStep) ShouldSkip(ctx context.Context, flowContext *FlowContext) bool {
	return false
}

func (s *SessionEstablishmentStep) Execute(ctx context.Context, flowContext *FlowContext) (*StepResult, error) {
	session, err := flowContext.Services.Sessions.Login(flowContext.w, flowContext.r, flowContext.User)
	if err != nil {
		return nil, err
	}

	flowContext.Result.User = flowContext.User
	flowContext.Result.Session = session
	flowContext.Result.Redirect = redirectTarget(flowContext.Request.State, flowContext.Services.Settings)
	return &StepResult{Continue: true}, nil
}

func loginRedirect(loginURL, next string) string {
	sep := "?"
	if strings.Contains(loginURL, "?") {
		sep = "&"
	}
	return loginURL + sep + url.Values{"next": {next}}.Encode()
}

// redirectTarget returns state, or the admin URL when state is empty. With
// RestrictRedirects only same-origin paths are honoured.
func redirectTarget(state string, settings Settings) string {
	if state == "" {
		return settings.AdminURL
	}
	if !isLocalPath(state) {
		if settings.RestrictRedirects {
			slog.Warn("Ignoring off-site redirect target", "state", state)
			return settings.AdminURL
		}
		slog.Info("Redirecting to off-site target", "state", state)
	}
	return state
}

func isLocalPath(target string) bool {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, `/\`) {
		return false
	}
	u, err := url.Parse(target)
	return err == nil && u.Scheme == "" && u.Host == ""
}
