package loginflow

import (
	"context"
	"log/slog"
	"net/http"
	"sort"

	"github.com/tendant/siteuser/pkg/auth0"
	apperrors "github.com/tendant/siteuser/pkg/errors"
	"github.com/tendant/siteuser/pkg/sessions"
	"github.com/tendant/siteuser/pkg/siteuser"
)

// LoginFlowStep represents a single step in the login flow
type LoginFlowStep interface {
	// Name returns the unique name of this step
	Name() string

	// Order returns the execution order (lower numbers execute first)
	Order() int

	// Execute performs the step's logic
	Execute(ctx context.Context, flowContext *FlowContext) (*StepResult, error)

	// ShouldSkip determines if this step should be skipped based on current context
	ShouldSkip(ctx context.Context, flowContext *FlowContext) bool
}

// Request is the callback request as seen by the flow.
type Request struct {
	Code          string
	State         string
	FullPath      string
	Authenticated bool

	// RedirectHost comes from the connection params attached to the request,
	// or is computed from the request when they are missing.
	RedirectHost string
}

// Result is what the handler turns into a response.
type Result struct {
	Redirect      string
	User          *siteuser.User
	Session       *sessions.Session
	ErrorResponse *Error
}

// Error represents structured errors from the login flow
type Error struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Status  int    `json:"-"`
}

func (e *Error) Error() string {
	return e.Message
}

// FlowContext carries state between login flow steps
type FlowContext struct {
	Request Request
	Result  *Result

	AccessToken string
	UserInfo    *auth0.UserInfo
	User        *siteuser.User

	// StepData holds values contributed by custom steps.
	StepData map[string]interface{}

	Services *ServiceDependencies

	w http.ResponseWriter
	r *http.Request
}

// StepResult represents the result of executing a login flow step
type StepResult struct {
	// Continue indicates whether the flow should continue to the next step
	Continue bool

	// EarlyReturn indicates the flow should return immediately with the current result
	EarlyReturn bool

	// Error indicates an error occurred during step execution
	Error *Error

	// Data can contain step-specific data to be stored in FlowContext.StepData
	Data map[string]interface{}
}

// Provider exchanges the authorization code and identifies the caller.
type Provider interface {
	ExchangeAuthorizationCode(ctx context.Context, code, redirectURI string) (string, error)
	FetchUserInfo(ctx context.Context, accessToken string) (*auth0.UserInfo, error)
}

// UserAuthenticator runs the ordered backend list.
type UserAuthenticator interface {
	Authenticate(ctx context.Context, externalID string, siteID int64) (*siteuser.User, error)
}

// SessionStarter logs an authenticated user in.
type SessionStarter interface {
	Login(w http.ResponseWriter, r *http.Request, u *siteuser.User) (*sessions.Session, error)
}

// Settings are the URLs and site the flow works with.
type Settings struct {
	SiteID            int64
	LoginPath         string
	LoginURL          string
	AdminURL          string
	RestrictRedirects bool
}

// ServiceDependencies contains all the services needed by login flow steps
type ServiceDependencies struct {
	Provider      Provider
	Authenticator UserAuthenticator
	Sessions      SessionStarter
	Settings      Settings
}

// StepRegistry manages and orders login flow steps
type StepRegistry struct {
	steps []LoginFlowStep
}

// NewStepRegistry creates a new step registry
func NewStepRegistry() *StepRegistry {
	return &StepRegistry{
		steps: make([]LoginFlowStep, 0),
	}
}

// AddStep adds a step to the registry
func (r *StepRegistry) AddStep(step LoginFlowStep) *StepRegistry {
	r.steps = append(r.steps, step)
	return r
}

// GetOrderedSteps returns steps sorted by their order
func (r *StepRegistry) GetOrderedSteps() []LoginFlowStep {
	orderedSteps := make([]LoginFlowStep, len(r.steps))
	copy(orderedSteps, r.steps)

	sort.SliceStable(orderedSteps, func(i, j int) bool {
		return orderedSteps[i].Order() < orderedSteps[j].Order()
	})

	return orderedSteps
}

// FlowExecutor orchestrates the execution of login flow steps
type FlowExecutor struct {
	registry *StepRegistry
	services *ServiceDependencies
}

// NewFlowExecutor creates a new flow executor
func NewFlowExecutor(registry *StepRegistry, services *ServiceDependencies) *FlowExecutor {
	return &FlowExecutor{
		registry: registry,
		services: services,
	}
}

// Execute runs the flow for one callback request. w and r are handed to steps
// that need to write cookies.
func (e *FlowExecutor) Execute(w http.ResponseWriter, r *http.Request, request Request) Result {
	ctx := r.Context()
	flowContext := &FlowContext{
		Request:  request,
		Result:   &Result{},
		StepData: make(map[string]interface{}),
		Services: e.services,
		w:        w,
		r:        r,
	}

	for _, step := range e.registry.GetOrderedSteps() {
		if step.ShouldSkip(ctx, flowContext) {
			continue
		}

		stepResult, err := step.Execute(ctx, flowContext)
		if err != nil {
			slog.Error("Login step failed", "step", step.Name(), "err", err)
			flowContext.Result.ErrorResponse = errorFrom(err)
			return *flowContext.Result
		}

		if stepResult.Error != nil {
			flowContext.Result.ErrorResponse = stepResult.Error
			return *flowContext.Result
		}

		for key, value := range stepResult.Data {
			flowContext.StepData[key] = value
		}

		if stepResult.EarlyReturn {
			return *flowContext.Result
		}

		if !stepResult.Continue {
			break
		}
	}

	return *flowContext.Result
}

// FlowBuilder provides a fluent interface for building login flows
type FlowBuilder struct {
	registry *StepRegistry
}

// NewFlowBuilder creates a new flow builder
func NewFlowBuilder() *FlowBuilder {
	return &FlowBuilder{
		registry: NewStepRegistry(),
	}
}

// AddStep adds a step to the flow
func (b *FlowBuilder) AddStep(step LoginFlowStep) *FlowBuilder {
	b.registry.AddStep(step)
	return b
}

// Build creates a flow executor with the configured steps
func (b *FlowBuilder) Build(services *ServiceDependencies) *FlowExecutor {
	return NewFlowExecutor(b.registry, services)
}

// BuildAuthorizationCodeFlow is the standard callback flow.
func BuildAuthorizationCodeFlow(services *ServiceDependencies) *FlowExecutor {
	return NewFlowBuilder().
		AddStep(NewSessionGuardStep()).
		AddStep(NewCodeExchangeStep()).
		AddStep(NewUserInfoStep()).
		AddStep(NewAuthenticationStep()).
		AddStep(NewSessionEstablishmentStep()).
		Build(services)
}

// Predefined step orders
const (
	OrderSessionGuard         = 100
	OrderCodeExchange         = 200
	OrderUserInfo             = 300
	OrderAuthentication       = 400
	OrderSessionEstablishment = 500
)

// Error type constants
const (
	ErrorTypeProvider         = "provider_error"
	ErrorTypePermissionDenied = "permission_denied"
	ErrorTypeInternalError    = "internal_error"
)

func errorFrom(err error) *Error {
	switch {
	case apperrors.IsAuthError(err):
		return &Error{Type: ErrorTypeProvider, Message: "identity provider request failed", Status: http.StatusBadGateway}
	case apperrors.IsPermissionDenied(err):
		return &Error{Type: ErrorTypePermissionDenied, Message: "no matching user for this site", Status: http.StatusForbidden}
	default:
		return &Error{Type: ErrorTypeInternalError, Message: "login failed", Status: http.StatusInternalServerError}
	}
}
