package loginflow

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/tendant/siteuser/pkg/errors"
)

type MockLoginFlowStep struct {
	name        string
	order       int
	skipStep    bool
	executeFunc func(ctx context.Context, flowContext *FlowContext) (*StepResult, error)
}

func (m *MockLoginFlowStep) Name() string { return m.name }

func (m *MockLoginFlowStep) Order() int { return m.order }

func (m *MockLoginFlowStep) Execute(ctx context.Context, flowContext *FlowContext) (*StepResult, error) {
	if m.executeFunc != nil {
		return m.executeFunc(ctx, flowContext)
	}
	return &StepResult{Continue: true}, nil
}

func (m *MockLoginFlowStep) ShouldSkip(ctx context.Context, flowContext *FlowContext) bool {
	return m.skipStep
}

func recordingStep(name string, order int, seen *[]string) *MockLoginFlowStep {
	return &MockLoginFlowStep{
		name:  name,
		order: order,
		executeFunc: func(ctx context.Context, flowContext *FlowContext) (*StepResult, error) {
			*seen = append(*seen, name)
			return &StepResult{Continue: true}, nil
		},
	}
}

func execute(e *FlowExecutor) Result {
	return e.Execute(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/login", nil), Request{})
}

func TestStepsRunInOrder(t *testing.T) {
	var seen []string
	skipped := recordingStep("skipped", 150, &seen)
	skipped.skipStep = true

	flow := NewFlowBuilder().
		AddStep(recordingStep("third", 300, &seen)).
		AddStep(recordingStep("first", 100, &seen)).
		AddStep(skipped).
		AddStep(recordingStep("second", 200, &seen)).
		Build(&ServiceDependencies{})

	execute(flow)
	assert.Equal(t, []string{"first", "second", "third"}, seen)
}

func TestEarlyReturnStopsFlow(t *testing.T) {
	var seen []string
	flow := NewFlowBuilder().
		AddStep(&MockLoginFlowStep{name: "stop", order: 1, executeFunc: func(ctx context.Context, fc *FlowContext) (*StepResult, error) {
			fc.Result.Redirect = "/elsewhere"
			return &StepResult{EarlyReturn: true}, nil
		}}).
		AddStep(recordingStep("never", 2, &seen)).
		Build(&ServiceDependencies{})

	result := execute(flow)
	assert.Equal(t, "/elsewhere", result.Redirect)
	assert.Empty(t, seen)
}

func TestStepDataIsShared(t *testing.T) {
	var got interface{}
	flow := NewFlowBuilder().
		AddStep(&MockLoginFlowStep{name: "put", order: 1, executeFunc: func(ctx context.Context, fc *FlowContext) (*StepResult, error) {
			return &StepResult{Continue: true, Data: map[string]interface{}{"k": "v"}}, nil
		}}).
		AddStep(&MockLoginFlowStep{name: "get", order: 2, executeFunc: func(ctx context.Context, fc *FlowContext) (*StepResult, error) {
			got = fc.StepData["k"]
			return &StepResult{Continue: true}, nil
		}}).
		Build(&ServiceDependencies{})

	execute(flow)
	assert.Equal(t, "v", got)
}

func TestStepErrorsMapToResponses(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		kind   string
	}{
		{"provider", apperrors.AuthError(errors.New("down"), "token request failed"), http.StatusBadGateway, ErrorTypeProvider},
		{"denied", apperrors.PermissionDenied("no backend"), http.StatusForbidden, ErrorTypePermissionDenied},
		{"other", errors.New("boom"), http.StatusInternalServerError, ErrorTypeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flow := NewFlowBuilder().
				AddStep(&MockLoginFlowStep{name: "fail", order: 1, executeFunc: func(ctx context.Context, fc *FlowContext) (*StepResult, error) {
					return nil, tt.err
				}}).
				Build(&ServiceDependencies{})

			result := execute(flow)
			require.NotNil(t, result.ErrorResponse)
			assert.Equal(t, tt.status, result.ErrorResponse.Status)
			assert.Equal(t, tt.kind, result.ErrorResponse.Type)
		})
	}
}

func TestLoginRedirectKeepsExistingQuery(t *testing.T) {
	assert.Equal(t, "/accounts/login?x=1&next=%2Fa%3Fb%3Dc", loginRedirect("/accounts/login?x=1", "/a?b=c"))
}
