package httpx

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/dealerops/rentd/internal/data"
	"github.com/dealerops/rentd/internal/domain/model"
	"github.com/dealerops/rentd/internal/mocks"
	"github.com/dealerops/rentd/internal/service"
)

func newLeadHandlers(t *testing.T) (*LeadHandlers, *mocks.MockLeadRepository, *mocks.MockLeadRuleRepository) {
	t.Helper()
	ctrl := gomock.NewController(t)
	leads := mocks.NewMockLeadRepository(ctrl)
	rules := mocks.NewMockLeadRuleRepository(ctrl)
	svc := service.NewLeadService(service.LeadServiceOptions{
		Leads:     leads,
		Rules:     rules,
		Evaluator: service.NewRuleEvaluator(),
	})
	return &LeadHandlers{Svc: svc}, leads, rules
}

func TestSubmitLeadDerivesSourceDomain(t *testing.T) {
	h, leads, rules := newLeadHandlers(t)

	rules.EXPECT().ListEnabled(gomock.Any()).Return(nil, nil)
	leads.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ any, p data.CreateLeadParams) (*model.Lead, error) {
			require.NotNil(t, p.SourceDomain)
			assert.Equal(t, "example.co.uk", *p.SourceDomain)
			return &model.Lead{
				ID:           "lead-1",
				FullName:     p.FullName,
				Phone:        p.Phone,
				SourceDomain: p.SourceDomain,
				Status:       p.Status,
			}, nil
		})

	referrer := "https://deals.example.co.uk/cars/42"
	body := model.CreateLeadRequest{
		FullName: "Dana Smith",
		Phone:    "+1-555-0100",
		Referrer: &referrer,
	}
	r := httptest.NewRequest(http.MethodPost, "/api/public/leads", jsonBody(t, body))
	w := httptest.NewRecorder()

	h.Submit(w, r)

	require.Equal(t, http.StatusCreated, w.Code)
	var lead model.Lead
	decodeBody(t, w, &lead)
	assert.Equal(t, "lead-1", lead.ID)
	assert.Equal(t, model.LeadStatusNew, lead.Status)
}

func TestSubmitLeadRejectsMissingPhone(t *testing.T) {
	h, _, _ := newLeadHandlers(t)

	body := model.CreateLeadRequest{FullName: "No Phone"}
	r := httptest.NewRequest(http.MethodPost, "/api/public/leads", jsonBody(t, body))
	w := httptest.NewRecorder()

	h.Submit(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateRuleRejectsBadExpression(t *testing.T) {
	h, _, _ := newLeadHandlers(t)

	body := model.CreateLeadRuleRequest{
		Name:       "broken",
		Expression: "foo[",
		AssignTo:   "desk-1",
	}
	r := httptest.NewRequest(http.MethodPost, "/api/lead-rules", jsonBody(t, body))
	w := httptest.NewRecorder()

	h.CreateRule(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetRuleEnabledRequiresFlag(t *testing.T) {
	h, _, _ := newLeadHandlers(t)

	r := httptest.NewRequest(http.MethodPut, "/api/lead-rules/r1", jsonBody(t, map[string]any{}))
	r.SetPathValue("id", "r1")
	w := httptest.NewRecorder()

	h.SetRuleEnabled(w, r)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
