package campaign_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"lojasocial/internal/api/campaign"
	"lojasocial/internal/domain"
	apperror "lojasocial/internal/errors"
	"lojasocial/internal/pkg/logger"
)

type MockCampaignService struct {
	mock.Mock
}

func (m *MockCampaignService) CreateCampaign(ctx context.Context, c domain.Campaign) (domain.Campaign, error) {
	args := m.Called(ctx, c)
	return args.Get(0).(domain.Campaign), args.Error(1)
}

func (m *MockCampaignService) GetCampaignByID(ctx context.Context, id string) (domain.Campaign, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Campaign), args.Error(1)
}

func (m *MockCampaignService) GetAllCampaigns(ctx context.Context, activeOnly bool, now time.Time) ([]domain.Campaign, error) {
	args := m.Called(ctx, activeOnly, now)
	return args.Get(0).([]domain.Campaign), args.Error(1)
}

func (m *MockCampaignService) UpdateCampaign(ctx context.Context, c domain.Campaign) (domain.Campaign, error) {
	args := m.Called(ctx, c)
	return args.Get(0).(domain.Campaign), args.Error(1)
}

func (m *MockCampaignService) DeleteCampaign(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func TestCreateCampaignHandler_UnknownFieldIs400(t *testing.T) {
	svc := new(MockCampaignService)
	h := campaign.NewHandler(svc, logger.NewNopLogger())

	rec := httptest.NewRecorder()
	h.CreateCampaignHandler(rec, httptest.NewRequest(http.MethodPost, "/v1/campaigns",
		strings.NewReader(`{"name":"Natal","capacity":10}`)))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "CreateCampaign", mock.Anything, mock.Anything)
}

func TestGetAllCampaignsHandler_ActiveFilter(t *testing.T) {
	svc := new(MockCampaignService)
	h := campaign.NewHandler(svc, logger.NewNopLogger())
	svc.On("GetAllCampaigns", mock.Anything, true, mock.AnythingOfType("time.Time")).Return([]domain.Campaign{{ID: "c1"}}, nil)

	rec := httptest.NewRecorder()
	h.GetAllCampaignsHandler(rec, httptest.NewRequest(http.MethodGet, "/v1/campaigns?active=true", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestGetAllCampaignsHandler_InvalidActive(t *testing.T) {
	svc := new(MockCampaignService)
	h := campaign.NewHandler(svc, logger.NewNopLogger())

	rec := httptest.NewRecorder()
	h.GetAllCampaignsHandler(rec, httptest.NewRequest(http.MethodGet, "/v1/campaigns?active=talvez", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateCampaignHandler_UsesPathID(t *testing.T) {
	svc := new(MockCampaignService)
	h := campaign.NewHandler(svc, logger.NewNopLogger())
	svc.On("UpdateCampaign", mock.Anything, mock.MatchedBy(func(c domain.Campaign) bool {
		return c.ID == "c1" && c.Name == "Natal"
	})).Return(domain.Campaign{ID: "c1", Name: "Natal"}, nil)

	req := httptest.NewRequest(http.MethodPut, "/v1/campaigns/c1",
		strings.NewReader(`{"name":"Natal","start_date":"2025-12-01T00:00:00Z"}`))
	req.SetPathValue("id", "c1")
	rec := httptest.NewRecorder()
	h.UpdateCampaignHandler(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	svc.AssertExpectations(t)
}

func TestDeleteCampaignHandler(t *testing.T) {
	svc := new(MockCampaignService)
	h := campaign.NewHandler(svc, logger.NewNopLogger())
	svc.On("DeleteCampaign", mock.Anything, "c1").Return(nil)
	svc.On("DeleteCampaign", mock.Anything, "c2").Return(apperror.NewNotFoundError("c2"))

	for id, want := range map[string]int{"c1": http.StatusNoContent, "c2": http.StatusNotFound} {
		req := httptest.NewRequest(http.MethodDelete, "/v1/campaigns/"+id, nil)
		req.SetPathValue("id", id)
		rec := httptest.NewRecorder()
		h.DeleteCampaignHandler(rec, req)
		assert.Equal(t, want, rec.Code, id)
	}
}
