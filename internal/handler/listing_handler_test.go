package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studybridge/studybridge-api/internal/models"
	"github.com/studybridge/studybridge-api/internal/service"
	appErrors "github.com/studybridge/studybridge-api/pkg/errors"
	"github.com/studybridge/studybridge-api/pkg/response"
)

type directoryRepoStub struct {
	agencies []models.Agency
}

func (s *directoryRepoStub) ListApproved(_ context.Context) ([]models.Agency, error) {
	return s.agencies, nil
}

type noopCacheStub struct{}

func (noopCacheStub) Get(_ context.Context, _ string, _ interface{}) error {
	return appErrors.ErrCacheMiss
}

func (noopCacheStub) Set(_ context.Context, _ string, _ interface{}, _ time.Duration) error {
	return nil
}

func (noopCacheStub) DeleteByPattern(_ context.Context, _ string) error { return nil }

func newListingRouter(agencies []models.Agency) *gin.Engine {
	gin.SetMode(gin.TestMode)
	svc := service.NewListingService(&directoryRepoStub{agencies: agencies}, noopCacheStub{}, time.Minute, nil, nil)
	router := gin.New()
	router.GET("/listings", NewListingHandler(svc).List)
	return router
}

func TestListingHandlerFiltersVerified(t *testing.T) {
	router := newListingRouter([]models.Agency{
		{ID: "a1", Name: "Apex Study", IsVerified: true, Rating: 4.5},
		{ID: "a2", Name: "Meridian Education", IsVerified: false, Rating: 4.8},
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/listings?verified_only=true", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data       []models.Agency    `json:"data"`
		Pagination *models.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "Apex Study", envelope.Data[0].Name)
	require.NotNil(t, envelope.Pagination)
	assert.Equal(t, 1, envelope.Pagination.TotalCount)
}

func TestListingHandlerParsesQueryFilters(t *testing.T) {
	router := newListingRouter([]models.Agency{
		{ID: "a1", Name: "Apex Study", Rating: 4.5, Price: 500, Specializations: []string{"UK"}},
		{ID: "a2", Name: "Meridian Education", Rating: 3.0, Price: 2000, Specializations: []string{"Australia"}},
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/listings?min_rating=4&max_price=1000&specializations=UK", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	data, ok := envelope.Data.([]interface{})
	require.True(t, ok)
	require.Len(t, data, 1)
}
