package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"precinctwatch/internal/audittemplates"
	"precinctwatch/internal/compliance"
	"precinctwatch/internal/logger"
	"precinctwatch/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

var testNow = time.Date(2025, 6, 14, 9, 30, 0, 0, time.UTC)

func testEngine() *compliance.Engine {
	return compliance.NewEngine(compliance.DefaultOptions(), func() time.Time { return testNow })
}

func testCatalog(t *testing.T) *audittemplates.Catalog {
	catalog, err := audittemplates.Load()
	require.NoError(t, err)
	return catalog
}

func expiringIn(certType models.CertificationType, d time.Duration) *models.Certification {
	at := testNow.Add(d)
	return &models.Certification{ID: uuid.New(), Type: certType, ExpiresAt: &at, Mandatory: true}
}

// retailStore builds an active RETAIL store holding every required type, with the
// given expiry offset applied to fire safety.
func retailStore(name string, fireSafety time.Duration) *models.Store {
	id := uuid.New()
	day := 24 * time.Hour
	certs := []*models.Certification{
		expiringIn(models.CertFireSafety, fireSafety),
		expiringIn(models.CertOccupancy, 400*day),
		expiringIn(models.CertElectrical, 400*day),
		expiringIn(models.CertInsurance, 400*day),
		expiringIn(models.CertCOID, 400*day),
	}
	for _, c := range certs {
		c.StoreID = id
	}
	return &models.Store{
		ID:             id,
		Code:           "RT-" + name[:3],
		Slug:           Slugify(name),
		Name:           name,
		Precinct:       "Alfred Mall",
		Category:       models.CategoryRetail,
		Active:         true,
		Certifications: certs,
	}
}

var activeOnly = models.StoreListFilter{ActiveOnly: true}

type DashboardServiceTestSuite struct {
	suite.Suite
	mockStoreRepo *MockStoreRepository
	mockAuditRepo *MockAuditRepository
	mockCache     *MockCacheService
	dashboard     DashboardService
	exec          ExecService
	ttl           time.Duration
}

func (suite *DashboardServiceTestSuite) SetupTest() {
	suite.mockStoreRepo = &MockStoreRepository{}
	suite.mockAuditRepo = &MockAuditRepository{}
	suite.mockCache = &MockCacheService{}
	suite.ttl = 2 * time.Minute

	engine := testEngine()
	log := logger.NewNoOpLogger()
	suite.dashboard = NewDashboardService(engine, suite.mockStoreRepo, suite.mockAuditRepo, testCatalog(suite.T()), suite.mockCache, suite.ttl, log)
	suite.exec = NewExecService(engine, suite.mockStoreRepo, suite.mockCache, suite.ttl, log)

	suite.mockStoreRepo.Test(suite.T())
	suite.mockAuditRepo.Test(suite.T())
	suite.mockCache.Test(suite.T())
}

func (suite *DashboardServiceTestSuite) TearDownTest() {
	suite.mockStoreRepo.AssertExpectations(suite.T())
	suite.mockAuditRepo.AssertExpectations(suite.T())
	suite.mockCache.AssertExpectations(suite.T())
}

func TestDashboardServiceTestSuite(t *testing.T) {
	suite.Run(t, new(DashboardServiceTestSuite))
}

func (suite *DashboardServiceTestSuite) expectBuild() {
	day := 24 * time.Hour
	stores := []*models.Store{
		retailStore("Compliant Corner", 300*day),
		retailStore("Lapsed Lane", -3*day),
	}
	monthStart := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	recent := []*models.AuditListItem{
		{ID: uuid.New(), TemplateID: "retail-floor-v1", Status: models.AuditSubmitted},
		{ID: uuid.New(), TemplateID: "retired-template", Status: models.AuditDraft},
	}

	suite.mockStoreRepo.On("ListWithCertifications", mock.Anything, activeOnly).Return(stores, nil).Once()
	suite.mockAuditRepo.On("CountSince", mock.Anything, monthStart).Return(4, nil).Once()
	suite.mockAuditRepo.On("List", mock.Anything, (*time.Time)(nil), recentAuditLimit).Return(recent, 2, nil).Once()
}

func (suite *DashboardServiceTestSuite) TestGetDashboard_CacheMissBuildsAndStores() {
	ctx := context.Background()
	suite.expectBuild()
	suite.mockCache.On("GetPayload", mock.Anything, "dashboard", mock.AnythingOfType("*services.DashboardPayload")).Return(false, nil).Once()
	suite.mockCache.On("SetPayload", mock.Anything, "dashboard", mock.AnythingOfType("*services.DashboardPayload"), suite.ttl).Return(nil).Once()

	payload, err := suite.dashboard.GetDashboard(ctx)

	suite.Require().NoError(err)
	suite.Equal(2, payload.KPIs.TotalStores)
	suite.Equal(1, payload.KPIs.NonCompliantStores)
	suite.Equal(1, payload.KPIs.ExpiredCount)
	suite.Equal(4, payload.KPIs.AuditsThisMonth)
	suite.Equal(testNow, payload.GeneratedAt)

	suite.Require().Len(payload.TopRiskStores, 2)
	suite.Equal("Lapsed Lane", payload.TopRiskStores[0].Name)
	suite.Equal(80, payload.TopRiskStores[0].CompliancePercent)

	suite.Require().Len(payload.RecentAudits, 2)
	suite.Equal("Retail Floor & Stockroom Checklist", payload.RecentAudits[0].TemplateName)
	suite.Equal("retired-template", payload.RecentAudits[1].TemplateName)

	suite.Require().Len(payload.HighestRiskPrecincts, 1)
	suite.Equal("Alfred Mall", payload.HighestRiskPrecincts[0].Precinct)
}

func (suite *DashboardServiceTestSuite) TestGetDashboard_CacheHitSkipsRepositories() {
	ctx := context.Background()
	suite.mockCache.On("GetPayload", mock.Anything, "dashboard", mock.AnythingOfType("*services.DashboardPayload")).
		Run(func(args mock.Arguments) {
			args.Get(2).(*DashboardPayload).KPIs.TotalStores = 42
		}).
		Return(true, nil).Once()

	payload, err := suite.dashboard.GetDashboard(ctx)

	suite.Require().NoError(err)
	suite.Equal(42, payload.KPIs.TotalStores)
}

func (suite *DashboardServiceTestSuite) TestGetDashboard_CacheFailuresFallThrough() {
	ctx := context.Background()
	suite.expectBuild()
	suite.mockCache.On("GetPayload", mock.Anything, "dashboard", mock.Anything).Return(false, errors.New("connection refused")).Once()
	suite.mockCache.On("SetPayload", mock.Anything, "dashboard", mock.Anything, suite.ttl).Return(errors.New("connection refused")).Once()

	payload, err := suite.dashboard.GetDashboard(ctx)

	suite.Require().NoError(err)
	suite.Equal(2, payload.KPIs.TotalStores)
}

func (suite *DashboardServiceTestSuite) TestGetDashboard_StoreLoadErrorPropagates() {
	ctx := context.Background()
	suite.mockCache.On("GetPayload", mock.Anything, "dashboard", mock.Anything).Return(false, nil).Once()
	suite.mockStoreRepo.On("ListWithCertifications", mock.Anything, activeOnly).Return(nil, errors.New("db down")).Once()

	payload, err := suite.dashboard.GetDashboard(ctx)

	suite.Error(err)
	suite.Nil(payload)
}

func (suite *DashboardServiceTestSuite) TestRefreshDashboard_OverwritesCache() {
	ctx := context.Background()
	suite.expectBuild()
	suite.mockCache.On("SetPayload", mock.Anything, "dashboard", mock.AnythingOfType("*services.DashboardPayload"), suite.ttl).Return(nil).Once()

	payload, err := suite.dashboard.RefreshDashboard(ctx)

	suite.Require().NoError(err)
	suite.Equal(4, payload.KPIs.AuditsThisMonth)
	suite.mockCache.AssertNotCalled(suite.T(), "GetPayload", mock.Anything, mock.Anything, mock.Anything)
}

func (suite *DashboardServiceTestSuite) TestGetExecDashboard_NormalizesTimeframe() {
	ctx := context.Background()
	day := 24 * time.Hour
	stores := []*models.Store{retailStore("Lapsed Lane", -3*day), retailStore("Soon Street", 5*day)}

	suite.mockCache.On("GetPayload", mock.Anything, "exec:90", mock.AnythingOfType("*services.ExecPayload")).Return(false, nil).Once()
	suite.mockStoreRepo.On("ListWithCertifications", mock.Anything, activeOnly).Return(stores, nil).Once()
	suite.mockCache.On("SetPayload", mock.Anything, "exec:90", mock.AnythingOfType("*services.ExecPayload"), suite.ttl).Return(nil).Once()

	payload, err := suite.exec.GetExecDashboard(ctx, 45)

	suite.Require().NoError(err)
	suite.Equal(90, payload.TimeframeDays)
	suite.Len(payload.RiskTrend, 91)
	suite.Len(payload.TopRiskStores, 2)
	suite.Len(payload.ExpiryTimeline.Next7, 1)
	suite.Equal(1, payload.Summary.TotalExpired)
	suite.Equal(1, payload.Summary.TotalExpiringSoon)
}

func (suite *DashboardServiceTestSuite) TestRefreshExecDashboard_KeysByTimeframe() {
	ctx := context.Background()
	suite.mockStoreRepo.On("ListWithCertifications", mock.Anything, activeOnly).Return([]*models.Store{}, nil).Once()
	suite.mockCache.On("SetPayload", mock.Anything, "exec:30", mock.AnythingOfType("*services.ExecPayload"), suite.ttl).Return(nil).Once()

	payload, err := suite.exec.RefreshExecDashboard(ctx, 30)

	suite.Require().NoError(err)
	suite.Len(payload.RiskTrend, 31)
	suite.Empty(payload.TopRiskStores)
}
