package handlers

import (
	"context"
	"time"

	"kiln_controller/internal/models"
	"kiln_controller/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockFiring struct {
	startStatus models.Status
	startErr    error
	cancelErr   error
	profile     models.FiringProfile
	hasProfile  bool
	profileErr  error
	estimate    int
	estimateErr error

	lastProfile  models.FiringProfile
	lastReason   string
	startCalls   int
	cancelCalls  int
	estimateCall int
}

func (m *mockFiring) Start(ctx context.Context, p models.FiringProfile) (models.Status, error) {
	m.startCalls++
	m.lastProfile = p
	return m.startStatus, m.startErr
}
func (m *mockFiring) Cancel(ctx context.Context, reason string) error {
	m.cancelCalls++
	m.lastReason = reason
	return m.cancelErr
}
func (m *mockFiring) Profile(ctx context.Context) (models.FiringProfile, bool, error) {
	return m.profile, m.hasProfile, m.profileErr
}
func (m *mockFiring) Estimate(p models.FiringProfile) (int, error) {
	m.estimateCall++
	m.lastProfile = p
	return m.estimate, m.estimateErr
}

type mockMonitoring struct {
	status models.Status
	alarms []models.AlarmCode
	err    error
}

func (m *mockMonitoring) GetStatus(ctx context.Context) (models.Status, error) {
	return m.status, m.err
}
func (m *mockMonitoring) ActiveAlarms() []models.AlarmCode { return m.alarms }

type mockEventLog struct {
	resp     []models.FiringEvent
	err      error
	lastFrom time.Time
	lastTo   time.Time
	lastType string
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.FiringEvent, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	return m.resp, m.err
}

type mockHistory struct {
	resp     []models.TelemetrySample
	err      error
	lastFrom time.Time
	lastTo   time.Time
}

func (m *mockHistory) Range(ctx context.Context, f service.HistoryFilter) ([]models.TelemetrySample, error) {
	m.lastFrom = f.From
	m.lastTo = f.To
	return m.resp, m.err
}

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(s, nil, nil, nil)
	return h.InitRoutes()
}
