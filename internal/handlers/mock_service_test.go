package handlers

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"smart_environment/internal/assets"
	"smart_environment/internal/chart"
	"smart_environment/internal/models"
	"smart_environment/internal/service"

	"github.com/gin-gonic/gin"
)

// ---- Service Mocks ----

type mockAuth struct {
	signUpID      int
	signUpErr     error
	genTokenToken string
	genTokenErr   error
	parseID       int
	parseErr      error
	ttl           time.Duration

	lastSignUpUsername string
	lastSignUpPassword string
	lastGenUsername    string
	lastGenPassword    string
	lastParseToken     string
}

func (m *mockAuth) SignUp(_ context.Context, username, password string) (int, error) {
	m.lastSignUpUsername = username
	m.lastSignUpPassword = password
	return m.signUpID, m.signUpErr
}
func (m *mockAuth) GenerateToken(_ context.Context, username, password string) (string, error) {
	m.lastGenUsername = username
	m.lastGenPassword = password
	return m.genTokenToken, m.genTokenErr
}
func (m *mockAuth) ParseToken(token string) (int, error) {
	m.lastParseToken = token
	if m.parseErr == nil && m.genTokenToken != "" && token != m.genTokenToken {
		return 0, service.ErrInvalidToken
	}
	return m.parseID, m.parseErr
}
func (m *mockAuth) TokenTTL() time.Duration { return m.ttl }

// mockDashboard is shared with websocket goroutines, hence the mutex.
type mockDashboard struct {
	mu          sync.Mutex
	sample      *models.Sample
	insight     *models.Insight
	chart       []models.Sample
	status      models.PollingStatus
	refreshErr  error
	renderErr   error
	refreshes   int
	lastOptions chart.Options
}

func (m *mockDashboard) CurrentSample() (models.Sample, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sample == nil {
		return models.Sample{}, false
	}
	return *m.sample, true
}
func (m *mockDashboard) CurrentInsight() (models.Insight, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insight == nil {
		return models.Insight{}, false
	}
	return *m.insight, true
}
func (m *mockDashboard) ChartSnapshot() []models.Sample {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Sample(nil), m.chart...)
}
func (m *mockDashboard) RefreshNow(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshes++
	return m.refreshErr
}
func (m *mockDashboard) View() models.DashboardView {
	m.mu.Lock()
	defer m.mu.Unlock()
	return models.DashboardView{
		Sample:  m.sample,
		Insight: m.insight,
		Chart:   append([]models.Sample(nil), m.chart...),
		Status:  m.status,
	}
}
func (m *mockDashboard) RenderChart(w io.Writer, opts chart.Options) error {
	m.mu.Lock()
	m.lastOptions = opts
	err := m.renderErr
	m.mu.Unlock()
	if err != nil {
		return err
	}
	_, werr := w.Write([]byte("\x89PNG\r\n\x1a\nfake"))
	return werr
}
func (m *mockDashboard) refreshCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshes
}

type mockPolling struct {
	startErr     error
	setModeErr   error
	mode         models.Mode
	status       models.PollingStatus
	lastInterval time.Duration
	startCalled  int
	stopCalled   int
	setModeCalls int
}

func (m *mockPolling) Start(interval time.Duration) error {
	m.startCalled++
	m.lastInterval = interval
	return m.startErr
}
func (m *mockPolling) Stop() { m.stopCalled++ }
func (m *mockPolling) SetMode(mode models.Mode) error {
	m.setModeCalls++
	if m.setModeErr != nil {
		return m.setModeErr
	}
	m.mode = mode
	return nil
}
func (m *mockPolling) Mode() models.Mode            { return m.mode }
func (m *mockPolling) Status() models.PollingStatus { return m.status }

type mockEventLog struct {
	resp      []models.DashboardEvent
	err       error
	lastFrom  time.Time
	lastTo    time.Time
	lastType  string
	lastLimit int
	calls     int
}

func (m *mockEventLog) List(ctx context.Context, f service.LogFilter) ([]models.DashboardEvent, error) {
	m.calls++
	m.lastLimit = f.Limit
	m.lastFrom = f.From
	m.lastTo = f.To
	m.lastType = f.Type
	return m.resp, m.err
}

type mockOfflineCache struct {
	name       string
	assets     map[string]models.Asset
	hit        bool
	serveErr   error
	installErr error
	paths      []string
	installs   int
	lastPath   string

	installBudget time.Duration
}

func (m *mockOfflineCache) Install(ctx context.Context) error {
	m.installs++
	if d, ok := ctx.Deadline(); ok {
		m.installBudget = time.Until(d)
	}
	return m.installErr
}
func (m *mockOfflineCache) Serve(_ context.Context, p string) (models.Asset, bool, error) {
	m.lastPath = p
	if m.serveErr != nil {
		return models.Asset{}, false, m.serveErr
	}
	a, ok := m.assets[p]
	if !ok {
		return models.Asset{}, false, assets.ErrNotFound
	}
	return a, m.hit, nil
}
func (m *mockOfflineCache) Paths(context.Context) ([]string, error) { return m.paths, nil }
func (m *mockOfflineCache) Name() string                            { return m.name }

// ---- Shared Test Helpers ----

func newTestRouter(s *service.Service, opts ...Option) *gin.Engine {
	h := NewHandler(s, nil, opts...)
	gin.SetMode(gin.TestMode)
	return h.InitRoutes()
}

func authHeader(token string) http.Header {
	h := http.Header{}
	if token != "" {
		h.Set("Authorization", "Bearer "+token)
	}
	return h
}
