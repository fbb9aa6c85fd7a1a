package handlers

import (
	"EcoWatch/internal/models"
	"EcoWatch/internal/provider"
	"EcoWatch/internal/services"
	"EcoWatch/pkg/i18n"
	"EcoWatch/pkg/metrics"
	"EcoWatch/pkg/middleware"
	"EcoWatch/pkg/storage"
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const testSecret = "test-api-secret"

func init() { gin.SetMode(gin.TestMode) }

type testServer struct {
	engine  *gin.Engine
	db      *gorm.DB
	metrics *metrics.Metrics
	store   *storage.LocalStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:  gormlogger.Discard,
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })
	require.NoError(t, models.Migrate(db))

	tr, err := i18n.NewI18nSupport("en")
	require.NoError(t, err)
	clock := clockwork.NewFakeClockAt(time.Date(2024, 6, 1, 12, 30, 0, 0, time.UTC))
	m := metrics.NewMetricsForTesting()
	svc := services.New(db, provider.NewSynthetic(42, 30*time.Minute, clock), services.Options{
		FreshnessTTL: 30 * time.Minute,
		Clock:        clock,
		Metrics:      m,
		I18n:         tr,
	})

	store, err := storage.NewLocalStore(t.TempDir(), "/uploads")
	require.NoError(t, err)

	engine := gin.New()
	engine.Use(sessions.Sessions("ecowatch", cookie.NewStore([]byte("test-session-secret"))))
	engine.Use(middleware.LanguageMiddleware(tr.Languages()...))
	NewHandlers(db, svc, Options{
		APISecretKey: testSecret,
		Store:        store,
		Metrics:      m,
	}).Register(engine)

	return &testServer{engine: engine, db: db, metrics: m, store: store}
}

func (s *testServer) do(t *testing.T, req *http.Request, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func (s *testServer) request(t *testing.T, method, target, body string, cookies []*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return s.do(t, req, cookies)
}

// register 注册并返回会话 cookie
func (s *testServer) register(t *testing.T, username, city string) []*http.Cookie {
	t.Helper()
	body := `{"username":"` + username + `","password":"secret123","city":"` + city + `"}`
	w := s.request(t, http.MethodPost, "/api/auth/register", body, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	return cookies
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestAuthFlow(t *testing.T) {
	s := newTestServer(t)

	w := s.request(t, http.MethodPost, "/api/auth/register", `{"username":"asha","password":"123"}`, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation_error", decode(t, w)["data"].(map[string]any)["kind"])

	cookies := s.register(t, "asha", "Chennai")

	w = s.request(t, http.MethodGet, "/api/auth/info", "", cookies)
	require.Equal(t, http.StatusOK, w.Code)
	user := decode(t, w)["data"].(map[string]any)
	assert.Equal(t, "asha", user["username"])
	assert.NotContains(t, user, "password")

	w = s.request(t, http.MethodGet, "/api/auth/info", "", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.request(t, http.MethodPost, "/api/auth/login", `{"username":"asha","password":"wrong-pass"}`, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.request(t, http.MethodPost, "/api/auth/login", `{"username":"asha","password":"secret123"}`, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Result().Cookies())

	w = s.request(t, http.MethodGet, "/api/auth/logout", "", cookies)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMarkAlertRead(t *testing.T) {
	s := newTestServer(t)
	owner := s.register(t, "owner", "Chennai")
	other := s.register(t, "other", "Chennai")

	var ownerID uint
	require.NoError(t, s.db.Model(&models.User{}).Where("username = ?", "owner").Pluck("id", &ownerID).Error)
	alert := &models.UserAlert{UserID: ownerID, AlertType: models.AlertTypeWaterLevel, Title: "High water"}
	require.NoError(t, models.CreateUserAlert(s.db, alert))
	target := "/api/alerts/" + strconv.Itoa(int(alert.ID)) + "/read"

	w := s.request(t, http.MethodGet, target, "", owner)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"Invalid request method"}`, w.Body.String())

	w = s.request(t, http.MethodPost, target, "", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, false, decode(t, w)["success"])

	w = s.request(t, http.MethodPost, "/api/alerts/abc/read", "", owner)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, decode(t, w)["success"])

	w = s.request(t, http.MethodPost, target, "", other)
	assert.Equal(t, http.StatusNotFound, w.Code)

	var reloaded models.UserAlert
	require.NoError(t, s.db.First(&reloaded, alert.ID).Error)
	assert.False(t, reloaded.IsRead)

	for i := 0; i < 2; i++ {
		w = s.request(t, http.MethodPost, target, "", owner)
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"success":true}`, w.Body.String())
	}
	require.NoError(t, s.db.First(&reloaded, alert.ID).Error)
	assert.True(t, reloaded.IsRead)

	w = s.request(t, http.MethodGet, "/api/alerts", "", owner)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, decode(t, w)["count"])

	var logs []middleware.ActivityLog
	require.NoError(t, s.db.Find(&logs).Error)
	assert.Len(t, logs, 2)
	assert.Equal(t, ownerID, logs[0].UserID)
}

func TestDashboardEndpoints(t *testing.T) {
	s := newTestServer(t)
	cookies := s.register(t, "ravi", "Mumbai")

	w := s.request(t, http.MethodGet, "/api/dashboard-data", "", cookies)
	require.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)
	assert.NotContains(t, data, "code")
	assert.NotNil(t, data["weather"])
	assert.NotNil(t, data["air_quality"])
	assert.NotEmpty(t, data["timestamp"])

	w = s.request(t, http.MethodGet, "/api/dashboard", "", cookies)
	require.Equal(t, http.StatusOK, w.Code)
	view := decode(t, w)["data"].(map[string]any)
	assert.Equal(t, "Mumbai", view["city"])

	w = s.request(t, http.MethodGet, "/api/dashboard", "", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.request(t, http.MethodGet, "/api/home", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestEcoTipsCategory(t *testing.T) {
	s := newTestServer(t)
	_, err := models.SeedTips(s.db)
	require.NoError(t, err)
	cookies := s.register(t, "meena", "Chennai")

	w := s.request(t, http.MethodGet, "/api/eco-tips?category=water", "", cookies)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode(t, w)["data"].(map[string]any)
	assert.Equal(t, "water", list["selected_category"])
	tips := list["tips"].([]any)
	require.NotEmpty(t, tips)
	for _, tip := range tips {
		assert.Equal(t, "water", tip.(map[string]any)["category"])
	}

	w = s.request(t, http.MethodGet, "/api/eco-tips?category=bogus", "", cookies)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func signedRequest(method, path, body string, ts time.Time) *http.Request {
	stamp := strconv.FormatInt(ts.Unix(), 10)
	req := httptest.NewRequest(method, path+"?timestamp="+stamp, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Signature", middleware.GenerateSignature(method, path, body, stamp, testSecret))
	return req
}

func TestUpdateWaterLevelSigned(t *testing.T) {
	s := newTestServer(t)
	city, level := "Chennai", 2.0
	change, err := models.UpsertWaterLevel(s.db, "Adyar River", models.WaterLevelUpdate{City: &city, CurrentLevel: &level},
		services.DefaultThresholds, time.Now())
	require.NoError(t, err)
	path := "/api/water-levels/" + strconv.Itoa(int(change.Level.ID))
	body := `{"current_level":5.2}`
	now := time.Now()

	w := s.do(t, signedRequest(http.MethodPut, path, body, now), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	updated := decode(t, w)["data"].(map[string]any)
	assert.Equal(t, 5.2, updated["current_level"])
	assert.Equal(t, string(models.StatusWarning), updated["alert_status"])

	w = s.do(t, signedRequest(http.MethodPut, path, body, now), nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	req := signedRequest(http.MethodPut, path, body, now.Add(time.Second))
	req.Header.Set("Signature", "forged")
	w = s.do(t, req, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(t, signedRequest(http.MethodPut, "/api/water-levels/9999", body, now.Add(2*time.Second)), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// critical 低于 warning，整条更新被拒绝
	unordered := `{"current_level":7,"watch_level":8,"warning_level":10,"critical_level":6}`
	w = s.do(t, signedRequest(http.MethodPut, path, unordered, now.Add(3*time.Second)), nil)
	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Equal(t, "validation_error", decode(t, w)["data"].(map[string]any)["kind"])
	stored, err := models.GetWaterLevel(s.db, change.Level.ID)
	require.NoError(t, err)
	assert.Equal(t, 5.2, stored.CurrentLevel)
	assert.Equal(t, models.StatusWarning, stored.AlertStatus)
}

func TestInvalidNumericQuery(t *testing.T) {
	s := newTestServer(t)
	cookies := s.register(t, "meena", "Chennai")

	w := s.request(t, http.MethodGet, "/api/alerts?limit=abc", "", cookies)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, false, decode(t, w)["success"])

	w = s.request(t, http.MethodGet, "/api/eco-tips/search?q=water&size=abc", "", cookies)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation_error", decode(t, w)["data"].(map[string]any)["kind"])

	w = s.request(t, http.MethodGet, "/api/community/reports?limit=ten", "", cookies)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.request(t, http.MethodGet, "/api/alerts?limit=5", "", cookies)
	assert.Equal(t, http.StatusOK, w.Code)
	w = s.request(t, http.MethodGet, "/api/community/reports", "", cookies)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUploadAvatar(t *testing.T) {
	s := newTestServer(t)
	cookies := s.register(t, "kavya", "Chennai")

	upload := func(contentType string) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		hdr := make(textproto.MIMEHeader)
		hdr.Set("Content-Disposition", `form-data; name="avatar"; filename="me.png"`)
		hdr.Set("Content-Type", contentType)
		part, err := mw.CreatePart(hdr)
		require.NoError(t, err)
		_, _ = part.Write([]byte("\x89PNG fake image"))
		require.NoError(t, mw.Close())
		req := httptest.NewRequest(http.MethodPost, "/api/profile/avatar", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		return s.do(t, req, cookies)
	}

	w := upload("text/plain")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = upload("image/png")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	url := decode(t, w)["data"].(map[string]any)["profile_picture"].(string)
	assert.True(t, strings.HasPrefix(url, "/uploads/avatars/"), url)

	ok, err := s.store.Exists(context.Background(), strings.TrimPrefix(url, "/uploads/"))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestUpdateProfile(t *testing.T) {
	s := newTestServer(t)
	cookies := s.register(t, "arun", "Chennai")

	w := s.request(t, http.MethodPut, "/api/profile", `{"city":"Delhi","preferred_units":"imperial"}`, cookies)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	user := decode(t, w)["data"].(map[string]any)
	assert.Equal(t, "Delhi", user["city"])
	assert.Equal(t, models.UnitsImperial, user["preferred_units"])

	w = s.request(t, http.MethodGet, "/api/profile", "", cookies)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Delhi", decode(t, w)["data"].(map[string]any)["city"])
}

func TestSystemRoutes(t *testing.T) {
	s := newTestServer(t)

	w := s.request(t, http.MethodGet, "/api/system/health", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "healthy", decode(t, w)["status"])

	w = s.request(t, http.MethodGet, "/api/system/docs", "", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, signedRequest(http.MethodPost, "/api/system/rate-limiter/config", `{"rate":"10-M"}`, time.Now()), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
