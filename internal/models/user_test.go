package models

import (
	apperrors "EcoWatch/pkg/errors"
	"EcoWatch/pkg/middleware"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndAuthenticate(t *testing.T) {
	db := newTestDB(t)
	u, err := CreateUser(db, "asha", "asha@example.com", "secret1", "  Chennai ")
	require.NoError(t, err)
	assert.Equal(t, "chennai", u.CityKey)
	assert.Equal(t, UnitsMetric, u.PreferredUnits)
	assert.True(t, u.NotificationsEnabled)
	require.NotNil(t, u.Profile)
	assert.NotEqual(t, "secret1", u.Password)

	_, err = CreateUser(db, "asha", "", "secret2", "")
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
	_, err = CreateUser(db, "ravi", "", "123", "")
	assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))

	got, err := Authenticate(db, "asha", "secret1")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = Authenticate(db, "asha", "wrong")
	assert.True(t, apperrors.IsKind(err, apperrors.KindPermissionDenied))
	_, err = Authenticate(db, "nobody", "secret1")
	assert.True(t, apperrors.IsKind(err, apperrors.KindPermissionDenied))
}

func TestUpdateProfileValidation(t *testing.T) {
	db := newTestDB(t)
	u, err := CreateUser(db, "asha", "", "secret1", "Chennai")
	require.NoError(t, err)

	cases := []ProfileUpdate{
		{PreferredUnits: ptr("kelvin")},
		{Latitude: ptr(91.0)},
		{Longitude: ptr(-180.5)},
		{Bio: ptr(string(make([]rune, 501)))},
	}
	for _, c := range cases {
		_, err := UpdateProfile(db, u.ID, c)
		assert.True(t, apperrors.IsKind(err, apperrors.KindValidation))
	}

	updated, err := UpdateProfile(db, u.ID, ProfileUpdate{
		City:                 ptr("New  Delhi"),
		PreferredUnits:       ptr(UnitsImperial),
		NotificationsEnabled: ptr(false),
		Bio:                  ptr("hello"),
		Latitude:             ptr(28.6),
		Longitude:            ptr(77.2),
	})
	require.NoError(t, err)
	assert.Equal(t, "new delhi", updated.CityKey)
	assert.True(t, updated.Imperial())
	assert.False(t, updated.NotificationsEnabled)
	assert.Equal(t, "hello", updated.Profile.Bio)

	reloaded, err := GetUserByID(db, u.ID)
	require.NoError(t, err)
	assert.False(t, reloaded.NotificationsEnabled)
	require.NotNil(t, reloaded.Profile)
	assert.InDelta(t, 28.6, *reloaded.Profile.Latitude, 1e-9)

	_, err = UpdateProfile(db, 999, ProfileUpdate{})
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestDeleteUserCascades(t *testing.T) {
	db := newTestDB(t)
	u, err := CreateUser(db, "asha", "", "secret1", "Chennai")
	require.NoError(t, err)
	require.NoError(t, CreateUserAlert(db, &UserAlert{UserID: u.ID, Title: "t"}))

	require.NoError(t, DeleteUser(db, u.ID))
	var profiles, alerts int64
	db.Model(&Profile{}).Where("user_id = ?", u.ID).Count(&profiles)
	db.Model(&UserAlert{}).Where("user_id = ?", u.ID).Count(&alerts)
	assert.Zero(t, profiles)
	assert.Zero(t, alerts)

	assert.True(t, apperrors.IsKind(DeleteUser(db, u.ID), apperrors.KindNotFound))
}

func TestCityQueries(t *testing.T) {
	db := newTestDB(t)
	_, err := CreateUser(db, "a", "", "secret1", "Chennai")
	require.NoError(t, err)
	_, err = CreateUser(db, "b", "", "secret1", "chennai ")
	require.NoError(t, err)
	c, err := CreateUser(db, "c", "", "secret1", "Mumbai")
	require.NoError(t, err)
	_, err = CreateUser(db, "d", "", "secret1", "")
	require.NoError(t, err)
	_, err = UpdateProfile(db, c.ID, ProfileUpdate{NotificationsEnabled: ptr(false)})
	require.NoError(t, err)

	cities, err := DistinctUserCities(db)
	require.NoError(t, err)
	assert.Len(t, cities, 2)

	users, err := UsersToNotify(db, "chennai")
	require.NoError(t, err)
	assert.Len(t, users, 2)
	users, err = UsersToNotify(db, "mumbai")
	require.NoError(t, err)
	assert.Empty(t, users)

	n, err := CountUsers(db)
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)
}

func TestAuthRequiredSession(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	u, err := CreateUser(db, "asha", "", "secret1", "Chennai")
	require.NoError(t, err)

	r := gin.New()
	r.Use(sessions.Sessions("eco", cookie.NewStore([]byte("test-secret"))))
	r.Use(middleware.InjectDB(db))
	r.POST("/login", func(c *gin.Context) {
		require.NoError(t, Login(c, u))
		c.Status(http.StatusOK)
	})
	r.GET("/me", AuthRequired, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": CurrentUser(c).ID})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/me", nil))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
	require.Equal(t, http.StatusOK, w.Code)
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	for _, ck := range cookies {
		req.AddCookie(ck)
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":1}`, w.Body.String())
}

func TestCurrentUserWithoutUsableDB(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db := newTestDB(t)
	u, err := CreateUser(db, "asha", "", "secret1", "Chennai")
	require.NoError(t, err)

	r := gin.New()
	r.Use(sessions.Sessions("eco", cookie.NewStore([]byte("test-secret"))))
	r.Use(func(c *gin.Context) { c.Set(middleware.DbField, "not a db") })
	r.POST("/login", func(c *gin.Context) {
		require.NoError(t, Login(c, u))
		c.Status(http.StatusOK)
	})
	r.GET("/who", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"anonymous": CurrentUser(c) == nil})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/login", nil))
	require.Equal(t, http.StatusOK, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/who", nil)
	for _, ck := range w.Result().Cookies() {
		req.AddCookie(ck)
	}
	w = httptest.NewRecorder()
	require.NotPanics(t, func() { r.ServeHTTP(w, req) })
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"anonymous":true}`, w.Body.String())
}
