package logger

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestInitRejectsUnknownLevel(t *testing.T) {
	err := Init(LogConfig{Level: "loud"}, gin.ReleaseMode)
	assert.Error(t, err)
}

func TestInitWithFile(t *testing.T) {
	defer Replace(nil)
	file := filepath.Join(t.TempDir(), "eco.log")
	require.NoError(t, Init(LogConfig{Level: "debug", Filename: file}, gin.DebugMode))
	Info("hello", zap.String("k", "v"))
	Sync()
	assert.FileExists(t, file)
}

func TestGinLoggerRecordsRequest(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zapcore.InfoLevel)
	Replace(zap.New(core))
	defer Replace(nil)

	r := gin.New()
	r.Use(GinLogger())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ping?x=1", nil))

	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "request", entry.Message)
	assert.Equal(t, "/ping", entry.ContextMap()["path"])
	assert.Equal(t, int64(http.StatusOK), entry.ContextMap()["status"])
}
