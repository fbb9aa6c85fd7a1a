package main

import (
	handlers "EcoWatch/internal/handler"
	"EcoWatch/internal/listeners"
	"EcoWatch/internal/models"
	"EcoWatch/internal/provider"
	"EcoWatch/internal/services"
	"EcoWatch/pkg/backup"
	"EcoWatch/pkg/cache"
	"EcoWatch/pkg/config"
	"EcoWatch/pkg/i18n"
	"EcoWatch/pkg/logger"
	"EcoWatch/pkg/metrics"
	"EcoWatch/pkg/middleware"
	"EcoWatch/pkg/notification"
	"EcoWatch/pkg/scheduler"
	"EcoWatch/pkg/search"
	"EcoWatch/pkg/storage"
	"EcoWatch/pkg/util"
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/ulule/limiter/v3"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := logger.Init(cfg.Log, cfg.Mode); err != nil {
		log.Fatalf("init logger: %v", err)
	}
	defer logger.Sync()
	gin.SetMode(cfg.Mode)

	if err := run(cfg); err != nil {
		logger.Error("server exited", zap.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := util.InitDatabase(util.DBOptions{
		Driver:        cfg.DBDriver,
		DSN:           cfg.DSN,
		LogLevel:      cfg.DBLogLevel,
		SlowThreshold: 200 * time.Millisecond,
	})
	if err != nil {
		return err
	}
	if err := models.Migrate(db); err != nil {
		return err
	}
	if n, err := models.SeedTips(db); err != nil {
		logger.Warn("seed eco tips failed", zap.Error(err))
	} else if n > 0 {
		logger.Info("eco tips seeded", zap.Int("count", n))
	}

	readingCache, err := cache.NewCache(cfg.Cache)
	if err != nil {
		return err
	}
	defer readingCache.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetricsWith(reg, reg)

	tr, err := i18n.NewI18nSupport(cfg.LanguageDefault)
	if err != nil {
		return err
	}

	tipIndex, err := search.NewTipEngine(search.Config{QueryTimeout: 2 * time.Second})
	if err != nil {
		return err
	}
	defer tipIndex.Close()

	clock := clockwork.NewRealClock()
	src := provider.New(provider.Options{
		BaseURL:        cfg.ProviderBaseURL,
		APIKey:         cfg.ProviderAPIKey,
		WaterSourceURL: cfg.WaterSourceURL,
		Timeout:        cfg.ProviderTimeout,
		Seed:           cfg.SyntheticSeed,
		Slot:           cfg.FreshnessTTL,
	}, clock, m)
	svc := services.New(db, src, services.Options{
		DefaultCity:  cfg.DefaultCity,
		FreshnessTTL: cfg.FreshnessTTL,
		Thresholds:   models.Thresholds{Watch: cfg.WaterWatch, Warning: cfg.WaterWarning, Critical: cfg.WaterCritical},
		Clock:        clock,
		Cache:        readingCache,
		Metrics:      m,
		I18n:         tr,
		TipIndex:     tipIndex,
	})
	if n, err := svc.Tips.Reindex(ctx); err != nil {
		logger.Warn("index eco tips failed", zap.Error(err))
	} else {
		logger.Info("eco tips indexed", zap.Int("count", n))
	}

	store, err := storage.NewStore(cfg.Storage)
	if err != nil {
		return err
	}

	var geo *middleware.GeoLocator
	if cfg.GeoIPPath != "" {
		if geo, err = middleware.NewGeoLocator(cfg.GeoIPPath); err != nil {
			logger.Warn("geoip database unavailable", zap.String("path", cfg.GeoIPPath), zap.Error(err))
		} else {
			defer geo.Close()
		}
	}

	var limitStore limiter.Store
	if cfg.RateLimitStore == "redis" {
		client, err := cache.NewRedisClient(cfg.Cache.Redis)
		if err != nil {
			return err
		}
		defer client.Close()
		if limitStore, err = middleware.NewRedisStore(client); err != nil {
			return err
		}
	}
	rl := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		Rate:       cfg.RateLimit,
		AddHeaders: true,
		SkipPaths:  []string{cfg.APIPrefix + "/system/health", cfg.MetricsPath},
	}, limitStore).WithObserver(middleware.NewPrometheusObserver(reg))

	idem := middleware.NewMemoryIdemStore()
	go idem.GC(ctx, time.Minute)

	listeners.InitAlertListeners(db, notification.Multi{notification.LogNotifier{}})

	cr := scheduler.NewCron(time.Local)
	if _, err := cr.Add(cfg.RefreshSchedule, "refresh-readings", svc.Refresh); err != nil {
		return err
	}
	if cfg.BackupEnabled {
		b := backup.New(backup.Config{Driver: cfg.DBDriver, DSN: cfg.DSN, Dir: cfg.BackupPath, Keep: 7}, db)
		if _, err := cr.Add(cfg.BackupSchedule, "backup", b); err != nil {
			return err
		}
	}
	cr.Start()
	defer cr.Stop()

	engine := gin.New()
	engine.Use(gin.Recovery(), middleware.RequestID(), logger.GinLogger(), metrics.MonitorMiddleware(m))
	engine.Use(sessions.Sessions(cfg.SessionName, newSessionStore(cfg)))
	engine.Use(middleware.LanguageMiddleware(tr.Languages()...))
	engine.Use(rl.Middleware())

	if local, ok := store.(*storage.LocalStore); ok {
		engine.Static(cfg.Storage.PublicBase, local.Root())
	}
	engine.GET(cfg.MetricsPath, gin.WrapH(m.Handler()))

	handlers.NewHandlers(db, svc, handlers.Options{
		APIPrefix:    cfg.APIPrefix,
		APISecretKey: cfg.APISecretKey,
		Store:        store,
		Limiter:      rl,
		Geo:          geo,
		Metrics:      m,
		IdemStore:    idem,
	}).Register(engine)

	srv := &http.Server{Addr: cfg.Addr, Handler: engine, ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func newSessionStore(cfg *config.Config) sessions.Store {
	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   7 * 24 * 3600,
		HttpOnly: true,
		Secure:   cfg.Mode == gin.ReleaseMode,
		SameSite: http.SameSiteLaxMode,
	})
	return store
}
