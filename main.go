package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"

	"quiettime/admin"
	"quiettime/analytics"
	"quiettime/auth"
	"quiettime/cache"
	"quiettime/clock"
	"quiettime/common"
	"quiettime/database"
	"quiettime/engagement"
	"quiettime/logging"
	"quiettime/reader"
	"quiettime/site"
	"quiettime/store"
)

func main() {
	cfg, err := common.LoadConfig(".env")
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}

	logger := logging.New(cfg.LogLevel)
	ctx := context.Background()
	fatal := func(msg string, args ...any) {
		logger.Error(ctx, msg, args...)
		os.Exit(1)
	}

	db, err := common.ConnectDb(cfg.SqliteDB, logger)
	if err != nil {
		fatal("failed to connect to database", "err", err)
	}

	if err := database.RunMigrations(db, logger); err != nil {
		fatal("failed to run migrations", "err", err)
	}

	clk := clock.Real()
	entries := store.NewGormStore(db, clk)
	analyticsModule := analytics.NewAnalyticsModule(common.ConnectAnalyticsDb(cfg.AnalyticsDB, logger), clk, logger)
	tracker := engagement.NewTracker(entries, clk, logger, engagement.WithOnCounted(analyticsModule.RecordRead))

	pages := cache.NewPageCache(cfg.CacheDir, cfg.CacheMaxAge)
	if err := pages.ClearAll(); err != nil {
		logger.Warn(ctx, "clearing page cache failed", "err", err)
	}
	sweepCache(pages, clk, cfg, logger)

	allow := auth.DefaultAllowList()
	if len(allow) == 0 {
		logger.Warn(ctx, "no author emails compiled in, nobody can write")
	}
	gate := auth.NewGate(allow, auth.NewSessions())

	providers := admin.Providers{}
	if cfg.GoogleEnabled() {
		providers.Google = auth.NewGoogleProvider(auth.GoogleConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
		})
	}
	providers.Local, err = auth.ParseLocalAuthors(cfg.LocalAuthors)
	if err != nil {
		fatal("invalid LOCAL_AUTHORS", "err", err)
	}

	router := gin.Default()

	sessionStore := cookie.NewStore([]byte(cfg.SessionSecret))
	sessionStore.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		Secure:   cfg.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})

	router.Use(sessions.Sessions("quiettime-session", sessionStore))
	router.Use(gate.Middleware())

	router.LoadHTMLGlob("*/views/*.html")

	readerModule := reader.NewReaderModule(entries, tracker, pages, clk, logger, reader.SiteInfo{
		Title: cfg.SiteTitle,
		Intro: cfg.SiteIntro,
	})
	readerModule.RegisterRoutes(router)

	adminModule := admin.NewAdminModule(entries, gate, providers, analyticsModule, pages, clk, logger)
	adminModule.RegisterRoutes(router)

	siteModule := site.NewSiteModule(entries, cfg.Domain, logger)
	siteModule.RegisterRoutes(router)

	logger.Info(ctx, "starting server", "port", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		fatal("failed to start server", "err", err)
	}
}

// sweepCache removes expired page files every CacheMaxAge.
func sweepCache(pages *cache.PageCache, clk clock.Clock, cfg *common.Config, logger logging.Logger) {
	if cfg.CacheMaxAge <= 0 {
		return
	}
	var sweep func()
	sweep = func() {
		if err := pages.ClearOldCache(); err != nil {
			logger.Warn(context.Background(), "sweeping page cache failed", "err", err)
		}
		clk.AfterFunc(cfg.CacheMaxAge, sweep)
	}
	clk.AfterFunc(cfg.CacheMaxAge, sweep)
}
