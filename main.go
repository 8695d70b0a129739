package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"shortlink-be/internal/cache"
	"shortlink-be/internal/config"
	"shortlink-be/internal/controllers"
	"shortlink-be/internal/credential"
	"shortlink-be/internal/database"
	"shortlink-be/internal/geo"
	"shortlink-be/internal/jwt"
	"shortlink-be/internal/logger"
	"shortlink-be/internal/middleware"
	"shortlink-be/internal/repository"
	"shortlink-be/internal/repository/inmemory"
	"shortlink-be/internal/repository/postgres"
	"shortlink-be/internal/service"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.LogPretty)

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped with error")
	}
	log.Info().Msg("server stopped")
}

func run(cfg *config.Config, log zerolog.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.JWTSecret == "" {
		return errors.New("JWT_SECRET is required")
	}

	var closers []io.Closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			err = multierr.Append(err, closers[i].Close())
		}
	}()

	links, visits, closer, err := openStorage(ctx, cfg, log)
	if err != nil {
		return err
	}
	if closer != nil {
		closers = append(closers, closer)
	}

	// Redis cache is optional - continue without it if unavailable
	if cfg.RedisURL != "" {
		cacheClient, err := cache.NewRedisCache(ctx, cfg.RedisURL)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to Redis, continuing without cache")
		} else {
			log.Info().Msg("connected to Redis cache")
			closers = append(closers, cacheClient)
			links = cache.NewLinkRepository(links, cacheClient, log)
		}
	}

	names, err := geo.NewNameLookup()
	if err != nil {
		return err
	}

	var locator controllers.IPLocator
	if cfg.GeoIPDBPath != "" {
		ipLocator, err := geo.OpenIPLocator(cfg.GeoIPDBPath)
		if err != nil {
			log.Warn().Err(err).Msg("GeoIP disabled")
		} else {
			closers = append(closers, ipLocator)
			locator = ipLocator
		}
	}

	var recorder *service.VisitRecorder
	if cfg.VisitAsync {
		recorder = service.NewAsyncVisitRecorder(visits, names, log, cfg.VisitBufferSize)
	} else {
		recorder = service.NewVisitRecorder(visits, names, log)
	}

	tokens := jwt.NewJWTService(cfg.JWTSecret, time.Duration(cfg.JWTTTL)*time.Hour)

	// Initialize services
	linkService := service.NewLinkService(
		links,
		visits,
		credential.NewBcryptHasher(cfg.BcryptCost),
		recorder,
		service.LinkServiceOptions{CodeLength: cfg.CodeLength, CodeMaxAttempts: cfg.CodeMaxAttempts},
		log,
	)
	analyticsService := service.NewAnalyticsService(links, visits)

	if cfg.LogLevel != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := controllers.NewRouter(controllers.RouterConfig{
		Links:     controllers.NewLinkController(linkService, cfg.BaseURL),
		Shortener: controllers.NewShortenerController(linkService, locator),
		Analytics: controllers.NewAnalyticsController(analyticsService),
		QRCode:    controllers.NewQRCodeController(linkService, cfg.FrontendURL),
		Tokens:    tokens,
		Limits: controllers.RateLimiters{
			General:  middleware.NewRateLimiter(ctx, rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst),
			Shorten:  middleware.NewRateLimiter(ctx, rate.Limit(cfg.RateLimitShortenRPS), cfg.RateLimitShortenBurst),
			Redirect: middleware.NewRateLimiter(ctx, rate.Limit(cfg.RateLimitRedirectRPS), cfg.RateLimitRedirectBurst),
		},
		Log: log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// Stopped only once the server has drained in-flight requests.
	recorderCtx, stopRecorder := context.WithCancel(context.WithoutCancel(ctx))
	defer stopRecorder()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down gracefully")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		defer stopRecorder()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return recorder.Run(recorderCtx)
	})

	return g.Wait()
}

// openStorage selects Postgres when DATABASE_URL is set and the in-memory store otherwise
func openStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (repository.LinkRepository, repository.VisitRepository, io.Closer, error) {
	if cfg.DatabaseURL == "" {
		log.Warn().Msg("DATABASE_URL not set, using in-memory storage")
		return inmemory.NewLinkStorage(), inmemory.NewVisitStorage(), nil, nil
	}

	db, err := database.NewConnection(ctx, cfg.DatabaseURL, log)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := database.RunMigrations(db, log); err != nil {
		return nil, nil, nil, multierr.Append(err, db.Close())
	}
	return postgres.NewLinkRepository(db), postgres.NewVisitRepository(db), db, nil
}
