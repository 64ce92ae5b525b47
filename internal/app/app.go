package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/vladislavdragonenkov/microcart/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/microcart/internal/health"
	"github.com/vladislavdragonenkov/microcart/internal/metrics"
	"github.com/vladislavdragonenkov/microcart/internal/service/checkout"
	"github.com/vladislavdragonenkov/microcart/internal/version"
)

const shutdownTimeout = 5 * time.Second

// App — собранный сервис корзин: оркестратор и служебный HTTP-сервер.
type App struct {
	cfg      Config
	logger   *log.Entry
	deps     *runtimeDependencies
	health   *healthcheck.Handler
	gatherer prometheus.Gatherer
	checkout *checkout.Service
}

// New собирает зависимости по конфигурации. registerer == nil означает
// глобальный реестр prometheus.
func New(ctx context.Context, cfg Config, registerer prometheus.Registerer) (*App, error) {
	logger := log.WithField("component", "app")

	deps, err := initRuntimeDependencies(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	var gatherer prometheus.Gatherer = prometheus.DefaultGatherer
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	} else if g, ok := registerer.(prometheus.Gatherer); ok {
		gatherer = g
	}

	checkoutMetrics := metrics.NewCheckoutMetricsWithRegisterer(registerer)
	options := []checkout.Option{
		checkout.WithLogger(logger.WithField("layer", "checkout")),
		checkout.WithMetrics(checkoutMetrics),
	}
	if deps.events != nil {
		options = append(options, checkout.WithEventPublisher(deps.events))
	}
	service := checkout.NewService(deps.store, deps.notifier, deps.renderer, cfg.Checkout(), options...)

	health := healthcheck.NewHandler(version.GetVersion())
	deps.registerHealthChecks(health)

	return &App{
		cfg:      cfg,
		logger:   logger,
		deps:     deps,
		health:   health,
		gatherer: gatherer,
		checkout: service,
	}, nil
}

// Checkout возвращает оркестратор корзин.
func (a *App) Checkout() *checkout.Service {
	return a.checkout
}

// Identity возвращает источник профиля текущего пользователя.
func (a *App) Identity() domain.IdentityContext {
	return a.deps.identity
}

// Serve обслуживает /metrics и health-эндпоинты до отмены ctx.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.MetricsAddr,
		Handler:           a.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		a.logger.Infof("метрики доступны по адресу %s/metrics", a.cfg.MetricsAddr)
		a.logger.Infof("health checks: %s/healthz, %s/livez, %s/readyz", a.cfg.MetricsAddr, a.cfg.MetricsAddr, a.cfg.MetricsAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownHTTP(srv, a.logger)
		return nil
	})

	if err := group.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (a *App) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.gatherer, promhttp.HandlerOpts{}))
	mux.Handle("/healthz", a.health)
	mux.HandleFunc("/livez", healthcheck.LivenessHandler)
	mux.HandleFunc("/readyz", a.health.ReadinessHandler)
	return mux
}

// Close освобождает подключения к postgres и Kafka.
func (a *App) Close() {
	a.deps.close(a.logger)
}

// Run собирает приложение и обслуживает его до отмены ctx.
func Run(ctx context.Context, cfg Config) error {
	application, err := New(ctx, cfg, nil)
	if err != nil {
		return err
	}
	defer application.Close()

	return application.Serve(ctx)
}

// shutdownHTTP аккуратно останавливает HTTP-сервер.
func shutdownHTTP(srv *http.Server, logger *log.Entry) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.WithError(err).Warn("metrics shutdown with error")
	}
}
