package app

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/microcart/internal/backend"
	"github.com/vladislavdragonenkov/microcart/internal/domain"
	healthcheck "github.com/vladislavdragonenkov/microcart/internal/health"
	"github.com/vladislavdragonenkov/microcart/internal/identity"
	"github.com/vladislavdragonenkov/microcart/internal/mail"
	"github.com/vladislavdragonenkov/microcart/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/microcart/internal/render"
	"github.com/vladislavdragonenkov/microcart/internal/storage/memory"
	"github.com/vladislavdragonenkov/microcart/internal/storage/postgres"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// runtimeDependencies — собранные по конфигурации адаптеры сервиса.
type runtimeDependencies struct {
	store    domain.CartStore
	notifier domain.Notifier
	renderer domain.Renderer
	identity domain.IdentityContext
	events   domain.EventPublisher

	backend  *backend.Client
	postgres *postgres.Store
	producer *kafka.Producer
}

// initRuntimeDependencies выбирает реализации хранилища, почты и событий
// по драйверам из конфигурации.
func initRuntimeDependencies(ctx context.Context, cfg Config, logger *log.Entry) (*runtimeDependencies, error) {
	if logger == nil {
		logger = log.WithField("component", "app")
	}
	deps := &runtimeDependencies{}

	if cfg.StoreDriver == StoreDriverBackend || cfg.MailDriver == MailDriverBackend {
		retry := backend.DefaultRetryConfig()
		retry.MaxAttempts = cfg.BackendRetries
		client, err := backend.NewClient(cfg.BackendURL,
			backend.WithTimeout(cfg.BackendTimeout),
			backend.WithRetry(retry),
			backend.WithLogger(logger.WithField("layer", "backend")),
		)
		if err != nil {
			return nil, err
		}
		deps.backend = client
	}

	if err := deps.initStore(ctx, cfg, logger); err != nil {
		deps.close(logger)
		return nil, err
	}
	if err := deps.initNotifier(cfg, logger); err != nil {
		deps.close(logger)
		return nil, err
	}

	renderer, err := render.New(cfg.PaymentInfoTemplate)
	if err != nil {
		deps.close(logger)
		return nil, fmt.Errorf("init renderer: %w", err)
	}
	deps.renderer = renderer

	if cfg.IdentityURL != "" {
		client, err := identity.NewSCIMClient(cfg.IdentityURL, nil, logger.WithField("layer", "identity"))
		if err != nil {
			deps.close(logger)
			return nil, err
		}
		deps.identity = client
	} else {
		deps.identity = identity.Static{}
	}

	// Kafka необязательна: ошибка подключения уже залогирована.
	if producer, _ := initKafkaProducer(cfg.KafkaBrokers, logger); producer != nil {
		deps.producer = producer
		deps.events = kafka.NewOrderEventPublisher(producer, cfg.KafkaTopic)
	}

	return deps, nil
}

func (d *runtimeDependencies) initStore(ctx context.Context, cfg Config, logger *log.Entry) error {
	switch cfg.StoreDriver {
	case StoreDriverBackend:
		d.store = d.backend
	case StoreDriverMemory:
		d.store = memory.NewCartStore()
	case StoreDriverPostgres:
		if cfg.PostgresDSN == "" {
			return fmt.Errorf("postgres store requires dsn")
		}
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return err
		}
		d.postgres = store
		if cfg.PostgresAutoMigrate {
			if err := store.MigrateUp(ctx, 0); err != nil {
				return fmt.Errorf("auto-migrate postgres: %w", err)
			}
		}
		d.store = postgres.NewCartStore(store)
	default:
		return fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}

	logger.WithField("store_driver", cfg.StoreDriver).Info("cart store initialized")
	return nil
}

func (d *runtimeDependencies) initNotifier(cfg Config, logger *log.Entry) error {
	switch cfg.MailDriver {
	case MailDriverBackend:
		d.notifier = d.backend
	case MailDriverMemory:
		d.notifier = memory.NewMailbox()
	case MailDriverSendGrid:
		notifier, err := mail.NewSendGridNotifier(mail.Config{
			APIKey:      cfg.SendGridAPIKey,
			ShopAddress: cfg.ShopMailAddress,
			ShopName:    cfg.ShopName,
		}, logger.WithField("layer", "sendgrid"))
		if err != nil {
			return err
		}
		d.notifier = notifier
	default:
		return fmt.Errorf("unsupported mail driver %q", cfg.MailDriver)
	}

	logger.WithField("mail_driver", cfg.MailDriver).Info("mail transport initialized")
	return nil
}

// registerHealthChecks подключает проверку хранилища (критичная) и почтового
// транспорта (некритичная).
func (d *runtimeDependencies) registerHealthChecks(handler *healthcheck.Handler) {
	if p, ok := d.store.(pinger); ok {
		handler.RegisterChecker("store", healthcheck.NewPingChecker("store", p.Ping))
	}
	if p, ok := d.notifier.(pinger); ok {
		handler.RegisterChecker("mail", healthcheck.NewOptionalChecker("mail", p.Ping))
	}
}

func (d *runtimeDependencies) close(logger *log.Entry) {
	closeKafka(d.producer, logger)
	if d.postgres != nil {
		if err := d.postgres.Close(); err != nil {
			logger.WithError(err).Warn("failed to close postgres store")
		}
	}
}
