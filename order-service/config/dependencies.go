package config

import (
	"context"
	"fmt"
	"log"

	"github.com/brewhub/order-system/order-service/application"
	"github.com/brewhub/order-system/order-service/handlers"
	"github.com/brewhub/order-system/order-service/infrastructure"
	sharedinfra "github.com/brewhub/order-system/shared/infrastructure"
	"github.com/brewhub/order-system/shared/telemetry"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

type Dependencies struct {
	// Database
	DB *sqlx.DB

	// Repositories
	StatusStore     *infrastructure.PostgresStatusStore
	OrderRepository *infrastructure.PostgresOrderRepository

	// External services
	IdentityClient *infrastructure.HTTPIdentityClient

	// Use Cases
	PlaceOrder         *application.PlaceOrder
	GetOrder           *application.GetOrder
	ListOrders         *application.ListOrders
	ListPendingWork    *application.ListPendingWork
	GetWorkItem        *application.GetWorkItem
	SecureOrder        *application.SecureOrder
	AdvanceOrderStatus *application.AdvanceOrderStatus
	ApplyTransition    *application.ApplyTransition
	CommitTransition   *application.CommitTransition

	// HTTP Handlers
	OrderHandlers *handlers.OrderHandlers

	// Event Handlers
	RequestHandlers      *handlers.TransitionRequestHandlers
	ConfirmationHandlers *handlers.TransitionConfirmationHandlers

	// Infrastructure
	RequestPublisher       *sharedinfra.SQSQueuePublisher
	ConfirmationPublisher  *sharedinfra.SQSQueuePublisher
	NotificationPublisher  *sharedinfra.SNSEventPublisher
	RequestSubscriber      *sharedinfra.SQSSubscriberAdapter
	ConfirmationSubscriber *sharedinfra.SQSSubscriberAdapter

	// Telemetry
	Telemetry         *telemetry.Telemetry
	TelemetryShutdown func()
}

func BuildDependencies(ctx context.Context, config *Config) (*Dependencies, error) {
	deps := &Dependencies{}

	// Initialize telemetry first
	if config.Telemetry.Enabled {
		telConfig := telemetry.OrderServiceConfig.
			WithOTLPEndpoint(config.Telemetry.OTLPEndpoint).
			WithEnvironment(config.Env)
		tel, telemetryShutdown, err := telemetry.InitTelemetry(ctx, telConfig)
		if err != nil {
			log.Printf("Failed to initialize telemetry: %v", err)
			// Continue without telemetry rather than failing
		} else {
			deps.Telemetry = tel
			deps.TelemetryShutdown = telemetryShutdown
		}
	}

	// Initialize database
	db, err := sqlx.Connect("postgres", config.GetDatabaseURL())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	deps.DB = db

	// Initialize AWS infrastructure. The two queue publishers are the saga
	// channels; the SNS publisher is the external notification fan-out.
	requestPublisher, err := sharedinfra.NewSQSPublisherAdapter(config.AWS.TransitionRequestQueueURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create transition request publisher: %w", err)
	}
	deps.RequestPublisher = requestPublisher

	confirmationPublisher, err := sharedinfra.NewSQSPublisherAdapter(config.AWS.ConfirmationQueueURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create confirmation publisher: %w", err)
	}
	deps.ConfirmationPublisher = confirmationPublisher

	notificationPublisher, err := sharedinfra.NewSNSPublisherAdapter(config.AWS.NotificationTopicArn)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification publisher: %w", err)
	}
	deps.NotificationPublisher = notificationPublisher

	requestSubscriber, err := sharedinfra.NewSQSSubscriberAdapter(config.AWS.TransitionRequestQueueURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create transition request subscriber: %w", err)
	}
	deps.RequestSubscriber = requestSubscriber

	confirmationSubscriber, err := sharedinfra.NewSQSSubscriberAdapter(config.AWS.ConfirmationQueueURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create confirmation subscriber: %w", err)
	}
	deps.ConfirmationSubscriber = confirmationSubscriber

	// Initialize repositories and external services
	deps.StatusStore = infrastructure.NewPostgresStatusStore(db)
	deps.OrderRepository = infrastructure.NewPostgresOrderRepository(db)
	deps.IdentityClient = infrastructure.NewHTTPIdentityClient(config.Identity.BaseURL)

	// Initialize use cases
	deps.PlaceOrder = application.NewPlaceOrder(deps.OrderRepository, deps.StatusStore, deps.IdentityClient, notificationPublisher)
	deps.GetOrder = application.NewGetOrder(deps.OrderRepository, deps.StatusStore)
	deps.ListOrders = application.NewListOrders(deps.OrderRepository)
	deps.ListPendingWork = application.NewListPendingWork(deps.OrderRepository, deps.IdentityClient)
	deps.GetWorkItem = application.NewGetWorkItem(deps.OrderRepository, deps.IdentityClient)
	deps.SecureOrder = application.NewSecureOrder(deps.StatusStore, deps.OrderRepository, deps.IdentityClient, requestPublisher)
	deps.AdvanceOrderStatus = application.NewAdvanceOrderStatus(deps.StatusStore, deps.IdentityClient, requestPublisher)
	deps.ApplyTransition = application.NewApplyTransition(deps.OrderRepository, confirmationPublisher)
	deps.CommitTransition = application.NewCommitTransition(deps.StatusStore, notificationPublisher)

	// Initialize handlers
	deps.OrderHandlers = handlers.NewOrderHandlers(
		deps.PlaceOrder,
		deps.GetOrder,
		deps.ListOrders,
		deps.ListPendingWork,
		deps.GetWorkItem,
		deps.SecureOrder,
		deps.AdvanceOrderStatus,
	)
	deps.RequestHandlers = handlers.NewTransitionRequestHandlers(deps.ApplyTransition)
	deps.ConfirmationHandlers = handlers.NewTransitionConfirmationHandlers(deps.CommitTransition)

	return deps, nil
}

// Close closes all dependencies
func (d *Dependencies) Close() error {
	var errs []error

	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		}
	}

	if d.RequestSubscriber != nil {
		if err := d.RequestSubscriber.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close request subscriber: %w", err))
		}
	}

	if d.ConfirmationSubscriber != nil {
		if err := d.ConfirmationSubscriber.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close confirmation subscriber: %w", err))
		}
	}

	if d.TelemetryShutdown != nil {
		d.TelemetryShutdown()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing dependencies: %v", errs)
	}

	return nil
}
