package app

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	"golang.org/x/sync/errgroup"

	"trips/auth"
	"trips/config"
	dbLib "trips/db"
	"trips/db/data_lake"
	"trips/db/store"
	"trips/dispatch"
	"trips/gate"
	"trips/http"
	"trips/lifecycle"
	"trips/pubsub"
	"trips/pubsub/bus"
	"trips/pubsub/command"
	"trips/pubsub/event"
	"trips/pubsub/outbox"
	"trips/ratelimit"
	"trips/ticketing"
)

type App struct {
	db              *sqlx.DB
	watermillRouter *message.Router
	httpServer      *http.Server
	bookings        *lifecycle.Lifecycle
	sweepInterval   time.Duration
	memoryLimiter   *ratelimit.MemoryLimiter
	pruneInterval   time.Duration
	traceProvider   *tracesdk.TracerProvider
}

func New(
	cfg config.Config,
	db *sqlx.DB,
	redisClient *redis.Client,
	notificationService event.NotificationService,
	paymentService command.PaymentService,
	traceProvider *tracesdk.TracerProvider,
) (App, error) {
	watermillLogger := log.NewWatermill(log.FromContext(context.Background()))

	redisPublisher := pubsub.NewRedisPublisher(redisClient, watermillLogger)
	redisSubscriber := pubsub.NewRedisSubscriber(redisClient, watermillLogger)

	eventBus, err := bus.NewEventBus(redisPublisher)
	if err != nil {
		return App{}, fmt.Errorf("failed to create event bus: %w", err)
	}

	commandBus, err := bus.NewCommandBus(redisPublisher)
	if err != nil {
		return App{}, fmt.Errorf("failed to create command bus: %w", err)
	}

	repo := store.NewPostgresStore(db, watermillLogger)
	dataLake := data_lake.NewDataLake(db)

	bookings := lifecycle.New(repo)
	issuer := ticketing.NewIssuer(repo, bookings, ticketCodec(cfg.Tickets))
	dispatcher := dispatch.New(bookings, issuer)

	var (
		limiter       gate.Limiter
		memoryLimiter *ratelimit.MemoryLimiter
	)
	switch {
	case cfg.RateLimit.Disabled:
		log.FromContext(context.Background()).Warn("Rate limiting is disabled")
	case cfg.RateLimit.Backend == "redis":
		limiter = ratelimit.NewRedisLimiter(redisClient, cfg.RateLimit.Limiter())
	default:
		memoryLimiter = ratelimit.NewMemoryLimiter(cfg.RateLimit.Limiter())
		limiter = memoryLimiter
	}

	requestGate := gate.NewDefault(auth.NewJWTVerifier(cfg.JWTSecret), limiter)

	watermillRouter, err := pubsub.NewWatermillRouter(
		outbox.NewPostgresSubscriber(db.DB, watermillLogger),
		redisPublisher,
		redisSubscriber,
		event.NewProcessorConfig(redisClient, watermillLogger),
		event.NewHandler(notificationService, commandBus),
		command.NewProcessorConfig(redisClient, watermillLogger),
		command.NewHandler(eventBus, paymentService),
		dataLake,
		watermillLogger,
	)
	if err != nil {
		return App{}, fmt.Errorf("failed to create watermill router: %w", err)
	}

	httpServer := http.NewServer(cfg.HTTPAddr, requestGate, dispatcher, dataLake)

	return App{
		db:              db,
		watermillRouter: watermillRouter,
		httpServer:      httpServer,
		bookings:        bookings,
		sweepInterval:   cfg.ActivitySweepInterval,
		memoryLimiter:   memoryLimiter,
		pruneInterval:   cfg.RateLimit.PruneInterval,
		traceProvider:   traceProvider,
	}, nil
}

func ticketCodec(cfg config.TicketsConfig) ticketing.Codec {
	if cfg.SigningSecret == "" {
		return ticketing.PlainCodec{}
	}
	return ticketing.Signed(ticketing.PlainCodec{}, cfg.SigningSecret)
}

func (a App) Run(ctx context.Context) error {
	if err := dbLib.InitializeDatabaseSchema(a.db); err != nil {
		return fmt.Errorf("failed to initialize database schema: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	if a.memoryLimiter != nil {
		g.Go(func() error {
			return a.memoryLimiter.RunPruning(ctx, a.pruneInterval)
		})
	}

	g.Go(func() error {
		return a.bookings.RunActivityStatusSweep(ctx, a.sweepInterval)
	})

	g.Go(func() error {
		<-ctx.Done()
		return a.traceProvider.Shutdown(context.Background())
	})

	g.Go(func() error {
		return a.watermillRouter.Run(ctx)
	})

	g.Go(func() error {
		// the app is not healthy before the router is ready
		<-a.watermillRouter.Running()

		return a.httpServer.Run(ctx)
	})

	return g.Wait()
}
