package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/go-event-driven/common/clients"
	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/jessevdk/go-flags"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"trips/app"
	"trips/auth"
	"trips/config"
	"trips/gateway"
	"trips/pubsub"
	"trips/pubsub/command"
	"trips/pubsub/event"
	"trips/tracing"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			fmt.Println(err)
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	log.Init(level)

	if cfg.IssueToken != "" {
		issueToken(cfg)
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	traceProvider, err := tracing.ConfigureTraceProvider(cfg.JaegerEndpoint, cfg.GatewayAddr)
	if err != nil {
		panic(err)
	}
	tracing.InstrumentHTTPClient()

	traceDB, err := otelsql.Open("postgres", cfg.PostgresURL,
		otelsql.WithAttributes(semconv.DBSystemPostgreSQL),
		otelsql.WithDBName("trips"),
	)
	if err != nil {
		panic(err)
	}
	db := sqlx.NewDb(traceDB, "postgres")
	defer db.Close()

	redisClient := pubsub.NewRedisClient(cfg.RedisAddr)
	defer redisClient.Close()

	notifications, payments := gatewayServices(cfg.GatewayAddr)

	a, err := app.New(cfg, db, redisClient, notifications, payments, traceProvider)
	if err != nil {
		panic(err)
	}

	if err := a.Run(ctx); err != nil {
		panic(err)
	}
}

func gatewayServices(addr string) (event.NotificationService, command.PaymentService) {
	if addr == "" {
		log.FromContext(context.Background()).Warn("No gateway configured, notifications and refunds are only logged")
		return gateway.LoggingNotifier{}, gateway.LoggingPayments{}
	}

	apiClients, err := clients.NewClients(addr, func(ctx context.Context, req *http.Request) error {
		req.Header.Set("Correlation-ID", log.CorrelationIDFromContext(ctx))
		return nil
	})
	if err != nil {
		panic(err)
	}

	return gateway.NewNotificationClient(apiClients), gateway.NewPaymentClient(apiClients)
}

func issueToken(cfg config.Config) {
	identity, err := cfg.TokenIdentity()
	if err != nil {
		panic(err)
	}

	token, err := auth.NewToken(cfg.JWTSecret, identity, 24*time.Hour)
	if err != nil {
		panic(err)
	}

	fmt.Println(token)
}
