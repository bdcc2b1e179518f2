package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hoangvu/gearcart/internal/application/checkout"
	apppayment "github.com/hoangvu/gearcart/internal/application/payment"
	"github.com/hoangvu/gearcart/internal/config"
	"github.com/hoangvu/gearcart/internal/domain/catalog"
	"github.com/hoangvu/gearcart/internal/domain/event"
	"github.com/hoangvu/gearcart/internal/domain/order"
	"github.com/hoangvu/gearcart/internal/domain/voucher"
	"github.com/hoangvu/gearcart/internal/infrastructure/audit"
	"github.com/hoangvu/gearcart/internal/infrastructure/bus"
	"github.com/hoangvu/gearcart/internal/infrastructure/gateway"
	"github.com/hoangvu/gearcart/internal/infrastructure/id"
	"github.com/hoangvu/gearcart/internal/infrastructure/kafka"
	"github.com/hoangvu/gearcart/internal/infrastructure/memory"
	"github.com/hoangvu/gearcart/internal/infrastructure/postgres"
	"github.com/hoangvu/gearcart/internal/infrastructure/redisx"
	"github.com/hoangvu/gearcart/internal/observability"
	"github.com/hoangvu/gearcart/internal/pkg/logging"
	httppresentation "github.com/hoangvu/gearcart/internal/presentation/http"
)

func main() {
	cfg := config.Load()

	logger := logging.MustNewLogger(cfg.ServiceName, cfg.Env)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		orderRepo   order.Repository
		variantRepo catalog.Repository
		voucherRepo voucher.Repository
	)
	switch cfg.StorageDriver {
	case "postgres":
		pool, err := postgres.Connect(ctx, cfg.PostgresDSN)
		if err != nil {
			logger.Fatal("postgres_connect_failed", zap.Error(err))
		}
		defer pool.Close()
		orderRepo = postgres.NewOrderRepository(pool)
		variantRepo = postgres.NewVariantRepository(pool)
		voucherRepo = postgres.NewVoucherRepository(pool)
	default:
		orderRepo = memory.NewOrderRepository()
		variantRepo = memory.NewVariantRepository()
		voucherRepo = memory.NewVoucherRepository()
	}

	var sequencer checkout.Sequencer
	if cfg.RedisAddr != "" {
		rdb := redisx.NewClient(cfg.RedisAddr)
		defer func() { _ = rdb.Close() }()
		sequencer = redisx.NewSequencer(rdb)
	} else {
		sequencer = memory.NewSequencer()
	}

	var publisher event.Publisher
	if len(cfg.KafkaBrokers) > 0 {
		kp := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		defer func() { _ = kp.Close() }()
		publisher = kp
	} else {
		b := bus.New(logger)
		audit.Register(b, logger)
		b.Start(ctx)
		defer b.Stop(context.Background())
		publisher = b
	}

	gw := gateway.NewClient(cfg.GatewaySecret, cfg.GatewayPayURL)

	checkoutService := checkout.NewService(
		orderRepo, variantRepo, voucherRepo,
		sequencer, id.NewUUIDGenerator(), publisher,
	)
	paymentService := apppayment.NewService(orderRepo, gw, publisher)

	metrics := observability.NewMetrics(prometheus.DefaultRegisterer)

	handler := httppresentation.NewHandler(
		checkoutService, paymentService, gw, cfg.GatewayResultURL, cfg.DefaultShippingFee, metrics, logger,
	)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", handler.Router())

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http_server_start", zap.String("addr", server.Addr))
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_server_error", zap.Error(err))
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http_server_shutdown_error", zap.Error(err))
	} else {
		logger.Info("http_server_stopped")
	}
}
