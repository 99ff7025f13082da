package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/alimikegami/marketplace/payment-service/config"
	"github.com/alimikegami/marketplace/payment-service/internal/controller"
	"github.com/alimikegami/marketplace/payment-service/internal/infrastructure/database/postgres"
	"github.com/alimikegami/marketplace/payment-service/internal/infrastructure/email"
	"github.com/alimikegami/marketplace/payment-service/internal/infrastructure/invoice"
	"github.com/alimikegami/marketplace/payment-service/internal/infrastructure/lock"
	"github.com/alimikegami/marketplace/payment-service/internal/infrastructure/message-queue/kafka"
	"github.com/alimikegami/marketplace/payment-service/internal/infrastructure/metrics"
	paymentgateway "github.com/alimikegami/marketplace/payment-service/internal/infrastructure/payment-gateway"
	"github.com/alimikegami/marketplace/payment-service/internal/infrastructure/qrcode"
	"github.com/alimikegami/marketplace/payment-service/internal/infrastructure/tracing"
	"github.com/alimikegami/marketplace/payment-service/internal/infrastructure/whatsapp"
	localmiddleware "github.com/alimikegami/marketplace/payment-service/internal/middleware"
	"github.com/alimikegami/marketplace/payment-service/internal/repository"
	"github.com/alimikegami/marketplace/payment-service/internal/service"
	"github.com/alimikegami/marketplace/payment-service/pkg/response"
	"github.com/alimikegami/marketplace/payment-service/pkg/utils"
	"github.com/alimikegami/marketplace/payment-service/pkg/validator"
	"github.com/go-co-op/gocron/v2"
	"github.com/jmoiron/sqlx"
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	kafkago "github.com/segmentio/kafka-go"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.opentelemetry.io/otel/sdk/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type Services struct {
	Checkout   service.CheckoutService
	Payments   service.PaymentService
	Redemption service.RedemptionService
	Items      service.ItemService
}

type App struct {
	DB     *sqlx.DB
	Config *config.Config
	Server *echo.Echo

	traceProvider *trace.TracerProvider
	metricsServer *echo.Echo
	scheduler     gocron.Scheduler
	grpcServer    *grpc.Server
	dispatcher    *service.SideEffectDispatcher
	kafkaConn     *kafkago.Conn
	redisClient   *redis.Client
}

// Start wires the service and blocks serving HTTP until StopServer is called.
func (app *App) Start() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = logger
	zerolog.DefaultContextLogger = &log.Logger

	if err := postgres.Migrate(context.Background(), app.DB); err != nil {
		return err
	}

	traceProvider, err := tracing.InitTracing(app.Config.TracingConfig.CollectorHost)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize tracing")
	} else {
		app.traceProvider = traceProvider
	}

	svc := app.buildServices()

	var mw []echo.MiddlewareFunc
	if app.traceProvider != nil {
		mw = append(mw, tracingMiddleware(app.traceProvider))
	}
	// Used empty string so that metrics are not prefixed with the service name making it easier to aggregate across services
	mw = append(mw, echoprometheus.NewMiddleware(""))

	e := NewRouter(app.Config, svc, mw...)
	app.Server = e

	if app.Config.MetricsPort != "" {
		app.metricsServer = echo.New()
		app.metricsServer.HideBanner = true
		app.metricsServer.GET("/metrics", echoprometheus.NewHandler())
		go func() {
			if err := app.metricsServer.Start(fmt.Sprintf(":%s", app.Config.MetricsPort)); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Fatal().Err(err).Msg("Failed to start metrics server")
			}
		}()
	}

	if app.Config.SweepConfig.Interval > 0 {
		if err := app.startScheduler(svc.Payments); err != nil {
			return err
		}
	}

	if app.Config.GRPCPort != "" {
		app.startHealthServer()
	}

	err = e.Start(fmt.Sprintf(":%s", app.Config.ServicePort))
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (app *App) buildServices() Services {
	conf := app.Config

	var locker service.SweepLocker = lock.CreateLocalLocker()
	if conf.RedisConfig.Address != "" {
		rdb, err := lock.CreateRedisClient(conf.RedisConfig)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, sweep lease is process local")
		} else {
			app.redisClient = rdb
			locker = lock.CreateRedisLocker(rdb)
		}
	}

	if conf.KafkaConfig.BrokerAddress != "" {
		conn, err := kafka.CreateKafkaProducer(conf)
		if err != nil {
			log.Warn().Err(err).Msg("kafka unavailable, payment events are not published")
		} else {
			app.kafkaConn = conn
		}
	}
	publisher := kafka.CreateEventPublisher(app.kafkaConn)

	recorder := metrics.CreateRecorder(prometheus.DefaultRegisterer)
	gateway := paymentgateway.CreateMidtransClient(conf)
	messenger := whatsapp.CreateWhatsAppClient(conf.WhatsAppConfig)
	repo := repository.CreateTransactionRepository(app.DB)

	app.dispatcher = service.CreateSideEffectDispatcher(repo, service.SideEffectDeps{
		Renderer:      invoice.CreatePDFRenderer(conf.StorageConfig.InvoiceDir),
		QR:            qrcode.CreatePNGRenderer(conf.StorageConfig.QRCodeDir),
		Messenger:     messenger,
		Mailer:        email.CreateMailer(conf.SMTPConfig),
		Publisher:     publisher,
		PublicBaseURL: conf.PublicBaseURL,
		InvoiceDir:    conf.StorageConfig.InvoiceDir,
	}, recorder, true)
	engine := service.CreateReconciliationEngine(repo, app.dispatcher, publisher, recorder)

	return Services{
		Checkout:   service.CreateCheckoutService(repo, gateway, messenger),
		Payments:   service.CreatePaymentService(repo, engine, app.dispatcher, gateway, locker, recorder, conf.SweepConfig),
		Redemption: service.CreateRedemptionService(repo),
		Items:      service.CreateItemService(repo),
	}
}

// NewRouter registers every route on a fresh echo instance. mw runs before
// the request logger.
func NewRouter(conf *config.Config, svc Services, mw ...echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Validator = validator.CreateValidator()

	e.Use(mw...)
	e.Use(localmiddleware.Logger)

	e.Static("/files/invoices", conf.StorageConfig.InvoiceDir)
	e.Static("/files/qrcodes", conf.StorageConfig.QRCodeDir)

	g := e.Group("/api/v1")

	g.GET("/ping", func(c echo.Context) error {
		return response.WriteSuccessResponse(c, "pong", nil)
	})

	isLoggedIn := localmiddleware.CreateJWTMiddleware(conf.JWTConfig.JWTSecret)
	isAdmin := []echo.MiddlewareFunc{isLoggedIn, localmiddleware.RequireRole(utils.RoleAdmin)}
	isStore := []echo.MiddlewareFunc{isLoggedIn, localmiddleware.RequireRole(utils.RoleStore)}

	controller.CreatePaymentController(g, svc.Checkout, svc.Payments, isAdmin)
	controller.CreateStoreController(g, svc.Redemption, svc.Items, isStore)

	return e
}

func tracingMiddleware(tp *trace.TracerProvider) echo.MiddlewareFunc {
	tracer := tp.Tracer("payment-service")

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx, span := tracer.Start(c.Request().Context(), fmt.Sprintf("[%s] %s", c.Request().Method, c.Path()))
			defer span.End()

			req := c.Request()
			c.SetRequest(req.WithContext(ctx))

			return next(c)
		}
	}
}

func (app *App) startScheduler(payments service.PaymentService) error {
	s, err := gocron.NewScheduler()
	if err != nil {
		return err
	}

	_, err = s.NewJob(
		gocron.DurationJob(app.Config.SweepConfig.Interval),
		gocron.NewTask(payments.RunScheduledSweep),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return err
	}

	s.Start()
	app.scheduler = s
	log.Info().Dur("interval", app.Config.SweepConfig.Interval).Msg("scheduled pending payment sweep")
	return nil
}

func (app *App) startHealthServer() {
	app.grpcServer = grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	healthServer.SetServingStatus("payment-service", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(app.grpcServer, healthServer)

	go func() {
		lis, err := net.Listen("tcp", fmt.Sprintf(":%s", app.Config.GRPCPort))
		if err != nil {
			log.Error().Err(err).Msg("Failed to listen for gRPC health checks")
			return
		}
		if err := app.grpcServer.Serve(lis); err != nil {
			log.Error().Err(err).Msg("gRPC health server stopped")
		}
	}()
}

func (app *App) StopServer() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var errs []error
	if app.Server != nil {
		errs = append(errs, app.Server.Shutdown(ctx))
	}
	if app.metricsServer != nil {
		errs = append(errs, app.metricsServer.Shutdown(ctx))
	}
	if app.scheduler != nil {
		errs = append(errs, app.scheduler.Shutdown())
	}
	if app.grpcServer != nil {
		app.grpcServer.GracefulStop()
	}
	if app.dispatcher != nil {
		app.dispatcher.Wait()
	}
	if app.kafkaConn != nil {
		errs = append(errs, app.kafkaConn.Close())
	}
	if app.redisClient != nil {
		errs = append(errs, app.redisClient.Close())
	}
	if app.traceProvider != nil {
		errs = append(errs, app.traceProvider.Shutdown(ctx))
	}

	return errors.Join(errs...)
}
