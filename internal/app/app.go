package app

import (
	"context"
	"os"

	commonHTTP "github.com/ThreeDotsLabs/go-event-driven/common/http"
	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill"
	wmessage "github.com/ThreeDotsLabs/watermill/message"
	trmsqlx "github.com/avito-tech/go-transaction-manager/drivers/sqlx/v2"
	"github.com/avito-tech/go-transaction-manager/trm/v2/manager"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"ticketing/internal/application/usecases/booking"
	paymentsuc "ticketing/internal/application/usecases/payments"
	"ticketing/internal/application/usecases/reconciliation"
	"ticketing/internal/config"
	"ticketing/internal/gateway"
	"ticketing/internal/gateway/cashfree"
	"ticketing/internal/gateway/phonepe"
	"ticketing/internal/infrastructure/clients"
	"ticketing/internal/interfaces/commands"
	"ticketing/internal/interfaces/events"
	httpiface "ticketing/internal/interfaces/http"
	"ticketing/internal/interfaces/message"
	"ticketing/internal/outbox"
	"ticketing/internal/repository"
)

type App struct {
	watermillLogger watermill.LoggerAdapter
	logger          zerolog.Logger
	router          *wmessage.Router
	srv             *httpiface.Server
	forwarder       *outbox.Forwarder
	db              *sqlx.DB
}

func NewApp(
	cfg *config.Config,
	watermillLogger watermill.LoggerAdapter,
	db *sqlx.DB,
	redisClient *redis.Client,
) (*App, error) {
	trManager := manager.Must(trmsqlx.NewDefaultFactory(db))
	trGetter := trmsqlx.DefaultCtxGetter

	eventsRepo := repository.NewEventsRepo(db, trGetter)
	bookingsRepo := repository.NewBookingsRepo(db, trGetter)
	ticketsRepo := repository.NewTicketsRepo(db, trGetter)
	paymentsRepo := repository.NewPaymentsRepo(db, trGetter)

	gateways := newGatewayRegistry(cfg)

	eventBus := outbox.NewTxEventBus(trGetter, watermillLogger)

	createBooking := booking.NewCreateBookingUsecase(bookingsRepo, eventsRepo, ticketsRepo, trManager)
	cancelBooking := booking.NewCancelBookingUsecase(
		bookingsRepo, eventsRepo, ticketsRepo, paymentsRepo,
		gateways, trManager, eventBus,
	)
	reconciler := reconciliation.NewUsecase(
		bookingsRepo, ticketsRepo, paymentsRepo, eventsRepo,
		trManager, eventBus,
	)
	paymentsService := paymentsuc.NewUsecase(
		bookingsRepo, paymentsRepo, gateways, reconciler,
		trManager, cfg.Frontend.ReturnURL,
	)

	emailClient := clients.NewEmailClient(cfg.Notifications.EmailBaseURL)
	pushClient := clients.NewPushClient(cfg.Notifications.PushBaseURL)

	eventHandler := events.NewHandler(emailClient, pushClient)
	commandsHandler := commands.NewHandler(reconciler)

	router, err := message.NewRouter(
		watermillLogger,
		eventHandler,
		commandsHandler,
		events.NewEventProcessorConfig(redisClient, watermillLogger),
		commands.NewCommandProcessorConfig(redisClient, watermillLogger),
	)
	if err != nil {
		return nil, err
	}

	redisPublisher, err := outbox.NewRedisPublisher(watermillLogger, redisClient)
	if err != nil {
		return nil, err
	}

	commandBus, err := commands.NewBus(redisPublisher, watermillLogger)
	if err != nil {
		return nil, err
	}

	forwarder, err := outbox.NewForwarder(db, redisClient, cfg.Outbox.PollInterval, watermillLogger)
	if err != nil {
		return nil, err
	}

	e := commonHTTP.NewEcho()
	srv := httpiface.NewServer(
		e,
		httpiface.Config{
			Addr:       cfg.Server.Addr,
			SuccessURL: cfg.Frontend.SuccessURL,
			FailureURL: cfg.Frontend.FailureURL,
		},
		createBooking,
		cancelBooking,
		paymentsService,
		eventsRepo,
		bookingsRepo,
		ticketsRepo,
		gateways,
		commandBus,
		router.IsRunning,
	)

	return &App{
		watermillLogger: watermillLogger,
		logger:          zerolog.New(os.Stdout),
		router:          router,
		srv:             srv,
		forwarder:       forwarder,
		db:              db,
	}, nil
}

// newGatewayRegistry builds the registry from whichever providers are
// fully configured. A provider missing credentials is left out; calls
// naming it fail with an unknown-provider error instead of taking the
// whole service down.
func newGatewayRegistry(cfg *config.Config) *gateway.Registry {
	var gateways []gateway.PaymentGateway

	phonepeClient, err := phonepe.New(phonepe.Config{
		BaseURL:    cfg.PhonePe.BaseURL,
		MerchantID: cfg.PhonePe.MerchantID,
		SaltKey:    cfg.PhonePe.SaltKey,
		SaltIndex:  cfg.PhonePe.SaltIndex,
		Timeout:    cfg.PhonePe.Timeout,
	})
	if err != nil {
		log.FromContext(context.Background()).Warn("phonepe gateway not configured: ", err)
	} else {
		gateways = append(gateways, phonepeClient)
	}

	cashfreeClient, err := cashfree.New(cashfree.Config{
		BaseURL:       cfg.Cashfree.BaseURL,
		ClientID:      cfg.Cashfree.ClientID,
		ClientSecret:  cfg.Cashfree.ClientSecret,
		WebhookSecret: cfg.Cashfree.WebhookSecret,
		Timeout:       cfg.Cashfree.Timeout,
	})
	if err != nil {
		log.FromContext(context.Background()).Warn("cashfree gateway not configured: ", err)
	} else {
		gateways = append(gateways, cashfreeClient)
	}

	return gateway.NewRegistry(gateways...)
}

func (a *App) Run(ctx context.Context) error {
	err := repository.InitializeDBSchema(a.db)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.logger.Info().Msg("starting router")

		return a.router.Run(ctx)
	})

	g.Go(func() error {
		<-a.router.Running()
		a.logger.Info().Msg("router is running")

		a.logger.Info().Msg("starting outbox forwarder")
		a.forwarder.RunForwarder(ctx)

		a.logger.Info().Msg("starting server")
		return a.srv.Start()
	})

	g.Go(func() error {
		<-ctx.Done()

		err := a.srv.Stop(context.Background())
		if err != nil {
			a.logger.Err(err).Msg("error stopping server")
		}

		return err
	})

	return g.Wait()
}
