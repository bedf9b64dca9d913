package cmd

import (
	"context"
	"fmt"
	"io"

	"scrim-booking/internal/data/memstore"
	"scrim-booking/internal/data/repository"
	"scrim-booking/internal/gateway"
	"scrim-booking/internal/notify"
	"scrim-booking/internal/usecase"
	"scrim-booking/pkg/database"
	"scrim-booking/pkg/utils"

	"github.com/redis/go-redis/v9"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// container holds every long-lived dependency built at startup.
type container struct {
	config     *utils.Config
	log        *zap.Logger
	db         database.PgxIface
	rdb        *redis.Client
	repo       *repository.Repository
	dispatcher *notify.Dispatcher
	service    *usecase.Service

	closers []io.Closer
}

type closerFunc func() error

func (f closerFunc) Close() error { return f() }

func bootstrap(configPath string) (*container, error) {
	config, err := utils.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := utils.InitLogger(config.App.LogPath, config.App.Debug)
	if err != nil {
		logger, _ = zap.NewProduction()
		logger.Warn("Failed to init file logger, using stdout", zap.Error(err))
	}

	rt := &container{config: config, log: logger}
	if err := rt.init(); err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

func (rt *container) init() error {
	if err := rt.initLedger(); err != nil {
		return err
	}

	rdb, err := database.InitRedis(rt.config.Redis)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	if rdb != nil {
		rt.rdb = rdb
		rt.closers = append(rt.closers, rdb)
		rt.log.Info("Redis connected", zap.String("addr", rt.config.Redis.Addr))
	}

	gw, err := gateway.New(rt.config.Payment, rt.rdb, rt.log)
	if err != nil {
		return fmt.Errorf("payment gateway: %w", err)
	}

	sink, err := rt.initSinks()
	if err != nil {
		return err
	}
	rt.dispatcher = notify.NewDispatcher(sink, 1024, rt.log)

	rt.service = usecase.NewService(rt.repo, gw, rt.dispatcher, rt.config, rt.log)
	return nil
}

func (rt *container) initLedger() error {
	switch rt.config.Database.Driver {
	case "memory":
		rt.log.Warn("Using in-memory ledger, data is lost on restart")
		rt.repo = memstore.New().Repository()
		return nil
	case "", "postgres":
		db, err := database.InitDB(rt.config.Database)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		rt.db = db
		rt.closers = append(rt.closers, closerFunc(func() error { db.Close(); return nil }))
		rt.repo = repository.NewRepository(db, rt.log)
		rt.log.Info("Database connected", zap.String("host", rt.config.Database.Host))
		return nil
	default:
		return fmt.Errorf("unknown DB_DRIVER %q", rt.config.Database.Driver)
	}
}

// initSinks builds the notification fan-out: room events over Redis pub/sub plus the configured broker.
func (rt *container) initSinks() (notify.Notifier, error) {
	var sinks notify.Multi
	if rt.rdb != nil {
		sinks = append(sinks, notify.NewRedisRoomNotifier(rt.rdb))
	}

	events := rt.config.Events
	switch events.Driver {
	case "", "none":
	case "amqp":
		pub, err := notify.NewAMQPPublisher(events.AMQPURL, events.AMQPExchange)
		if err != nil {
			return nil, fmt.Errorf("amqp publisher: %w", err)
		}
		rt.closers = append(rt.closers, pub)
		sinks = append(sinks, pub)
	case "kafka":
		if len(events.KafkaBrokers) == 0 {
			return nil, fmt.Errorf("KAFKA_BROKERS is required for the kafka events driver")
		}
		pub := notify.NewKafkaPublisher(events.KafkaBrokers, events.KafkaTopic)
		rt.closers = append(rt.closers, pub)
		sinks = append(sinks, pub)
	default:
		return nil, fmt.Errorf("unknown EVENTS_DRIVER %q", events.Driver)
	}

	rt.log.Info("Notification sinks ready",
		zap.Int("sinks", len(sinks)),
		zap.String("events_driver", events.Driver),
	)
	if len(sinks) == 0 {
		return notify.Nop{}, nil
	}
	return sinks, nil
}

// startDispatcher delivers notifications in the background. The returned func stops it and waits
// for the queue to drain.
func (rt *container) startDispatcher() func() {
	ctx, cancel := context.WithCancel(context.Background())
	go rt.dispatcher.Run(ctx)
	return func() {
		cancel()
		<-rt.dispatcher.Done()
	}
}

// ping checks the stores the service depends on.
func (rt *container) ping(ctx context.Context) error {
	var errs error
	if rt.db != nil {
		errs = multierr.Append(errs, rt.db.Ping(ctx))
	}
	if rt.rdb != nil {
		errs = multierr.Append(errs, rt.rdb.Ping(ctx).Err())
	}
	return errs
}

// Close releases resources in reverse order of acquisition.
func (rt *container) Close() error {
	var errs error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		errs = multierr.Append(errs, rt.closers[i].Close())
	}
	rt.log.Sync()
	return errs
}
