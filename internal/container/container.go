package container

import (
	"context"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	_ "github.com/danielgtaylor/huma/v2/formats/cbor" // CBOR format support for huma
	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jaevor/go-nanoid"
	"github.com/redis/go-redis/v9"
	"github.com/samber/do"
	"github.com/serroba/linklive/internal/cache"
	"github.com/serroba/linklive/internal/events"
	"github.com/serroba/linklive/internal/handlers"
	"github.com/serroba/linklive/internal/health"
	"github.com/serroba/linklive/internal/messaging"
	"github.com/serroba/linklive/internal/middleware"
	"github.com/serroba/linklive/internal/realtime"
	"github.com/serroba/linklive/internal/shortlink"
	"github.com/serroba/linklive/internal/store"
	"go.uber.org/zap"
)

// Options holds the CLI configuration for both binaries.
type Options struct {
	Port         int    `default:"8888"           help:"Port to listen on"                                      short:"p"`
	BaseURL      string `default:""               help:"Public base URL for short links; when set it also restricts websocket origins (defaults to http://localhost:<port>)"`
	CodeLength   int    `default:"8"              help:"Length of generated short codes"                        short:"c"`
	DatabaseURL  string `default:""               help:"PostgreSQL connection string (empty runs in-memory)"`
	RedisAddr    string `default:"localhost:6379" help:"Redis server address"                                   short:"r"`
	CacheBackend string `default:"memory"         enum:"memory,redis"                                           help:"Lookup cache backend"`
	EventBus     string `default:"channel"        enum:"channel,redis"                                          help:"Event bus backend"`
	LogFormat    string `default:"console"        enum:"console,json"                                           help:"Log output format"`
}

func (o *Options) publicBaseURL() string {
	if o.BaseURL != "" {
		return o.BaseURL
	}

	return fmt.Sprintf("http://localhost:%d", o.Port)
}

const (
	registryTimeout = 5 * time.Second
	probeInterval   = 5 * time.Second
)

// LoggerPackage provides the zap logger.
func LoggerPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*zap.Logger, error) {
		opts := do.MustInvoke[*Options](i)

		if opts.LogFormat == "json" {
			return zap.NewProduction()
		}

		return zap.NewDevelopment()
	})
}

// RedisPackage provides a shared Redis client. It is only dialed when a
// redis-backed cache or event bus is configured.
func RedisPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*redis.Client, error) {
		opts := do.MustInvoke[*Options](i)

		return redis.NewClient(&redis.Options{Addr: opts.RedisAddr}), nil
	})
}

// alwaysConnected is the storage state of the in-memory registry.
type alwaysConnected struct{}

func (alwaysConnected) Connected() bool { return true }

// Storage bundles the registry with its connectivity state so they share
// one lifecycle.
type Storage struct {
	Registry shortlink.Registry
	State    health.StorageState

	monitor *store.Monitor
	pool    *pgxpool.Pool
}

// Shutdown stops the monitor and closes the pool.
func (s *Storage) Shutdown() error {
	if s.monitor != nil {
		_ = s.monitor.Shutdown()
	}

	if s.pool != nil {
		s.pool.Close()
	}

	return nil
}

// StoragePackage provides the registry: Postgres when a database URL is
// configured, in-memory otherwise.
func StoragePackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*Storage, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)

		if opts.DatabaseURL == "" {
			logger.Warn("no database configured, using in-memory registry")

			return &Storage{
				Registry: store.NewMemoryRegistry(),
				State:    alwaysConnected{},
			}, nil
		}

		pool, err := pgxpool.New(context.Background(), opts.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("creating pool: %w", err)
		}

		monitor := store.NewMonitor(pool, probeInterval, logger)
		registry := store.NewPostgresRegistry(pool, monitor, registryTimeout)

		if err := monitor.Start(context.Background()); err != nil {
			pool.Close()
			return nil, err
		}

		ctx, cancel := context.WithTimeout(context.Background(), registryTimeout)
		defer cancel()

		if err := registry.EnsureSchema(ctx); err != nil {
			// The database may simply be down at boot; the monitor keeps
			// probing and operations fail fast until it comes back.
			logger.Warn("schema bootstrap failed", zap.Error(err))
		}

		return &Storage{
			Registry: registry,
			State:    monitor,
			monitor:  monitor,
			pool:     pool,
		}, nil
	})
}

// Bus bundles the event bus publisher and subscriber. With the gochannel
// backend both sides are one object, owned by the consumer group.
type Bus struct {
	Publisher  message.Publisher
	Subscriber message.Subscriber

	shared bool
}

// Shutdown closes the publisher for split backends. Shared backends are
// closed once, by the consumer group that owns the subscriber side.
func (b *Bus) Shutdown() error {
	if b.shared {
		return nil
	}

	return b.Publisher.Close()
}

// MessagingPackage provides the event bus: an in-process channel by
// default, redis streams when fan-out must cross instances.
func MessagingPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*Bus, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)
		wmLogger := messaging.NewZapLogger(logger)

		if opts.EventBus == "redis" {
			client := do.MustInvoke[*redis.Client](i)

			publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{
				Client: client,
			}, wmLogger)
			if err != nil {
				return nil, err
			}

			// Empty consumer group: every instance sees every event.
			subscriber, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
				Client: client,
			}, wmLogger)
			if err != nil {
				return nil, err
			}

			return &Bus{Publisher: publisher, Subscriber: subscriber}, nil
		}

		channel := gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 256,
		}, wmLogger)

		return &Bus{Publisher: channel, Subscriber: channel, shared: true}, nil
	})
}

// ShortlinkPackage provides the issuer, caches, event sink, and the
// shortening service itself.
func ShortlinkPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*shortlink.Service, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)
		storage := do.MustInvoke[*Storage](i)
		bus := do.MustInvoke[*Bus](i)

		generate, err := nanoid.Standard(opts.CodeLength)
		if err != nil {
			return nil, fmt.Errorf("creating code generator: %w", err)
		}

		issuer := shortlink.NewIssuer(storage.Registry, shortlink.CodeGenerator(generate))
		sink := events.NewSink(bus.Publisher, logger)

		var originCache, codeCache shortlink.LookupCache

		if opts.CacheBackend == "redis" {
			client := do.MustInvoke[*redis.Client](i)
			originCache = cache.NewRedis(client, "origin:", 0, logger)
			codeCache = cache.NewRedis(client, "code:", 0, logger)
		} else {
			originCache = cache.NewMemory()
			codeCache = cache.NewMemory()
		}

		return shortlink.NewService(
			storage.Registry,
			issuer,
			originCache,
			codeCache,
			sink,
			opts.publicBaseURL(),
			logger,
		), nil
	})
}

// RealtimePackage provides the WebSocket hub and the consumer group that
// feeds it domain events. The group is started by the caller.
func RealtimePackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*realtime.Hub, error) {
		opts := do.MustInvoke[*Options](i)
		service := do.MustInvoke[*shortlink.Service](i)
		logger := do.MustInvoke[*zap.Logger](i)

		return realtime.NewHub(service, opts.BaseURL, logger), nil
	})

	do.Provide(injector, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
		bus := do.MustInvoke[*Bus](i)
		logger := do.MustInvoke[*zap.Logger](i)
		hub := do.MustInvoke[*realtime.Hub](i)

		group := messaging.NewConsumerGroup(bus.Subscriber, logger)
		group.Add(messaging.NewConsumer(bus.Subscriber, events.TopicCreated, hub.HandleCreated, logger))
		group.Add(messaging.NewConsumer(bus.Subscriber, events.TopicDeleted, hub.HandleDeleted, logger))
		group.Add(messaging.NewConsumer(bus.Subscriber, events.TopicClicked, hub.HandleClicked, logger))

		return group, nil
	})
}

// HTTPPackage provides the router and the huma API with all routes
// registered.
func HTTPPackage(injector *do.Injector) {
	do.Provide(injector, func(_ *do.Injector) (*chi.Mux, error) {
		return chi.NewMux(), nil
	})

	do.Provide(injector, func(i *do.Injector) (huma.API, error) {
		opts := do.MustInvoke[*Options](i)
		logger := do.MustInvoke[*zap.Logger](i)
		router := do.MustInvoke[*chi.Mux](i)
		service := do.MustInvoke[*shortlink.Service](i)
		storage := do.MustInvoke[*Storage](i)
		hub := do.MustInvoke[*realtime.Hub](i)

		api := humachi.New(router, huma.DefaultConfig("linklive", "1.0.0"))
		api.UseMiddleware(middleware.RequestMeta(api))

		var cacheChecker health.Checker
		if opts.CacheBackend == "redis" || opts.EventBus == "redis" {
			cacheChecker = health.NewRedisChecker(do.MustInvoke[*redis.Client](i))
		}

		health.RegisterRoutes(api, health.NewHandler(storage.State, cacheChecker))
		handlers.RegisterRoutes(api, handlers.NewURLHandler(service, logger))

		router.Get("/ws", hub.ServeWS)

		return api, nil
	})
}

// TailerPackage provides a consumer group that logs every domain event,
// for observing a deployment from a separate process. It requires the
// redis event bus; the in-process channel is invisible across processes.
func TailerPackage(injector *do.Injector) {
	do.Provide(injector, func(i *do.Injector) (*messaging.ConsumerGroup, error) {
		logger := do.MustInvoke[*zap.Logger](i)
		client := do.MustInvoke[*redis.Client](i)
		wmLogger := messaging.NewZapLogger(logger)

		subscriber, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
			Client:        client,
			ConsumerGroup: "linklive-tailer",
		}, wmLogger)
		if err != nil {
			return nil, err
		}

		group := messaging.NewConsumerGroup(subscriber, logger)

		group.Add(messaging.NewConsumer(subscriber, events.TopicCreated,
			func(_ context.Context, event *events.Created) error {
				logger.Info("url created",
					zap.String("id", event.Record.ID),
					zap.String("code", event.Record.ShortCode),
					zap.String("url", event.Record.OriginalURL),
				)
				return nil
			}, logger))

		group.Add(messaging.NewConsumer(subscriber, events.TopicDeleted,
			func(_ context.Context, event *events.Deleted) error {
				logger.Info("url deleted", zap.String("id", event.ID))
				return nil
			}, logger))

		group.Add(messaging.NewConsumer(subscriber, events.TopicClicked,
			func(_ context.Context, event *events.Clicked) error {
				logger.Info("url clicked",
					zap.String("id", event.ID),
					zap.Int64("clicks", event.Clicks),
				)
				return nil
			}, logger))

		return group, nil
	})
}
