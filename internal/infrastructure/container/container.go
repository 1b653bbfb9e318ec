package container

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gdugdh24/matchcore/internal/config"
	deliveryhttp "github.com/gdugdh24/matchcore/internal/delivery/http"
	"github.com/gdugdh24/matchcore/internal/delivery/http/handler"
	"github.com/gdugdh24/matchcore/internal/delivery/http/middleware"
	"github.com/gdugdh24/matchcore/internal/domain"
	"github.com/gdugdh24/matchcore/internal/infrastructure/broker"
	"github.com/gdugdh24/matchcore/internal/infrastructure/database"
	"github.com/gdugdh24/matchcore/internal/infrastructure/gemini"
	"github.com/gdugdh24/matchcore/internal/infrastructure/push"
	"github.com/gdugdh24/matchcore/internal/infrastructure/server"
	"github.com/gdugdh24/matchcore/internal/repository"
	"github.com/gdugdh24/matchcore/internal/repository/memory"
	"github.com/gdugdh24/matchcore/internal/repository/postgres"
	redisrepo "github.com/gdugdh24/matchcore/internal/repository/redis"
	"github.com/gdugdh24/matchcore/internal/security"
	"github.com/gdugdh24/matchcore/internal/usecase/conversation"
	"github.com/gdugdh24/matchcore/internal/usecase/likes"
	"github.com/gdugdh24/matchcore/internal/usecase/notification"
	"github.com/gdugdh24/matchcore/internal/usecase/notifier"
	"github.com/gdugdh24/matchcore/internal/usecase/presence"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Container holds all application dependencies
type Container struct {
	Config     *config.Config
	Log        *zap.Logger
	DB         *sqlx.DB
	Redis      *redis.Client
	Broker     broker.Broker
	Dispatcher *notifier.Dispatcher
	Hub        *push.Hub
	Server     *server.Server
	Gemini     *gemini.GeminiClient
	Tokens     *security.TokenManager
}

type stores struct {
	likes         repository.LikeRepository
	users         repository.UserRepository
	notifications repository.NotificationRepository
	conversations repository.ConversationRepository
	presence      repository.PresenceStore
}

// NewContainer creates a new dependency injection container
func NewContainer(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Container, error) {
	c := &Container{Config: cfg, Log: log}

	st, err := c.initStorage(ctx)
	if err != nil {
		c.Close()
		return nil, err
	}

	if err := c.initBroker(); err != nil {
		c.Close()
		return nil, err
	}

	// Initialize Gemini Client
	var scorer likes.Scorer
	if cfg.GeminiAPIKey != "" {
		geminiClient, err := gemini.NewGeminiClient(ctx, cfg.GeminiAPIKey)
		if err != nil {
			// Don't fail, just continue without compatibility scores
			log.Warn("gemini client unavailable", zap.Error(err))
		} else {
			c.Gemini = geminiClient
			scorer = geminiClient
		}
	}

	c.Tokens = security.NewTokenManager(cfg.JWT.AccessSecret, time.Duration(cfg.JWT.AccessExpiryMin)*time.Minute)
	c.Dispatcher = notifier.NewDispatcher(c.Broker, cfg.Notify.QueueSize, log)

	// Initialize use cases
	likeUseCase := likes.NewLikeUseCase(st.likes, st.users, scorer, notifier.New(), c.Dispatcher, log)
	notificationUseCase := notification.NewNotificationUseCase(st.notifications)
	presenceUseCase := presence.NewPresenceUseCase(st.presence, st.likes, c.Dispatcher, log)
	conversationUseCase := conversation.NewConversationUseCase(st.conversations, st.notifications, c.Dispatcher, log)

	c.Hub = push.NewHub(presenceUseCase, conversationUseCase, log)
	pushHandler := push.NewHandler(c.Hub, c.Tokens, push.Options{
		QueueSize:    cfg.Push.QueueSize,
		Overflow:     push.OverflowPolicy(cfg.Push.OverflowPolicy),
		PingInterval: cfg.Push.PingInterval,
		WriteTimeout: cfg.Push.WriteTimeout,
	}, originChecker(cfg.Server.CORSOrigins), log)

	// Initialize router
	router := deliveryhttp.NewRouter(
		handler.NewAuthHandler(c.Tokens),
		handler.NewLikeHandler(likeUseCase),
		handler.NewNotificationHandler(notificationUseCase),
		handler.NewConversationHandler(conversationUseCase),
		handler.NewPresenceHandler(presenceUseCase),
		pushHandler,
		middleware.NewAuthMiddleware(c.Tokens),
		log,
	)

	c.Server = server.NewServer(&cfg.Server, router.Setup(), log)
	return c, nil
}

func (c *Container) initStorage(ctx context.Context) (*stores, error) {
	cfg := c.Config
	st := &stores{}

	switch cfg.Storage.Type {
	case config.StoragePostgres:
		db, err := database.NewPostgresDB(ctx, &cfg.Database, c.Log)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		c.DB = db
		if err := database.Migrate(ctx, db, c.Log); err != nil {
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		st.likes = postgres.NewLikeRepository(db)
		st.users = postgres.NewUserRepository(db)
		st.notifications = postgres.NewNotificationRepository(db)
		st.conversations = postgres.NewConversationRepository(db)
	case config.StorageMemory:
		users, err := loadSeedUsers(cfg.Storage.SeedFile)
		if err != nil {
			return nil, err
		}
		inbox := memory.NewNotificationRepository()
		st.likes = memory.NewLikeRepository(inbox)
		st.users = memory.NewUserRepository(users...)
		st.notifications = inbox
		st.conversations = memory.NewConversationRepository()
		c.Log.Info("using in-memory storage", zap.Int("seed_users", len(users)))
	}

	redisClient, err := database.NewRedisClient(ctx, &cfg.Redis, c.Log)
	switch {
	case err == nil:
		c.Redis = redisClient
		st.presence = redisrepo.NewPresenceStore(redisClient, redisrepo.DefaultPresenceTTL)
	case cfg.Push.Broker == config.BrokerRedis:
		return nil, fmt.Errorf("failed to initialize redis: %w", err)
	default:
		c.Log.Warn("redis unavailable, presence is tracked per node", zap.Error(err))
		st.presence = memory.NewPresenceStore()
	}
	return st, nil
}

func (c *Container) initBroker() error {
	cfg := c.Config
	switch cfg.Push.Broker {
	case config.BrokerRedis:
		c.Broker = broker.NewRedis(c.Redis, cfg.Push.RedisChannel, c.Log)
	case config.BrokerNATS:
		b, err := broker.NewNATS(cfg.NATS.URL, cfg.NATS.Subject, c.Log)
		if err != nil {
			return fmt.Errorf("failed to connect to nats: %w", err)
		}
		c.Broker = b
	default:
		c.Broker = broker.NewLocal()
	}
	return nil
}

// Run serves HTTP, dispatches envelopes and feeds broker deliveries into the hub
// until ctx is canceled or one of them fails.
func (c *Container) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return runDelivery(ctx, c.Broker, c.Hub.Deliver, c.Dispatcher)
	})
	g.Go(c.Server.Start)
	g.Go(func() error {
		<-ctx.Done()
		c.Hub.Close()
		return c.Server.Shutdown(context.Background())
	})

	return g.Wait()
}

type dispatchRunner interface {
	Run(ctx context.Context) error
}

// runDelivery subscribes deliver to the broker and starts the dispatcher only
// once the subscription is live; until then enqueued deliveries wait in the queue.
func runDelivery(ctx context.Context, b broker.Broker, deliver broker.Handler, d dispatchRunner) error {
	g, ctx := errgroup.WithContext(ctx)

	subscribed := make(chan struct{})
	var once sync.Once
	g.Go(func() error {
		return b.Subscribe(ctx, deliver, func() { once.Do(func() { close(subscribed) }) })
	})
	g.Go(func() error {
		select {
		case <-subscribed:
		case <-ctx.Done():
			return nil
		}
		return d.Run(ctx)
	})
	return g.Wait()
}

// Close closes all connections
func (c *Container) Close() error {
	if c.Broker != nil {
		if err := c.Broker.Close(); err != nil {
			c.Log.Warn("error closing broker", zap.Error(err))
		}
	}

	if c.Gemini != nil {
		if err := c.Gemini.Close(); err != nil {
			c.Log.Warn("error closing gemini client", zap.Error(err))
		}
	}

	// Close Redis
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			c.Log.Warn("error closing redis", zap.Error(err))
		}
	}

	// Close database
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
	}

	return nil
}

func loadSeedUsers(path string) ([]domain.UserSummary, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	var users []domain.UserSummary
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	for i := range users {
		users[i].IsActive = true
	}
	return users, nil
}

func originChecker(origins []string) func(r *http.Request) bool {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			return nil
		}
		allowed[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed[origin]
	}
}
