package matchclient

import (
	"context"
	"sync"
	"time"

	"github.com/gdugdh24/matchcore/pkg/pushclient"
	"go.uber.org/zap"
)

// Config wires a Client to one server.
type Config struct {
	BaseURL     string
	PushURL     string
	Credentials pushclient.CredentialSource

	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	DegradedAfter  time.Duration
	// PingInterval is the server's push ping interval; the socket is
	// considered dead after two intervals without traffic.
	PingInterval time.Duration

	Logger *zap.Logger
}

// Client is the composition of a push session and the reconciler: pushed
// envelopes are merged into the cache and the cache is rebuilt from the REST
// API after every successful connect.
type Client struct {
	*Reconciler
	Session *pushclient.Session

	log *zap.Logger

	mu    sync.RWMutex
	token string
	ctx   context.Context
}

func NewClient(cfg Config) *Client {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	c := &Client{
		log: cfg.Logger.Named("matchclient"),
		ctx: context.Background(),
	}
	c.Reconciler = NewReconciler(NewHTTPAPI(cfg.BaseURL, c.currentToken))
	dialer := pushclient.NewWebsocketDialer(cfg.PushURL)
	if cfg.PingInterval > 0 {
		dialer.ReadTimeout = 2 * cfg.PingInterval
	}
	c.Session = pushclient.New(pushclient.Options{
		Dialer:         dialer,
		Credentials:    c.trackCredentials(cfg.Credentials),
		InitialBackoff: cfg.InitialBackoff,
		MaxBackoff:     cfg.MaxBackoff,
		DegradedAfter:  cfg.DegradedAfter,
		OnEnvelope:     c.Reconciler.HandleEnvelope,
		OnConnected:    c.onConnected,
		Logger:         cfg.Logger,
	})
	return c
}

// Start connects the push session; the REST client reuses its credential.
func (c *Client) Start(ctx context.Context) {
	c.mu.Lock()
	c.ctx = ctx
	c.mu.Unlock()
	c.Session.Connect(ctx)
}

func (c *Client) Close() {
	c.Session.Close()
}

func (c *Client) currentToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

func (c *Client) trackCredentials(src pushclient.CredentialSource) pushclient.CredentialSource {
	return func(ctx context.Context, forceRefresh bool) (string, error) {
		token, err := src(ctx, forceRefresh)
		if err != nil {
			return "", err
		}
		c.mu.Lock()
		c.token = token
		c.mu.Unlock()
		return token, nil
	}
}

func (c *Client) onConnected(userID string) {
	c.mu.RLock()
	ctx := c.ctx
	c.mu.RUnlock()

	go func() {
		if err := c.Rebuild(ctx); err != nil {
			c.log.Warn("failed to rebuild cache", zap.String("user_id", userID), zap.Error(err))
		}
	}()
}
