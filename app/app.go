package chatter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/go-chi/cors"
	"github.com/putto11262002/roomchat/core"
	"github.com/putto11262002/roomchat/pkg/cache"
	"github.com/putto11262002/roomchat/pkg/gif"
	"github.com/putto11262002/roomchat/pkg/router"
	"github.com/putto11262002/roomchat/widget"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config    *Config
	db        *core.SQLiteDB
	context   context.Context
	cancel    context.CancelFunc
	server    *http.Server
	logger    *slog.Logger
	router    *router.Router
	emitter   *core.EventEmitter
	wsManager *core.ConnManager

	chatStore core.ChatStore
	gifClient *gif.Client
	renderer  *widget.Renderer

	chatHandler *ChatHandler
	gifHandler  *GIFHandler

	cleanupFuncs []func(context.Context)

	staticFS *StaticFS

	wg sync.WaitGroup
}

type Option func(*App)

func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		a.logger = logger
	}
}

// WithStaticFS serves fs at / instead of the directory named in the config.
func WithStaticFS(fs *StaticFS) Option {
	return func(a *App) {
		a.staticFS = fs
	}
}

// New wires the stores, handlers and routes of the chat server.
// ctx bounds the lifetime of the websocket listeners.
func New(ctx context.Context, config *Config, opts ...Option) (*App, error) {
	if err := config.Validate(); err != nil {
		return nil, errors.New(FormatValidationErrors(err))
	}

	app := &App{config: config}
	app.context, app.cancel = context.WithCancel(ctx)
	for _, opt := range opts {
		opt(app)
	}
	if app.logger == nil {
		app.logger = NewLogger(os.Stdout, config.LogLevel)
	}

	var err error
	if app.staticFS == nil && config.Static.Dir != "" {
		app.staticFS, err = NewStaticFS(os.DirFS(config.Static.Dir), config.Static.Fallback, defaultCacheControl)
		if err != nil {
			app.cancel()
			return nil, fmt.Errorf("static files: %w", err)
		}
	}

	sqliteOptions := &core.SQLiteDBOption{
		Mode:        "rwc",
		JournalMode: "WAL",
		TxLock:      "immediate",
	}
	app.db, err = core.NewSQLiteDB(config.SQLite.File, config.SQLite.Migrations, sqliteOptions)
	if err != nil {
		app.cancel()
		return nil, fmt.Errorf("open database: %w", err)
	}
	app.AddCleanupFunc(func(ctx context.Context) {
		app.db.Close()
	})
	if err := app.db.Migrate(); err != nil {
		app.cancel()
		app.db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	app.chatStore = core.NewSQLiteChatStore(app.db.DB)

	app.wsManager = core.NewConnManager(app.context, &app.wg, app.logger,
		core.WithCheckOrigin(app.checkOrigin))
	app.wsManager.OnConnectionOpened(app.onListenerOpened)
	app.wsManager.OnConnectionClosed(app.onListenerClosed)
	app.emitter = core.NewEventEmitter(app.wsManager)

	if config.GIF.APIKey != "" {
		gifOpts := []gif.ClientOption{gif.WithCache(app.gifCache()), gif.WithLogger(app.logger)}
		if config.GIF.BaseURL != "" {
			gifOpts = append(gifOpts, gif.WithBaseURL(config.GIF.BaseURL))
		}
		app.gifClient = gif.NewClient(config.GIF.APIKey, gifOpts...)
	}

	app.renderer, err = widget.NewRenderer()
	if err != nil {
		app.cancel()
		app.db.Close()
		return nil, fmt.Errorf("load templates: %w", err)
	}

	app.chatHandler = NewChatHandler(app.chatStore, app.emitter, app.wsManager, app.renderer, app.logger)
	app.gifHandler = NewGIFHandler(app.gifClient)

	app.routes()

	app.server = &http.Server{
		Addr:    config.Addr(),
		Handler: app.router,
		BaseContext: func(listener net.Listener) context.Context {
			return app.context
		},
	}
	if config.Mode == ProdMode {
		app.server.TLSConfig = defaultTLSConfig.Clone()
	}
	return app, nil
}

func (app *App) gifCache() cache.Cache {
	if app.config.GIF.RedisAddr == "" {
		return cache.NewMemoryCache(app.config.GIF.CacheTTL)
	}
	c := cache.NewRedisCache(redis.NewClient(&redis.Options{Addr: app.config.GIF.RedisAddr}),
		"roomchat:", app.config.GIF.CacheTTL)
	app.AddCleanupFunc(func(ctx context.Context) {
		c.Close()
	})
	return c
}

func badRequest(err error) router.Error {
	return router.NewJsonError(http.StatusBadRequest, err.Error())
}

func (app *App) routes() {
	app.router = router.New(router.WithLogger(app.logger))

	app.router.Router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   app.config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
	}))

	api := router.New(router.WithLogger(app.logger))
	api.RegisterErrorMapper(core.ErrInvalidRoom, badRequest)
	api.RegisterErrorMapper(core.ErrInvalidMessage, badRequest)
	api.RegisterErrorMapper(core.ErrInvalidChannelName, badRequest)
	api.RegisterErrorMapper(gif.ErrEmptyQuery, badRequest)
	api.RegisterErrorMapper(gif.ErrUpstream, func(err error) router.Error {
		return router.NewJsonError(http.StatusBadGateway, "gif provider unavailable")
	})

	api.Route("/v0/chats/{roomID}", func(r *router.Router) {
		r.Get("/", app.chatHandler.GetChatHandler)
		r.Post("/", app.chatHandler.PostChatHandler)
		r.Get("/fragment", app.chatHandler.GetFragmentHandler)
		r.Get("/ws", app.chatHandler.WatchHandler)
	})
	api.Get("/v0/gifs/search", app.gifHandler.SearchHandler)

	app.router.Mount("/api", api)

	if app.staticFS != nil {
		app.router.Router.With(app.staticFS.EtagMiddleware()).Mount("/", http.FileServer(app.staticFS))
	}
}

// Handler returns the root handler of the server.
func (app *App) Handler() http.Handler {
	return app.router
}

// Run serves until ctx is done, then shuts the server down and runs the cleanup
// functions. Shutdown is bounded by a 10 second timeout.
func (app *App) Run(ctx context.Context) error {
	app.AddCleanupFunc(func(ctx context.Context) {
		app.server.Shutdown(ctx)
	})

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		app.logger.Info(fmt.Sprintf("app running in %s mode on: %s", app.config.Mode, app.config.Addr()))
		var err error
		if app.config.TLS.Key != "" && app.config.TLS.Crt != "" {
			err = app.server.ListenAndServeTLS(app.config.TLS.Crt, app.config.TLS.Key)
		} else {
			err = app.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// listen for shutdown signal
	g.Go(func() error {
		<-ctx.Done()
		return app.shutdown()
	})

	return g.Wait()
}

func (app *App) shutdown() error {
	closeCtx, closeCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer closeCancel()

	// stops the websocket loops
	app.cancel()

	done := make(chan struct{})
	go func() {
		// last added runs first so the server stops before the database closes
		for _, f := range slices.Backward(app.cleanupFuncs) {
			f(closeCtx)
		}
		app.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		app.logger.Info("app shutdown gracefully")
		return nil
	case <-closeCtx.Done():
		app.logger.Info("app shutdown timed out")
		return errors.New("shutdown timed out")
	}
}

func (app *App) AddCleanupFunc(f func(context.Context)) {
	app.cleanupFuncs = append(app.cleanupFuncs, f)
}

// Close releases the resources of an app that was never run.
func (app *App) Close() error {
	return app.shutdown()
}
