package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/darkevich777/anime-quiz/internal/app"
	"github.com/darkevich777/anime-quiz/internal/config"
	"github.com/darkevich777/anime-quiz/internal/infra/anilist"
	"github.com/darkevich777/anime-quiz/internal/infra/memory"
	pgbank "github.com/darkevich777/anime-quiz/internal/infra/postgres"
	rediscache "github.com/darkevich777/anime-quiz/internal/infra/redis"
	"github.com/darkevich777/anime-quiz/internal/telegram"
	transport "github.com/darkevich777/anime-quiz/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := migrateMediaBank(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	// Question source: the curated Postgres bank when configured, the public
	// AniList API otherwise. Setting anilist.url to "off" selects the built-in
	// static pool so the service runs without network access.
	var loader anilist.PageLoader
	switch {
	case pool != nil:
		loader = pgbank.NewMediaBank(pool)
	case cfg.AniList.URL == "off":
		loader = anilist.NewStaticMediaSource(anilist.SampleMedia())
	default:
		loader = anilist.NewClient(cfg.AniList.URL)
	}

	mediaTTL := config.TTLDuration(cfg.AniList.TTL, 10*time.Minute)
	if redisClient != nil {
		loader = rediscache.NewMediaCache(redisClient, loader, mediaTTL)
	} else {
		loader = memory.NewMediaCache(loader, mediaTTL)
	}
	generator := anilist.NewGenerator(loader)

	rules := gameRules(cfg.Game)
	service := app.NewGameService(
		app.NewSessionStore(rules),
		app.NewRematchRegistry(rules),
		generator,
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	transport.NewHandler(service, cfg.Telegram.WebAppURL).Register(mux)
	mux.HandleFunc("/ws", transport.NewWSHandler(service).ServeWS)

	if cfg.Telegram.Token != "" {
		bot := telegram.NewClient(cfg.Telegram.Token)
		if cfg.Telegram.WebhookURL != "" {
			if err := bot.SetWebhook(cfg.Telegram.WebhookURL); err != nil {
				return err
			}
		}
		webhook := telegram.NewHandler(service, bot, cfg.Telegram.WebAppURL)
		mux.HandleFunc("/webhook", webhook.ServeWebhook)
	}

	if cfg.Web.Dir != "" {
		mux.Handle("/web/", http.StripPrefix("/web/", http.FileServer(http.Dir(cfg.Web.Dir))))
	}

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting anime quiz service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// gameRules overlays the config knobs onto the engine defaults; zero values
// keep the default.
func gameRules(gc config.GameConfig) app.Rules {
	rules := app.DefaultRules()
	if gc.TimerMin > 0 {
		rules.TimerMin = gc.TimerMin
	}
	if gc.TimerMax > 0 {
		rules.TimerMax = gc.TimerMax
	}
	if len(gc.RoundsChoices) > 0 {
		rules.RoundsChoices = gc.RoundsChoices
	}
	if gc.RoundsDefault > 0 {
		rules.RoundsDefault = gc.RoundsDefault
	}
	if gc.ReadyFraction > 0 {
		rules.ReadyFraction = gc.ReadyFraction
	}
	if gc.CountdownSeconds > 0 {
		rules.CountdownSeconds = gc.CountdownSeconds
	}
	rules.FinalizeSlop = config.TTLDuration(gc.FinalizeSlop, rules.FinalizeSlop)
	rules.RematchTTL = config.TTLDuration(gc.RematchTTL, rules.RematchTTL)
	if gc.NoAnswerPenalty != nil {
		rules.NoAnswerPenalty = *gc.NoAnswerPenalty
	}
	return rules
}
