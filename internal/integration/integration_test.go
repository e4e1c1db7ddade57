package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/darkevich777/anime-quiz/internal/app"
	"github.com/darkevich777/anime-quiz/internal/domain"
	"github.com/darkevich777/anime-quiz/internal/infra/anilist"
	pgbank "github.com/darkevich777/anime-quiz/internal/infra/postgres"
	pgmigrations "github.com/darkevich777/anime-quiz/internal/infra/postgres/migrations"
	infraredis "github.com/darkevich777/anime-quiz/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

func TestFullRoundEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedMedia(t, ctx, pgURL, anilist.SampleMedia())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	cache := infraredis.NewMediaCache(redisClient, pgbank.NewMediaBank(pool), 5*time.Minute)
	generator := anilist.NewGenerator(cache)

	rules := app.DefaultRules()
	rules.CountdownSeconds = 0
	service := app.NewGameService(
		app.NewSessionStore(rules),
		app.NewRematchRegistry(rules),
		generator,
	)

	chatID := int64(777)
	if _, err := service.Register(chatID, 1, "Alice"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := service.Register(chatID, 2, "Bob"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := service.ClaimModerator(chatID, 1); err != nil {
		t.Fatalf("claim: %v", err)
	}

	snap, err := service.StartRound(ctx, chatID, 1, 60)
	if err != nil {
		t.Fatalf("start round: %v", err)
	}
	if snap.Question == nil || len(snap.Question.Options) != 4 {
		t.Fatalf("expected generated question, got %+v", snap.Question)
	}
	correct := *snap.Question.CorrectIndex // moderator view

	if _, err := service.MarkReady(chatID, 1); err != nil {
		t.Fatalf("ready: %v", err)
	}
	if _, err := service.MarkReady(chatID, 2); err != nil {
		t.Fatalf("ready: %v", err)
	}

	if _, err := service.SubmitAnswer(chatID, 2, correct); err != nil {
		t.Fatalf("answer: %v", err)
	}
	snap, err = service.SubmitAnswer(chatID, 1, (correct+1)%4)
	if err != nil {
		t.Fatalf("answer: %v", err)
	}
	if !snap.Round.Finished {
		t.Fatalf("expected round finished")
	}
	if snap.Scores["2"] != 1 || snap.Scores["1"] != 0 {
		t.Fatalf("unexpected scores: %v", snap.Scores)
	}

	end, err := service.EndGame(chatID, 1)
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	if end.Phase != domain.PhaseRematch || end.Standings[0].UserID != 2 {
		t.Fatalf("expected Bob leading the final standings, got %+v", end.Standings)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quiz", "POSTGRES_PASSWORD": "quizpass", "POSTGRES_DB": "quizdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quiz:quizpass@%s:%s/quizdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func seedMedia(t *testing.T, ctx context.Context, dsn string, media []domain.Media) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	for _, m := range media {
		data, err := json.Marshal(m)
		if err != nil {
			t.Fatalf("marshal media: %v", err)
		}
		if _, err := db.ExecContext(ctx, `INSERT INTO media (id, data) VALUES (?, ?::jsonb) ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data`, m.ID, string(data)); err != nil {
			t.Fatalf("insert media: %v", err)
		}
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
