// Package server initializes and runs the secrets service: it opens the
// verification code database, applies migrations, builds the AWS clients and
// the event pipeline, and starts the HTTP API with graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/forgotpw/secretsvc/internal/logging"
	"github.com/forgotpw/secretsvc/internal/server/codes"
	"github.com/forgotpw/secretsvc/internal/server/config"
	"github.com/forgotpw/secretsvc/internal/server/events"
	"github.com/forgotpw/secretsvc/internal/server/grants"
	"github.com/forgotpw/secretsvc/internal/server/httpapi"
	"github.com/forgotpw/secretsvc/internal/server/identity"
	"github.com/forgotpw/secretsvc/internal/server/migrations"
	"github.com/forgotpw/secretsvc/internal/server/secrets"
)

type App struct {
	config *config.Config
	logger logging.Logger
	db     *sql.DB
	server *httpapi.Server
}

func NewApp(c *config.Config) (*App, error) {

	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	db, err := openDB(context.Background(), c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	awsCfg, err := loadAWSConfig(context.Background(), c)
	if err != nil {
		return nil, fmt.Errorf("aws config error: %w", err)
	}

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if c.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(c.S3BaseEndpoint)
			o.UsePathStyle = true
		}
	})
	snsClient := sns.NewFromConfig(awsCfg, func(o *sns.Options) {
		if c.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(c.S3BaseEndpoint)
		}
	})

	resolver := identity.NewHTTPResolver(c.ResolverEndpoint)

	emitter := events.NewEmitter(events.NewSNSPublisher(snsClient), events.Topics{
		Store:    c.StoreTopicARN,
		Retrieve: c.RetrieveTopicARN,
		Nuke:     c.NukeTopicARN,
		SendCode: c.SendCodeTopicARN,
	}, logger)

	codeSvc := codes.NewService(codes.NewPostgresRepository(db), resolver, emitter, logger)
	grantSvc := grants.NewService(grants.NewS3Store(s3Client, c.AuthReqBucket, logger), c.GrantValidityDuration, logger)
	secretSvc := secrets.NewService(s3Client, c.UserdataBucket, c.UserdataSSECKey, emitter, grantSvc, logger)

	srv := httpapi.NewServer(c.EndpointAddr, logger, resolver, codeSvc, grantSvc, secretSvc, emitter, c.ServiceTokenKey)

	return &App{config: c, logger: logger, db: db, server: srv}, nil
}

func openDB(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	goose.SetBaseFS(migrations.Migrations)
	if err := goose.UpContext(ctx, db, "."); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	return db, nil
}

func loadAWSConfig(ctx context.Context, c *config.Config) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(c.AWSRegion),
	}
	// static credentials are only configured for S3-compatible local backends
	if c.S3AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.S3AccessKey, c.S3SecretKey, "")))
	}
	return awsconfig.LoadDefaultConfig(ctx, opts...)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := app.server.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
	}()

	wg.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error(ctx, err.Error())
	}
}
