// cmd/notifier/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"coachme-notifier/internal/audit"
	"coachme-notifier/internal/changefeed"
	"coachme-notifier/internal/common/aws"
	"coachme-notifier/internal/common/camunda"
	"coachme-notifier/internal/common/config"
	"coachme-notifier/internal/common/database"
	apphttp "coachme-notifier/internal/common/http"
	"coachme-notifier/internal/common/logger"
	"coachme-notifier/internal/common/observability"
	"coachme-notifier/internal/common/validation"
	"coachme-notifier/internal/dispatch"
	"coachme-notifier/internal/scheduler"
	"coachme-notifier/internal/store"
	"coachme-notifier/pkg/registry"

	rs "coachme-notifier/internal/workers/appointment/reminder-sweep"
	sc "coachme-notifier/internal/workers/appointment/status-change"
	on "coachme-notifier/internal/workers/order/order-notification"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	configPath := flag.String("config", "", "Path to a config file (default: configs/config.yaml)")
	sweepOnce := flag.Bool("sweep-once", false, "Run the reminder sweep for today and exit")
	initSchema := flag.Bool("init-schema", false, "Create record tables and change triggers, then exit")
	flag.Parse()

	var (
		cfg *config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.LoadFromFile(*configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog).WithFields(map[string]interface{}{
		"service": cfg.App.Name,
		"version": cfg.App.Version,
	})

	zapLog.Info("Starting notifier...", zap.String("environment", cfg.App.Environment))

	obs := observability.New(cfg.App.Name)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	recordStore := store.NewRecordStore(pg.DB)

	if *initSchema {
		if err := recordStore.InitSchema(ctx, cfg.ChangeFeed.Channel); err != nil {
			zapLog.Fatal("schema init failed", zap.Error(err))
		}
		zapLog.Info("Schema initialised", zap.String("channel", cfg.ChangeFeed.Channel))
		return
	}

	// --- Init Redis with retry ---
	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer rdb.Close()

	checks := map[string]apphttp.Checker{
		"postgres": pg.Ping,
		"redis":    rdb.Ping,
	}

	// --- Push delivery ---
	endpointCache := aws.NewRedisEndpointCache(rdb.Client, config.GetDuration(cfg.Push.EndpointCacheTTL))
	snsClient, err := aws.NewSNSClient(ctx, cfg.Push.Region, cfg.Push.PlatformApplicationARN, endpointCache, log)
	if err != nil {
		zapLog.Fatal("sns client init failed", zap.Error(err))
	}

	reporterOpts := []dispatch.ReporterOption{dispatch.WithInstruments(obs)}
	if cfg.Audit.Enabled {
		var esClient *database.ElasticsearchClient
		err = retryWithBackoff(func() error {
			var err error
			esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch, nil)
			if err != nil {
				return err
			}
			return esClient.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Elasticsearch connection")
		if err != nil {
			zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
		}
		reporterOpts = append(reporterOpts, dispatch.WithRecorder(audit.NewSink(esClient.Client, cfg.Audit.Index)))
		checks["elasticsearch"] = esClient.Ping
	}

	dispatcher := dispatch.NewDispatcher(snsClient, dispatch.WithTracer(obs.Tracer()))
	reporter := dispatch.NewReporter(log, reporterOpts...)

	validator, err := validation.NewValidator()
	if err != nil {
		zapLog.Fatal("schema compile failed", zap.Error(err))
	}

	loc, _ := cfg.Schedule.Location() // validated on load
	sweepCfg := config.GetTriggerConfig(cfg, rs.TaskType)
	sweep := rs.NewHandler(
		&rs.Config{
			Timeout:        config.GetDuration(sweepCfg.Timeout),
			Location:       loc,
			MaxConcurrency: sweepCfg.MaxConcurrency,
		},
		recordStore, dispatcher, reporter, log,
	)

	if *sweepOnce {
		runCtx, cancel := context.WithTimeout(ctx, config.GetDuration(sweepCfg.Timeout))
		out, err := sweep.Execute(runCtx, time.Now())
		cancel()
		if err != nil {
			zapLog.Fatal("reminder sweep failed", zap.Error(err))
		}
		zapLog.Info("Reminder sweep done",
			zap.Int("matched", out.Matched), zap.Int("sent", out.Sent), zap.Int("failed", out.Failed))
		return
	}

	// --- Change feed triggers ---
	reg := registry.Default()
	if cfg.App.RegistryPath != "" {
		if reg, err = registry.LoadRegistry(cfg.App.RegistryPath); err != nil {
			zapLog.Fatal("trigger registry load failed", zap.Error(err))
		}
	}
	if err := reg.Validate(); err != nil {
		zapLog.Fatal("trigger registry invalid", zap.Error(err))
	}

	orderCfg := config.GetTriggerConfig(cfg, on.TaskType)
	statusCfg := config.GetTriggerConfig(cfg, sc.TaskType)
	handlers := map[string]changefeed.Handler{
		on.TaskType: on.NewHandler(
			&on.Config{Timeout: config.GetDuration(orderCfg.Timeout)},
			recordStore, dispatcher, reporter, validator, log,
		),
		sc.TaskType: sc.NewHandler(
			&sc.Config{
				Timeout:             config.GetDuration(statusCfg.Timeout),
				SkipUnchangedStatus: statusCfg.SkipUnchangedStatus,
			},
			dispatcher, reporter, validator, log,
		),
	}

	router := changefeed.NewRouter(cfg.ChangeFeed.MaxInFlight, log).WithInvocations(obs)
	for _, t := range reg.ChangeFeedTriggers() {
		tcfg := config.GetTriggerConfig(cfg, t.Name)
		if !tcfg.Enabled {
			zapLog.Info("trigger disabled", zap.String("trigger", t.Name))
			continue
		}
		h, ok := handlers[t.Name]
		if !ok {
			zapLog.Warn("no handler for registered trigger", zap.String("trigger", t.Name))
			continue
		}
		router.Register(t.Collection, changefeed.Kind(t.Event), t.Name, config.GetDuration(tcfg.Timeout), h)
		zapLog.Info("trigger registered",
			zap.String("trigger", t.Name),
			zap.String("collection", t.Collection),
			zap.String("event", t.Event),
		)
	}

	var source changefeed.Source
	switch cfg.ChangeFeed.Source {
	case config.ChangeFeedKafka:
		source = changefeed.NewKafkaSource(cfg.ChangeFeed.Kafka, log)
	default:
		source = changefeed.NewPostgresSource(cfg.Database.Postgres.GetDSN(), cfg.ChangeFeed.Channel, log)
	}

	sourceErr := make(chan error, 1)
	go func() {
		sourceErr <- source.Run(ctx, router)
	}()

	// --- Daily reminder sweep ---
	var (
		zeebe       *camunda.Client
		sweepWorker *camunda.Worker
	)
	if config.IsTriggerEnabled(cfg, rs.TaskType) {
		switch cfg.Schedule.Mode {
		case config.ScheduleZeebe:
			err = retryWithBackoff(func() error {
				var err error
				zeebe, err = camunda.NewClientWithConfig(&camunda.ClientConfig{
					GatewayAddress:         cfg.Camunda.BrokerAddress,
					UsePlaintextConnection: cfg.Camunda.Plaintext,
					RequestTimeout:         config.GetDuration(cfg.Camunda.RequestTimeout),
				})
				return err
			}, 10, 2*time.Second, zapLog, "Zeebe client initialization")
			if err != nil {
				zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
			}
			checks["zeebe"] = zeebe.HealthCheck

			if cfg.Camunda.ProcessFile != "" {
				if _, err := zeebe.DeployProcess(ctx, cfg.Camunda.ProcessFile); err != nil {
					zapLog.Fatal("process deployment failed", zap.Error(err), zap.String("file", cfg.Camunda.ProcessFile))
				}
			}
			sweepWorker = camunda.NewWorker(zeebe.GetClient(), camunda.WorkerConfig{
				JobType:       cfg.Schedule.JobType,
				MaxJobsActive: cfg.Camunda.MaxJobsActive,
				Timeout:       config.GetDuration(sweepCfg.Timeout),
			}, sweep.HandleJob, log)

		default:
			owner, _ := os.Hostname()
			daily := scheduler.NewDaily(scheduler.Config{
				Name:        rs.TaskType,
				Hour:        cfg.Schedule.Hour,
				Minute:      cfg.Schedule.Minute,
				Location:    loc,
				LockTTL:     config.GetDuration(cfg.Schedule.LockTTL),
				MaxAttempts: cfg.Schedule.MaxAttempts,
				RetryDelay:  config.GetDuration(cfg.Schedule.RetryDelay),
				Timeout:     config.GetDuration(sweepCfg.Timeout),
			}, sweep.Run, scheduler.NewRedisLocker(rdb.Client, owner+"/"+uuid.NewString()), log)
			go func() {
				if err := daily.Run(ctx); err != nil && ctx.Err() == nil {
					zapLog.Error("reminder schedule stopped", zap.Error(err))
				}
			}()
		}
	}

	// --- Health & Metrics Server ---
	server := apphttp.NewServer(cfg.Server.Address, checks, log)
	server.Start()

	zapLog.Info("Notifier started",
		zap.String("changeFeed", cfg.ChangeFeed.Source),
		zap.String("scheduleMode", cfg.Schedule.Mode),
	)

	// --- Graceful Shutdown ---
	select {
	case <-ctx.Done():
		zapLog.Info("Shutdown signal received, draining triggers...")
	case err := <-sourceErr:
		zapLog.Error("change feed stopped", zap.Error(err))
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if sweepWorker != nil {
		sweepWorker.Stop()
	}
	if err := router.Wait(shutdownCtx); err != nil {
		zapLog.Warn("in-flight triggers did not finish", zap.Error(err))
	}
	if zeebe != nil {
		if err := zeebe.Close(); err != nil {
			zapLog.Error("Error closing Zeebe client", zap.Error(err))
		}
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping health server", zap.Error(err))
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("Error stopping telemetry", zap.Error(err))
	}

	zapLog.Info("Notifier stopped gracefully")
}
