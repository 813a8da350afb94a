package cmd

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ecs"
	elbv2 "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"holiday/compute"
	"holiday/config"
	"holiday/holiday"
	"holiday/logger"
	"holiday/orchestrator"
	"holiday/placeholder"
	"holiday/routing"
	"holiday/saga"
	"holiday/storage"
)

// env is everything one invocation talks to. All cloud clients share one
// transport; close releases its idle connections.
type env struct {
	cfg       *config.Config
	log       logger.Logger
	table     *holiday.Table
	transport *http.Transport
	journal   *saga.MemoryStore
	orch      *orchestrator.Orchestrator
}

// newEnv builds the environment for a command.
var newEnv = setup

// setup loads configuration and builds the adapters. quiet raises the
// default log level so log lines don't tear through the live view.
func setup(ctx context.Context, quiet bool) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if region != "" {
		cfg.Region = region
	}
	if bucket != "" {
		cfg.Bucket = bucket
	}
	if err := cfg.RequireListener(); err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if quiet && level == "info" {
		level = "error"
	}
	log, err := logger.New(level, cfg.LogPretty)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	table, err := holiday.Default()
	if err != nil {
		return nil, err
	}

	e := &env{
		cfg:       cfg,
		log:       log,
		table:     table,
		transport: http.DefaultTransport.(*http.Transport).Clone(),
		journal:   saga.NewMemoryStore(),
	}
	if err := e.wire(ctx); err != nil {
		e.close()
		return nil, err
	}
	return e, nil
}

func (e *env) wire(ctx context.Context) error {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(e.cfg.Region),
		awsconfig.WithHTTPClient(&http.Client{Transport: e.transport}),
	)
	if err != nil {
		return fmt.Errorf("aws config: %w", err)
	}

	objects, err := storage.NewClient(storage.Config{
		Endpoint:  e.cfg.S3Endpoint,
		AccessKey: e.cfg.S3AccessKey,
		SecretKey: e.cfg.S3SecretKey,
		Region:    e.cfg.Region,
		UseSSL:    e.cfg.S3UseSSL,
		Bucket:    e.cfg.Bucket,
		Transport: e.transport,
		Website:   s3.NewFromConfig(awsCfg),
	}, e.log.With(logger.String("adapter", "storage")))
	if err != nil {
		return err
	}

	backend, err := e.computeBackend(awsCfg)
	if err != nil {
		return err
	}

	router := routing.New(
		elbv2.NewFromConfig(awsCfg),
		e.cfg.ListenerARN,
		e.table,
		routing.StorageOrigin{TargetGroupARN: e.cfg.StorageTargetGroup, WebsiteHost: e.cfg.WebsiteHost()},
		e.log.With(logger.String("adapter", "routing")),
	)

	e.orch = orchestrator.New(orchestrator.Config{
		Table:       e.table,
		Storage:     objects,
		Compute:     compute.New(backend, e.log.With(logger.String("adapter", "compute")), e.cfg.Concurrency),
		Router:      router,
		Pages:       placeholder.New(""),
		Journal:     e.journal,
		Log:         e.log,
		Concurrency: e.cfg.Concurrency,
		CallTimeout: e.cfg.CallTimeout,
	})
	return nil
}

func (e *env) computeBackend(awsCfg aws.Config) (compute.Backend, error) {
	switch e.cfg.ComputeBackend {
	case "nomad":
		n, err := compute.NewNomadClient(e.cfg.NomadAddr, e.cfg.NomadNamespace, e.transport)
		if err != nil {
			return nil, err
		}
		return n, nil
	default:
		return compute.NewECS(ecs.NewFromConfig(awsCfg)), nil
	}
}

func (e *env) close() {
	e.transport.CloseIdleConnections()
	_ = e.log.Sync()
}
