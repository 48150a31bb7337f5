// Command gcprestctl is a small end-to-end demonstration of the runtime:
// it loads a client config, builds an Authenticator from a service-account
// key file, wires the executor pipeline, and issues a single read against
// one of the wrapped services.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GoCodeAlone/gcprest/auth"
	"github.com/GoCodeAlone/gcprest/breaker"
	"github.com/GoCodeAlone/gcprest/cache"
	"github.com/GoCodeAlone/gcprest/clientconfig"
	"github.com/GoCodeAlone/gcprest/executor"
	"github.com/GoCodeAlone/gcprest/logging"
	"github.com/GoCodeAlone/gcprest/metrics"
	"github.com/GoCodeAlone/gcprest/services/compute"
	"github.com/GoCodeAlone/gcprest/services/iam"
	gcplogging "github.com/GoCodeAlone/gcprest/services/logging"
	"github.com/GoCodeAlone/gcprest/services/run"
	"github.com/GoCodeAlone/gcprest/services/secretmanager"
	"github.com/GoCodeAlone/gcprest/services/storage"
)

var (
	credFile   = flag.String("credentials", "", "Path to a service-account JSON key file")
	configFile = flag.String("config", "", "Path to a client config YAML file (optional)")
	service    = flag.String("service", "", "Service to call: storage|compute|iam|secretmanager|run|logging")
	project    = flag.String("project", "", "GCP project ID")
	name       = flag.String("name", "", "Resource name (bucket, instance, service account email, secret, run service)")
	zone       = flag.String("zone", "", "Zone, for compute.instances.get")
	timeout    = flag.Duration("timeout", 30*time.Second, "Overall call timeout")
)

func main() {
	flag.Parse()

	logger := logging.New(logging.DefaultConfig())
	slog.SetDefault(logger)

	if err := realMain(logger); err != nil {
		log.Fatalf("gcprestctl: %v", err)
	}
}

func realMain(logger *slog.Logger) error {
	if *credFile == "" {
		return fmt.Errorf("-credentials is required")
	}
	if *service == "" {
		return fmt.Errorf("-service is required")
	}

	raw, err := os.ReadFile(*credFile)
	if err != nil {
		return fmt.Errorf("read credentials: %w", err)
	}
	cred, err := auth.ParseCredential(raw)
	if err != nil {
		return fmt.Errorf("parse credentials: %w", err)
	}

	cfg, err := clientconfig.Load(*configFile)
	if err != nil {
		return fmt.Errorf("load client config: %w", err)
	}

	authn, err := auth.NewAuthenticator(cred, http.DefaultClient)
	if err != nil {
		return fmt.Errorf("build authenticator: %w", err)
	}
	defer authn.Close()

	cachePolicy, err := cfg.CachePolicy()
	if err != nil {
		return fmt.Errorf("cache policy: %w", err)
	}
	breakerPolicy, err := cfg.BreakerPolicy()
	if err != nil {
		return fmt.Errorf("breaker policy: %w", err)
	}
	retryPolicy, err := cfg.RetryPolicy()
	if err != nil {
		return fmt.Errorf("retry policy: %w", err)
	}

	respCache := cache.NewResponseCache[any](cachePolicy)
	breakers := breaker.NewRegistry(breakerPolicy)
	collector := metrics.New()

	exec := executor.New(http.DefaultClient, authn, breakers, respCache,
		executor.WithRetryPolicy(retryPolicy),
		executor.WithMetrics(collector),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, *timeout)
	defer cancel()

	result, err := dispatch(ctx, exec)
	if err != nil {
		return err
	}

	encoded, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	fmt.Println(string(encoded))
	logger.Info("call completed", "service", *service, "breaker_state", breakers.HealthSnapshot())
	return nil
}

func dispatch(ctx context.Context, exec *executor.Executor) (any, error) {
	switch *service {
	case "storage":
		if *name == "" {
			return nil, fmt.Errorf("-name (bucket) is required for storage")
		}
		return storage.New(exec).GetBucket(ctx, *name)
	case "compute":
		if *project == "" || *zone == "" || *name == "" {
			return nil, fmt.Errorf("-project, -zone, and -name are required for compute")
		}
		return compute.New(exec).GetInstance(ctx, *project, *zone, *name)
	case "iam":
		if *project == "" || *name == "" {
			return nil, fmt.Errorf("-project and -name are required for iam")
		}
		return iam.New(exec).GetServiceAccount(ctx, *project, *name)
	case "secretmanager":
		if *project == "" || *name == "" {
			return nil, fmt.Errorf("-project and -name are required for secretmanager")
		}
		return secretmanager.New(exec).GetSecret(ctx, *project, *name)
	case "run":
		if *name == "" {
			return nil, fmt.Errorf("-name (full resource name) is required for run")
		}
		return run.New(exec).GetService(ctx, *name)
	case "logging":
		if *project == "" {
			return nil, fmt.Errorf("-project is required for logging")
		}
		return gcplogging.New(exec).ListLogEntries(ctx, []string{"projects/" + *project}, "", 10)
	default:
		return nil, fmt.Errorf("unknown -service %q", *service)
	}
}
