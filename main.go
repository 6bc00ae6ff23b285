// task-sync serves per-user task lists over HTTP. Every mutation answers
// with the owner's complete list so clients can replace their snapshot.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/example/task-sync/modules/activity"
	"github.com/example/task-sync/modules/api"
	"github.com/example/task-sync/modules/auth"
	"github.com/example/task-sync/modules/cache"
	"github.com/example/task-sync/modules/ratelimit"
	"github.com/example/task-sync/modules/task"
	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/middleware/accesslog"
	"github.com/go-monolith/mono/middleware/audit"
	"github.com/go-monolith/mono/middleware/requestid"
	kvjetstream "github.com/go-monolith/mono/plugin/kv-jetstream"
)

func main() {
	log.Println("=== task-sync ===")

	cfg := loadConfig()
	log.Printf("Configuration:")
	log.Printf("  HTTP Port: %d", cfg.HTTPPort)
	log.Printf("  Task storage: %s", cfg.Task.Driver)
	log.Printf("  Redis: %s", orDisabled(cfg.RedisAddr))
	log.Printf("  Rate limiting: %t", cfg.RateLimit)

	logLevel := mono.LogLevelInfo
	if cfg.LogLevel == "error" {
		logLevel = mono.LogLevelError
	}

	app, err := mono.NewMonoApplication(
		mono.WithShutdownTimeout(cfg.ShutdownTimeout),
		mono.WithLogLevel(logLevel),
		mono.WithLogFormat(mono.LogFormatText),
		mono.WithJetStreamStorageDir(cfg.JetStreamDir),
		mono.WithNATSPort(cfg.NATSPort),
	)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}

	closers := registerMiddleware(app, cfg)

	activityStore, err := kvjetstream.New(kvjetstream.Config{
		Buckets: []kvjetstream.BucketConfig{
			{
				Name:        activity.BucketName,
				Description: "Per-user task activity summaries",
				Storage:     kvjetstream.FileStorage,
			},
		},
	})
	if err != nil {
		log.Fatalf("Failed to create KV plugin: %v", err)
	}
	if err := app.RegisterPlugin(activityStore, "kv"); err != nil {
		log.Fatalf("Failed to register KV plugin: %v", err)
	}

	if cfg.RedisAddr != "" {
		if err := app.RegisterPlugin(cache.NewPluginModule(cfg.RedisAddr, cfg.CacheTTL), "cache"); err != nil {
			log.Fatalf("Failed to register cache plugin: %v", err)
		}
	}

	apiModule := api.NewModule(cfg.HTTPPort)
	if cfg.RateLimit {
		if cfg.RedisAddr == "" {
			log.Fatalf("RATE_LIMIT_ENABLED requires REDIS_ADDR")
		}
		rateLimitModule := ratelimit.NewModule(cfg.RedisAddr, cfg.RateLimitConfig)
		apiModule.SetRateLimiter(rateLimitModule)
		if err := app.Register(rateLimitModule); err != nil {
			log.Fatalf("Failed to register ratelimit module: %v", err)
		}
	}

	// Order: independent modules first, event consumers before emitters
	if err := registerModules(app,
		auth.NewModule(cfg.Auth),
		activity.NewModule(),
		task.NewModule(cfg.Task),
		apiModule,
	); err != nil {
		log.Fatalf("Failed to register modules: %v", err)
	}

	if err := app.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	printStartupInfo(cfg)

	wait := gfshutdown.GracefulShutdown(
		context.Background(),
		cfg.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"mono-app": func(ctx context.Context) error {
				log.Println("Graceful shutdown initiated...")
				return app.Stop(ctx)
			},
		},
	)

	exitCode := <-wait
	log.Printf("Application exited with code: %d", exitCode)
	for _, c := range closers {
		c.Close()
	}
	os.Exit(exitCode)
}

type moduleRegistrar interface {
	Register(module mono.Module) error
}

// registerModules registers modules in order and stops at the first failure.
func registerModules(app moduleRegistrar, modules ...mono.Module) error {
	for _, m := range modules {
		if err := app.Register(m); err != nil {
			return fmt.Errorf("register %s module: %w", m.Name(), err)
		}
	}
	return nil
}

// registerMiddleware installs the service-bus middleware ahead of every
// module. It returns the log files to close on exit.
func registerMiddleware(app moduleRegistrar, cfg Config) []io.Closer {
	var closers []io.Closer

	if cfg.AuditLogPath != "" {
		auditFile, err := os.OpenFile(cfg.AuditLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			log.Fatalf("Failed to open audit log: %v", err)
		}
		closers = append(closers, auditFile)

		auditMiddleware, err := audit.New(
			audit.WithOutput(auditFile),
			audit.WithHashChaining(""),
			audit.WithUserContext(func(ctx context.Context) string {
				if id, ok := api.CallerFromContext(ctx); ok {
					return id
				}
				return "system"
			}),
		)
		if err != nil {
			log.Fatalf("Failed to create audit middleware: %v", err)
		}
		if err := app.Register(auditMiddleware); err != nil {
			log.Fatalf("Failed to register audit middleware: %v", err)
		}
	}

	requestIDMiddleware, err := requestid.New(
		requestid.WithHeaderName("X-Request-ID"),
	)
	if err != nil {
		log.Fatalf("Failed to create requestid middleware: %v", err)
	}
	if err := app.Register(requestIDMiddleware); err != nil {
		log.Fatalf("Failed to register requestid middleware: %v", err)
	}

	var accessOut io.Writer = os.Stdout
	if cfg.AccessLogPath != "" {
		accessFile, err := os.OpenFile(cfg.AccessLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			log.Fatalf("Failed to open access log: %v", err)
		}
		closers = append(closers, accessFile)
		accessOut = accessFile
	}
	accessLogMiddleware, err := accesslog.New(
		accesslog.WithOutput(accessOut),
		accesslog.WithFormat(accesslog.FormatJSON),
		accesslog.WithFields([]accesslog.Field{
			accesslog.FieldTimestamp,
			accesslog.FieldRequestID,
			accesslog.FieldModule,
			accesslog.FieldService,
			accesslog.FieldServiceType,
			accesslog.FieldDurationMS,
			accesslog.FieldStatus,
			accesslog.FieldRequestSize,
			accesslog.FieldResponseSize,
		}),
	)
	if err != nil {
		log.Fatalf("Failed to create accesslog middleware: %v", err)
	}
	if err := app.Register(accessLogMiddleware); err != nil {
		log.Fatalf("Failed to register accesslog middleware: %v", err)
	}

	return closers
}

func orDisabled(s string) string {
	if s == "" {
		return "disabled"
	}
	return s
}

func printStartupInfo(cfg Config) {
	log.Println("")
	log.Println("Application started successfully!")
	log.Println("")
	if cfg.Auth.SeedDemoUsers {
		log.Println("Demo Users Available:")
		for _, u := range auth.DemoUsers {
			log.Printf("  - %s: %s (%s / %s)", u.ID, u.Name, u.Email, u.Password)
		}
		log.Println("")
	}
	log.Printf("REST API Endpoints (http://localhost:%d):", cfg.HTTPPort)
	log.Println("  POST   /api/v1/auth/register                      - Create an account")
	log.Println("  POST   /api/v1/auth/login                         - Obtain tokens")
	log.Println("  POST   /api/v1/auth/refresh                       - Refresh tokens")
	log.Println("  GET    /api/v1/users/:userId/tasks?filter=        - List tasks with stats")
	log.Println("  POST   /api/v1/users/:userId/tasks                - Create a task")
	log.Println("  GET    /api/v1/users/:userId/tasks/:taskId        - Get a task")
	log.Println("  PUT    /api/v1/users/:userId/tasks/:taskId/toggle - Toggle completion")
	log.Println("  PATCH  /api/v1/users/:userId/tasks/:taskId        - Edit a task")
	log.Println("  DELETE /api/v1/users/:userId/tasks/:taskId        - Delete a task")
	log.Println("  DELETE /api/v1/users/:userId/tasks/completed      - Clear completed tasks")
	log.Println("  GET    /api/v1/users/:userId/activity             - Activity summary")
	log.Println("  GET    /health                                    - Health check")
	log.Println("")
	log.Println("Press Ctrl+C to shutdown gracefully")
}
