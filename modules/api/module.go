package api

import (
	"context"
	"fmt"
	"log"

	"github.com/example/task-sync/modules/activity"
	"github.com/example/task-sync/modules/auth"
	"github.com/example/task-sync/modules/ratelimit"
	"github.com/example/task-sync/modules/task"
	"github.com/go-monolith/mono"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// APIModule is the driving adapter that exposes the REST API.
type APIModule struct {
	app       *fiber.App
	port      int
	tasks     task.TaskPort
	auth      auth.AuthPort
	activity  activity.ActivityPort
	rateLimit *ratelimit.Module
}

var _ mono.Module = (*APIModule)(nil)
var _ mono.DependentModule = (*APIModule)(nil)
var _ mono.HealthCheckableModule = (*APIModule)(nil)

// NewModule creates an APIModule listening on port.
func NewModule(port int) *APIModule {
	return &APIModule{port: port}
}

func (m *APIModule) Name() string {
	return "api"
}

func (m *APIModule) Dependencies() []string {
	return []string{"auth", "task", "activity"}
}

func (m *APIModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	switch dependency {
	case "auth":
		m.auth = auth.NewAuthAdapter(container)
	case "task":
		m.tasks = task.NewTaskAdapter(container)
	case "activity":
		m.activity = activity.NewActivityAdapter(container)
	}
}

// SetRateLimiter enables per-user rate limiting of the task routes. It must
// be called before Start; the limiter module has to be started first.
func (m *APIModule) SetRateLimiter(rl *ratelimit.Module) {
	m.rateLimit = rl
}

func (m *APIModule) Start(_ context.Context) error {
	if m.tasks == nil {
		return fmt.Errorf("task dependency not set")
	}
	if m.auth == nil {
		return fmt.Errorf("auth dependency not set")
	}
	if m.activity == nil {
		return fmt.Errorf("activity dependency not set")
	}

	m.app = m.newApp()

	go func() {
		if err := m.app.Listen(fmt.Sprintf(":%d", m.port)); err != nil {
			log.Printf("[api] HTTP server error: %v", err)
		}
	}()

	log.Printf("[api] HTTP server started on :%d", m.port)
	return nil
}

func (m *APIModule) Stop(_ context.Context) error {
	if m.app == nil {
		return nil
	}
	log.Println("[api] Shutting down HTTP server...")
	return m.app.Shutdown()
}

func (m *APIModule) Health(_ context.Context) mono.HealthStatus {
	return mono.HealthStatus{
		Healthy: m.app != nil,
		Message: "operational",
		Details: map[string]any{
			"port":       m.port,
			"rate_limit": m.rateLimit.Handler() != nil,
		},
	}
}

// newApp builds the Fiber application with every route registered.
func (m *APIModule) newApp() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "task-sync",
		DisableStartupMessage: true,
		ErrorHandler:          customErrorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New())

	m.setupRoutes(app)
	return app
}
