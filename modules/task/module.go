package task

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	domain "github.com/example/task-sync/domain/task"
	"github.com/example/task-sync/events"
	"github.com/example/task-sync/modules/auth"
	"github.com/example/task-sync/modules/cache"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// Supported storage backends.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config selects and locates the task storage backend.
type Config struct {
	Driver      string
	DBPath      string
	DBDebug     bool
	DatabaseURL string
}

// TaskModule provides the task store (core domain) over the service bus.
type TaskModule struct {
	config   Config
	repo     Repository
	store    *Store
	userPort UserValidator
	cache    *cache.PluginModule
	eventBus mono.EventBus
}

var _ mono.Module = (*TaskModule)(nil)
var _ mono.ServiceProviderModule = (*TaskModule)(nil)
var _ mono.DependentModule = (*TaskModule)(nil)
var _ mono.EventEmitterModule = (*TaskModule)(nil)
var _ mono.UsePluginModule = (*TaskModule)(nil)
var _ mono.HealthCheckableModule = (*TaskModule)(nil)

// NewModule creates a TaskModule. Storage is opened in Start.
func NewModule(config Config) *TaskModule {
	if config.Driver == "" {
		config.Driver = DriverSQLite
	}
	return &TaskModule{config: config}
}

func (m *TaskModule) Name() string {
	return "task"
}

func (m *TaskModule) Dependencies() []string {
	return []string{"auth"}
}

func (m *TaskModule) SetDependencyServiceContainer(dependency string, container mono.ServiceContainer) {
	if dependency == "auth" {
		m.userPort = auth.NewAuthAdapter(container)
	}
}

// SetPlugin receives the optional snapshot cache plugin.
func (m *TaskModule) SetPlugin(alias string, plugin mono.PluginModule) {
	if alias != "cache" {
		return
	}
	if cachePlugin, ok := plugin.(*cache.PluginModule); ok {
		m.cache = cachePlugin
		log.Println("[task] Cache plugin injected")
	}
}

func (m *TaskModule) SetEventBus(bus mono.EventBus) {
	m.eventBus = bus
}

func (m *TaskModule) EmitEvents() []mono.BaseEventDefinition {
	return []mono.BaseEventDefinition{
		events.TaskCreatedV1.ToBase(),
		events.TaskToggledV1.ToBase(),
		events.TaskUpdatedV1.ToBase(),
		events.TaskDeletedV1.ToBase(),
		events.CompletedClearedV1.ToBase(),
	}
}

func (m *TaskModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "create-task", json.Unmarshal, json.Marshal, m.createTask,
	); err != nil {
		return fmt.Errorf("failed to register create-task service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "list-tasks", json.Unmarshal, json.Marshal, m.listTasks,
	); err != nil {
		return fmt.Errorf("failed to register list-tasks service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "get-task", json.Unmarshal, json.Marshal, m.getTask,
	); err != nil {
		return fmt.Errorf("failed to register get-task service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "toggle-task", json.Unmarshal, json.Marshal, m.toggleTask,
	); err != nil {
		return fmt.Errorf("failed to register toggle-task service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "update-task", json.Unmarshal, json.Marshal, m.updateTask,
	); err != nil {
		return fmt.Errorf("failed to register update-task service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "delete-task", json.Unmarshal, json.Marshal, m.deleteTask,
	); err != nil {
		return fmt.Errorf("failed to register delete-task service: %w", err)
	}

	if err := helper.RegisterTypedRequestReplyService(
		container, "clear-completed", json.Unmarshal, json.Marshal, m.clearCompleted,
	); err != nil {
		return fmt.Errorf("failed to register clear-completed service: %w", err)
	}

	log.Printf("[task] Registered services: create-task, list-tasks, get-task, toggle-task, update-task, delete-task, clear-completed")
	return nil
}

func (m *TaskModule) Start(ctx context.Context) error {
	if m.userPort == nil {
		return fmt.Errorf("userPort dependency not set")
	}
	if m.eventBus == nil {
		log.Println("[task] Warning: eventBus not set, events will not be published")
	}

	repo, err := m.openRepository(ctx)
	if err != nil {
		return err
	}
	m.repo = repo

	opts := []StoreOption{WithNotifier(&busNotifier{bus: m.eventBus})}
	cached := false
	if m.cache != nil {
		// Plugins start before modules, so the port is ready here.
		if port := m.cache.Port(); port != nil {
			opts = append(opts, WithSnapshotCache(port))
			cached = true
		}
	}
	m.store = NewStore(repo, m.userPort, opts...)

	log.Printf("[task] Module started (driver: %s, cache: %t, depends on: auth)", m.config.Driver, cached)
	return nil
}

func (m *TaskModule) Stop(_ context.Context) error {
	if m.repo != nil {
		if err := m.repo.Close(); err != nil {
			log.Printf("[task] Error closing database: %v", err)
		}
	}
	log.Println("[task] Module stopped")
	return nil
}

// Health reports whether the backing store answers a ping.
func (m *TaskModule) Health(ctx context.Context) mono.HealthStatus {
	if m.store == nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: "store not initialized",
		}
	}

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := m.store.Ping(pingCtx); err != nil {
		return mono.HealthStatus{
			Healthy: false,
			Message: fmt.Sprintf("database ping failed: %v", err),
		}
	}

	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{
			"driver": m.config.Driver,
			"cache":  m.cache != nil,
		},
	}
}

func (m *TaskModule) openRepository(ctx context.Context) (Repository, error) {
	switch m.config.Driver {
	case DriverSQLite:
		db, err := OpenSQLite(m.config.DBPath, m.config.DBDebug)
		if err != nil {
			return nil, err
		}
		log.Printf("[task] Database initialized at %s", m.config.DBPath)
		return NewGormRepository(db), nil
	case DriverPostgres:
		if m.config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the %s driver", DriverPostgres)
		}
		repo, err := OpenPostgres(ctx, m.config.DatabaseURL)
		if err != nil {
			return nil, err
		}
		log.Println("[task] Connected to PostgreSQL")
		return repo, nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %q", m.config.Driver)
	}
}

// busNotifier publishes committed mutations on the event bus. Publishing is
// best effort; failures are logged only.
type busNotifier struct {
	bus mono.EventBus
}

func (n *busNotifier) TaskCreated(_ context.Context, t domain.Task) {
	if n.bus == nil {
		return
	}
	ev := events.TaskCreatedEvent{
		TaskID:    t.ID,
		UserID:    t.UserID,
		Title:     t.Title,
		Completed: t.Completed,
		CreatedAt: t.CreatedAt,
	}
	if err := events.TaskCreatedV1.Publish(n.bus, ev, nil); err != nil {
		log.Printf("[task] Warning: failed to publish TaskCreated event for task %s: %v", t.ID, err)
	}
}

func (n *busNotifier) TaskToggled(_ context.Context, t domain.Task) {
	if n.bus == nil {
		return
	}
	ev := events.TaskToggledEvent{
		TaskID:    t.ID,
		UserID:    t.UserID,
		Completed: t.Completed,
		ToggledAt: t.UpdatedAt,
	}
	if err := events.TaskToggledV1.Publish(n.bus, ev, nil); err != nil {
		log.Printf("[task] Warning: failed to publish TaskToggled event for task %s: %v", t.ID, err)
	}
}

func (n *busNotifier) TaskUpdated(_ context.Context, t domain.Task, fields []string) {
	if n.bus == nil {
		return
	}
	ev := events.TaskUpdatedEvent{
		TaskID:    t.ID,
		UserID:    t.UserID,
		Fields:    fields,
		UpdatedAt: t.UpdatedAt,
	}
	if err := events.TaskUpdatedV1.Publish(n.bus, ev, nil); err != nil {
		log.Printf("[task] Warning: failed to publish TaskUpdated event for task %s: %v", t.ID, err)
	}
}

func (n *busNotifier) TaskDeleted(_ context.Context, owner, id string, at time.Time) {
	if n.bus == nil {
		return
	}
	ev := events.TaskDeletedEvent{
		TaskID:    id,
		UserID:    owner,
		DeletedAt: at,
	}
	if err := events.TaskDeletedV1.Publish(n.bus, ev, nil); err != nil {
		log.Printf("[task] Warning: failed to publish TaskDeleted event for task %s: %v", id, err)
	}
}

func (n *busNotifier) CompletedCleared(_ context.Context, owner string, removed int64, at time.Time) {
	if n.bus == nil {
		return
	}
	ev := events.CompletedClearedEvent{
		UserID:    owner,
		Removed:   removed,
		ClearedAt: at,
	}
	if err := events.CompletedClearedV1.Publish(n.bus, ev, nil); err != nil {
		log.Printf("[task] Warning: failed to publish CompletedCleared event for user %s: %v", owner, err)
	}
}
