package activity

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/example/task-sync/events"
	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
	kvjetstream "github.com/go-monolith/mono/plugin/kv-jetstream"
)

// BucketName is the KV bucket holding activity summaries.
const BucketName = "task-activity"

// ActivityModule consumes task events and serves per-owner activity summaries.
type ActivityModule struct {
	kv       *kvjetstream.PluginModule
	recorder *Recorder
}

var _ mono.Module = (*ActivityModule)(nil)
var _ mono.UsePluginModule = (*ActivityModule)(nil)
var _ mono.EventConsumerModule = (*ActivityModule)(nil)
var _ mono.ServiceProviderModule = (*ActivityModule)(nil)
var _ mono.HealthCheckableModule = (*ActivityModule)(nil)

func NewModule() *ActivityModule {
	return &ActivityModule{}
}

func (m *ActivityModule) Name() string {
	return "activity"
}

// SetPlugin receives the KV plugin.
func (m *ActivityModule) SetPlugin(alias string, plugin mono.PluginModule) {
	if alias != "kv" {
		return
	}
	kv, ok := plugin.(*kvjetstream.PluginModule)
	if !ok {
		log.Printf("[activity] Warning: plugin %q is not a kv-jetstream plugin", alias)
		return
	}
	m.kv = kv
}

func (m *ActivityModule) RegisterEventConsumers(registry mono.EventRegistry) error {
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskCreatedV1, m.handleTaskCreated, m); err != nil {
		return fmt.Errorf("failed to register TaskCreated consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskToggledV1, m.handleTaskToggled, m); err != nil {
		return fmt.Errorf("failed to register TaskToggled consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskUpdatedV1, m.handleTaskUpdated, m); err != nil {
		return fmt.Errorf("failed to register TaskUpdated consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.TaskDeletedV1, m.handleTaskDeleted, m); err != nil {
		return fmt.Errorf("failed to register TaskDeleted consumer: %w", err)
	}
	if err := helper.RegisterTypedEventConsumer(registry, events.CompletedClearedV1, m.handleCompletedCleared, m); err != nil {
		return fmt.Errorf("failed to register CompletedCleared consumer: %w", err)
	}

	log.Printf("[activity] Registered event consumers: TaskCreated, TaskToggled, TaskUpdated, TaskDeleted, CompletedCleared")
	return nil
}

func (m *ActivityModule) RegisterServices(container mono.ServiceContainer) error {
	if err := helper.RegisterTypedRequestReplyService(
		container, "get-activity", json.Unmarshal, json.Marshal, m.getActivity,
	); err != nil {
		return fmt.Errorf("failed to register get-activity service: %w", err)
	}
	log.Printf("[activity] Registered services: get-activity")
	return nil
}

func (m *ActivityModule) Start(_ context.Context) error {
	if m.kv == nil {
		return fmt.Errorf("required plugin 'kv' not registered")
	}
	bucket := m.kv.Bucket(BucketName)
	if bucket == nil {
		return fmt.Errorf("bucket %q not found in KV plugin", BucketName)
	}
	m.recorder = NewRecorder(bucket)
	log.Printf("[activity] Module started (bucket: %s)", BucketName)
	return nil
}

func (m *ActivityModule) Stop(_ context.Context) error {
	log.Println("[activity] Module stopped")
	return nil
}

func (m *ActivityModule) Health(_ context.Context) mono.HealthStatus {
	if m.recorder == nil {
		return mono.HealthStatus{Healthy: false, Message: "recorder not initialized"}
	}
	return mono.HealthStatus{
		Healthy: true,
		Message: "operational",
		Details: map[string]any{"bucket": BucketName},
	}
}

// Event handlers never fail the delivery; a lost activity entry is logged.

func (m *ActivityModule) handleTaskCreated(_ context.Context, ev events.TaskCreatedEvent, _ *mono.Msg) error {
	m.record(ev.UserID, Entry{Kind: KindCreated, TaskID: ev.TaskID, Title: ev.Title, At: ev.CreatedAt})
	return nil
}

func (m *ActivityModule) handleTaskToggled(_ context.Context, ev events.TaskToggledEvent, _ *mono.Msg) error {
	detail := "reopened"
	if ev.Completed {
		detail = "completed"
	}
	m.record(ev.UserID, Entry{Kind: KindToggled, TaskID: ev.TaskID, Detail: detail, At: ev.ToggledAt})
	return nil
}

func (m *ActivityModule) handleTaskUpdated(_ context.Context, ev events.TaskUpdatedEvent, _ *mono.Msg) error {
	m.record(ev.UserID, Entry{Kind: KindUpdated, TaskID: ev.TaskID, Detail: strings.Join(ev.Fields, ","), At: ev.UpdatedAt})
	return nil
}

func (m *ActivityModule) handleTaskDeleted(_ context.Context, ev events.TaskDeletedEvent, _ *mono.Msg) error {
	m.record(ev.UserID, Entry{Kind: KindDeleted, TaskID: ev.TaskID, At: ev.DeletedAt})
	return nil
}

func (m *ActivityModule) handleCompletedCleared(_ context.Context, ev events.CompletedClearedEvent, _ *mono.Msg) error {
	m.record(ev.UserID, Entry{Kind: KindCompletedCleared, Detail: strconv.FormatInt(ev.Removed, 10), At: ev.ClearedAt})
	return nil
}

func (m *ActivityModule) record(owner string, e Entry) {
	if m.recorder == nil {
		log.Printf("[activity] Warning: dropping %s for user %s, recorder not started", e.Kind, owner)
		return
	}
	if err := m.recorder.Record(owner, e); err != nil {
		log.Printf("[activity] Warning: failed to record %s for user %s: %v", e.Kind, owner, err)
	}
}

func (m *ActivityModule) getActivity(_ context.Context, req GetActivityRequest, _ *mono.Msg) (GetActivityResponse, error) {
	if m.recorder == nil {
		return GetActivityResponse{Error: "activity store not initialized"}, nil
	}
	summary, err := m.recorder.Get(req.UserID)
	if err != nil {
		return GetActivityResponse{Error: err.Error()}, nil
	}
	return GetActivityResponse{Activity: summary}, nil
}
