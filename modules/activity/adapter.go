package activity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-monolith/mono"
	"github.com/go-monolith/mono/pkg/helper"
)

// ActivityPort reads activity summaries over the service bus.
type ActivityPort interface {
	GetActivity(ctx context.Context, owner string) (*Summary, error)
}

type activityAdapter struct {
	container mono.ServiceContainer
}

// NewActivityAdapter creates an ActivityPort backed by the activity module's services.
func NewActivityAdapter(container mono.ServiceContainer) ActivityPort {
	if container == nil {
		panic("activity adapter requires non-nil ServiceContainer")
	}
	return &activityAdapter{container: container}
}

func (a *activityAdapter) GetActivity(ctx context.Context, owner string) (*Summary, error) {
	req := GetActivityRequest{UserID: owner}
	var resp GetActivityResponse
	if err := helper.CallRequestReplyService(
		ctx,
		a.container,
		"get-activity",
		json.Marshal,
		json.Unmarshal,
		&req,
		&resp,
	); err != nil {
		return nil, fmt.Errorf("get-activity request failed: %w", err)
	}
	if resp.Error != "" {
		return nil, errors.New(resp.Error)
	}
	if resp.Activity == nil {
		return emptySummary(owner), nil
	}
	return resp.Activity, nil
}
