package notification

import (
	"context"
	"fmt"
)

type PushConfig struct {
	AppKey       string
	MasterSecret string
}

type PushClient interface {
	Push(ctx context.Context, title, content string, audience map[string]interface{}, extras map[string]interface{}) error
}

type Push struct {
	cfg PushConfig
	cli PushClient
}

func NewPush(cfg PushConfig, cli PushClient) *Push { return &Push{cfg: cfg, cli: cli} }

// Alias 设备别名与用户 ID 一一对应
func Alias(userID uint) string { return fmt.Sprintf("user-%d", userID) }

func (j *Push) Notify(ctx context.Context, msg Message) error {
	if j.cli == nil {
		return fmt.Errorf("PushClient not configured")
	}
	aud := map[string]interface{}{"alias": []string{Alias(msg.UserID)}}
	return j.cli.Push(ctx, msg.Title, msg.Body, aud, msg.Extras)
}

func (j *Push) PushToAll(ctx context.Context, title, content string, extras map[string]interface{}) error {
	if j.cli == nil {
		return fmt.Errorf("PushClient not configured")
	}
	return j.cli.Push(ctx, title, content, map[string]interface{}{"all": true}, extras)
}
