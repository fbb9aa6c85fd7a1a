package notification

import (
	"context"
	"fmt"
)

type SMSConfig struct {
	AccessKeyId     string
	AccessKeySecret string
	SignName        string
	TemplateCode    string
	Endpoint        string
}

// SMSClient 便于替换/注入的发送接口（适配真实短信 SDK）
type SMSClient interface {
	Send(ctx context.Context, phone, sign, template string, params map[string]string) error
}

type SMS struct {
	cfg SMSConfig
	cli SMSClient
}

func NewSMS(cfg SMSConfig, cli SMSClient) *SMS { return &SMS{cfg: cfg, cli: cli} }

// Notify 仅对填写了手机号的用户发送
func (a *SMS) Notify(ctx context.Context, msg Message) error {
	if a.cli == nil {
		return fmt.Errorf("SMSClient not configured")
	}
	if msg.Phone == "" {
		return nil
	}
	params := map[string]string{"title": msg.Title, "severity": msg.Severity}
	return a.cli.Send(ctx, msg.Phone, a.cfg.SignName, a.cfg.TemplateCode, params)
}
