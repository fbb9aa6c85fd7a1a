package notification

import (
	"EcoWatch/pkg/logger"
	"context"
	"errors"

	"go.uber.org/zap"
)

// Message 一条面向单个用户的通知
type Message struct {
	UserID   uint
	Phone    string
	Title    string
	Body     string
	Severity string
	Extras   map[string]interface{}
}

type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

type NotifierFunc func(ctx context.Context, msg Message) error

func (f NotifierFunc) Notify(ctx context.Context, msg Message) error { return f(ctx, msg) }

// Multi 依次投递到所有通道，单个通道失败不影响其余通道
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, msg Message) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Notify(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogNotifier 只写日志，未配置外部通道时使用
type LogNotifier struct{}

func (LogNotifier) Notify(_ context.Context, msg Message) error {
	logger.Info("notification",
		zap.Uint("user_id", msg.UserID),
		zap.String("severity", msg.Severity),
		zap.String("title", msg.Title))
	return nil
}
