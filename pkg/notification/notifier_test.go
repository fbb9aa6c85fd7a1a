package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSMS struct{ phones []string }

func (f *fakeSMS) Send(_ context.Context, phone, _, _ string, _ map[string]string) error {
	f.phones = append(f.phones, phone)
	return nil
}

type fakePush struct{ audiences []map[string]interface{} }

func (f *fakePush) Push(_ context.Context, _, _ string, aud map[string]interface{}, _ map[string]interface{}) error {
	f.audiences = append(f.audiences, aud)
	return nil
}

func TestMultiFanOut(t *testing.T) {
	sms, push := &fakeSMS{}, &fakePush{}
	failing := NotifierFunc(func(context.Context, Message) error { return errors.New("down") })
	m := Multi{failing, NewSMS(SMSConfig{}, sms), NewPush(PushConfig{}, push), LogNotifier{}, nil}

	err := m.Notify(context.Background(), Message{UserID: 3, Phone: "+919800000000", Title: "critical"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "down")
	assert.Equal(t, []string{"+919800000000"}, sms.phones)
	require.Len(t, push.audiences, 1)
	assert.Equal(t, []string{"user-3"}, push.audiences[0]["alias"])
}

func TestSMSSkipsWithoutPhone(t *testing.T) {
	sms := &fakeSMS{}
	require.NoError(t, NewSMS(SMSConfig{}, sms).Notify(context.Background(), Message{UserID: 1}))
	assert.Empty(t, sms.phones)
	assert.Error(t, NewSMS(SMSConfig{}, nil).Notify(context.Background(), Message{Phone: "1"}))
	assert.Error(t, NewPush(PushConfig{}, nil).PushToAll(context.Background(), "t", "c", nil))
}
