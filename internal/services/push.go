package services

import (
	"context"
	"fmt"

	"f2f-dating-app/internal/config"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

// TokenSource looks up a user's registered device token.
type TokenSource interface {
	PushToken(ctx context.Context, userID string) (string, error)
}

type messageSender interface {
	Send(ctx context.Context, msg *messaging.Message) (string, error)
}

// PushService sends mobile notifications through Firebase Cloud Messaging.
type PushService struct {
	sender messageSender
	tokens TokenSource
	log    *logrus.Entry
}

func NewPushService(ctx context.Context, cfg *config.Config, tokens TokenSource, log *logrus.Entry) (*PushService, error) {
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.FirebaseProjectID},
		option.WithCredentialsFile(cfg.FirebasePrivateKeyPath))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create messaging client: %w", err)
	}
	return newPushService(client, tokens, log), nil
}

func newPushService(sender messageSender, tokens TokenSource, log *logrus.Entry) *PushService {
	return &PushService{sender: sender, tokens: tokens, log: log.WithField("component", "push")}
}

// Notify delivers a notification to userID's device. Users without a
// registered device are skipped.
func (p *PushService) Notify(ctx context.Context, userID, title, body string, data map[string]string) error {
	token, err := p.tokens.PushToken(ctx, userID)
	if err != nil {
		return fmt.Errorf("lookup push token: %w", err)
	}
	if token == "" {
		return nil
	}

	id, err := p.sender.Send(ctx, &messaging.Message{
		Token:        token,
		Notification: &messaging.Notification{Title: title, Body: body},
		Data:         data,
	})
	if err != nil {
		return fmt.Errorf("send push notification: %w", err)
	}
	p.log.WithFields(logrus.Fields{"user_id": userID, "message_id": id}).Debug("push notification sent")
	return nil
}
