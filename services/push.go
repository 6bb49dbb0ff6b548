package services

import (
	"context"
	"fmt"
	"log"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"google.golang.org/api/option"
)

// Pusher sends a push notification to one organiser device.
type Pusher interface {
	NotifyOrganiser(ctx context.Context, fcmToken, title, body string, data map[string]string) error
}

// ============================================================
// PUSH NOTIFICATIONS via Firebase Cloud Messaging
// ============================================================

type FirebasePusher struct {
	client *messaging.Client
}

// NewFirebasePusher returns a pusher backed by FCM, or one that only logs when
// no credentials file is configured.
func NewFirebasePusher(ctx context.Context, credPath string) (Pusher, error) {
	if credPath == "" {
		log.Println("⚠️  Firebase credentials not set, push notifications disabled")
		return LogPusher{}, nil
	}

	app, err := firebase.NewApp(ctx, nil, option.WithCredentialsFile(credPath))
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firebase messaging: %w", err)
	}

	log.Println("✅ Firebase messaging initialised")
	return &FirebasePusher{client: client}, nil
}

func (p *FirebasePusher) NotifyOrganiser(ctx context.Context, fcmToken, title, body string, data map[string]string) error {
	if fcmToken == "" {
		return nil
	}

	msg := &messaging.Message{
		Token: fcmToken,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
	}

	id, err := p.client.Send(ctx, msg)
	if err != nil {
		return fmt.Errorf("fcm send: %w", err)
	}
	log.Printf("✅ Push sent (%s)", id)
	return nil
}

// LogPusher stands in for FCM in development.
type LogPusher struct{}

func (LogPusher) NotifyOrganiser(_ context.Context, fcmToken, title, body string, _ map[string]string) error {
	if fcmToken != "" {
		log.Printf("📱 [push disabled] %s: %s", title, body)
	}
	return nil
}
