package services

import (
	"context"

	"firebase.google.com/go/v4/messaging"
	"github.com/juju/errors"
)

type pushClient interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

// PushSender delivers messages through Firebase Cloud Messaging.
type PushSender struct {
	client pushClient
}

func NewPushSender(client *messaging.Client) *PushSender {
	return &PushSender{client: client}
}

func (s *PushSender) Name() string { return "push" }

func (s *PushSender) Accepts(msg Message) bool {
	return msg.DeviceToken != ""
}

func (s *PushSender) Send(ctx context.Context, msg Message) error {
	badge := 1
	fcmMessage := &messaging.Message{
		Token: msg.DeviceToken,
		Notification: &messaging.Notification{
			Title: msg.Subject,
			Body:  msg.Body,
		},
		Data: msg.Data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound:     "default",
				ChannelID: "vendor_wallet_channel",
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Alert: &messaging.ApsAlert{
						Title: msg.Subject,
						Body:  msg.Body,
					},
					Sound: "default",
					Badge: &badge,
				},
			},
		},
	}

	if _, err := s.client.Send(ctx, fcmMessage); err != nil {
		return errors.Annotate(err, "sending push notification")
	}
	return nil
}
