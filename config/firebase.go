package config

import (
	"context"
	"encoding/base64"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/juju/errors"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// InitMessaging builds a Firebase Cloud Messaging client. It returns nil without an
// error when no credentials are configured, which disables push notifications.
func InitMessaging(ctx context.Context, cfg *Config, logger *zap.Logger) (*messaging.Client, error) {
	var opt option.ClientOption
	switch {
	// Check for base64 encoded credentials first
	case cfg.FirebaseCredentialsBase64 != "":
		decoded, err := base64.StdEncoding.DecodeString(cfg.FirebaseCredentialsBase64)
		if err != nil {
			return nil, errors.Annotate(err, "decoding base64 firebase credentials")
		}
		logger.Info("Using Firebase credentials from base64 environment variable")
		opt = option.WithCredentialsJSON(decoded)
	case cfg.FirebaseCredentialsFile != "":
		logger.Info("Using Firebase credentials file", zap.String("path", cfg.FirebaseCredentialsFile))
		opt = option.WithCredentialsFile(cfg.FirebaseCredentialsFile)
	default:
		logger.Warn("Firebase credentials not configured, push notifications disabled")
		return nil, nil
	}

	var fbConfig *firebase.Config
	if cfg.FirebaseProjectID != "" {
		fbConfig = &firebase.Config{ProjectID: cfg.FirebaseProjectID}
	}
	app, err := firebase.NewApp(ctx, fbConfig, opt)
	if err != nil {
		return nil, errors.Annotate(err, "initializing firebase app")
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, errors.Annotate(err, "initializing firebase messaging")
	}
	return client, nil
}
