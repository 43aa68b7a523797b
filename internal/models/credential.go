package models

import "time"

// Environment selects which processor endpoint a credential targets
type Environment string

const (
	EnvironmentSandbox    Environment = "sandbox"
	EnvironmentProduction Environment = "production"
)

// MerchantCredential holds the per-merchant processor API key pair and the
// webhook signing secret
type MerchantCredential struct {
	CreatedAt      time.Time   `db:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at"`
	MerchantID     string      `db:"merchant_id"`
	ConsumerKey    string      `db:"consumer_key"`
	ConsumerSecret string      `db:"consumer_secret"`
	WebhookSecret  string      `db:"webhook_secret"`
	Environment    Environment `db:"environment"`
	Active         bool        `db:"active"`
}
