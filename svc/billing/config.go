package billing

// PaddleConfig holds Paddle credentials. Billing is disabled when APIKey is empty.
type PaddleConfig struct {
	APIKey        string `env:"PADDLE_API_KEY"`
	WebhookSecret string `env:"PADDLE_WEBHOOK_SECRET"`
	Environment   string `env:"PADDLE_ENVIRONMENT" envDefault:"sandbox"`
}

// Config maps tiers to Paddle price IDs, e.g. BILLING_PRICE_IDS="pro:pri_01h...".
type Config struct {
	PriceIDs   map[string]string `env:"BILLING_PRICE_IDS" envSeparator:"," envKeyValSeparator:":"`
	SuccessURL string            `env:"BILLING_SUCCESS_URL"`
}
