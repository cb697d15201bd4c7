package carmen

type ModelConfig struct {
	Backend     string  `env:"ENGINE_BACKEND,default=ollama"`
	ModelID     string  `env:"MODEL_ID,default=mistral"`
	MaxTokens   int32   `env:"MAX_TOKENS,default=1024"`
	Temperature float32 `env:"TEMPERATURE,default=0.2"`
	TopP        float32 `env:"TOP_P,default=0.9"`
}

type EngineConfig struct {
	BaseOllamaEndpoint string `env:"BASE_OLLAMA_ENDPOINT,default=http://localhost:11434"`
}

type CatalogConfig struct {
	Path     string `env:"CATALOG_PATH,default=artifacts/plants_ideal.json"`
	S3Bucket string `env:"CATALOG_S3_BUCKET,default="`
	S3Key    string `env:"CATALOG_S3_KEY,default="`
}

type StoreConfig struct {
	DBPath        string `env:"DB_PATH,default=carmen.db"`
	HistoryWindow int    `env:"HISTORY_WINDOW,default=10"`
	BreakerFails  int    `env:"STORE_BREAKER_FAILS,default=5"`
}

type ServerConfig struct {
	Addr string `env:"HTTP_ADDR,default=:8000"`
}

type IngestConfig struct {
	BrokerURL string `env:"MQTT_BROKER_URL,default="`
	Topic     string `env:"MQTT_TOPIC,default=carmen/readings/+"`
	ClientID  string `env:"MQTT_CLIENT_ID,default=carmend"`
}

type NotifyConfig struct {
	SlackWebhookURL   string `env:"SLACK_WEBHOOK_URL,default="`
	SlackChannel      string `env:"SLACK_CHANNEL,default=#plants"`
	DiscordWebhookURL string `env:"DISCORD_WEBHOOK_URL,default="`
	SMTPAddr          string `env:"SMTP_ADDR,default="`
	SMTPFrom          string `env:"SMTP_FROM,default="`
	SMTPTo            string `env:"SMTP_TO,default="`
}
