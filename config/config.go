package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvironmentProduction  = "production"
	EnvironmentDevelopment = "development"
	EnvironmentTest        = "test"
)

type Config struct {
	Environment      string
	ServicePort      string
	MetricsPort      string
	GRPCPort         string
	PublicBaseURL    string
	PostgreSQLConfig PostgreSQLConfig
	JWTConfig        JWTConfig
	MidtransConfig   MidtransConfig
	KafkaConfig      KafkaConfig
	RedisConfig      RedisConfig
	WhatsAppConfig   WhatsAppConfig
	SMTPConfig       SMTPConfig
	StorageConfig    StorageConfig
	SweepConfig      SweepConfig
	TracingConfig    TracingConfig
}

func CreateNewConfig() *Config {
	godotenv.Load(".env")

	conf := Config{
		Environment:   getEnv("APP_ENV", EnvironmentDevelopment),
		ServicePort:   getEnv("SERVICE_PORT", "8080"),
		MetricsPort:   os.Getenv("METRICS_PORT"),
		GRPCPort:      os.Getenv("GRPC_PORT"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		PostgreSQLConfig: PostgreSQLConfig{
			DBHost:     os.Getenv("DB_HOST"),
			DBName:     os.Getenv("DB_NAME"),
			DBPort:     os.Getenv("DB_PORT"),
			DBUsername: os.Getenv("DB_USERNAME"),
			DBPassword: os.Getenv("DB_PASSWORD"),
		},
		JWTConfig: JWTConfig{
			JWTSecret: os.Getenv("JWT_SECRET"),
		},
		MidtransConfig: MidtransConfig{
			ServerKey:     os.Getenv("MIDTRANS_SERVER_KEY"),
			Environment:   getEnv("MIDTRANS_ENVIRONMENT", "sandbox"),
			SnapBaseURL:   os.Getenv("MIDTRANS_SNAP_BASE_URL"),
			APIBaseURL:    os.Getenv("MIDTRANS_API_BASE_URL"),
			ChargeTimeout: getDuration("MIDTRANS_CHARGE_TIMEOUT", 30*time.Second),
			StatusTimeout: getDuration("MIDTRANS_STATUS_TIMEOUT", 10*time.Second),
			ExpiryMinutes: getInt("PAYMENT_EXPIRY_MINUTES", 60),
			FinishURL:     os.Getenv("MIDTRANS_FINISH_URL"),
		},
		KafkaConfig: KafkaConfig{
			BrokerAddress: os.Getenv("BROKER_ADDRESS"),
			BrokerTopic:   getEnv("BROKER_TOPIC", "payment-events"),
		},
		RedisConfig: RedisConfig{
			Address:  os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getInt("REDIS_DB", 0),
		},
		WhatsAppConfig: WhatsAppConfig{
			BaseURL: os.Getenv("WHATSAPP_BASE_URL"),
			Token:   os.Getenv("WHATSAPP_TOKEN"),
			Timeout: getDuration("WHATSAPP_TIMEOUT", 15*time.Second),
		},
		SMTPConfig: SMTPConfig{
			Host:     os.Getenv("SMTP_SERVER"),
			Port:     getInt("SMTP_PORT", 587),
			Username: os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASS"),
			FromAddr: os.Getenv("FROM_ADDR"),
			FromName: getEnv("FROM_NAME", "Marketplace"),
		},
		StorageConfig: StorageConfig{
			InvoiceDir: getEnv("INVOICE_DIR", "storage/invoices"),
			QRCodeDir:  getEnv("QRCODE_DIR", "storage/qrcodes"),
		},
		SweepConfig: SweepConfig{
			Window:   getDuration("SWEEP_WINDOW", 24*time.Hour),
			Limit:    getInt("SWEEP_LIMIT", 200),
			Delay:    getDuration("SWEEP_DELAY", 500*time.Millisecond),
			LeaseTTL: getDuration("SWEEP_LEASE_TTL", 10*time.Minute),
			Interval: getDuration("SWEEP_INTERVAL", 0),
		},
		TracingConfig: TracingConfig{
			CollectorHost: os.Getenv("COLLECTOR_HOST"),
		},
	}

	brokerPartition, err := strconv.Atoi(os.Getenv("BROKER_PARTITION"))
	if err == nil {
		conf.KafkaConfig.BrokerPartition = brokerPartition
	}

	return &conf
}

func (c *Config) IsProduction() bool {
	return c.Environment == EnvironmentProduction
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
