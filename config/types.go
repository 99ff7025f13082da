package config

import "time"

type PostgreSQLConfig struct {
	DBHost     string
	DBName     string
	DBPort     string
	DBUsername string
	DBPassword string
}

type JWTConfig struct {
	JWTSecret string
}

// MidtransConfig holds gateway credentials. Base URLs are scheme and host
// only; empty ones fall back to the SDK defaults picked by Environment.
type MidtransConfig struct {
	ServerKey     string
	Environment   string
	SnapBaseURL   string
	APIBaseURL    string
	ChargeTimeout time.Duration
	StatusTimeout time.Duration
	ExpiryMinutes int
	FinishURL     string
}

type KafkaConfig struct {
	BrokerAddress   string
	BrokerTopic     string
	BrokerPartition int
}

type RedisConfig struct {
	Address  string
	Password string
	DB       int
}

type WhatsAppConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	FromAddr string
	FromName string
}

type StorageConfig struct {
	InvoiceDir string
	QRCodeDir  string
}

// SweepConfig bounds the pending-payment polling sweep. Interval of zero
// disables the in-process schedule.
type SweepConfig struct {
	Window   time.Duration
	Limit    int
	Delay    time.Duration
	LeaseTTL time.Duration
	Interval time.Duration
}

type TracingConfig struct {
	CollectorHost string
}
