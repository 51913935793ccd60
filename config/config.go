// Package config reads the process configuration from the environment and
// an optional .env file, and turns it into clients.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/danthegoodman1/CloudConnect/sigv4"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

var validate = validator.New()

type Config struct {
	AWSRegion          string `validate:"required"`
	AWSAccessKeyID     string `validate:"required_if=CredentialsSource env"`
	AWSSecretAccessKey string `validate:"required_with=AWSAccessKeyID"`
	AWSSessionToken    string
	// CredentialsSource is env (the static triple) or sdk (the AWS SDK default chain)
	CredentialsSource string `validate:"oneof=env sdk"`
	AWSEndpointURL    string `validate:"omitempty,url"`
	PayloadMode       sigv4.PayloadMode

	KafkaRestURL      string `validate:"omitempty,url"`
	KafkaRestUser     string
	KafkaRestPassword string `validate:"required_with=KafkaRestUser"`

	HTTPTransport string `validate:"oneof=http2 http3"`
	HTTPRetries   uint64

	OTelExporter   string `validate:"oneof=none stdout otlp"`
	OTelEndpoint   string `validate:"required_if=OTelExporter otlp"`
	MetricsEnabled bool

	// getenv is what the config was read from, env credentials are read
	// through it again on every signing
	getenv func(string) string
}

// Load reads the given .env files (.env when none are given, skipped if it
// does not exist) underneath the process environment, which wins.
func Load(envFiles ...string) (Config, error) {
	required := len(envFiles) > 0
	if !required {
		envFiles = []string{".env"}
	}
	fileEnv, err := godotenv.Read(envFiles...)
	if err != nil {
		if required || !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("error in godotenv.Read: %w", err)
		}
		fileEnv = map[string]string{}
	}

	return FromEnv(func(key string) string {
		if v, ok := os.LookupEnv(key); ok {
			return v
		}
		return fileEnv[key]
	})
}

func FromEnv(getenv func(string) string) (Config, error) {
	get := func(key, fallback string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return fallback
	}

	mode, err := sigv4.ParsePayloadMode(getenv("SIGNING_PAYLOAD_MODE"))
	if err != nil {
		return Config{}, err
	}
	retries, err := strconv.ParseUint(get("HTTP_RETRIES", "0"), 10, 64)
	if err != nil {
		return Config{}, fmt.Errorf("HTTP_RETRIES: %w", err)
	}
	metrics, err := strconv.ParseBool(get("METRICS_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("METRICS_ENABLED: %w", err)
	}

	cfg := Config{
		AWSRegion:          getenv("AWS_REGION"),
		AWSAccessKeyID:     getenv("AWS_ACCESS_KEY_ID"),
		AWSSecretAccessKey: getenv("AWS_SECRET_ACCESS_KEY"),
		AWSSessionToken:    getenv("AWS_SESSION_TOKEN"),
		CredentialsSource:  get("AWS_CREDENTIALS_SOURCE", "env"),
		AWSEndpointURL:     getenv("AWS_ENDPOINT_URL"),
		PayloadMode:        mode,
		KafkaRestURL:       getenv("KAFKA_REST_URL"),
		KafkaRestUser:      getenv("KAFKA_REST_USER"),
		KafkaRestPassword:  getenv("KAFKA_REST_PASSWORD"),
		HTTPTransport:      get("HTTP_TRANSPORT", "http2"),
		HTTPRetries:        retries,
		OTelExporter:       get("OTEL_EXPORTER", "none"),
		OTelEndpoint:       getenv("OTEL_ENDPOINT"),
		MetricsEnabled:     metrics,
		getenv:             getenv,
	}
	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
