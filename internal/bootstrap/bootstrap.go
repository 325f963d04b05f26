// Package bootstrap reads process configuration and assembles the chat
// handler. It is the only place that touches the environment.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"bilingual-tutor/handler"
	"bilingual-tutor/internal/integrations/deepseek"
	"bilingual-tutor/internal/integrations/paramstore"
	"bilingual-tutor/internal/repository"
	"bilingual-tutor/internal/usecase"
)

type Config struct {
	APIKey      string
	ParamPrefix string
	BaseURL     string
	Timeout     time.Duration
	UsageTable  string
	LogLevel    slog.Level
}

// LoadConfig reads configuration from the environment. A missing API key is
// not an error here; requests report it individually.
func LoadConfig() Config {
	return Config{
		APIKey:      strings.TrimSpace(os.Getenv("DEEPSEEK_API_KEY")),
		ParamPrefix: strings.TrimSpace(os.Getenv("PARAM_PREFIX")),
		BaseURL:     envString("DEEPSEEK_BASE_URL", deepseek.DefaultBaseURL),
		Timeout:     time.Duration(envInt("UPSTREAM_TIMEOUT_SECONDS", int(usecase.DefaultTimeout/time.Second))) * time.Second,
		UsageTable:  strings.TrimSpace(os.Getenv("USAGE_TABLE")),
		LogLevel:    envLevel("LOG_LEVEL", slog.LevelInfo),
	}
}

// needsAWS reports whether any AWS-backed component is enabled.
func (c Config) needsAWS() bool {
	return c.ParamPrefix != "" || c.UsageTable != ""
}

// SetupLogging installs a JSON slog handler on stdout as the default logger.
func SetupLogging(level slog.Level) {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
}

// Build wires the handler from cfg. AWS configuration is only loaded when
// Parameter Store or the usage table is in use.
func Build(ctx context.Context, cfg Config) (*handler.Handler, error) {
	var awsCfg aws.Config
	if cfg.needsAWS() {
		var err error
		awsCfg, err = config.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: load AWS config: %w", err)
		}
	}

	keys, err := keyProvider(cfg, awsCfg)
	if err != nil {
		return nil, err
	}

	client := deepseek.NewClient(
		deepseek.WithBaseURL(cfg.BaseURL),
		deepseek.WithTimeout(cfg.Timeout),
	)

	var opts []usecase.Option
	if cfg.UsageTable != "" {
		usage, err := repository.New(awsdynamodb.NewFromConfig(awsCfg), cfg.UsageTable)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: create usage client: %w", err)
		}
		opts = append(opts, usecase.WithUsageRecorder(usage))
	}

	svc, err := usecase.NewChatService(keys, client, cfg.Timeout, opts...)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: create chat service: %w", err)
	}

	h, err := handler.NewHandler(svc)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: create handler: %w", err)
	}
	return h, nil
}

func keyProvider(cfg Config, awsCfg aws.Config) (usecase.KeyProvider, error) {
	if cfg.ParamPrefix == "" {
		if cfg.APIKey == "" {
			slog.Warn("DEEPSEEK_API_KEY is not set; chat requests will fail until it is configured")
		}
		return usecase.StaticKey(cfg.APIKey), nil
	}

	ssmClient, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
	if err != nil {
		return nil, fmt.Errorf("bootstrap: create SSM client: %w", err)
	}
	src, err := paramstore.NewKeySource(ssmClient, cfg.ParamPrefix)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: create key source: %w", err)
	}
	return src, nil
}

func envString(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func envLevel(key string, def slog.Level) slog.Level {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(v)); err != nil {
		return def
	}
	return level
}
