package paramstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// KeyParameter is the parameter name, relative to the prefix, that holds the
// DeepSeek API key.
const KeyParameter = "/deepseek-api-key"

// ssmAPI is the subset of *ssm.Client used here.
type ssmAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Getter reads a single decrypted parameter value.
type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// Client wraps an AWS SSM API for parameter retrieval.
type Client struct {
	api ssmAPI
}

func New(api ssmAPI) (*Client, error) {
	if api == nil {
		return nil, errors.New("paramstore: api must not be nil")
	}
	return &Client{api: api}, nil
}

func (c *Client) GetParameter(ctx context.Context, name string) (string, error) {
	if c.api == nil {
		return "", errors.New("paramstore: client not initialized")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("paramstore: name is required")
	}

	out, err := c.api.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", fmt.Errorf("paramstore: get parameter %q: %w", name, err)
	}
	if out == nil || out.Parameter == nil || out.Parameter.Value == nil {
		return "", errors.New("paramstore: parameter missing value")
	}
	return *out.Parameter.Value, nil
}

// tokenPayload is the JSON shape of the stored key.
type tokenPayload struct {
	Token string `json:"token"`
}

// KeySource resolves the API key from Parameter Store. A successful lookup is
// cached for the life of the process; a failed one is retried on the next call.
type KeySource struct {
	getter Getter
	name   string

	mu     sync.RWMutex
	loaded bool
	key    string
}

func NewKeySource(g Getter, paramPrefix string) (*KeySource, error) {
	if g == nil {
		return nil, errors.New("paramstore: getter must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("paramstore: parameter prefix must not be empty")
	}
	return &KeySource{getter: g, name: paramPrefix + KeyParameter}, nil
}

func (s *KeySource) APIKey(ctx context.Context) (string, error) {
	s.mu.RLock()
	if s.loaded {
		key := s.key
		s.mu.RUnlock()
		return key, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loaded {
		return s.key, nil
	}

	key, err := fetchAPIKey(ctx, s.getter, s.name)
	if err != nil {
		return "", err
	}
	s.key = key
	s.loaded = true
	return key, nil
}

func fetchAPIKey(ctx context.Context, getter Getter, name string) (string, error) {
	raw, err := getter.GetParameter(ctx, name)
	if err != nil {
		return "", fmt.Errorf("paramstore: fetch api key: %w", err)
	}
	var tp tokenPayload
	if err := json.Unmarshal([]byte(raw), &tp); err != nil {
		return "", fmt.Errorf("paramstore: unmarshal api key value as JSON: %w", err)
	}
	if strings.TrimSpace(tp.Token) == "" {
		return "", errors.New("paramstore: api key is empty")
	}
	return tp.Token, nil
}
