package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/datastic/docsbuilder/pkg/llm"
	"github.com/datastic/docsbuilder/pkg/prompt"
	"github.com/datastic/docsbuilder/pkg/util"
)

const (
	EnvPrefix       = "DOCSBUILDER"
	DefaultFileName = ".docsbuilder.yaml"
)

type Settings struct {
	APIKey            string   `mapstructure:"api_key" yaml:"api_key"`
	BaseURL           string   `mapstructure:"base_url" yaml:"base_url"`
	Model             string   `mapstructure:"model" yaml:"model"`
	MaxTokens         int      `mapstructure:"max_tokens" yaml:"max_tokens"`
	Temperature       float64  `mapstructure:"temperature" yaml:"temperature"`
	DocumentationType string   `mapstructure:"documentation_type" yaml:"documentation_type"`
	MaxPromptChars    int      `mapstructure:"max_prompt_chars" yaml:"max_prompt_chars"`
	MaxConcurrent     int      `mapstructure:"max_concurrent" yaml:"max_concurrent"`
	Headers           []string `mapstructure:"headers" yaml:"headers"`
	Retry             Retry    `mapstructure:"retry" yaml:"retry"`
	Timeouts          Timeouts `mapstructure:"timeouts" yaml:"timeouts"`
}

type Retry struct {
	MaxAttempts int           `mapstructure:"max_attempts" yaml:"max_attempts"`
	BaseDelay   time.Duration `mapstructure:"base_delay" yaml:"base_delay"`
}

type Timeouts struct {
	Connect time.Duration `mapstructure:"connect" yaml:"connect"`
	Write   time.Duration `mapstructure:"write" yaml:"write"`
	Read    time.Duration `mapstructure:"read" yaml:"read"`
}

func setDefaults(v *viper.Viper) {
	retry := llm.DefaultRetryPolicy()
	timeouts := llm.DefaultTimeouts()

	v.SetDefault("api_key", "")
	v.SetDefault("base_url", llm.DefaultBaseURL)
	v.SetDefault("model", "gpt-4")
	v.SetDefault("max_tokens", 500)
	v.SetDefault("temperature", 0.5)
	v.SetDefault("documentation_type", string(prompt.Docstrings))
	v.SetDefault("max_prompt_chars", llm.DefaultMaxPromptChars)
	v.SetDefault("max_concurrent", llm.DefaultMaxConcurrent)
	v.SetDefault("headers", []string{})
	v.SetDefault("retry.max_attempts", retry.MaxAttempts)
	v.SetDefault("retry.base_delay", retry.BaseDelay)
	v.SetDefault("timeouts.connect", timeouts.Connect)
	v.SetDefault("timeouts.write", timeouts.Write)
	v.SetDefault("timeouts.read", timeouts.Read)
}

// Load resolves settings from defaults, the config file, DOCSBUILDER_* env
// vars and flags, later sources winning. An empty file falls back to
// $HOME/.docsbuilder.yaml when it exists. Flags bind by key, with "_" and
// "." spelled as "-" (e.g. --max-tokens, --retry-max-attempts).
func Load(file string, flags *pflag.FlagSet) (*Settings, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file == "" {
		if home, err := os.UserHomeDir(); err == nil {
			if candidate := filepath.Join(home, DefaultFileName); fileExists(candidate) {
				file = candidate
			}
		}
	}
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "failed to read config %s", file)
		}
	}

	if flags != nil {
		for _, key := range v.AllKeys() {
			flag := flags.Lookup(strings.NewReplacer("_", "-", ".", "-").Replace(key))
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(key, flag); err != nil {
				return nil, errors.Wrapf(err, "failed to bind flag --%s", flag.Name)
			}
		}
	}

	var settings Settings
	if err := v.Unmarshal(&settings); err != nil {
		return nil, errors.Wrapf(err, "failed to decode settings")
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	return &settings, nil
}

// Validate checks every setting except the API key, which the client
// reports itself so that a missing key yields its usual message.
func (s *Settings) Validate() error {
	if s.MaxTokens <= 0 {
		return errors.Errorf("max_tokens must be positive, got %d", s.MaxTokens)
	}
	if s.Temperature < 0 || s.Temperature > 1 {
		return errors.Errorf("temperature must be within [0,1], got %v", s.Temperature)
	}
	if s.MaxPromptChars <= 0 {
		return errors.Errorf("max_prompt_chars must be positive, got %d", s.MaxPromptChars)
	}
	if s.MaxConcurrent < 0 {
		return errors.Errorf("max_concurrent must not be negative, got %d", s.MaxConcurrent)
	}
	if s.Retry.MaxAttempts < 1 {
		return errors.Errorf("retry.max_attempts must be at least 1, got %d", s.Retry.MaxAttempts)
	}
	if s.Retry.BaseDelay <= 0 {
		return errors.Errorf("retry.base_delay must be positive, got %s", s.Retry.BaseDelay)
	}
	if s.Timeouts.Connect <= 0 || s.Timeouts.Write <= 0 || s.Timeouts.Read <= 0 {
		return errors.Errorf("timeouts must be positive")
	}
	if _, err := prompt.ParseDocumentationType(s.DocumentationType); err != nil {
		return err
	}
	if _, err := util.ParseKeyValues(s.Headers); err != nil {
		return errors.Wrapf(err, "invalid headers")
	}
	return nil
}

func (s *Settings) DocType() prompt.DocumentationType {
	docType, err := prompt.ParseDocumentationType(s.DocumentationType)
	if err != nil {
		return prompt.Docstrings
	}
	return docType
}

func (s *Settings) ClientConfig() llm.Config {
	headers, _ := util.ParseKeyValues(s.Headers)
	return llm.Config{
		BaseURL:        s.BaseURL,
		MaxPromptChars: s.MaxPromptChars,
		MaxConcurrent:  s.MaxConcurrent,
		Headers:        headers,
		Retry: llm.RetryPolicy{
			MaxAttempts: s.Retry.MaxAttempts,
			BaseDelay:   s.Retry.BaseDelay,
		},
		Timeouts: llm.Timeouts{
			Connect: s.Timeouts.Connect,
			Write:   s.Timeouts.Write,
			Read:    s.Timeouts.Read,
		},
	}
}

// Request fills a completion request for promptText from the settings.
func (s *Settings) Request(promptText string) llm.GenerateRequest {
	return llm.GenerateRequest{
		Prompt:      promptText,
		Model:       s.Model,
		MaxTokens:   s.MaxTokens,
		Temperature: s.Temperature,
		APIKey:      s.APIKey,
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
