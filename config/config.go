package config

import (
	"log/slog"
	"sync"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfighcl"
)

type Config struct {
	ProxyPrefix  string        `hcl:"proxy_prefix" env:"PROXY_PREFIX" default:"https://corsproxy.io/?"`
	StoragePath  string        `hcl:"storage_path" env:"STORAGE_PATH" default:"feedhub.db"`
	FetchTimeout time.Duration `hcl:"fetch_timeout" env:"FETCH_TIMEOUT" default:"30s"`
	SeedDefaults bool          `hcl:"seed_defaults" env:"SEED_DEFAULTS" default:"true"`
	AIType       string        `hcl:"ai_type" env:"AI_TYPE" default:"openai"`
	AIBaseURL    string        `hcl:"ai_base_url" env:"AI_BASE_URL"`
	AIKey        string        `hcl:"ai_key" env:"AI_KEY"`
	AIModel      string        `hcl:"ai_model" env:"AI_MODEL" default:"gpt-4o-mini"`
	AITimeout    time.Duration `hcl:"ai_timeout" env:"AI_TIMEOUT" default:"2m"`
}

var (
	cfg  Config
	once sync.Once
)

func Get() Config {
	once.Do(func() {
		loader := aconfig.LoaderFor(&cfg, aconfig.Config{
			EnvPrefix: "FH",
			SkipFlags: true,
			Files:     []string{"./config.hcl", "./config.local.hcl", "$HOME/.config/feedhub/config.hcl"},
			FileDecoders: map[string]aconfig.FileDecoder{
				".hcl": aconfighcl.New(),
			},
		})

		if err := loader.Load(); err != nil {
			slog.Error("failed to load config", "err", err)
		}
	})

	return cfg
}
