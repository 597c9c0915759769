package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Veraticus/finsight/internal/common"
	"github.com/Veraticus/finsight/internal/llm"
	"github.com/Veraticus/finsight/internal/pattern"
	"github.com/Veraticus/finsight/internal/plaid"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override, e.g. FINSIGHT_SERVER_ADDR.
const EnvPrefix = "FINSIGHT"

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", DefaultDatabasePath())
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.max_retries", 3)
	v.SetDefault("llm.retry_delay", time.Second)
	v.SetDefault("llm.cache_ttl", 15*time.Minute)
	v.SetDefault("llm.rate_limit", 60)
	v.SetDefault("plaid.environment", "sandbox")
	v.SetDefault("plaid.sync_days", 30)
	v.SetDefault("scheduler.snapshot_spec", "0 2 * * *")
	v.SetDefault("scheduler.contribution_spec", "0 6 * * *")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// BindEnv makes FINSIGHT_SECTION_KEY override section.key.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Server configures the REST API.
type Server struct {
	Addr         string
	JWTSecret    string
	TokenTTL     time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	// TLS serves HTTPS with a self-signed certificate covering TLSHosts
	// besides localhost.
	TLS      bool
	TLSHosts []string
}

// LoadServerConfig reads server.* and auth.*. A signing secret is required.
func LoadServerConfig(v *viper.Viper) (Server, error) {
	s := Server{
		Addr:         v.GetString("server.addr"),
		JWTSecret:    v.GetString("auth.jwt_secret"),
		TokenTTL:     v.GetDuration("auth.token_ttl"),
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		TLS:          v.GetBool("server.tls"),
		TLSHosts:     v.GetStringSlice("server.tls_hosts"),
	}
	if s.JWTSecret == "" {
		return Server{}, fmt.Errorf("auth.jwt_secret is required: %w", common.ErrMissingConfig)
	}
	if len(s.JWTSecret) < 16 {
		return Server{}, fmt.Errorf("auth.jwt_secret must be at least 16 characters: %w", common.ErrInvalidConfig)
	}
	return s, nil
}

// LoadLLMConfig reads llm.*. Without llm.api_key the provider's usual
// environment variable is used.
func LoadLLMConfig(v *viper.Viper) (llm.Config, error) {
	cfg := llm.Config{
		Provider:    strings.ToLower(v.GetString("llm.provider")),
		APIKey:      v.GetString("llm.api_key"),
		Model:       v.GetString("llm.model"),
		BaseURL:     v.GetString("llm.base_url"),
		MaxRetries:  v.GetInt("llm.max_retries"),
		RetryDelay:  v.GetDuration("llm.retry_delay"),
		CacheTTL:    v.GetDuration("llm.cache_ttl"),
		RateLimit:   v.GetInt("llm.rate_limit"),
		Temperature: v.GetFloat64("llm.temperature"),
		MaxTokens:   v.GetInt("llm.max_tokens"),
	}

	if cfg.APIKey == "" {
		switch cfg.Provider {
		case "openai":
			cfg.APIKey = os.Getenv("OPENAI_API_KEY")
		case "anthropic":
			cfg.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}

	switch {
	case cfg.Provider != "openai" && cfg.Provider != "anthropic":
		return llm.Config{}, fmt.Errorf("unsupported llm.provider %q: %w", cfg.Provider, common.ErrInvalidConfig)
	case cfg.APIKey == "":
		return llm.Config{}, fmt.Errorf("no API key for %s: %w", cfg.Provider, common.ErrMissingConfig)
	}
	return cfg, nil
}

// PlaidCredentials reads plaid.* without validating it. The link flow uses
// it before an access token exists.
func PlaidCredentials(v *viper.Viper) plaid.Config {
	return plaid.Config{
		ClientID:    firstNonEmpty(v.GetString("plaid.client_id"), os.Getenv("PLAID_CLIENT_ID")),
		Secret:      firstNonEmpty(v.GetString("plaid.secret"), os.Getenv("PLAID_SECRET")),
		Environment: v.GetString("plaid.environment"),
		AccessToken: firstNonEmpty(v.GetString("plaid.access_token"), os.Getenv("PLAID_ACCESS_TOKEN")),
	}
}

// LoadPlaidConfig reads plaid.* and validates it for syncing.
func LoadPlaidConfig(v *viper.Viper) (plaid.Config, error) {
	cfg := PlaidCredentials(v)
	if err := cfg.Validate(); err != nil {
		return plaid.Config{}, err
	}
	return cfg, nil
}

// SimpleFINAccessURL returns the bridge access URL from simplefin.access_url
// or SIMPLEFIN_ACCESS_URL.
func SimpleFINAccessURL(v *viper.Viper) (string, error) {
	accessURL := firstNonEmpty(v.GetString("simplefin.access_url"), os.Getenv("SIMPLEFIN_ACCESS_URL"))
	if accessURL == "" {
		return "", fmt.Errorf("simplefin.access_url is not set, run \"finsight sync claim\" first: %w", common.ErrMissingConfig)
	}
	return accessURL, nil
}

// LoadCategorizeRules reads the categorize.rules list.
func LoadCategorizeRules(v *viper.Viper) ([]pattern.Rule, error) {
	var rules []pattern.Rule
	if err := v.UnmarshalKey("categorize.rules", &rules); err != nil {
		return nil, fmt.Errorf("categorize.rules is malformed: %w", common.ErrInvalidConfig)
	}
	return rules, nil
}

// Scheduler configures the background jobs. An empty spec disables a job.
type Scheduler struct {
	SnapshotSpec     string
	ContributionSpec string
	ExportSpec       string
	ExportUserID     string
}

// LoadSchedulerConfig reads scheduler.*.
func LoadSchedulerConfig(v *viper.Viper) (Scheduler, error) {
	s := Scheduler{
		SnapshotSpec:     v.GetString("scheduler.snapshot_spec"),
		ContributionSpec: v.GetString("scheduler.contribution_spec"),
		ExportSpec:       v.GetString("scheduler.export_spec"),
		ExportUserID:     v.GetString("scheduler.export_user_id"),
	}
	if s.ExportSpec != "" && s.ExportUserID == "" {
		return Scheduler{}, fmt.Errorf("scheduler.export_user_id is required when scheduler.export_spec is set: %w", common.ErrMissingConfig)
	}
	return s, nil
}
