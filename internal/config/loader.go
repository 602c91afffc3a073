// Package config provides centralized configuration management for pitchscore.
//
// Values are layered with viper: built-in defaults, then the config file
// (explicit path or XDG discovery via gofulmen/config), then environment
// variables, then runtime overrides.
package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	gfconfig "github.com/fulmenhq/gofulmen/config"
	"github.com/fsnotify/fsnotify"
	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/namelens/pitchscore/internal/appid"
)

var (
	// appConfig holds the current application configuration
	appConfig *Config
	configMu  sync.RWMutex
)

// EnvVarSpec defines environment variable mappings for config fields
// following the pattern: {PREFIX}{NAME} maps to config path
type EnvVarSpec = gfconfig.EnvVarSpec

// Environment variable types
const (
	EnvString = gfconfig.EnvString
	EnvInt    = gfconfig.EnvInt
	EnvBool   = gfconfig.EnvBool
)

// Loader owns one viper instance so a loaded configuration can be watched
// and reloaded.
type Loader struct {
	identity   *appid.Identity
	configFile string

	mu sync.Mutex
	v  *viper.Viper
}

// NewLoader prepares a loader. An empty configFile enables discovery in the
// XDG config directory and ./config.
func NewLoader(ctx context.Context, configFile string) (*Loader, error) {
	identity, err := appid.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load app identity: %w", err)
	}
	return &Loader{identity: identity, configFile: strings.TrimSpace(configFile)}, nil
}

// Load loads configuration with the default discovery rules.
//
// This function is safe to call multiple times (e.g., for config reload)
func Load(ctx context.Context, runtimeOverrides ...map[string]any) (*Config, error) {
	loader, err := NewLoader(ctx, "")
	if err != nil {
		return nil, err
	}
	return loader.Load(runtimeOverrides...)
}

// Load reads every layer, decodes and validates the result and stores it as
// the current configuration.
func (l *Loader) Load(runtimeOverrides ...map[string]any) (*Config, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	v := viper.New()
	SetDefaults(v)

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		for _, dir := range l.searchDirs() {
			v.AddConfigPath(dir)
		}
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if l.configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	envOverrides, err := gfconfig.LoadEnvOverrides(getEnvSpecs(l.identity))
	if err != nil {
		return nil, fmt.Errorf("failed to load environment overrides: %w", err)
	}
	applyAILinkDynamicEnvOverrides(l.envPrefix(), envOverrides)

	applyOverrides(v, envOverrides)
	for _, overrides := range runtimeOverrides {
		applyOverrides(v, overrides)
	}

	l.v = v
	return l.decode()
}

// ConfigFileUsed returns the config file read by the last Load, if any.
func (l *Loader) ConfigFileUsed() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.v == nil {
		return ""
	}
	return l.v.ConfigFileUsed()
}

// Watch reloads the configuration whenever the config file changes and
// hands the result to onChange. It reports false when no file was loaded.
func (l *Loader) Watch(onChange func(*Config, error)) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.v == nil || l.v.ConfigFileUsed() == "" {
		return false
	}

	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		l.mu.Lock()
		cfg, err := l.decode()
		l.mu.Unlock()
		if onChange != nil {
			onChange(cfg, err)
		}
	})
	l.v.WatchConfig()
	return true
}

// decode must be called with l.mu held.
func (l *Loader) decode() (*Config, error) {
	cfg := &Config{}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
			mapstructure.StringToFloat64HookFunc(),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(l.v.AllSettings()); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if strings.TrimSpace(cfg.Store.URL) == "" && strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = DefaultStorePath()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	setConfig(cfg)
	return cfg, nil
}

func (l *Loader) searchDirs() []string {
	var dirs []string
	if dir := gfconfig.GetAppConfigDir(l.identity.ConfigName); dir != "" {
		dirs = append(dirs, dir)
	}
	if l.identity.BinaryName != "" && l.identity.BinaryName != l.identity.ConfigName {
		if dir := gfconfig.GetAppConfigDir(l.identity.BinaryName); dir != "" {
			dirs = append(dirs, dir)
		}
	}
	return append(dirs, "./config")
}

func (l *Loader) envPrefix() string {
	prefix := l.identity.EnvPrefix
	if !strings.HasSuffix(prefix, "_") {
		prefix += "_"
	}
	return prefix
}

// Validate rejects configurations the server cannot run with.
func (c *Config) Validate() error {
	var problems []string
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		problems = append(problems, fmt.Sprintf("server.port %d out of range", c.Server.Port))
	}
	if c.RateLimit.Limit <= 0 {
		problems = append(problems, "rate_limit.limit must be positive")
	}
	if c.RateLimit.Window <= 0 {
		problems = append(problems, "rate_limit.window must be positive")
	}
	if c.RateLimit.SweepInterval <= 0 {
		problems = append(problems, "rate_limit.sweep_interval must be positive")
	}
	switch strings.ToLower(strings.TrimSpace(c.Store.Driver)) {
	case "libsql", "sqlite":
	default:
		problems = append(problems, fmt.Sprintf("store.driver %q must be libsql or sqlite", c.Store.Driver))
	}
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "json", "console":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q must be json or console", c.Logging.Format))
	}
	if c.Scoring.History.Keep < 0 {
		problems = append(problems, "scoring.history.keep must not be negative")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// GetConfig returns the current application configuration (thread-safe)
func GetConfig() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return appConfig
}

// setConfig updates the current configuration (thread-safe)
func setConfig(cfg *Config) {
	configMu.Lock()
	defer configMu.Unlock()
	appConfig = cfg
}

// EnvSpecs lists the fixed environment variables the loader reads.
func (l *Loader) EnvSpecs() []EnvVarSpec {
	return getEnvSpecs(l.identity)
}

// getEnvSpecs returns environment variable specifications for config mapping
// Maps {PREFIX}{NAME} environment variables to config paths
func getEnvSpecs(identity *appid.Identity) []EnvVarSpec {
	if identity == nil {
		return []EnvVarSpec{}
	}

	prefix := identity.EnvPrefix
	if !strings.HasSuffix(prefix, "_") {
		prefix += "_"
	}

	return []EnvVarSpec{
		// Server config
		{Name: prefix + "HOST", Path: []string{"server", "host"}, Type: EnvString},
		{Name: prefix + "PORT", Path: []string{"server", "port"}, Type: EnvInt},
		// Duration fields are parsed as strings and converted by mapstructure decode hook
		{Name: prefix + "READ_TIMEOUT", Path: []string{"server", "read_timeout"}, Type: EnvString},
		{Name: prefix + "WRITE_TIMEOUT", Path: []string{"server", "write_timeout"}, Type: EnvString},
		{Name: prefix + "IDLE_TIMEOUT", Path: []string{"server", "idle_timeout"}, Type: EnvString},
		{Name: prefix + "SHUTDOWN_TIMEOUT", Path: []string{"server", "shutdown_timeout"}, Type: EnvString},

		{Name: prefix + "LOG_LEVEL", Path: []string{"logging", "level"}, Type: EnvString},
		{Name: prefix + "LOG_PROFILE", Path: []string{"logging", "profile"}, Type: EnvString},
		{Name: prefix + "LOG_FORMAT", Path: []string{"logging", "format"}, Type: EnvString},

		// Rate limiter
		{Name: prefix + "RATE_LIMIT", Path: []string{"rate_limit", "limit"}, Type: EnvInt},
		{Name: prefix + "RATE_LIMIT_ENABLED", Path: []string{"rate_limit", "enabled"}, Type: EnvBool},
		{Name: prefix + "RATE_LIMIT_WINDOW", Path: []string{"rate_limit", "window"}, Type: EnvString},
		{Name: prefix + "RATE_LIMIT_SWEEP_INTERVAL", Path: []string{"rate_limit", "sweep_interval"}, Type: EnvString},
		{Name: prefix + "RATE_LIMIT_STATS_ENABLED", Path: []string{"rate_limit", "stats", "enabled"}, Type: EnvBool},
		{Name: prefix + "REDIS_ADDR", Path: []string{"rate_limit", "stats", "redis_addr"}, Type: EnvString},
		{Name: prefix + "REDIS_PASSWORD", Path: []string{"rate_limit", "stats", "redis_password"}, Type: EnvString},

		// Scoring config
		{Name: prefix + "SCORING_TIMEOUT", Path: []string{"scoring", "timeout"}, Type: EnvString},
		{Name: prefix + "HISTORY_ENABLED", Path: []string{"scoring", "history", "enabled"}, Type: EnvBool},

		// Store config
		{Name: prefix + "DB_DRIVER", Path: []string{"store", "driver"}, Type: EnvString},
		{Name: prefix + "DB_PATH", Path: []string{"store", "path"}, Type: EnvString},
		{Name: prefix + "DB_URL", Path: []string{"store", "url"}, Type: EnvString},
		{Name: prefix + "DB_AUTH_TOKEN", Path: []string{"store", "auth_token"}, Type: EnvString},

		// AILink config
		{Name: prefix + "AILINK_DEFAULT_PROVIDER", Path: []string{"ailink", "default_provider"}, Type: EnvString},
		{Name: prefix + "AILINK_DEFAULT_TIMEOUT", Path: []string{"ailink", "default_timeout"}, Type: EnvString},
		{Name: prefix + "AILINK_PROMPTS_DIR", Path: []string{"ailink", "prompts_dir"}, Type: EnvString},

		// Metrics config
		{Name: prefix + "METRICS_ENABLED", Path: []string{"metrics", "enabled"}, Type: EnvBool},
		{Name: prefix + "METRICS_PORT", Path: []string{"metrics", "port"}, Type: EnvInt},

		// Health config
		{Name: prefix + "HEALTH_ENABLED", Path: []string{"health", "enabled"}, Type: EnvBool},
	}
}

// appNamesForPaths returns the config name and binary name from app identity.
func appNamesForPaths() (configName string, binaryName string) {
	configName = "pitchscore"
	binaryName = "pitchscore"
	identity, err := appid.Get(context.Background())
	if err != nil || identity == nil {
		return configName, binaryName
	}
	if strings.TrimSpace(identity.ConfigName) != "" {
		configName = identity.ConfigName
	}
	if strings.TrimSpace(identity.BinaryName) != "" {
		binaryName = identity.BinaryName
	}
	return configName, binaryName
}

// DefaultConfigPath returns the XDG-compliant path to the user config file.
func DefaultConfigPath() string {
	configName, _ := appNamesForPaths()
	configDir := gfconfig.GetAppConfigDir(configName)
	if strings.TrimSpace(configDir) == "" {
		return ""
	}
	return filepath.Join(configDir, "config.yaml")
}

// DefaultStorePath returns the XDG-compliant path to the database file.
func DefaultStorePath() string {
	configName, binaryName := appNamesForPaths()
	dataDir := gfconfig.GetAppDataDir(configName)
	if strings.TrimSpace(dataDir) == "" {
		return "./" + binaryName + ".db"
	}
	return filepath.Join(dataDir, binaryName+".db")
}

// applyOverrides sets every leaf of a nested override map on v so it wins
// over file and environment values without replacing sibling keys.
func applyOverrides(v *viper.Viper, overrides map[string]any) {
	keys := make([]string, 0)
	leaves := map[string]any{}
	flatten("", overrides, leaves)
	for key := range leaves {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		v.Set(key, leaves[key])
	}
}

func flatten(prefix string, in map[string]any, out map[string]any) {
	for key, value := range in {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		if nested, ok := value.(map[string]any); ok && len(nested) > 0 {
			flatten(path, nested, out)
			continue
		}
		out[path] = value
	}
}

func applyAILinkDynamicEnvOverrides(prefix string, envOverrides map[string]any) {
	providerPrefix := prefix + "AILINK_PROVIDERS_"
	routingPrefix := prefix + "AILINK_ROUTING_"

	for _, item := range os.Environ() {
		key, value, ok := strings.Cut(item, "=")
		if !ok {
			continue
		}
		if strings.TrimSpace(value) == "" {
			continue
		}

		switch {
		case strings.HasPrefix(key, providerPrefix):
			applyAILinkProviderOverride(envOverrides, key[len(providerPrefix):], value)
		case strings.HasPrefix(key, routingPrefix):
			applyAILinkRoutingOverride(envOverrides, key[len(routingPrefix):], value)
		}
	}
}

func applyAILinkRoutingOverride(envOverrides map[string]any, rawRole string, providerID string) {
	role := toSlug(rawRole)
	providerID = strings.TrimSpace(providerID)
	if role == "" || providerID == "" {
		return
	}

	ailink := ensureMap(envOverrides, "ailink")
	routing := ensureMap(ailink, "routing")
	routing[role] = providerID
}

// applyAILinkProviderOverride maps
// {PREFIX}AILINK_PROVIDERS_<ID>_<FIELD> onto ailink.providers.<id>.
func applyAILinkProviderOverride(envOverrides map[string]any, raw string, value string) {
	parts := strings.Split(strings.TrimSpace(raw), "_")
	if len(parts) < 2 {
		return
	}

	section := -1
	for i, part := range parts {
		switch part {
		case "ENABLED", "AI", "BASE", "MODELS", "CREDENTIALS", "PACING", "SELECTION", "DEFAULT", "ROLES":
			section = i
		}
		if section != -1 {
			break
		}
	}
	if section <= 0 {
		return
	}

	providerID := strings.ToLower(strings.Join(parts[:section], "-"))
	if providerID == "" {
		return
	}

	ailink := ensureMap(envOverrides, "ailink")
	providers := ensureMap(ailink, "providers")
	provider := ensureMap(providers, providerID)

	value = strings.TrimSpace(value)
	rest := parts[section:]
	switch {
	case len(rest) == 1 && rest[0] == "ENABLED":
		provider["enabled"] = strings.EqualFold(value, "true")
	case len(rest) == 1 && rest[0] == "ROLES":
		provider["roles"] = value
	case len(rest) == 2 && rest[0] == "AI" && rest[1] == "PROVIDER":
		provider["ai_provider"] = strings.ToLower(value)
	case len(rest) == 2 && rest[0] == "DEFAULT" && rest[1] == "CREDENTIAL":
		provider["default_credential"] = value
	case len(rest) == 2 && rest[0] == "SELECTION" && rest[1] == "POLICY":
		provider["selection_policy"] = strings.ToLower(value)
	case len(rest) == 2 && rest[0] == "BASE" && rest[1] == "URL":
		provider["base_url"] = value
	case len(rest) >= 2 && rest[0] == "PACING":
		pacing := ensureMap(provider, "pacing")
		field := strings.ToLower(strings.Join(rest[1:], "_"))
		switch field {
		case "requests_per_second", "rps":
			if parsed, err := strconv.ParseFloat(value, 64); err == nil {
				pacing["requests_per_second"] = parsed
			}
		case "burst":
			if parsed, err := strconv.Atoi(value); err == nil {
				pacing["burst"] = parsed
			}
		}
	case len(rest) >= 2 && rest[0] == "MODELS":
		modelKey := strings.ToLower(strings.Join(rest[1:], "_"))
		models := ensureMap(provider, "models")
		models[modelKey] = value
	case len(rest) >= 3 && rest[0] == "CREDENTIALS":
		idx, err := strconv.Atoi(rest[1])
		if err != nil || idx < 0 {
			return
		}
		field := strings.ToLower(strings.Join(rest[2:], "_"))
		if field == "" {
			return
		}

		creds := ensureSlice(provider, "credentials", idx+1)
		cred := ensureSliceMap(creds, idx)
		switch field {
		case "priority":
			if parsed, err := strconv.Atoi(value); err == nil {
				cred[field] = parsed
			} else {
				cred[field] = value
			}
		case "enabled":
			cred[field] = strings.EqualFold(value, "true")
		default:
			cred[field] = value
		}
	}
}

func ensureMap(parent map[string]any, key string) map[string]any {
	if parent == nil {
		return map[string]any{}
	}
	if existing, ok := parent[key]; ok {
		if typed, ok := existing.(map[string]any); ok {
			return typed
		}
	}
	next := map[string]any{}
	parent[key] = next
	return next
}

func ensureSlice(parent map[string]any, key string, length int) []any {
	var existing []any
	if raw, ok := parent[key]; ok {
		existing, _ = raw.([]any)
	}
	for len(existing) < length {
		existing = append(existing, map[string]any{})
	}
	parent[key] = existing
	return existing
}

func ensureSliceMap(slice []any, idx int) map[string]any {
	if idx < 0 || idx >= len(slice) {
		return map[string]any{}
	}
	if typed, ok := slice[idx].(map[string]any); ok {
		return typed
	}
	m := map[string]any{}
	slice[idx] = m
	return m
}

func toSlug(raw string) string {
	parts := strings.Split(strings.TrimSpace(raw), "_")
	clean := make([]string, 0, len(parts))
	for _, part := range parts {
		p := strings.ToLower(strings.TrimSpace(part))
		if p == "" {
			continue
		}
		clean = append(clean, p)
	}
	return strings.Join(clean, "-")
}
