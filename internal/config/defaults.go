package config

import "github.com/spf13/viper"

// SetDefaults registers built-in defaults on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.max_body_bytes", 64*1024)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.limit", 10)
	v.SetDefault("rate_limit.window", "1s")
	v.SetDefault("rate_limit.sweep_interval", "60s")
	v.SetDefault("rate_limit.message", "Too many requests. Please wait a moment before trying again.")
	v.SetDefault("rate_limit.stats.enabled", false)
	v.SetDefault("rate_limit.stats.redis_addr", "localhost:6379")
	v.SetDefault("rate_limit.stats.redis_db", 0)
	v.SetDefault("rate_limit.stats.prefix", "pitchscore:ratelimit")
	v.SetDefault("rate_limit.stats.ttl", "24h")
	v.SetDefault("rate_limit.stats.track_identities", false)

	v.SetDefault("scoring.timeout", "90s")
	v.SetDefault("scoring.score_prompt", "project-score")
	v.SetDefault("scoring.feedback_prompt", "project-feedback")
	v.SetDefault("scoring.score_role", "scoring")
	v.SetDefault("scoring.feedback_role", "feedback")
	v.SetDefault("scoring.history.enabled", true)
	v.SetDefault("scoring.history.keep", 10)

	v.SetDefault("ailink.default_timeout", "60s")

	v.SetDefault("store.driver", "libsql")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.profile", "SIMPLE")
	v.SetDefault("logging.format", "json")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.namespace", "pitchscore")

	v.SetDefault("health.enabled", true)
}
