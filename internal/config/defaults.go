package config

import (
	"github.com/knadh/koanf/v2"
)

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"server.host": "0.0.0.0",
		"server.port": 8000,

		"auth.api_key": "",

		"llm.region":      "us-east-1",
		"llm.model_id":    "anthropic.claude-3-5-sonnet-20241022-v2:0",
		"llm.max_tokens":  4096,
		"llm.temperature": 0.2,

		"artifacts.dir": "/data/artifacts",

		"limits.max_rows_per_table":  1000000,
		"limits.max_concurrent_jobs": 10,
		"limits.job_max_age":         "12h",
		"limits.cleanup_interval":    "1h",

		"memory.path": "/data/memory/chat.db",

		"logging.level":  "info",
		"logging.format": "pretty",
	}

	for key, val := range defaults {
		k.Set(key, val)
	}
	return nil
}
