package config

import (
	"time"
)

type ModerationConfig struct {
	AutoPublishDefault  bool          `yaml:"auto_publish_default"`
	AuditRetryAttempts  int           `yaml:"audit_retry_attempts"`
	AuditRetryBaseDelay time.Duration `yaml:"audit_retry_base_delay"`
	AuditRetryMaxDelay  time.Duration `yaml:"audit_retry_max_delay"`
	AuditRetryQueueSize int           `yaml:"audit_retry_queue_size"`
	AuditAppendTimeout  time.Duration `yaml:"audit_append_timeout"`
	EventChannel        string        `yaml:"event_channel"`
}

func loadModerationConfig() *ModerationConfig {
	return &ModerationConfig{
		AutoPublishDefault:  getEnvAsBool("MODERATION_AUTO_PUBLISH", false),
		AuditRetryAttempts:  getEnvAsInt("AUDIT_RETRY_ATTEMPTS", 5),
		AuditRetryBaseDelay: getEnvAsDuration("AUDIT_RETRY_BASE_DELAY", 200*time.Millisecond),
		AuditRetryMaxDelay:  getEnvAsDuration("AUDIT_RETRY_MAX_DELAY", 30*time.Second),
		AuditRetryQueueSize: getEnvAsInt("AUDIT_RETRY_QUEUE_SIZE", 1024),
		AuditAppendTimeout:  getEnvAsDuration("AUDIT_APPEND_TIMEOUT", 5*time.Second),
		EventChannel:        getEnv("MODERATION_EVENT_CHANNEL", "offers:moderation"),
	}
}
