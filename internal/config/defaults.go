package config

const (
	defaultDataDir               = "~/.local/share/chorus"
	defaultLogDir                = "~/.local/share/chorus/logs"
	defaultMediaDir              = "~/.local/share/chorus/media"
	defaultAPIBind               = "127.0.0.1:7319"
	defaultLogFormat             = "console"
	defaultLogLevel              = "info"
	defaultQueuePollInterval     = 5
	defaultErrorRetryInterval    = 10
	defaultHeartbeatInterval     = 15
	defaultStageTimeout          = 900
	defaultRetryMaxAttempts      = 3
	defaultRetryBaseDelay        = 2
	defaultRetryMaxDelay         = 60
	defaultDashboardStaleMinutes = 5
	defaultCleanupStaleMinutes   = 60
	defaultSweepIntervalMinutes  = 15
	defaultTranscriptionBaseURL  = "https://api.deepgram.com/v1/listen"
	defaultTranscriptionModel    = "nova-2"
	defaultTranscriptionTimeout  = 300
	defaultTranscriptionPoll     = 5
	defaultLLMBaseURL            = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel              = "google/gemini-3-flash-preview"
	defaultLLMTimeoutSeconds     = 120
	defaultMaxEvidenceUnits      = 200
	defaultNotifyRequestTimeout  = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:  defaultDataDir,
			LogDir:   defaultLogDir,
			MediaDir: defaultMediaDir,
			APIBind:  defaultAPIBind,
		},
		Workflow: Workflow{
			QueuePollInterval:  defaultQueuePollInterval,
			ErrorRetryInterval: defaultErrorRetryInterval,
			HeartbeatInterval:  defaultHeartbeatInterval,
			StageTimeout:       defaultStageTimeout,
			RetryMaxAttempts:   defaultRetryMaxAttempts,
			RetryBaseDelay:     defaultRetryBaseDelay,
			RetryMaxDelay:      defaultRetryMaxDelay,
		},
		Repair: Repair{
			DashboardStaleMinutes: defaultDashboardStaleMinutes,
			CleanupStaleMinutes:   defaultCleanupStaleMinutes,
			SweepEnabled:          true,
			SweepIntervalMinutes:  defaultSweepIntervalMinutes,
		},
		Transcription: Transcription{
			BaseURL:             defaultTranscriptionBaseURL,
			Model:               defaultTranscriptionModel,
			TimeoutSeconds:      defaultTranscriptionTimeout,
			PollIntervalSeconds: defaultTranscriptionPoll,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Analysis: Analysis{
			PersonaEnabled:   true,
			MaxEvidenceUnits: defaultMaxEvidenceUnits,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNotifyRequestTimeout,
			Errors:         true,
			Repairs:        true,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
