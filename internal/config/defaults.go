package config

const (
	defaultDataDir = "~/.local/share/briefing"
	defaultLogDir  = "~/.local/share/briefing/logs"

	defaultTranscriptMaxRetry       = 6
	defaultTranscriptBackoffMinutes = 5
	defaultTranscriptConcurrency    = 2
	defaultTranscriptIntervalMS     = 500
	defaultTranscriptBatchSize      = 10

	defaultMetadataMaxRetry       = 4
	defaultMetadataBackoffMinutes = 5
	defaultMetadataBatchSize      = 10

	defaultSummaryMaxRetry       = 5
	defaultSummaryBackoffMinutes = 5
	defaultSummaryBatchSize      = 5

	defaultNotifyMaxRetry       = 5
	defaultNotifyBackoffMinutes = 5
	defaultNotifyBatchSize      = 10

	defaultOpenAIModel    = "gpt-4o-mini"
	defaultOpenAIMaxChars = 12000
	defaultOpenAITimeout  = 60

	defaultPollerInterval = 15

	defaultWebSubHubURL = "https://pubsubhubbub.appspot.com/subscribe"

	defaultLogFormat = "console"
	defaultLogLevel  = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Transcript: Transcript{
			MaxRetry:       defaultTranscriptMaxRetry,
			BackoffMinutes: defaultTranscriptBackoffMinutes,
			MaxConcurrency: defaultTranscriptConcurrency,
			MinIntervalMS:  defaultTranscriptIntervalMS,
			BatchSize:      defaultTranscriptBatchSize,
		},
		Metadata: Metadata{
			MaxRetry:       defaultMetadataMaxRetry,
			BackoffMinutes: defaultMetadataBackoffMinutes,
			BatchSize:      defaultMetadataBatchSize,
		},
		Summary: Summary{
			MaxRetry:       defaultSummaryMaxRetry,
			BackoffMinutes: defaultSummaryBackoffMinutes,
			BatchSize:      defaultSummaryBatchSize,
		},
		OpenAI: OpenAI{
			Model:          defaultOpenAIModel,
			MaxChars:       defaultOpenAIMaxChars,
			TimeoutSeconds: defaultOpenAITimeout,
		},
		Notify: Notify{
			MaxRetry:       defaultNotifyMaxRetry,
			BackoffMinutes: defaultNotifyBackoffMinutes,
			BatchSize:      defaultNotifyBatchSize,
		},
		Poller: Poller{
			Enabled:         true,
			IntervalMinutes: defaultPollerInterval,
		},
		WebSub: WebSub{
			HubURL: defaultWebSubHubURL,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
