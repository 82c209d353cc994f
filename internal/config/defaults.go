package config

const (
	defaultConfigPath          = "~/.config/ytscribe/config.toml"
	projectConfigName          = "ytscribe.toml"
	defaultOutputDir           = "transcripts"
	defaultArchiveDir          = "archived_transcripts"
	defaultStateDir            = "~/.local/share/ytscribe"
	defaultCacheIndexName      = "cache_index.json"
	defaultLogDir              = "~/.local/share/ytscribe/logs"
	defaultProvider            = ProviderGemini
	defaultModel               = "gemini-2.5-flash"
	defaultTemperature         = 0.1
	defaultGeminiBaseURL       = "https://generativelanguage.googleapis.com"
	defaultGeminiTimeout       = 600
	defaultGeminiInlineMiB     = 15
	defaultGeminiRetryAttempts = 5
	defaultVertexRegion        = "us-central1"
	defaultVertexStagingPrefix = "ytscribe-audio"
	defaultYTDLPBinary         = "yt-dlp"
	defaultFFmpegBinary        = "ffmpeg"
	defaultDownloadAttempts    = 3
	defaultDownloadRetryDelay  = 5
	defaultDownloadTimeout     = 1800
	defaultAudioFormat         = "mp3"
	defaultAudioQuality        = "192K"
	defaultMinFreeGiB          = 2
	defaultOutputFormat        = OutputFormatText
	defaultLogFormat           = "console"
	defaultLogLevel            = "info"
	defaultLogRetentionDays    = 30
)

// Supported transcription providers.
const (
	ProviderGemini = "gemini"
	ProviderVertex = "vertex"
)

// Supported transcript output formats.
const (
	OutputFormatText = "text"
	OutputFormatJSON = "json"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir:     defaultOutputDir,
			ArchiveDir:    defaultArchiveDir,
			StateDir:      defaultStateDir,
			AudioCacheDir: defaultAudioCacheDir(),
			LogDir:        defaultLogDir,
		},
		Transcription: Transcription{
			Provider:    defaultProvider,
			Model:       defaultModel,
			Temperature: defaultTemperature,
		},
		Gemini: Gemini{
			BaseURL:        defaultGeminiBaseURL,
			TimeoutSeconds: defaultGeminiTimeout,
			InlineLimitMiB: defaultGeminiInlineMiB,
			RetryAttempts:  defaultGeminiRetryAttempts,
		},
		Vertex: Vertex{
			Region:        defaultVertexRegion,
			StagingPrefix: defaultVertexStagingPrefix,
		},
		Download: Download{
			YTDLPBinary:       defaultYTDLPBinary,
			FFmpegBinary:      defaultFFmpegBinary,
			Attempts:          defaultDownloadAttempts,
			RetryDelaySeconds: defaultDownloadRetryDelay,
			TimeoutSeconds:    defaultDownloadTimeout,
			AudioFormat:       defaultAudioFormat,
			AudioQuality:      defaultAudioQuality,
			MinFreeGiB:        defaultMinFreeGiB,
		},
		Output: Output{
			Format: defaultOutputFormat,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
