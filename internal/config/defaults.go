package config

const (
	defaultWorkDir   = "~/.local/share/stitcher/work"
	defaultOutputDir = "~/.local/share/stitcher/output"
	defaultLogDir    = "~/.local/share/stitcher/logs"
	defaultCachePath = "~/.cache/stitcher/transcripts.db"

	defaultMinSilenceMs       = 500
	defaultSilenceThresholdDb = -40.0
	defaultMinSegmentSec      = 30
	defaultMaxSegmentSec      = 300
	defaultStrictMaxSec       = 420
	defaultSearchWindowSec    = 45

	defaultRecognizerModel      = "whisper-1"
	defaultConnectTimeoutSec    = 30
	defaultReadTimeoutBaseSec   = 120
	defaultReadTimeoutSecPerMB  = 20
	defaultDispatchWorkers      = 5
	defaultMaxRetries           = 3
	defaultBaseDelayMs          = 1000
	defaultMinChunkBytes        = 1024
	defaultMaxFailurePercent    = 50
	defaultProgressTimeoutSec   = 10
	defaultLogFormat            = "console"
	defaultLogLevel             = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:   defaultWorkDir,
			OutputDir: defaultOutputDir,
			LogDir:    defaultLogDir,
		},
		Segmentation: Segmentation{
			MinSilenceMs:       defaultMinSilenceMs,
			SilenceThresholdDb: defaultSilenceThresholdDb,
			MinSegmentSec:      defaultMinSegmentSec,
			MaxSegmentSec:      defaultMaxSegmentSec,
			StrictMaxSec:       defaultStrictMaxSec,
			SearchWindowSec:    defaultSearchWindowSec,
		},
		Recognizer: Recognizer{
			Model:               defaultRecognizerModel,
			ConnectTimeoutSec:   defaultConnectTimeoutSec,
			ReadTimeoutBaseSec:  defaultReadTimeoutBaseSec,
			ReadTimeoutSecPerMB: defaultReadTimeoutSecPerMB,
		},
		Dispatch: Dispatch{
			Workers:           defaultDispatchWorkers,
			MaxRetries:        defaultMaxRetries,
			BaseDelayMs:       defaultBaseDelayMs,
			MinChunkBytes:     defaultMinChunkBytes,
			MaxFailurePercent: defaultMaxFailurePercent,
		},
		Cache: Cache{
			Enabled: false,
			Path:    defaultCachePath,
		},
		Progress: Progress{
			TimeoutSec: defaultProgressTimeoutSec,
		},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
