package config

const (
	defaultWLASLJSON       = "~/.cache/glossmerge/wlasl/WLASL_v0.3.json"
	defaultMSASLDir        = "~/.cache/glossmerge/msasl"
	defaultWorkDir         = "~/.local/share/glossmerge/work"
	defaultVideoDir        = "~/.local/share/glossmerge/videos"
	defaultLogDir          = "~/.local/share/glossmerge/logs"
	defaultTimeTolerance   = 0.5
	defaultLabelThreshold  = 0.8
	defaultAmbiguityMargin = 0.05
	defaultTrainRatio      = 0.75
	defaultValRatio        = 0.15
	defaultTestRatio       = 0.15
	defaultSlack           = 0.02
	defaultSeed            = 42
	defaultYtDlpBinary     = "yt-dlp"
	defaultFFmpegBinary    = "ffmpeg"
	defaultFFprobeBinary   = "ffprobe"
	defaultDownloadTimeout = 600
	defaultTrimTimeout     = 300
	defaultWorkers         = 4
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WLASLJSON: defaultWLASLJSON,
			MSASLDir:  defaultMSASLDir,
			WorkDir:   defaultWorkDir,
			VideoDir:  defaultVideoDir,
			LogDir:    defaultLogDir,
		},
		Reconcile: Reconcile{
			TimeToleranceSeconds:     defaultTimeTolerance,
			LabelSimilarityThreshold: defaultLabelThreshold,
			AmbiguityMargin:          defaultAmbiguityMargin,
		},
		Split: Split{
			TrainRatio: defaultTrainRatio,
			ValRatio:   defaultValRatio,
			TestRatio:  defaultTestRatio,
			Slack:      defaultSlack,
			Seed:       defaultSeed,
			Stratify:   true,
		},
		Tools: Tools{
			YtDlpBinary:     defaultYtDlpBinary,
			FFmpegBinary:    defaultFFmpegBinary,
			FFprobeBinary:   defaultFFprobeBinary,
			DownloadTimeout: defaultDownloadTimeout,
			TrimTimeout:     defaultTrimTimeout,
			Workers:         defaultWorkers,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
