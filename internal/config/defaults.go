package config

const (
	defaultDataDir                 = "~/.local/share/marquee"
	defaultLogDir                  = "~/.local/share/marquee/logs"
	defaultPosterCacheDir          = "~/.cache/marquee/posters"
	defaultAPIBind                 = "127.0.0.1:7519"
	defaultTMDBBaseURL             = "https://api.themoviedb.org/3"
	defaultTMDBImageBaseURL        = "https://image.tmdb.org/t/p/w500"
	defaultTMDBLanguage            = "en-US"
	defaultTMDBRatePerSecond       = 4.0
	defaultOMDbBaseURL             = "https://www.omdbapi.com"
	defaultMetadataTTLHours        = 168
	defaultSelectionTimeoutMinutes = 10
	defaultSelectionMaxOptions     = 5
	defaultAutoSelectMargin        = 0.25
	defaultPublishRetryAttempts    = 3
	defaultPublishRetryBackoff     = 2
	defaultRatingSignificance      = 0.5
	defaultMaxActiveQueries        = 32
	defaultTemplateVersion         = "v1"
	defaultCanvasWidth             = 1280
	defaultCanvasHeight            = 720
	defaultJPEGQuality             = 85
	defaultRenderFetchTimeout      = 30
	defaultNotifyRequestTimeout    = 10
	defaultNotifyDedupWindow       = 600
	defaultLogFormat               = "console"
	defaultLogLevel                = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:        defaultDataDir,
			LogDir:         defaultLogDir,
			PosterCacheDir: defaultPosterCacheDir,
			APIBind:        defaultAPIBind,
		},
		TMDB: TMDB{
			BaseURL:       defaultTMDBBaseURL,
			ImageBaseURL:  defaultTMDBImageBaseURL,
			Language:      defaultTMDBLanguage,
			RatePerSecond: defaultTMDBRatePerSecond,
		},
		OMDb: OMDb{
			BaseURL: defaultOMDbBaseURL,
		},
		Pipeline: Pipeline{
			MetadataTTLHours:        defaultMetadataTTLHours,
			SelectionTimeoutMinutes: defaultSelectionTimeoutMinutes,
			SelectionMaxOptions:     defaultSelectionMaxOptions,
			AutoSelectMargin:        defaultAutoSelectMargin,
			PublishRetryAttempts:    defaultPublishRetryAttempts,
			PublishRetryBackoff:     defaultPublishRetryBackoff,
			RepublishOnChange:       false,
			RatingSignificance:      defaultRatingSignificance,
			MaxActiveQueries:        defaultMaxActiveQueries,
		},
		Render: Render{
			TemplateVersion: defaultTemplateVersion,
			CanvasWidth:     defaultCanvasWidth,
			CanvasHeight:    defaultCanvasHeight,
			JPEGQuality:     defaultJPEGQuality,
			FetchTimeout:    defaultRenderFetchTimeout,
		},
		Notifications: Notifications{
			RequestTimeout:     defaultNotifyRequestTimeout,
			Resolution:         true,
			Selection:          true,
			Publication:        true,
			Errors:             true,
			DedupWindowSeconds: defaultNotifyDedupWindow,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
