package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTMDB()
	c.normalizeOMDb()
	c.normalizePipeline()
	c.normalizeRender()
	c.normalizeNotifications()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.PosterCacheDir) == "" {
		c.Paths.PosterCacheDir = defaultPosterCacheDir
	}
	if c.Paths.PosterCacheDir, err = expandPath(c.Paths.PosterCacheDir); err != nil {
		return fmt.Errorf("paths.poster_cache_dir: %w", err)
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	c.Paths.APIToken = strings.TrimSpace(c.Paths.APIToken)
	return nil
}

func (c *Config) normalizeTMDB() {
	if c.TMDB.APIKey == "" {
		if value, ok := os.LookupEnv("TMDB_API_KEY"); ok {
			c.TMDB.APIKey = value
		}
	}
	c.TMDB.APIKey = strings.TrimSpace(c.TMDB.APIKey)
	c.TMDB.BaseURL = strings.TrimRight(strings.TrimSpace(c.TMDB.BaseURL), "/")
	if c.TMDB.BaseURL == "" {
		c.TMDB.BaseURL = defaultTMDBBaseURL
	}
	c.TMDB.ImageBaseURL = strings.TrimRight(strings.TrimSpace(c.TMDB.ImageBaseURL), "/")
	if c.TMDB.ImageBaseURL == "" {
		c.TMDB.ImageBaseURL = defaultTMDBImageBaseURL
	}
	if strings.TrimSpace(c.TMDB.Language) == "" {
		c.TMDB.Language = defaultTMDBLanguage
	}
	if c.TMDB.RatePerSecond <= 0 {
		c.TMDB.RatePerSecond = defaultTMDBRatePerSecond
	}
}

func (c *Config) normalizeOMDb() {
	if c.OMDb.APIKey == "" {
		if value, ok := os.LookupEnv("OMDB_API_KEY"); ok {
			c.OMDb.APIKey = value
		}
	}
	c.OMDb.APIKey = strings.TrimSpace(c.OMDb.APIKey)
	c.OMDb.BaseURL = strings.TrimRight(strings.TrimSpace(c.OMDb.BaseURL), "/")
	if c.OMDb.BaseURL == "" {
		c.OMDb.BaseURL = defaultOMDbBaseURL
	}
}

func (c *Config) normalizePipeline() {
	if c.Pipeline.MetadataTTLHours <= 0 {
		c.Pipeline.MetadataTTLHours = defaultMetadataTTLHours
	}
	if c.Pipeline.SelectionTimeoutMinutes <= 0 {
		c.Pipeline.SelectionTimeoutMinutes = defaultSelectionTimeoutMinutes
	}
	if c.Pipeline.SelectionMaxOptions <= 0 {
		c.Pipeline.SelectionMaxOptions = defaultSelectionMaxOptions
	}
	if c.Pipeline.AutoSelectMargin <= 0 {
		c.Pipeline.AutoSelectMargin = defaultAutoSelectMargin
	}
	if c.Pipeline.PublishRetryAttempts <= 0 {
		c.Pipeline.PublishRetryAttempts = defaultPublishRetryAttempts
	}
	if c.Pipeline.PublishRetryBackoff <= 0 {
		c.Pipeline.PublishRetryBackoff = defaultPublishRetryBackoff
	}
	if c.Pipeline.RatingSignificance <= 0 {
		c.Pipeline.RatingSignificance = defaultRatingSignificance
	}
	if c.Pipeline.MaxActiveQueries <= 0 {
		c.Pipeline.MaxActiveQueries = defaultMaxActiveQueries
	}
}

func (c *Config) normalizeRender() {
	c.Render.TemplateVersion = strings.TrimSpace(c.Render.TemplateVersion)
	if c.Render.TemplateVersion == "" {
		c.Render.TemplateVersion = defaultTemplateVersion
	}
	if c.Render.CanvasWidth <= 0 {
		c.Render.CanvasWidth = defaultCanvasWidth
	}
	if c.Render.CanvasHeight <= 0 {
		c.Render.CanvasHeight = defaultCanvasHeight
	}
	if c.Render.JPEGQuality <= 0 || c.Render.JPEGQuality > 100 {
		c.Render.JPEGQuality = defaultJPEGQuality
	}
	if c.Render.FetchTimeout <= 0 {
		c.Render.FetchTimeout = defaultRenderFetchTimeout
	}
}

func (c *Config) normalizeNotifications() {
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	if c.Notifications.RequestTimeout <= 0 {
		c.Notifications.RequestTimeout = defaultNotifyRequestTimeout
	}
	if c.Notifications.DedupWindowSeconds <= 0 {
		c.Notifications.DedupWindowSeconds = defaultNotifyDedupWindow
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
