package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTMDB(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateRender(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateTMDB() error {
	if c.TMDB.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/marquee/config.toml"
		}
		return fmt.Errorf("tmdb.api_key is required. Edit %s (create with 'marquee config init')", defaultPath)
	}
	return nil
}

func (c *Config) validatePipeline() error {
	if c.Pipeline.AutoSelectMargin >= 1 {
		return errors.New("pipeline.auto_select_margin must be below 1")
	}
	if c.Pipeline.SelectionMaxOptions > 25 {
		return errors.New("pipeline.selection_max_options must be 25 or fewer")
	}
	if c.Pipeline.RatingSignificance > 10 {
		return errors.New("pipeline.rating_significance must be within the 0-10 rating scale")
	}
	return nil
}

func (c *Config) validateRender() error {
	if c.Render.CanvasWidth < 100 || c.Render.CanvasHeight < 100 {
		return errors.New("render.canvas dimensions must be at least 100x100")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
		return nil
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
}
