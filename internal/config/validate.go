package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateSegmentation(); err != nil {
		return err
	}
	if err := c.validateRecognizer(); err != nil {
		return err
	}
	if err := c.validateDispatch(); err != nil {
		return err
	}
	if err := c.validateCache(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateSegmentation() error {
	s := c.Segmentation
	if s.MinSilenceMs <= 0 {
		return errors.New("segmentation.min_silence_ms must be positive")
	}
	if s.SilenceThresholdDb >= 0 {
		return errors.New("segmentation.silence_threshold_db must be negative (dBFS)")
	}
	if s.MinSegmentSec <= 0 {
		return errors.New("segmentation.min_segment_sec must be positive")
	}
	if s.MaxSegmentSec <= s.MinSegmentSec {
		return errors.New("segmentation.max_segment_sec must exceed min_segment_sec")
	}
	if s.StrictMaxSec < s.MaxSegmentSec {
		return errors.New("segmentation.strict_max_sec must be at least max_segment_sec")
	}
	if s.SearchWindowSec <= 0 {
		return errors.New("segmentation.search_window_sec must be positive")
	}
	return nil
}

func (c *Config) validateRecognizer() error {
	if strings.TrimSpace(c.Recognizer.BaseURL) == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/stitcher/config.toml"
		}
		return fmt.Errorf("recognizer.base_url is required. Edit %s (create with 'stitcher config init')", defaultPath)
	}
	if c.Recognizer.ConnectTimeoutSec <= 0 {
		return errors.New("recognizer.connect_timeout_sec must be positive")
	}
	if c.Recognizer.ReadTimeoutBaseSec <= 0 {
		return errors.New("recognizer.read_timeout_base_sec must be positive")
	}
	if c.Recognizer.ReadTimeoutSecPerMB < 0 {
		return errors.New("recognizer.read_timeout_sec_per_mb must not be negative")
	}
	return nil
}

func (c *Config) validateDispatch() error {
	d := c.Dispatch
	if d.Workers <= 0 {
		return errors.New("dispatch.workers must be positive")
	}
	if d.MaxRetries < 1 {
		return errors.New("dispatch.max_retries must be at least 1")
	}
	if d.BaseDelayMs <= 0 {
		return errors.New("dispatch.base_delay_ms must be positive")
	}
	if d.MinChunkBytes < 0 {
		return errors.New("dispatch.min_chunk_bytes must not be negative")
	}
	if d.MaxFailurePercent < 0 || d.MaxFailurePercent > 100 {
		return errors.New("dispatch.max_failure_percent must be between 0 and 100")
	}
	return nil
}

func (c *Config) validateCache() error {
	if !c.Cache.Enabled {
		return nil
	}
	if strings.TrimSpace(c.Cache.Path) == "" {
		return errors.New("cache.path must be set when cache.enabled is true")
	}
	return nil
}
