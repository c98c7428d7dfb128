// Package config defines the fields the sync core consumes from the
// operator-facing configuration file. The loader's own concerns — file
// watching, CLI flag merging, schema migration of the config file itself —
// belong to an external collaborator (spec.md §1); this package only
// defines the shape and a minimal YAML load.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ConcurrentLimit bounds the two scheduler tiers (§4.6/§4.7) plus the
// downloader's own internal concurrency, which is orthogonal and owned by
// that collaborator (spec.md §9).
type ConcurrentLimit struct {
	Video    int `yaml:"video"`
	Page     int `yaml:"page"`
	Download int `yaml:"download"`
}

// SkipOption disables individual video-/page-level subtasks wholesale,
// independent of the per-row retry bitfield.
type SkipOption struct {
	NoPoster   bool `yaml:"no_poster"`
	NoVideoNFO bool `yaml:"no_video_nfo"`
	NoUpper    bool `yaml:"no_upper"`
	NoDanmaku  bool `yaml:"no_danmaku"`
	NoSubtitle bool `yaml:"no_subtitle"`
}

// FilterOption selects the preferred stream quality/codec the downloader
// collaborator should pick via BestStream (spec.md §4.7).
type FilterOption struct {
	VideoMaxQuality string   `yaml:"video_max_quality"`
	AudioMaxQuality string   `yaml:"audio_max_quality"`
	CodecPriority   []string `yaml:"codec_priority"`
	NoDolby         bool     `yaml:"no_dolby"`
	NoHDR           bool     `yaml:"no_hdr"`
}

// DanmakuOption controls the danmaku writer collaborator's rendering
// style (font size, duration on screen, opacity, ...); the core passes it
// through untouched.
type DanmakuOption struct {
	DurationSeconds float64 `yaml:"duration_seconds"`
	FontSizeRatio   float64 `yaml:"font_size_ratio"`
	Opacity         float64 `yaml:"opacity"`
}

// Config is the subset of the operator's configuration file the sync core
// reads (spec.md §6).
type Config struct {
	Credential      string          `yaml:"credential"`
	ConcurrentLimit ConcurrentLimit `yaml:"concurrent_limit"`
	FilterOption    FilterOption    `yaml:"filter_option"`
	CDNSorting      bool            `yaml:"cdn_sorting"`
	TimeFormat      string          `yaml:"time_format"`
	NFOTimeType     string          `yaml:"nfo_time_type"`
	DanmakuOption   DanmakuOption   `yaml:"danmaku_option"`
	SkipOption      SkipOption      `yaml:"skip_option"`
	UpperPath       string          `yaml:"upper_path"`
}

// Default returns a config with the conservative defaults the original
// project ships: low concurrency, no subtasks skipped.
func Default() Config {
	return Config{
		ConcurrentLimit: ConcurrentLimit{Video: 3, Page: 2, Download: 4},
		TimeFormat:      "2006-01-02 15:04:05",
		NFOTimeType:     "pubtime",
	}
}

// Load reads and parses a YAML config file, layering it over Default().
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if cfg.ConcurrentLimit.Video < 1 {
		cfg.ConcurrentLimit.Video = 1
	}
	if cfg.ConcurrentLimit.Page < 1 {
		cfg.ConcurrentLimit.Page = 1
	}
	return cfg, nil
}
