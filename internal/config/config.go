package config

import (
	"strings"
)

// CreateConfig contains the [create] settings.
type CreateConfig struct {
	// LongNames is "gnu" or "fail".
	LongNames string
	// ZipLevel is the flate level of zip entries; 0 means the archiver's default.
	ZipLevel int
	// Comment is the zip archive comment.
	Comment string
}

// ForCreate returns configuration for creating archives.
func (l *Loader) ForCreate() (c CreateConfig) {
	if l.cfg == nil {
		return
	}

	sec, err := l.cfg.GetSection("create")
	if err != nil {
		return
	}

	c.LongNames = strings.ToLower(sec.Key("long-names").MustString("gnu"))
	c.ZipLevel = sec.Key("zip-level").MustInt(0)
	c.Comment = sec.Key("comment").String()
	return
}

// ForCreate calls Loader.ForCreate on the DefaultLoader instance.
func ForCreate() CreateConfig {
	return DefaultLoader.ForCreate()
}

// ExtractConfig contains the [extract] settings.
type ExtractConfig struct {
	// LstBase replaces the base folder of lst manifests.
	LstBase string
}

// ForExtract returns configuration for reading archives.
func (l *Loader) ForExtract() (c ExtractConfig) {
	if l.cfg == nil {
		return
	}

	sec, err := l.cfg.GetSection("extract")
	if err != nil {
		return
	}

	c.LstBase = sec.Key("lst-base").String()
	return
}

// ForExtract calls Loader.ForExtract on the DefaultLoader instance.
func ForExtract() ExtractConfig {
	return DefaultLoader.ForExtract()
}
