// Package config provides configuration management for nextory-downloader.
//
// Settings are read from a JSON file and overridden by NEXTORY_* environment
// variables through viper:
//
//	settings, err := config.Load(config.DefaultPath())
//	// NEXTORY_MAX_CONCURRENT_DOWNLOADS=4 overrides max_concurrent_downloads
//	// NEXTORY_CATEGORIES=a,b sets categories
//
// A missing file is not an error; defaults apply.
//
//	settings.DownloadsPath = "/srv/books"
//	err := settings.Save(config.DefaultPath())
package config
