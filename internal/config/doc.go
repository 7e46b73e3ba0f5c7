// Package config provides configuration management for mediavault.
//
// This package handles:
//   - Loading and saving settings from JSON or YAML files
//   - Environment variable overrides (MEDIAVAULT_*)
//   - Default configuration values and validation
//
// # Default Settings
//
// Use DefaultSettings() to get sensible defaults:
//
//	settings := config.DefaultSettings()
//	// Downloads to ~/Downloads/mediavault
//	// Presigned URLs cached for 6h, gallery lists for 24h
//
// # Loading from File
//
//	settings, err := config.Load("/path/to/config.yaml")
//	if err != nil {
//	    // Uses defaults if file doesn't exist
//	}
//
// Environment variables are applied on top of the file, so
// MEDIAVAULT_API_BASE_URL=https://api.example.com wins over api_base_url.
//
// # Cache TTL
//
// url_cache_ttl must stay strictly below signature_lifetime, the validity
// window of the backend's presigned URLs. Validate enforces this.
package config
