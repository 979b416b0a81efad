// Package config provides configuration loading and validation for streamkit
// binaries.
//
// It uses Viper to load configuration from a config.yml and .env file, binds
// process environment variables over both, and unmarshals the merged result
// into a struct that embeds ServiceConfig.
//
// # Usage
//
//	var cfg RunConfig
//	err := config.Load("streamkit", &cfg, config.WithConfigFile(path))
//
// Environment variables override file values using underscore-separated
// paths (e.g., STAGE_WORKERS overrides stage.workers).
package config
