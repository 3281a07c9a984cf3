// Package config loads typed configuration from environment variables.
//
// Each struct declares its variables with caarlos0/env tags. A .env file in
// the working directory is loaded once, before the first parse, and never
// overrides variables already present in the environment.
//
//	var cfg pg.Config
//	if err := config.Load(&cfg); err != nil {
//	    return err
//	}
//
// Parsed values are cached per type, so every package asking for the same
// struct sees the same values.
package config
