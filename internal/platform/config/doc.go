// Package config provides the command line and environment configuration.
//
// The listening port comes from the single positional argument. Optional tuning is loaded
// from the environment (and a .env file via godotenv) through go-simpler/env struct tags.
package config
