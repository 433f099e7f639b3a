// Package config provides type-safe environment variable loading with
// per-type caching using Go generics. A .env file, when present, is loaded
// once on first use; parsing is handled by the caarlos0/env library.
//
// Basic usage:
//
//	type APIConfig struct {
//		BaseURL string        `env:"AUTH_API_BASE_URL,required"`
//		Timeout time.Duration `env:"AUTH_API_TIMEOUT" envDefault:"10s"`
//	}
//
//	var cfg APIConfig
//	if err := config.Load(&cfg); err != nil {
//		log.Fatal(err)
//	}
//
// Each configuration type is loaded only once per process; subsequent Load
// calls for the same type return the cached value.
package config

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	cache      sync.Map // reflect.Type -> parsed config value
	dotenvOnce sync.Once
)

// Load parses environment variables into cfg. The first call for a given
// type reads the environment; later calls return the cached value so every
// component sees one consistent configuration.
func Load[T any](cfg *T) error {
	dotenvOnce.Do(func() {
		// Missing .env is the normal case outside local development.
		_ = godotenv.Load()
	})

	typ := reflect.TypeOf(*cfg)
	if cached, ok := cache.Load(typ); ok {
		*cfg = cached.(T)
		return nil
	}

	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", typ, err)
	}

	cached, _ := cache.LoadOrStore(typ, *cfg)
	*cfg = cached.(T)
	return nil
}

// MustLoad is Load that panics on failure; intended for application startup.
func MustLoad[T any](cfg *T) {
	if err := Load(cfg); err != nil {
		panic(err)
	}
}
