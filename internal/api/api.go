// Package api assembles the API module: the classification pipeline, all
// domain systems, and route registration.
package api

import (
	"fmt"
	"net/http"

	"github.com/winnowhq/winnow/internal/classifier"
	"github.com/winnowhq/winnow/internal/config"
	"github.com/winnowhq/winnow/internal/infrastructure"
	"github.com/winnowhq/winnow/pipeline"
	"github.com/winnowhq/winnow/pkg/middleware"
	"github.com/winnowhq/winnow/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	runtime := NewRuntime(cfg, infra)

	cls, err := classifier.New(&cfg.Classifier, runtime.Logger)
	if err != nil {
		return nil, fmt.Errorf("classifier init failed: %w", err)
	}

	pipe, err := pipeline.New(cfg.Pipeline, cls, runtime.Logger)
	if err != nil {
		return nil, fmt.Errorf("pipeline init failed: %w", err)
	}

	domain := NewDomain(runtime, pipe, cfg.Pipeline.PersistMaxElapsedDuration())

	mux := http.NewServeMux()
	registerRoutes(mux, domain, runtime)

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.MaxBytes(cfg.API.MaxRequestSizeBytes()))
	m.Use(middleware.Logger(runtime.Logger))

	return m, nil
}
