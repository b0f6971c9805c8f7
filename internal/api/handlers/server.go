// Package handlers implements the HTTP surface over the workflow engine.
// Handlers bind/validate the request, call one engine operation, and hand
// errors to the centralized error middleware via c.Error().
package handlers

import (
	"venuehq.io/banquet/internal/catalog"
	"venuehq.io/banquet/internal/config"
	"venuehq.io/banquet/internal/engine"
)

// Server carries the handler dependencies. Manual DI, no framework.
type Server struct {
	cfg    *config.Config
	engine *engine.Engine
	cat    *catalog.Catalog
}

// NewServer creates the handler set.
func NewServer(cfg *config.Config, eng *engine.Engine, cat *catalog.Catalog) *Server {
	return &Server{cfg: cfg, engine: eng, cat: cat}
}
