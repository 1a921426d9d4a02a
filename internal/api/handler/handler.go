package handler

import (
	"log/slog"

	"github.com/fitstack/wodqueue/internal/api/storage"
	"github.com/fitstack/wodqueue/internal/jobqueue"
	"github.com/fitstack/wodqueue/internal/wod"
	"github.com/fitstack/wodqueue/shared/postgresql"
)

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger    *slog.Logger
	DBClient  *postgresql.Client
	Storage   *storage.Storage
	Generator wod.Generator
	Producer  *jobqueue.Producer
}

// WODHandler handles WOD-related HTTP requests
type WODHandler struct {
	logger    *slog.Logger
	storage   *storage.Storage
	generator wod.Generator
	producer  *jobqueue.Producer
}

// NewWODHandler creates a new WODHandler instance
func NewWODHandler(deps *Dependencies) *WODHandler {
	return &WODHandler{
		logger:    deps.Logger,
		storage:   deps.Storage,
		generator: deps.Generator,
		producer:  deps.Producer,
	}
}
