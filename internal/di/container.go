// Package di wires repositories, services, and handlers together.
package di

import (
	"github.com/yaksh9737/event-manager/internal/handler"
	"github.com/yaksh9737/event-manager/internal/repository"
	"github.com/yaksh9737/event-manager/internal/service"
	"github.com/yaksh9737/event-manager/internal/upload"
	"github.com/yaksh9737/event-manager/pkg/config"
	"github.com/yaksh9737/event-manager/pkg/database"
)

// Container holds all dependencies for the service
type Container struct {
	// Infrastructure
	DB     *database.PostgresDB
	Images *upload.LocalStore

	// Repositories
	UserRepo  repository.UserRepository
	EventRepo repository.EventRepository

	// Services
	AuthService  service.AuthService
	EventService service.EventService

	// Handlers
	HealthHandler *handler.HealthHandler
	AuthHandler   *handler.AuthHandler
	EventHandler  *handler.EventHandler
}

// ContainerConfig contains configuration for building the container
type ContainerConfig struct {
	DB        *database.PostgresDB
	Images    *upload.LocalStore
	UserRepo  repository.UserRepository
	EventRepo repository.EventRepository
	JWT       *config.JWTConfig
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *ContainerConfig) *Container {
	c := &Container{
		DB:        cfg.DB,
		Images:    cfg.Images,
		UserRepo:  cfg.UserRepo,
		EventRepo: cfg.EventRepo,
	}

	c.AuthService = service.NewAuthService(c.UserRepo, cfg.JWT)
	c.EventService = service.NewEventService(c.EventRepo)

	var pinger handler.Pinger
	if c.DB != nil {
		pinger = c.DB
	}
	c.HealthHandler = handler.NewHealthHandler(pinger)
	c.AuthHandler = handler.NewAuthHandler(c.AuthService)
	c.EventHandler = handler.NewEventHandler(c.EventService, c.Images)

	return c
}
