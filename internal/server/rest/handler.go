package rest

import (
	"context"
	"time"

	"github.com/dmitrijs2005/nizamla/internal/logging"
	"github.com/dmitrijs2005/nizamla/internal/server/services"
)

// Pinger reports whether the durable store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Deps are the services behind the HTTP API.
type Deps struct {
	Users    *services.UserService
	Sessions *services.SessionManager
	Tasks    *services.TaskService
	Store    Pinger
	Logger   logging.Logger
	Version  string
}

// Handler implements every route of the API.
type Handler struct {
	users    *services.UserService
	sessions *services.SessionManager
	tasks    *services.TaskService
	store    Pinger
	logger   logging.Logger
	version  string
	now      func() time.Time
}

func NewHandler(d Deps) *Handler {
	version := d.Version
	if version == "" {
		version = "dev"
	}
	return &Handler{
		users:    d.Users,
		sessions: d.Sessions,
		tasks:    d.Tasks,
		store:    d.Store,
		logger:   d.Logger,
		version:  version,
		now:      time.Now,
	}
}
