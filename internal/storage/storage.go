package storage

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/xaenox/project-shield/internal/models"
)

// ErrNotFound is returned when a project or client request does not exist.
var ErrNotFound = errors.New("not found")

type Storage interface {
	ProjectStorage
	RequestStorage
	Close() error
}

// ProjectStorage persists projects and their scope of work.
// GetProject and GetProjectByChat return projects with scope items loaded in order.
type ProjectStorage interface {
	CreateProject(ctx context.Context, project *models.Project) error
	GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error)
	GetProjectByChat(ctx context.Context, chatID int64) (*models.Project, error)
	// ListProjects returns every project, oldest first.
	ListProjects(ctx context.Context) ([]*models.Project, error)
	// AddScopeItem appends item to its project's scope; Order is assigned by the store.
	AddScopeItem(ctx context.Context, item *models.ScopeItem) error
}

// RequestStorage persists client requests and their analysis.
type RequestStorage interface {
	CreateClientRequest(ctx context.Context, req *models.ClientRequest) error
	GetClientRequest(ctx context.Context, id uuid.UUID) (*models.ClientRequest, error)
	// ListClientRequests returns a project's requests oldest first.
	ListClientRequests(ctx context.Context, projectID uuid.UUID) ([]*models.ClientRequest, error)
	UpdateClientRequest(ctx context.Context, req *models.ClientRequest) error
}
