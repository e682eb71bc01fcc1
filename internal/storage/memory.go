package storage

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/xaenox/project-shield/internal/models"
)

// MemoryStorage keeps everything in process memory. Values are copied on the
// way in and out so callers never share state with the store.
type MemoryStorage struct {
	mu           sync.RWMutex
	projects     map[uuid.UUID]*models.Project
	projectOrder []uuid.UUID
	chatProjects map[int64]uuid.UUID
	requests     map[uuid.UUID]*models.ClientRequest
	requestOrder map[uuid.UUID][]uuid.UUID
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		projects:     make(map[uuid.UUID]*models.Project),
		chatProjects: make(map[int64]uuid.UUID),
		requests:     make(map[uuid.UUID]*models.ClientRequest),
		requestOrder: make(map[uuid.UUID][]uuid.UUID),
	}
}

// Project methods
func (s *MemoryStorage) CreateProject(ctx context.Context, project *models.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if project.ID == uuid.Nil {
		project.ID = uuid.New()
	}
	project.CreatedAt = time.Now()
	project.ScopeItems = nil

	if _, exists := s.projects[project.ID]; !exists {
		s.projectOrder = append(s.projectOrder, project.ID)
	}
	s.projects[project.ID] = copyProject(project)
	if project.ChatID != 0 {
		s.chatProjects[project.ChatID] = project.ID
	}
	return nil
}

func (s *MemoryStorage) GetProject(ctx context.Context, id uuid.UUID) (*models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if project, exists := s.projects[id]; exists {
		return copyProject(project), nil
	}
	return nil, fmt.Errorf("project %s: %w", id, ErrNotFound)
}

func (s *MemoryStorage) GetProjectByChat(ctx context.Context, chatID int64) (*models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if id, exists := s.chatProjects[chatID]; exists {
		return copyProject(s.projects[id]), nil
	}
	return nil, fmt.Errorf("project for chat %d: %w", chatID, ErrNotFound)
}

func (s *MemoryStorage) ListProjects(ctx context.Context) ([]*models.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Project, 0, len(s.projectOrder))
	for _, id := range s.projectOrder {
		out = append(out, copyProject(s.projects[id]))
	}
	return out, nil
}

func (s *MemoryStorage) AddScopeItem(ctx context.Context, item *models.ScopeItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	project, exists := s.projects[item.ProjectID]
	if !exists {
		return fmt.Errorf("project %s: %w", item.ProjectID, ErrNotFound)
	}

	if item.ID == uuid.Nil {
		item.ID = uuid.New()
	}
	item.Order = len(project.ScopeItems)
	item.CreatedAt = time.Now()

	stored := *item
	project.ScopeItems = append(project.ScopeItems, &stored)
	return nil
}

// Client request methods
func (s *MemoryStorage) CreateClientRequest(ctx context.Context, req *models.ClientRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.projects[req.ProjectID]; !exists {
		return fmt.Errorf("project %s: %w", req.ProjectID, ErrNotFound)
	}

	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	now := time.Now()
	req.CreatedAt = now
	req.UpdatedAt = now

	s.requests[req.ID] = copyRequest(req)
	s.requestOrder[req.ProjectID] = append(s.requestOrder[req.ProjectID], req.ID)
	return nil
}

func (s *MemoryStorage) GetClientRequest(ctx context.Context, id uuid.UUID) (*models.ClientRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if req, exists := s.requests[id]; exists {
		return copyRequest(req), nil
	}
	return nil, fmt.Errorf("client request %s: %w", id, ErrNotFound)
}

func (s *MemoryStorage) ListClientRequests(ctx context.Context, projectID uuid.UUID) ([]*models.ClientRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.requestOrder[projectID]
	out := make([]*models.ClientRequest, 0, len(ids))
	for _, id := range ids {
		out = append(out, copyRequest(s.requests[id]))
	}
	return out, nil
}

func (s *MemoryStorage) UpdateClientRequest(ctx context.Context, req *models.ClientRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.requests[req.ID]
	if !exists {
		return fmt.Errorf("client request %s: %w", req.ID, ErrNotFound)
	}

	req.ProjectID = existing.ProjectID
	req.CreatedAt = existing.CreatedAt
	req.UpdatedAt = time.Now()
	s.requests[req.ID] = copyRequest(req)
	return nil
}

func (s *MemoryStorage) Close() error {
	// Nothing to close for in-memory storage
	return nil
}

func copyProject(p *models.Project) *models.Project {
	out := *p
	out.ScopeItems = make([]*models.ScopeItem, len(p.ScopeItems))
	for i, item := range p.ScopeItems {
		c := *item
		out.ScopeItems[i] = &c
	}
	return &out
}

func copyRequest(r *models.ClientRequest) *models.ClientRequest {
	out := *r
	if r.LinkedScopeItemID != nil {
		id := *r.LinkedScopeItemID
		out.LinkedScopeItemID = &id
	}
	if r.Confidence != nil {
		c := *r.Confidence
		out.Confidence = &c
	}
	return &out
}
