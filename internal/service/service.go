package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/xaenox/project-shield/internal/classifier"
	"github.com/xaenox/project-shield/internal/models"
	"github.com/xaenox/project-shield/internal/storage"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const DefaultConcurrency = 4

// ClassificationMap translates analyzer verdicts into stored classifications.
var ClassificationMap = map[classifier.Classification]models.ScopeClassification{
	classifier.InScope:             models.ClassificationInScope,
	classifier.OutOfScope:          models.ClassificationOutOfScope,
	classifier.ClarificationNeeded: models.ClassificationClarificationNeeded,
	classifier.Revision:            models.ClassificationRevision,
}

// ScopeAnalyzer is the part of classifier.Analyzer the service depends on.
type ScopeAnalyzer interface {
	AnalyzeScope(ctx context.Context, req classifier.Request) (classifier.Result, error)
	AnalyzeScopeSync(req classifier.Request) (classifier.Result, error)
}

// Analysis pairs an updated client request with the result that produced it.
type Analysis struct {
	Request *models.ClientRequest
	Result  classifier.Result
}

// ProjectSweep is the outcome of analyzing one project's pending requests.
type ProjectSweep struct {
	Project *models.Project
	Results []Analysis
}

// Submission is a new client request to store and analyze.
type Submission struct {
	ProjectID uuid.UUID
	Title     string
	Content   string
	Source    models.RequestSource
}

type Service struct {
	store       storage.Storage
	analyzer    ScopeAnalyzer
	logger      *zap.Logger
	concurrency int
}

func New(store storage.Storage, analyzer ScopeAnalyzer, logger *zap.Logger, concurrency int) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Service{
		store:       store,
		analyzer:    analyzer,
		logger:      logger,
		concurrency: concurrency,
	}
}

// BuildRequest snapshots a project's scope and the given content into an
// analysis request. The project description becomes the project context.
func BuildRequest(project *models.Project, content string) (classifier.Request, error) {
	items := make([]classifier.ScopeItem, 0, len(project.ScopeItems))
	for _, item := range project.ScopeItems {
		items = append(items, classifier.ScopeItem{
			ID:          item.ID,
			Title:       item.Title,
			Description: item.Description,
			Order:       item.Order,
		})
	}
	return classifier.NewRequest(content, items, project.Description)
}

// ApplyResult writes an analysis result onto a stored client request and marks
// it analyzed. An existing scope item link is kept when the result has no ID.
func ApplyResult(cr *models.ClientRequest, res classifier.Result) error {
	classification, ok := ClassificationMap[res.Classification]
	if !ok {
		return fmt.Errorf("%w: unknown classification %q", classifier.ErrInvalidRequest, res.Classification)
	}

	update := res.ToRequestUpdate()
	confidence := update.Confidence
	cr.Classification = classification
	cr.Confidence = &confidence
	cr.AnalysisReasoning = update.AnalysisReasoning
	cr.SuggestedAction = update.SuggestedAction
	cr.Status = models.StatusAnalyzed
	if update.LinkedScopeItemID != nil {
		id := *update.LinkedScopeItemID
		cr.LinkedScopeItemID = &id
	}
	return nil
}

// Submit stores a new client request and analyzes it straight away.
func (s *Service) Submit(ctx context.Context, sub Submission) (Analysis, error) {
	project, err := s.store.GetProject(ctx, sub.ProjectID)
	if err != nil {
		return Analysis{}, err
	}

	// Validate before storing so a bad submission leaves no row behind.
	req, err := BuildRequest(project, sub.Content)
	if err != nil {
		return Analysis{}, err
	}

	source := sub.Source
	if source == "" {
		source = models.SourceEmail
	}
	cr := &models.ClientRequest{
		ProjectID:      project.ID,
		Title:          requestTitle(sub.Title, sub.Content),
		Content:        sub.Content,
		Source:         source,
		Status:         models.StatusNew,
		Classification: models.ClassificationPending,
	}
	if err := s.store.CreateClientRequest(ctx, cr); err != nil {
		return Analysis{}, err
	}

	return s.analyze(ctx, cr, req, false)
}

// Analyze re-runs the analysis for a stored client request. With rulesOnly
// the rule classifier is used regardless of the configured strategy.
func (s *Service) Analyze(ctx context.Context, requestID uuid.UUID, rulesOnly bool) (Analysis, error) {
	cr, err := s.store.GetClientRequest(ctx, requestID)
	if err != nil {
		return Analysis{}, err
	}
	project, err := s.store.GetProject(ctx, cr.ProjectID)
	if err != nil {
		return Analysis{}, err
	}

	req, err := BuildRequest(project, cr.Content)
	if err != nil {
		return Analysis{}, err
	}
	return s.analyze(ctx, cr, req, rulesOnly)
}

// AnalyzeProject analyzes a project's client requests, optionally only those
// still pending. Results come back in request creation order.
func (s *Service) AnalyzeProject(ctx context.Context, projectID uuid.UUID, onlyPending bool) ([]Analysis, error) {
	project, err := s.store.GetProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	requests, err := s.store.ListClientRequests(ctx, projectID)
	if err != nil {
		return nil, err
	}

	var selected []*models.ClientRequest
	for _, cr := range requests {
		if onlyPending && cr.Classification != models.ClassificationPending {
			continue
		}
		selected = append(selected, cr)
	}

	results := make([]Analysis, len(selected))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, cr := range selected {
		g.Go(func() error {
			req, err := BuildRequest(project, cr.Content)
			if err != nil {
				return fmt.Errorf("client request %s: %w", cr.ID, err)
			}
			analysis, err := s.analyze(gctx, cr, req, false)
			if err != nil {
				return err
			}
			results[i] = analysis
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s.logger.Info("Analyzed project requests",
		zap.String("project_id", projectID.String()),
		zap.Bool("only_pending", onlyPending),
		zap.Int("analyzed", len(results)))
	return results, nil
}

// AnalyzePending analyzes the pending requests of every project. A project
// that fails is logged and skipped; only projects with analyzed requests are
// returned.
func (s *Service) AnalyzePending(ctx context.Context) ([]ProjectSweep, error) {
	projects, err := s.store.ListProjects(ctx)
	if err != nil {
		return nil, err
	}

	var sweeps []ProjectSweep
	for _, project := range projects {
		if err := ctx.Err(); err != nil {
			return sweeps, err
		}

		results, err := s.AnalyzeProject(ctx, project.ID, true)
		if err != nil {
			s.logger.Warn("Skipping project in pending sweep",
				zap.Error(err),
				zap.String("project_id", project.ID.String()))
			continue
		}
		if len(results) > 0 {
			sweeps = append(sweeps, ProjectSweep{Project: project, Results: results})
		}
	}
	return sweeps, nil
}

func (s *Service) analyze(ctx context.Context, cr *models.ClientRequest, req classifier.Request, rulesOnly bool) (Analysis, error) {
	var (
		res classifier.Result
		err error
	)
	if rulesOnly {
		res, err = s.analyzer.AnalyzeScopeSync(req)
	} else {
		res, err = s.analyzer.AnalyzeScope(ctx, req)
	}
	if err != nil {
		return Analysis{}, err
	}

	if err := ApplyResult(cr, res); err != nil {
		return Analysis{}, err
	}
	if err := s.store.UpdateClientRequest(ctx, cr); err != nil {
		return Analysis{}, err
	}

	s.logger.Debug("Client request analyzed",
		zap.String("request_id", cr.ID.String()),
		zap.String("classification", string(res.Classification)),
		zap.Float64("confidence", res.Confidence))
	return Analysis{Request: cr, Result: res}, nil
}

const maxTitleLength = 60

// requestTitle falls back to the first line of content, shortened.
func requestTitle(title, content string) string {
	if t := strings.TrimSpace(title); t != "" {
		return t
	}
	line := strings.TrimSpace(content)
	if i := strings.IndexByte(line, '\n'); i >= 0 {
		line = strings.TrimSpace(line[:i])
	}
	runes := []rune(line)
	if len(runes) > maxTitleLength {
		return string(runes[:maxTitleLength-3]) + "..."
	}
	return line
}
