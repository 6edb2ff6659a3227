package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"civicresolve/models"
)

// Memory keeps everything in process. It enforces the same unique
// constraints as the Mongo indexes.
type Memory struct {
	mu          sync.RWMutex
	issues      map[string]models.Issue
	contractors map[string]models.Contractor
	feedback    map[string]models.Feedback
	evidence    map[string]map[string]models.Upload
}

func NewMemory() *Memory {
	return &Memory{
		issues:      make(map[string]models.Issue),
		contractors: make(map[string]models.Contractor),
		feedback:    make(map[string]models.Feedback),
		evidence:    make(map[string]map[string]models.Upload),
	}
}

func (m *Memory) Repositories() Repositories {
	return Repositories{Issues: m, Contractors: m, Feedback: m, Evidence: m}
}

func (m *Memory) FindIssues(_ context.Context, f IssueFilter) ([]models.Issue, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []models.Issue{}
	for _, issue := range m.issues {
		if f.ReportedBy != "" && issue.ReportedBy != f.ReportedBy {
			continue
		}
		if f.AssignedTo != "" && issue.AssignedContractorID != f.AssignedTo {
			continue
		}
		if f.Status != "" && issue.Status != f.Status {
			continue
		}
		if f.Category != "" && issue.Category != f.Category {
			continue
		}
		out = append(out, issue)
	}
	sortIssues(out, f.NewestFirst)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func sortIssues(issues []models.Issue, newestFirst bool) {
	sort.SliceStable(issues, func(i, j int) bool {
		a, b := issues[i], issues[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			if newestFirst {
				return a.CreatedAt.After(b.CreatedAt)
			}
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

func (m *Memory) FindIssue(_ context.Context, id string) (models.Issue, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	issue, ok := m.issues[id]
	if !ok {
		return models.Issue{}, ErrNotFound
	}
	return issue, nil
}

func (m *Memory) InsertIssue(_ context.Context, issue *models.Issue) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if issue.ID == "" {
		issue.ID = uuid.NewString()
	}
	if _, ok := m.issues[issue.ID]; ok {
		return fmt.Errorf("%w: issue %s", ErrDuplicate, issue.ID)
	}
	m.issues[issue.ID] = *issue
	return nil
}

func (m *Memory) ReplaceIssue(_ context.Context, issue models.Issue) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.issues[issue.ID]; !ok {
		return ErrNotFound
	}
	m.issues[issue.ID] = issue
	return nil
}

func (m *Memory) DeleteIssue(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.issues[id]; !ok {
		return ErrNotFound
	}
	delete(m.issues, id)
	return nil
}

func (m *Memory) CountByCategory(context.Context) (map[models.IssueCategory]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[models.IssueCategory]int)
	for _, issue := range m.issues {
		out[issue.Category]++
	}
	return out, nil
}

func (m *Memory) Locations(ctx context.Context, limit int) ([]models.Location, error) {
	issues, err := m.FindIssues(ctx, IssueFilter{NewestFirst: true, Limit: limit})
	if err != nil {
		return nil, err
	}
	out := make([]models.Location, 0, len(issues))
	for _, issue := range issues {
		out = append(out, models.Location{
			ID:        issue.ID,
			Latitude:  issue.Latitude,
			Longitude: issue.Longitude,
			Address:   issue.Address,
			Category:  issue.Category,
			Status:    issue.Status,
			CreatedAt: issue.CreatedAt,
		})
	}
	return out, nil
}

func (m *Memory) FindContractors(_ context.Context, approved *bool) ([]models.Contractor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []models.Contractor{}
	for _, c := range m.contractors {
		if approved != nil && c.Approved != *approved {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FullName != out[j].FullName {
			return out[i].FullName < out[j].FullName
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) FindContractor(_ context.Context, id string) (models.Contractor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.contractors[id]
	if !ok {
		return models.Contractor{}, ErrNotFound
	}
	return c, nil
}

func (m *Memory) FindContractorByUser(_ context.Context, userID string) (models.Contractor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.contractors {
		if c.UserID == userID {
			return c, nil
		}
	}
	return models.Contractor{}, ErrNotFound
}

func (m *Memory) InsertContractor(_ context.Context, c *models.Contractor) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.contractors {
		if existing.UserID == c.UserID {
			return fmt.Errorf("%w: contractor for user %s", ErrDuplicate, c.UserID)
		}
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	m.contractors[c.ID] = *c
	return nil
}

func (m *Memory) SetApproved(_ context.Context, id string, approved bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.contractors[id]
	if !ok {
		return ErrNotFound
	}
	c.Approved = approved
	m.contractors[id] = c
	return nil
}

func (m *Memory) DeleteContractor(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.contractors[id]; !ok {
		return ErrNotFound
	}
	delete(m.contractors, id)
	return nil
}

func (m *Memory) InsertFeedback(_ context.Context, fb *models.Feedback) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.feedback[fb.IssueID]; ok {
		return fmt.Errorf("%w: feedback for issue %s", ErrDuplicate, fb.IssueID)
	}
	if fb.ID == "" {
		fb.ID = uuid.NewString()
	}
	m.feedback[fb.IssueID] = *fb
	return nil
}

func (m *Memory) FindFeedback(_ context.Context, submittedBy string) ([]models.Feedback, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []models.Feedback{}
	for _, fb := range m.feedback {
		if submittedBy == "" || fb.SubmittedBy == submittedBy {
			out = append(out, fb)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].IssueID < out[j].IssueID
	})
	return out, nil
}

func (m *Memory) FeedbackForIssue(_ context.Context, issueID string) (models.Feedback, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fb, ok := m.feedback[issueID]
	if !ok {
		return models.Feedback{}, ErrNotFound
	}
	return fb, nil
}

func (m *Memory) SaveEvidence(_ context.Context, issueID, kind string, up models.Upload) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.evidence[issueID] == nil {
		m.evidence[issueID] = make(map[string]models.Upload)
	}
	data := make([]byte, len(up.Data))
	copy(data, up.Data)
	up.Data = data
	m.evidence[issueID][kind] = up
	return EvidencePath(issueID, kind), nil
}

func (m *Memory) LoadEvidence(_ context.Context, issueID, kind string) (models.Upload, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	up, ok := m.evidence[issueID][kind]
	if !ok {
		return models.Upload{}, ErrNotFound
	}
	return up, nil
}

func (m *Memory) DeleteEvidence(_ context.Context, issueID string, kinds ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(kinds) == 0 {
		delete(m.evidence, issueID)
		return nil
	}
	for _, kind := range kinds {
		delete(m.evidence[issueID], kind)
	}
	return nil
}
