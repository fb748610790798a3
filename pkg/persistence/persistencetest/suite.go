// Package persistencetest holds the behavior every persistence backend must
// share, run by each backend's tests.
package persistencetest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dukex/siteflow/pkg/models"
	"github.com/dukex/siteflow/pkg/persistence"
	"github.com/stretchr/testify/suite"
)

// Suite exercises a persistence.Persistence. New must return an empty store.
type Suite struct {
	suite.Suite

	New func() persistence.Persistence

	store persistence.Persistence
	ctx   context.Context
}

func (s *Suite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.New()
}

func (s *Suite) TearDownTest() {
	if s.store != nil {
		s.Require().NoError(s.store.Close(s.ctx))
	}
}

func instance(id, definitionID string, status models.InstanceStatus, start time.Time) *models.WorkflowInstance {
	return &models.WorkflowInstance{
		ID:           id,
		DefinitionID: definitionID,
		Status:       status,
		StartTime:    start,
		UserID:       "user-1",
		Variables:    map[string]any{"cost_impact": float64(42000), "route-decision": map[string]any{"output": "director-approval"}},
		History: []models.Event{
			{Timestamp: start, Type: models.EventStarted},
		},
	}
}

// Approval returns a pending project manager approval for instanceID.
func Approval(instanceID string) *models.ApprovalRequest {
	return &models.ApprovalRequest{
		InstanceID:   instanceID,
		StepID:       "pm-approval",
		Approver:     "project_manager",
		TimeoutHours: 48,
		DueAt:        time.Date(2025, 3, 5, 9, 0, 0, 0, time.UTC),
	}
}

func (s *Suite) TestHealthCheck() {
	s.NoError(s.store.HealthCheck(s.ctx))
}

func (s *Suite) TestUpsertAndGet() {
	start := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	original := instance("instance-1", "change-order-approval", models.InstanceStatusRunning, start)

	s.Require().NoError(s.store.Instances().Upsert(s.ctx, original))

	got, err := s.store.Instances().Get(s.ctx, "instance-1")
	s.Require().NoError(err)
	s.Equal("change-order-approval", got.DefinitionID)
	s.Equal(models.InstanceStatusRunning, got.Status)
	s.True(start.Equal(got.StartTime))
	s.InDelta(42000.0, got.Variables["cost_impact"], 0)
	s.Equal(map[string]any{"output": "director-approval"}, got.Variables["route-decision"])
	s.Len(got.History, 1)

	end := start.Add(time.Hour)
	original.Status = models.InstanceStatusCompleted
	original.EndTime = &end
	original.History = append(original.History, models.Event{Timestamp: end, Type: models.EventCompleted})
	original.Suspensions = []models.Suspension{{StepID: "director-approval", ApprovalID: "a-1", ResumeToken: "t-1", DueAt: end}}

	s.Require().NoError(s.store.Instances().Upsert(s.ctx, original))

	got, err = s.store.Instances().Get(s.ctx, "instance-1")
	s.Require().NoError(err)
	s.Equal(models.InstanceStatusCompleted, got.Status)
	s.Require().NotNil(got.EndTime)
	s.True(end.Equal(*got.EndTime))
	s.Len(got.History, 2)
	s.Require().Len(got.Suspensions, 1)
	s.Equal("a-1", got.Suspensions[0].ApprovalID)
}

func (s *Suite) TestGetMissing() {
	_, err := s.store.Instances().Get(s.ctx, "missing")

	s.True(persistence.IsInstanceNotFound(err))
}

func (s *Suite) TestListNewestFirst() {
	base := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

	for i := range 5 {
		definitionID := "rfi-response"
		if i%2 == 0 {
			definitionID = "change-order-approval"
		}

		s.Require().NoError(s.store.Instances().Upsert(s.ctx,
			instance(fmt.Sprintf("instance-%d", i), definitionID, models.InstanceStatusCompleted, base.Add(time.Duration(i)*time.Minute))))
	}

	all, err := s.store.Instances().List(s.ctx, persistence.ListInstancesOptions{})
	s.Require().NoError(err)
	s.Require().Len(all, 5)
	s.Equal("instance-4", all[0].ID)
	s.Equal("instance-0", all[4].ID)

	page, err := s.store.Instances().List(s.ctx, persistence.ListInstancesOptions{DefinitionID: "change-order-approval", Limit: 2})
	s.Require().NoError(err)
	s.Require().Len(page, 2)
	s.Equal("instance-4", page[0].ID)
	s.Equal("instance-2", page[1].ID)

	none, err := s.store.Instances().List(s.ctx, persistence.ListInstancesOptions{Status: models.InstanceStatusFailed})
	s.Require().NoError(err)
	s.Empty(none)
}

func (s *Suite) TestConcurrentWriters() {
	var wg sync.WaitGroup

	start := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

	for i := range 10 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			inst := instance(fmt.Sprintf("concurrent-%d", i), "rfi-response", models.InstanceStatusRunning, start)
			for range 3 {
				s.NoError(s.store.Instances().Upsert(s.ctx, inst))
			}
		}()
	}

	wg.Wait()

	all, err := s.store.Instances().List(s.ctx, persistence.ListInstancesOptions{})
	s.Require().NoError(err)
	s.Len(all, 10)
}

func (s *Suite) TestApprovalLifecycle() {
	id, err := s.store.Approvals().Create(s.ctx, Approval("instance-1"))
	s.Require().NoError(err)
	s.NotEmpty(id)

	pending, err := s.store.Approvals().Get(s.ctx, id)
	s.Require().NoError(err)
	s.True(pending.IsPending())
	s.Equal("project_manager", pending.Approver)
	s.Equal("pm-approval", pending.StepID)

	decided, err := s.store.Approvals().Decide(s.ctx, id, models.ApprovalStatusApproved, "within budget")
	s.Require().NoError(err)
	s.Equal(models.ApprovalStatusApproved, decided.Status)
	s.NotNil(decided.DecidedAt)

	got, err := s.store.Approvals().Get(s.ctx, id)
	s.Require().NoError(err)
	s.Equal(models.ApprovalStatusApproved, got.Status)
	s.Equal("within budget", got.Notes)

	_, err = s.store.Approvals().Decide(s.ctx, id, models.ApprovalStatusRejected, "")
	s.True(persistence.IsApprovalAlreadyDecided(err))
}

func (s *Suite) TestApprovalMissing() {
	_, err := s.store.Approvals().Get(s.ctx, "missing")
	s.True(persistence.IsApprovalNotFound(err))

	_, err = s.store.Approvals().Decide(s.ctx, "missing", models.ApprovalStatusApproved, "")
	s.True(persistence.IsApprovalNotFound(err))
}
