package workflow

import (
	"context"
	"fmt"
	"testing"
	"time"

	common_models "go-onboard/internal/common/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fakeConfigRepo struct {
	configs map[string]*WorkflowConfig
}

func newFakeConfigRepo(configs ...*WorkflowConfig) *fakeConfigRepo {
	repo := &fakeConfigRepo{configs: map[string]*WorkflowConfig{}}
	for _, cfg := range configs {
		if cfg.ID.IsZero() {
			cfg.ID = primitive.NewObjectID()
		}
		repo.configs[cfg.ID.Hex()] = cfg
	}
	return repo
}

func (f *fakeConfigRepo) Create(ctx context.Context, cfg *WorkflowConfig) error {
	cfg.ID = primitive.NewObjectID()
	f.configs[cfg.ID.Hex()] = cfg
	return nil
}

func (f *fakeConfigRepo) GetByID(ctx context.Context, id string) (*WorkflowConfig, error) {
	cfg, ok := f.configs[id]
	if !ok {
		return nil, nil
	}
	clone := *cfg
	return &clone, nil
}

func (f *fakeConfigRepo) GetDefault(ctx context.Context, tenantID string) (*WorkflowConfig, error) {
	for _, cfg := range f.configs {
		if cfg.TenantID == tenantID && cfg.IsDefault && cfg.Status == ConfigStatusActive {
			clone := *cfg
			return &clone, nil
		}
	}
	return nil, nil
}

func (f *fakeConfigRepo) List(ctx context.Context, tenantID string) ([]WorkflowConfig, error) {
	var out []WorkflowConfig
	for _, cfg := range f.configs {
		if cfg.TenantID == tenantID {
			out = append(out, *cfg)
		}
	}
	return out, nil
}

func (f *fakeConfigRepo) ListActive(ctx context.Context, tenantID string) ([]WorkflowConfig, error) {
	var out []WorkflowConfig
	for _, cfg := range f.configs {
		if cfg.TenantID == tenantID && cfg.Status == ConfigStatusActive {
			out = append(out, *cfg)
		}
	}
	return out, nil
}

func (f *fakeConfigRepo) Update(ctx context.Context, id string, cfg *WorkflowConfig) error {
	stored, ok := f.configs[id]
	if !ok {
		return fmt.Errorf("not found")
	}
	cfg.ID = stored.ID
	f.configs[id] = cfg
	return nil
}

func (f *fakeConfigRepo) Delete(ctx context.Context, id string) error {
	delete(f.configs, id)
	return nil
}

type fakeRequestRepo struct {
	requests map[string]*OnboardingRequest
	// afterGet simulates a concurrent writer racing the caller between its
	// read and its versioned update.
	afterGet func(stored *OnboardingRequest)
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{requests: map[string]*OnboardingRequest{}}
}

func (f *fakeRequestRepo) Create(ctx context.Context, req *OnboardingRequest) error {
	req.ID = primitive.NewObjectID()
	req.Version = 1
	req.CreatedAt = time.Now()
	clone := *req
	f.requests[req.ID.Hex()] = &clone
	return nil
}

func (f *fakeRequestRepo) GetByID(ctx context.Context, id string) (*OnboardingRequest, error) {
	stored, ok := f.requests[id]
	if !ok {
		return nil, nil
	}
	clone := *stored
	clone.History = append([]HistoryEntry{}, stored.History...)
	if f.afterGet != nil {
		hook := f.afterGet
		f.afterGet = nil
		hook(stored)
	}
	return &clone, nil
}

func (f *fakeRequestRepo) List(ctx context.Context, tenantID, status string) ([]OnboardingRequest, error) {
	var out []OnboardingRequest
	for _, req := range f.requests {
		if req.TenantID == tenantID && (status == "" || req.Status == status) {
			out = append(out, *req)
		}
	}
	return out, nil
}

func (f *fakeRequestRepo) UpdateWithVersion(ctx context.Context, id string, version int64, update bson.M) error {
	stored, ok := f.requests[id]
	if !ok || stored.Version != version {
		return conflictf("request %s was modified concurrently", id)
	}

	if set, ok := update["$set"].(bson.M); ok {
		for key, value := range set {
			switch key {
			case "status":
				stored.Status = value.(string)
			case "current_step":
				stored.CurrentStep = value.(int)
			case "assigned_to":
				stored.AssignedTo = value.(string)
			case "assigned_role":
				stored.AssignedRole = value.(string)
			case "approved_by":
				stored.ApprovedBy = value.(string)
			case "rejected_by":
				stored.RejectedBy = value.(string)
			case "rejection_reason":
				stored.RejectionReason = value.(string)
			case "cancelled_by":
				stored.CancelledBy = value.(string)
			}
		}
	}
	if push, ok := update["$push"].(bson.M); ok {
		if entry, ok := push["history"].(HistoryEntry); ok {
			stored.History = append(stored.History, entry)
		}
	}
	stored.Version++
	return nil
}

type fakeUserRepo struct {
	byRole map[string][]common_models.User
	byID   map[string]*common_models.User
}

func (f *fakeUserRepo) FindByID(ctx context.Context, id string) (*common_models.User, error) {
	return f.byID[id], nil
}

func (f *fakeUserRepo) FindByRole(ctx context.Context, tenantID, role string) ([]common_models.User, error) {
	return f.byRole[role], nil
}

type fakeGroupAssigner struct {
	members map[string][]string
	cursor  map[string]int64
}

func (f *fakeGroupAssigner) NextAssignee(ctx context.Context, tenantID, groupID string) (string, error) {
	members, ok := f.members[groupID]
	if !ok || len(members) == 0 {
		return "", fmt.Errorf("approver group has no members")
	}
	if f.cursor == nil {
		f.cursor = map[string]int64{}
	}
	c := f.cursor[groupID]
	f.cursor[groupID] = c + 1
	return members[c%int64(len(members))], nil
}

type scheduledTimer struct {
	requestID string
	step      int
	deadline  time.Time
}

type fakeScheduler struct {
	scheduled []scheduledTimer
}

func (f *fakeScheduler) Schedule(ctx context.Context, tenantID, requestID string, stepNumber int, deadline time.Time) error {
	f.scheduled = append(f.scheduled, scheduledTimer{requestID: requestID, step: stepNumber, deadline: deadline})
	return nil
}

type fakeWorkflowNotifier struct {
	sent []string
}

func (f *fakeWorkflowNotifier) Notify(ctx context.Context, tenantID, userID, title, message string) error {
	f.sent = append(f.sent, userID)
	return nil
}

type noopAudit struct{}

func (noopAudit) LogChange(ctx context.Context, action common_models.AuditAction, entity, recordID string, changes map[string]common_models.Change) {
}

func (noopAudit) ListLogs(ctx context.Context, tenantID string, filters bson.M, page, limit int64) ([]common_models.AuditLog, error) {
	return nil, nil
}

type testHarness struct {
	svc       *WorkflowServiceImpl
	configs   *fakeConfigRepo
	requests  *fakeRequestRepo
	scheduler *fakeScheduler
	notifier  *fakeWorkflowNotifier
}

func newHarness(configs ...*WorkflowConfig) *testHarness {
	userRepo := &fakeUserRepo{
		byID: map[string]*common_models.User{
			"reviewer-1": {Status: "active"},
			"reviewer-2": {Status: "active"},
		},
		byRole: map[string][]common_models.User{
			"manager": {{ID: primitive.NewObjectID(), Status: "active"}},
		},
	}
	h := &testHarness{
		configs:   newFakeConfigRepo(configs...),
		requests:  newFakeRequestRepo(),
		scheduler: &fakeScheduler{},
		notifier:  &fakeWorkflowNotifier{},
	}
	h.svc = &WorkflowServiceImpl{
		ConfigRepo:   h.configs,
		RequestRepo:  h.requests,
		Resolver:     NewAssignmentResolver(userRepo, &fakeGroupAssigner{members: map[string][]string{"ops": {"a", "b"}}}),
		Timers:       h.scheduler,
		Notifier:     h.notifier,
		AuditService: noopAudit{},
		Log:          zap.NewNop(),
	}
	return h
}

func userStep(n int, userID string, timeoutHours int) WorkflowStep {
	return WorkflowStep{
		StepNumber: n,
		Name:       fmt.Sprintf("step %d", n),
		StepType:   StepTypeApproval,
		Required:   true,
		AssignmentRule: AssignmentRule{
			Type:         AssignUser,
			UserID:       userID,
			TimeoutHours: timeoutHours,
		},
	}
}

func twoStepConfig() *WorkflowConfig {
	return &WorkflowConfig{
		TenantID:  "t1",
		Name:      "standard onboarding",
		Status:    ConfigStatusActive,
		IsDefault: true,
		Steps: []WorkflowStep{
			userStep(1, "reviewer-1", 24),
			userStep(2, "reviewer-2", 0),
		},
	}
}

func TestCreateRequestEntersFirstStep(t *testing.T) {
	h := newHarness(twoStepConfig())

	req, err := h.svc.CreateRequest(context.Background(), "t1", "requester", "", map[string]interface{}{"risk_level": "low"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if req.Status != StatusPending {
		t.Errorf("status = %q, want pending", req.Status)
	}
	if req.CurrentStep != 1 {
		t.Errorf("current_step = %d, want 1", req.CurrentStep)
	}
	if req.AssignedTo != "reviewer-1" {
		t.Errorf("assigned_to = %q", req.AssignedTo)
	}
	if req.Version != 1 {
		t.Errorf("version = %d, want 1", req.Version)
	}
	if len(h.scheduler.scheduled) != 1 || h.scheduler.scheduled[0].step != 1 {
		t.Errorf("scheduled timers = %+v, want one for step 1", h.scheduler.scheduled)
	}
	if len(req.History) != 1 || req.History[0].Action != "created" {
		t.Errorf("history = %+v", req.History)
	}
}

func TestApproveAdvancesThenFinalizes(t *testing.T) {
	h := newHarness(twoStepConfig())
	ctx := context.Background()

	req, err := h.svc.CreateRequest(ctx, "t1", "requester", "", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	id := req.ID.Hex()

	req, err = h.svc.Approve(ctx, "t1", "reviewer-1", id, 1, "looks fine")
	if err != nil {
		t.Fatalf("approve step 1: %v", err)
	}
	if req.Status != StatusInReview || req.CurrentStep != 2 {
		t.Fatalf("after step 1: status=%q step=%d", req.Status, req.CurrentStep)
	}
	if req.AssignedTo != "reviewer-2" {
		t.Errorf("assigned_to = %q, want reviewer-2", req.AssignedTo)
	}

	req, err = h.svc.Approve(ctx, "t1", "reviewer-2", id, 2, "")
	if err != nil {
		t.Fatalf("approve step 2: %v", err)
	}
	if req.Status != StatusApproved {
		t.Fatalf("final status = %q, want approved", req.Status)
	}
	if req.ApprovedBy != "reviewer-2" {
		t.Errorf("approved_by = %q", req.ApprovedBy)
	}
	if req.AssignedTo != "" || req.AssignedRole != "" {
		t.Errorf("terminal request still assigned: %q / %q", req.AssignedTo, req.AssignedRole)
	}

	// Only step 1 declared a timeout.
	if len(h.scheduler.scheduled) != 1 {
		t.Errorf("scheduled timers = %d, want 1", len(h.scheduler.scheduled))
	}
}

func TestApproveSkipsConditionalStep(t *testing.T) {
	cfg := &WorkflowConfig{
		TenantID: "t1", Name: "risk routed", Status: ConfigStatusActive, IsDefault: true,
		Steps: []WorkflowStep{
			userStep(1, "reviewer-1", 0),
			{
				StepNumber: 2, Name: "risk review", StepType: StepTypeApproval,
				Conditions:     "risk_level == 'high'",
				AssignmentRule: AssignmentRule{Type: AssignUser, UserID: "reviewer-2"},
			},
			userStep(3, "reviewer-2", 0),
		},
	}
	h := newHarness(cfg)
	ctx := context.Background()

	req, err := h.svc.CreateRequest(ctx, "t1", "requester", "", map[string]interface{}{"risk_level": "low"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	req, err = h.svc.Approve(ctx, "t1", "reviewer-1", req.ID.Hex(), 1, "")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if req.CurrentStep != 3 {
		t.Fatalf("current_step = %d, want 3 (step 2 skipped for low risk)", req.CurrentStep)
	}

	// High risk goes through the conditional step.
	req2, err := h.svc.CreateRequest(ctx, "t1", "requester", "", map[string]interface{}{"risk_level": "high"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	req2, err = h.svc.Approve(ctx, "t1", "reviewer-1", req2.ID.Hex(), 1, "")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if req2.CurrentStep != 2 {
		t.Fatalf("current_step = %d, want 2 for high risk", req2.CurrentStep)
	}
}

func TestRequiredStepIsNeverSkipped(t *testing.T) {
	cfg := &WorkflowConfig{
		TenantID: "t1", Name: "strict", Status: ConfigStatusActive, IsDefault: true,
		Steps: []WorkflowStep{
			userStep(1, "reviewer-1", 0),
			{
				StepNumber: 2, Name: "compliance", StepType: StepTypeApproval,
				Required:       true,
				Conditions:     "risk_level == 'high'",
				AssignmentRule: AssignmentRule{Type: AssignUser, UserID: "reviewer-2"},
			},
		},
	}
	h := newHarness(cfg)
	ctx := context.Background()

	req, err := h.svc.CreateRequest(ctx, "t1", "requester", "", map[string]interface{}{"risk_level": "low"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	req, err = h.svc.Approve(ctx, "t1", "reviewer-1", req.ID.Hex(), 1, "")
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if req.CurrentStep != 2 {
		t.Fatalf("required step skipped: current_step = %d", req.CurrentStep)
	}
}

func TestApproveGuards(t *testing.T) {
	h := newHarness(twoStepConfig())
	ctx := context.Background()

	req, err := h.svc.CreateRequest(ctx, "t1", "requester", "", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	id := req.ID.Hex()

	if _, err := h.svc.Approve(ctx, "t1", "reviewer-2", id, 2, ""); err == nil {
		t.Fatal("approving the wrong step succeeded")
	} else if _, ok := err.(*ConflictError); !ok {
		t.Fatalf("wrong step error = %T, want ConflictError", err)
	}

	if _, err := h.svc.Reject(ctx, "t1", "reviewer-1", id, 1, "incomplete"); err != nil {
		t.Fatalf("reject: %v", err)
	}

	if _, err := h.svc.Approve(ctx, "t1", "reviewer-1", id, 1, ""); err == nil {
		t.Fatal("approving a terminal request succeeded")
	} else if _, ok := err.(*ConflictError); !ok {
		t.Fatalf("terminal error = %T, want ConflictError", err)
	}
}

func TestRejectFreezesCurrentStep(t *testing.T) {
	h := newHarness(twoStepConfig())
	ctx := context.Background()

	req, err := h.svc.CreateRequest(ctx, "t1", "requester", "", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	req, err = h.svc.Reject(ctx, "t1", "reviewer-1", req.ID.Hex(), 1, "missing documents")
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if req.Status != StatusRejected {
		t.Errorf("status = %q", req.Status)
	}
	if req.CurrentStep != 1 {
		t.Errorf("current_step = %d, want frozen at 1", req.CurrentStep)
	}
	if req.RejectionReason != "missing documents" {
		t.Errorf("reason = %q", req.RejectionReason)
	}
}

func TestCancelFromAnyNonTerminalState(t *testing.T) {
	h := newHarness(twoStepConfig())
	ctx := context.Background()

	req, err := h.svc.CreateRequest(ctx, "t1", "requester", "", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	req, err = h.svc.Cancel(ctx, "t1", "requester", req.ID.Hex())
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if req.Status != StatusCancelled {
		t.Errorf("status = %q", req.Status)
	}

	if _, err := h.svc.Cancel(ctx, "t1", "requester", req.ID.Hex()); err == nil {
		t.Fatal("cancelling a terminal request succeeded")
	}
}

func TestConcurrentApproveHasOneWinner(t *testing.T) {
	h := newHarness(twoStepConfig())
	ctx := context.Background()

	req, err := h.svc.CreateRequest(ctx, "t1", "requester", "", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// A rival transition lands between this approver's read and write.
	h.requests.afterGet = func(stored *OnboardingRequest) {
		stored.Version++
	}
	if _, err := h.svc.Approve(ctx, "t1", "reviewer-1", req.ID.Hex(), 1, ""); err == nil {
		t.Fatal("stale approve succeeded")
	} else if _, ok := err.(*ConflictError); !ok {
		t.Fatalf("error = %T, want ConflictError", err)
	}
}

func TestEscalateReassignsToRole(t *testing.T) {
	cfg := twoStepConfig()
	cfg.Steps[0].AssignmentRule.EscalateTo = "manager"
	h := newHarness(cfg)
	ctx := context.Background()

	req, err := h.svc.CreateRequest(ctx, "t1", "requester", "", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	id := req.ID.Hex()

	if err := h.svc.Escalate(ctx, id, 1); err != nil {
		t.Fatalf("escalate: %v", err)
	}

	updated, _ := h.svc.GetRequest(ctx, id)
	if updated.AssignedRole != "manager" {
		t.Errorf("assigned_role = %q, want manager", updated.AssignedRole)
	}
	if updated.AssignedTo != "" {
		t.Errorf("assigned_to = %q, want empty (role queue)", updated.AssignedTo)
	}
	last := updated.History[len(updated.History)-1]
	if last.Action != "escalated" || last.ActorID != common_models.SystemActorID {
		t.Errorf("history tail = %+v", last)
	}
}

func TestEscalateStaleTimerIsNoop(t *testing.T) {
	cfg := twoStepConfig()
	cfg.Steps[0].AssignmentRule.EscalateTo = "manager"
	h := newHarness(cfg)
	ctx := context.Background()

	req, err := h.svc.CreateRequest(ctx, "t1", "requester", "", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	id := req.ID.Hex()

	if _, err := h.svc.Approve(ctx, "t1", "reviewer-1", id, 1, ""); err != nil {
		t.Fatalf("approve: %v", err)
	}
	before, _ := h.svc.GetRequest(ctx, id)

	// Timer for step 1 fires after the step was actioned.
	if err := h.svc.Escalate(ctx, id, 1); err != nil {
		t.Fatalf("escalate: %v", err)
	}
	after, _ := h.svc.GetRequest(ctx, id)
	if after.Version != before.Version || after.AssignedRole != before.AssignedRole {
		t.Errorf("stale escalation mutated the request: %+v -> %+v", before, after)
	}
}

func TestEscalateForceAdvance(t *testing.T) {
	cfg := &WorkflowConfig{
		TenantID: "t1", Name: "auto", Status: ConfigStatusActive, IsDefault: true,
		Steps: []WorkflowStep{{
			StepNumber: 1, Name: "only step", StepType: StepTypeApproval, Required: true,
			AssignmentRule: AssignmentRule{Type: AssignUser, UserID: "reviewer-1", TimeoutHours: 1, ForceAdvance: true},
		}},
	}
	h := newHarness(cfg)
	ctx := context.Background()

	req, err := h.svc.CreateRequest(ctx, "t1", "requester", "", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := h.svc.Escalate(ctx, req.ID.Hex(), 1); err != nil {
		t.Fatalf("escalate: %v", err)
	}
	updated, _ := h.svc.GetRequest(ctx, req.ID.Hex())
	if updated.Status != StatusApproved {
		t.Fatalf("status = %q, want approved after force-advance", updated.Status)
	}
	if updated.ApprovedBy != common_models.SystemActorID {
		t.Errorf("approved_by = %q, want system", updated.ApprovedBy)
	}
}

func TestCreateRequestMatchesConditionedConfig(t *testing.T) {
	def := twoStepConfig()
	highRisk := &WorkflowConfig{
		TenantID: "t1", Name: "high risk", Status: ConfigStatusActive,
		Conditions: WorkflowConditions{RiskLevels: []string{"high"}},
		Steps:      []WorkflowStep{userStep(1, "reviewer-2", 0)},
	}
	h := newHarness(def, highRisk)
	ctx := context.Background()

	req, err := h.svc.CreateRequest(ctx, "t1", "requester", "", map[string]interface{}{"risk_level": "high"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if req.WorkflowConfigID != highRisk.ID.Hex() {
		t.Errorf("bound config = %s, want the conditioned one", req.WorkflowConfigID)
	}

	req, err = h.svc.CreateRequest(ctx, "t1", "requester", "", map[string]interface{}{"risk_level": "low"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if req.WorkflowConfigID != def.ID.Hex() {
		t.Errorf("bound config = %s, want the default", req.WorkflowConfigID)
	}
}

func TestConfigValidation(t *testing.T) {
	h := newHarness()
	ctx := context.Background()

	err := h.svc.CreateConfig(ctx, &WorkflowConfig{
		TenantID: "t1", Name: "gapped", Status: ConfigStatusActive,
		Steps: []WorkflowStep{userStep(1, "reviewer-1", 0), userStep(3, "reviewer-2", 0)},
	})
	if err == nil {
		t.Fatal("gapped step numbers accepted")
	}

	err = h.svc.CreateConfig(ctx, &WorkflowConfig{
		TenantID: "t1", Name: "bad predicate", Status: ConfigStatusActive,
		Steps: []WorkflowStep{{
			StepNumber: 1, StepType: StepTypeApproval, Conditions: "risk ==",
			AssignmentRule: AssignmentRule{Type: AssignUser, UserID: "reviewer-1"},
		}},
	})
	if err == nil {
		t.Fatal("uncompilable step predicate accepted")
	}
}

func TestSetFirstStepAndReorderKeepContiguity(t *testing.T) {
	cfg := &WorkflowConfig{
		TenantID: "t1", Name: "three", Status: ConfigStatusActive,
		Steps: []WorkflowStep{
			userStep(1, "reviewer-1", 0),
			userStep(2, "reviewer-2", 0),
			userStep(3, "reviewer-1", 0),
		},
	}
	h := newHarness(cfg)
	ctx := context.Background()
	id := cfg.ID.Hex()

	updated, err := h.svc.SetFirstStep(ctx, id, 3)
	if err != nil {
		t.Fatalf("set first step: %v", err)
	}
	if !stepsContiguous(updated.Steps) {
		t.Fatal("steps not contiguous after set-first-step")
	}
	if updated.Steps[0].Name != "step 3" || updated.Steps[0].StepNumber != 1 {
		t.Errorf("first step = %+v", updated.Steps[0])
	}

	updated, err = h.svc.ReorderSteps(ctx, id, []int{2, 1, 3})
	if err != nil {
		t.Fatalf("reorder: %v", err)
	}
	if !stepsContiguous(updated.Steps) {
		t.Fatal("steps not contiguous after reorder")
	}

	if _, err := h.svc.ReorderSteps(ctx, id, []int{1, 1, 2}); err == nil {
		t.Fatal("duplicate step in order accepted")
	}
	if _, err := h.svc.ReorderSteps(ctx, id, []int{1, 2}); err == nil {
		t.Fatal("partial order accepted")
	}
}

func TestHealthReport(t *testing.T) {
	def := twoStepConfig()
	draft := &WorkflowConfig{
		TenantID: "t1", Name: "wip", Status: ConfigStatusDraft,
		Steps: []WorkflowStep{userStep(1, "reviewer-1", 0)},
	}
	h := newHarness(def, draft)

	health, err := h.svc.Health(context.Background(), "t1")
	if err != nil {
		t.Fatalf("health: %v", err)
	}
	if !health.HasDefault || !health.HasActive {
		t.Errorf("health = %+v, want default and active present", health)
	}
	if len(health.Configs) != 2 {
		t.Errorf("configs = %d, want 2", len(health.Configs))
	}
	for _, ch := range health.Configs {
		if !ch.Contiguous {
			t.Errorf("config %s reported non-contiguous", ch.Name)
		}
	}
}

func TestReminderStepSchedulesTimerAndOnlyNotifies(t *testing.T) {
	cfg := twoStepConfig()
	cfg.Steps[0].AssignmentRule.TimeoutHours = 0
	cfg.Steps[0].StageSettings = map[string]interface{}{"reminder_hours": 4}
	h := newHarness(cfg)
	ctx := context.Background()

	req, err := h.svc.CreateRequest(ctx, "t1", "requester", "", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if len(h.scheduler.scheduled) != 1 {
		t.Fatalf("scheduled = %d timers, want 1", len(h.scheduler.scheduled))
	}

	h.notifier.sent = nil
	if err := h.svc.Escalate(ctx, req.ID.Hex(), 1); err != nil {
		t.Fatalf("escalate: %v", err)
	}

	updated, _ := h.svc.GetRequest(ctx, req.ID.Hex())
	if updated.CurrentStep != 1 || updated.Status != StatusPending {
		t.Errorf("request moved to step %d status %s, want untouched", updated.CurrentStep, updated.Status)
	}
	if len(h.notifier.sent) != 1 || h.notifier.sent[0] != "reviewer-1" {
		t.Errorf("reminders sent to %v, want [reviewer-1]", h.notifier.sent)
	}
}
