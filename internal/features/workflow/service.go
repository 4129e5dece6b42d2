package workflow

import (
	"context"
	"fmt"
	"slices"
	"time"

	common_models "go-onboard/internal/common/models"
	"go-onboard/internal/features/audit"
	"go-onboard/pkg/expr"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

// TimerScheduler persists an escalation deadline for a (request, step) pair.
// Scheduling is idempotent per pair.
type TimerScheduler interface {
	Schedule(ctx context.Context, tenantID, requestID string, stepNumber int, deadline time.Time) error
}

// Notifier dispatches an assignment or escalation notification.
type Notifier interface {
	Notify(ctx context.Context, tenantID, userID, title, message string) error
}

type WorkflowService interface {
	CreateConfig(ctx context.Context, cfg *WorkflowConfig) error
	GetConfig(ctx context.Context, id string) (*WorkflowConfig, error)
	ListConfigs(ctx context.Context, tenantID string) ([]WorkflowConfig, error)
	UpdateConfig(ctx context.Context, id string, cfg *WorkflowConfig) error
	DeleteConfig(ctx context.Context, id string) error
	SetFirstStep(ctx context.Context, id string, stepNumber int) (*WorkflowConfig, error)
	ReorderSteps(ctx context.Context, id string, order []int) (*WorkflowConfig, error)
	Health(ctx context.Context, tenantID string) (*TenantHealth, error)

	CreateRequest(ctx context.Context, tenantID, actorID, configID string, reqContext map[string]interface{}) (*OnboardingRequest, error)
	GetRequest(ctx context.Context, id string) (*OnboardingRequest, error)
	ListRequests(ctx context.Context, tenantID, status string) ([]OnboardingRequest, error)
	Approve(ctx context.Context, tenantID, actorID, id string, step int, notes string) (*OnboardingRequest, error)
	Reject(ctx context.Context, tenantID, actorID, id string, step int, reason string) (*OnboardingRequest, error)
	Cancel(ctx context.Context, tenantID, actorID, id string) (*OnboardingRequest, error)

	// StartWorkflow lets rule actions start a request; an empty configID
	// selects the tenant's default config.
	StartWorkflow(ctx context.Context, tenantID, actorID, configID string, evalContext map[string]interface{}) (string, error)

	// Escalate fires one due timer. Stale timers (request moved on or
	// finished) are a no-op.
	Escalate(ctx context.Context, requestID string, stepNumber int) error
}

type WorkflowServiceImpl struct {
	ConfigRepo   ConfigRepository
	RequestRepo  RequestRepository
	Resolver     *AssignmentResolver
	Timers       TimerScheduler
	Notifier     Notifier
	AuditService audit.AuditService
	Log          *zap.Logger
}

func NewWorkflowService(
	configRepo ConfigRepository,
	requestRepo RequestRepository,
	resolver *AssignmentResolver,
	timers TimerScheduler,
	notifier Notifier,
	auditService audit.AuditService,
	log *zap.Logger,
) WorkflowService {
	return &WorkflowServiceImpl{
		ConfigRepo:   configRepo,
		RequestRepo:  requestRepo,
		Resolver:     resolver,
		Timers:       timers,
		Notifier:     notifier,
		AuditService: auditService,
		Log:          log,
	}
}

// --- config operations ---

func validateConfig(cfg *WorkflowConfig) error {
	switch cfg.Status {
	case ConfigStatusActive, ConfigStatusInactive, ConfigStatusDraft:
	default:
		return fmt.Errorf("invalid config status %q", cfg.Status)
	}
	if len(cfg.Steps) == 0 {
		return fmt.Errorf("workflow config requires at least one step")
	}
	if !stepsContiguous(cfg.Steps) {
		return fmt.Errorf("step numbers must be contiguous starting at 1")
	}

	for i := range cfg.Steps {
		step := &cfg.Steps[i]
		switch step.StepType {
		case StepTypeApproval, StepTypeNotification:
		default:
			return fmt.Errorf("step %d: invalid step type %q", step.StepNumber, step.StepType)
		}
		switch step.AssignmentRule.Type {
		case AssignRole, AssignUser, AssignGroup, AssignRoundRobin:
		default:
			return fmt.Errorf("step %d: invalid assignment rule type %q", step.StepNumber, step.AssignmentRule.Type)
		}
		if step.Conditions != "" {
			if _, err := expr.ParseCondition(step.Conditions); err != nil {
				return fmt.Errorf("step %d: %w", step.StepNumber, err)
			}
		}
	}
	return nil
}

func stepsContiguous(steps []WorkflowStep) bool {
	numbers := make([]int, len(steps))
	for i, s := range steps {
		numbers[i] = s.StepNumber
	}
	slices.Sort(numbers)
	for i, n := range numbers {
		if n != i+1 {
			return false
		}
	}
	return true
}

func sortedSteps(cfg *WorkflowConfig) []WorkflowStep {
	steps := slices.Clone(cfg.Steps)
	slices.SortFunc(steps, func(a, b WorkflowStep) int { return a.StepNumber - b.StepNumber })
	return steps
}

func findStep(cfg *WorkflowConfig, number int) *WorkflowStep {
	for i := range cfg.Steps {
		if cfg.Steps[i].StepNumber == number {
			return &cfg.Steps[i]
		}
	}
	return nil
}

func (s *WorkflowServiceImpl) CreateConfig(ctx context.Context, cfg *WorkflowConfig) error {
	if err := validateConfig(cfg); err != nil {
		return err
	}
	if err := s.ConfigRepo.Create(ctx, cfg); err != nil {
		return err
	}
	s.AuditService.LogChange(ctx, common_models.AuditActionWorkflow, "workflow_configs", cfg.ID.Hex(), map[string]common_models.Change{
		"config": {New: cfg},
	})
	return nil
}

func (s *WorkflowServiceImpl) GetConfig(ctx context.Context, id string) (*WorkflowConfig, error) {
	return s.ConfigRepo.GetByID(ctx, id)
}

func (s *WorkflowServiceImpl) ListConfigs(ctx context.Context, tenantID string) ([]WorkflowConfig, error) {
	return s.ConfigRepo.List(ctx, tenantID)
}

func (s *WorkflowServiceImpl) UpdateConfig(ctx context.Context, id string, cfg *WorkflowConfig) error {
	if err := validateConfig(cfg); err != nil {
		return err
	}
	old, err := s.ConfigRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if old == nil {
		return fmt.Errorf("workflow config not found")
	}
	if err := s.ConfigRepo.Update(ctx, id, cfg); err != nil {
		return err
	}
	s.AuditService.LogChange(ctx, common_models.AuditActionWorkflow, "workflow_configs", id, map[string]common_models.Change{
		"config": {Old: old, New: cfg},
	})
	return nil
}

func (s *WorkflowServiceImpl) DeleteConfig(ctx context.Context, id string) error {
	old, err := s.ConfigRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if old == nil {
		return fmt.Errorf("workflow config not found")
	}
	if err := s.ConfigRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.AuditService.LogChange(ctx, common_models.AuditActionWorkflow, "workflow_configs", id, map[string]common_models.Change{
		"config": {Old: old, New: "DELETED"},
	})
	return nil
}

// SetFirstStep moves the named step to the front and renumbers the sequence
// so contiguity holds.
func (s *WorkflowServiceImpl) SetFirstStep(ctx context.Context, id string, stepNumber int) (*WorkflowConfig, error) {
	cfg, err := s.ConfigRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("workflow config not found")
	}
	if findStep(cfg, stepNumber) == nil {
		return nil, fmt.Errorf("step %d does not exist", stepNumber)
	}

	steps := sortedSteps(cfg)
	reordered := make([]WorkflowStep, 0, len(steps))
	for _, st := range steps {
		if st.StepNumber == stepNumber {
			reordered = append([]WorkflowStep{st}, reordered...)
		} else {
			reordered = append(reordered, st)
		}
	}
	renumber(reordered)
	cfg.Steps = reordered

	if err := s.UpdateConfig(ctx, id, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ReorderSteps rebuilds the sequence in the given order. The order must be a
// permutation of the existing step numbers.
func (s *WorkflowServiceImpl) ReorderSteps(ctx context.Context, id string, order []int) (*WorkflowConfig, error) {
	cfg, err := s.ConfigRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("workflow config not found")
	}
	if len(order) != len(cfg.Steps) {
		return nil, fmt.Errorf("order must list all %d steps", len(cfg.Steps))
	}

	seen := make(map[int]bool, len(order))
	reordered := make([]WorkflowStep, 0, len(order))
	for _, n := range order {
		if seen[n] {
			return nil, fmt.Errorf("step %d listed twice", n)
		}
		seen[n] = true
		st := findStep(cfg, n)
		if st == nil {
			return nil, fmt.Errorf("step %d does not exist", n)
		}
		reordered = append(reordered, *st)
	}
	renumber(reordered)
	cfg.Steps = reordered

	if err := s.UpdateConfig(ctx, id, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func renumber(steps []WorkflowStep) {
	for i := range steps {
		steps[i].StepNumber = i + 1
	}
}

func (s *WorkflowServiceImpl) Health(ctx context.Context, tenantID string) (*TenantHealth, error) {
	configs, err := s.ConfigRepo.List(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	health := &TenantHealth{TenantID: tenantID, Configs: []ConfigHealth{}}
	for i := range configs {
		cfg := &configs[i]
		if cfg.Status == ConfigStatusActive {
			health.HasActive = true
			if cfg.IsDefault {
				health.HasDefault = true
			}
		}
		health.Configs = append(health.Configs, ConfigHealth{
			ID:         cfg.ID.Hex(),
			Name:       cfg.Name,
			Status:     cfg.Status,
			IsDefault:  cfg.IsDefault,
			StepCount:  len(cfg.Steps),
			Contiguous: stepsContiguous(cfg.Steps),
		})
	}
	return health, nil
}

// --- request operations ---

// matchConfig picks the config whose applicability conditions admit the
// context. Non-default matches win over the default; empty condition lists
// are wildcards.
func matchConfig(configs []WorkflowConfig, reqContext map[string]interface{}) *WorkflowConfig {
	var fallback *WorkflowConfig
	for i := range configs {
		cfg := &configs[i]
		if !conditionsAdmit(cfg.Conditions, reqContext) {
			continue
		}
		if cfg.IsDefault {
			if fallback == nil {
				fallback = cfg
			}
			continue
		}
		return cfg
	}
	return fallback
}

func conditionsAdmit(c WorkflowConditions, reqContext map[string]interface{}) bool {
	return listAdmits(c.AgentTypes, reqContext["agent_type"]) &&
		listAdmits(c.RiskLevels, reqContext["risk_level"]) &&
		listAdmits(c.Priority, reqContext["priority"])
}

func listAdmits(allowed []string, value interface{}) bool {
	if len(allowed) == 0 {
		return true
	}
	str, ok := value.(string)
	if !ok {
		return false
	}
	return slices.Contains(allowed, str)
}

// nextApplicableStep returns the first step after the given number whose
// branch predicate admits the context. Required steps are never skipped; a
// predicate that fails to evaluate counts as false.
func (s *WorkflowServiceImpl) nextApplicableStep(cfg *WorkflowConfig, after int, reqContext map[string]interface{}) (*WorkflowStep, bool) {
	for _, st := range sortedSteps(cfg) {
		if st.StepNumber <= after {
			continue
		}
		if st.Required || st.Conditions == "" {
			return &st, true
		}
		node, err := expr.ParseCondition(st.Conditions)
		if err != nil {
			s.Log.Warn("step condition failed to compile, skipping step",
				zap.Int("step", st.StepNumber), zap.Error(err))
			continue
		}
		applies, err := expr.EvalCondition(node, reqContext)
		if err != nil {
			s.Log.Warn("step condition failed to evaluate, skipping step",
				zap.Int("step", st.StepNumber), zap.Error(err))
			continue
		}
		if applies {
			return &st, true
		}
	}
	return nil, false
}

// resolveAssignment resolves a step's actor, tolerating AssignmentError:
// the step stays pending and unassigned rather than defaulting.
func (s *WorkflowServiceImpl) resolveAssignment(ctx context.Context, tenantID string, step *WorkflowStep) (assignedTo, assignedRole string, err error) {
	assignment, err := s.Resolver.Resolve(ctx, tenantID, step.AssignmentRule)
	if err != nil {
		if _, ok := err.(*AssignmentError); ok {
			s.Log.Warn("step left unassigned",
				zap.Int("step", step.StepNumber), zap.Error(err))
			return "", "", nil
		}
		return "", "", err
	}
	return assignment.UserID, assignment.Role, nil
}

func (s *WorkflowServiceImpl) scheduleEscalation(ctx context.Context, req *OnboardingRequest, step *WorkflowStep) {
	hours := step.AssignmentRule.TimeoutHours
	if hours <= 0 {
		// A step without an escalation timeout may still ask for a reminder.
		// The sweeper's default branch turns that timer into a notification.
		hours = reminderHours(step.StageSettings)
	}
	if hours <= 0 {
		return
	}
	deadline := time.Now().Add(time.Duration(hours) * time.Hour)
	if err := s.Timers.Schedule(ctx, req.TenantID, req.ID.Hex(), step.StepNumber, deadline); err != nil {
		s.Log.Error("failed to schedule escalation timer",
			zap.String("request_id", req.ID.Hex()),
			zap.Int("step", step.StepNumber),
			zap.Error(err))
	}
}

// reminderHours reads stage_settings.reminder_hours, tolerating the numeric
// types BSON and JSON decoding produce.
func reminderHours(settings map[string]interface{}) int {
	switch v := settings["reminder_hours"].(type) {
	case int:
		return v
	case int32:
		return int(v)
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

func (s *WorkflowServiceImpl) notifyAssignee(ctx context.Context, req *OnboardingRequest, title, message string) {
	if req.AssignedTo == "" {
		return
	}
	if err := s.Notifier.Notify(ctx, req.TenantID, req.AssignedTo, title, message); err != nil {
		s.Log.Warn("assignment notification failed",
			zap.String("request_id", req.ID.Hex()), zap.Error(err))
	}
}

func (s *WorkflowServiceImpl) CreateRequest(ctx context.Context, tenantID, actorID, configID string, reqContext map[string]interface{}) (*OnboardingRequest, error) {
	var cfg *WorkflowConfig
	var err error
	if configID != "" {
		cfg, err = s.ConfigRepo.GetByID(ctx, configID)
		if err != nil {
			return nil, err
		}
		if cfg == nil || cfg.TenantID != tenantID {
			return nil, fmt.Errorf("workflow config not found")
		}
		if cfg.Status != ConfigStatusActive {
			return nil, fmt.Errorf("workflow config %q is not active", cfg.Name)
		}
	} else {
		active, err := s.ConfigRepo.ListActive(ctx, tenantID)
		if err != nil {
			return nil, err
		}
		cfg = matchConfig(active, reqContext)
		if cfg == nil {
			return nil, fmt.Errorf("no applicable workflow config for tenant")
		}
	}

	if reqContext == nil {
		reqContext = map[string]interface{}{}
	}

	// The first step's branch predicate applies on entry too.
	first, ok := s.nextApplicableStep(cfg, 0, reqContext)
	if !ok {
		return nil, fmt.Errorf("workflow config %q has no applicable steps for this context", cfg.Name)
	}

	now := time.Now()
	req := &OnboardingRequest{
		TenantID:         tenantID,
		WorkflowConfigID: cfg.ID.Hex(),
		Status:           StatusPending,
		CurrentStep:      first.StepNumber,
		Context:          reqContext,
		RequestedBy:      actorID,
		History: []HistoryEntry{{
			StepNumber: first.StepNumber,
			Action:     "created",
			ActorID:    actorID,
			Timestamp:  now,
		}},
	}

	req.AssignedTo, req.AssignedRole, err = s.resolveAssignment(ctx, tenantID, first)
	if err != nil {
		return nil, err
	}

	if err := s.RequestRepo.Create(ctx, req); err != nil {
		return nil, err
	}

	s.scheduleEscalation(ctx, req, first)
	s.notifyAssignee(ctx, req, "New approval request",
		fmt.Sprintf("Request %s is waiting on step %d (%s)", req.ID.Hex(), first.StepNumber, first.Name))

	s.AuditService.LogChange(ctx, common_models.AuditActionWorkflow, "onboarding_requests", req.ID.Hex(), map[string]common_models.Change{
		"request": {New: req},
	})
	return req, nil
}

func (s *WorkflowServiceImpl) GetRequest(ctx context.Context, id string) (*OnboardingRequest, error) {
	return s.RequestRepo.GetByID(ctx, id)
}

func (s *WorkflowServiceImpl) ListRequests(ctx context.Context, tenantID, status string) ([]OnboardingRequest, error) {
	return s.RequestRepo.List(ctx, tenantID, status)
}

// loadForStep fetches the request and checks the transition guards shared by
// approve and reject.
func (s *WorkflowServiceImpl) loadForStep(ctx context.Context, tenantID, id string, step int) (*OnboardingRequest, error) {
	req, err := s.RequestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil || req.TenantID != tenantID {
		return nil, fmt.Errorf("request not found")
	}
	if req.IsTerminal() {
		return nil, conflictf("request is already %s", req.Status)
	}
	if req.CurrentStep != step {
		return nil, conflictf("request is at step %d, not step %d", req.CurrentStep, step)
	}
	return req, nil
}

func (s *WorkflowServiceImpl) Approve(ctx context.Context, tenantID, actorID, id string, step int, notes string) (*OnboardingRequest, error) {
	req, err := s.loadForStep(ctx, tenantID, id, step)
	if err != nil {
		return nil, err
	}

	cfg, err := s.ConfigRepo.GetByID(ctx, req.WorkflowConfigID)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, fmt.Errorf("workflow config %s no longer exists", req.WorkflowConfigID)
	}

	now := time.Now()
	entry := HistoryEntry{
		StepNumber: step,
		Action:     "approved",
		ActorID:    actorID,
		Notes:      notes,
		Timestamp:  now,
	}

	set := bson.M{}
	var next *WorkflowStep
	if nextStep, ok := s.nextApplicableStep(cfg, step, req.Context); ok {
		next = nextStep
		assignedTo, assignedRole, err := s.resolveAssignment(ctx, tenantID, next)
		if err != nil {
			return nil, err
		}
		set["status"] = StatusInReview
		set["current_step"] = next.StepNumber
		set["assigned_to"] = assignedTo
		set["assigned_role"] = assignedRole
	} else {
		set["status"] = StatusApproved
		set["approved_by"] = actorID
		set["approved_at"] = now
		set["assigned_to"] = ""
		set["assigned_role"] = ""
	}

	update := bson.M{"$set": set, "$push": bson.M{"history": entry}}
	if err := s.RequestRepo.UpdateWithVersion(ctx, id, req.Version, update); err != nil {
		return nil, err
	}

	updated, err := s.RequestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if next != nil {
		s.scheduleEscalation(ctx, updated, next)
		s.notifyAssignee(ctx, updated, "Approval request advanced",
			fmt.Sprintf("Request %s is waiting on step %d (%s)", id, next.StepNumber, next.Name))
	}

	s.AuditService.LogChange(ctx, common_models.AuditActionApproval, "onboarding_requests", id, map[string]common_models.Change{
		"status": {Old: req.Status, New: updated.Status},
		"step":   {Old: req.CurrentStep, New: updated.CurrentStep},
	})
	return updated, nil
}

func (s *WorkflowServiceImpl) Reject(ctx context.Context, tenantID, actorID, id string, step int, reason string) (*OnboardingRequest, error) {
	req, err := s.loadForStep(ctx, tenantID, id, step)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	entry := HistoryEntry{
		StepNumber: step,
		Action:     "rejected",
		ActorID:    actorID,
		Notes:      reason,
		Timestamp:  now,
	}
	// current_step stays frozen at the rejecting step.
	update := bson.M{
		"$set": bson.M{
			"status":           StatusRejected,
			"rejected_by":      actorID,
			"rejected_at":      now,
			"rejection_reason": reason,
		},
		"$push": bson.M{"history": entry},
	}
	if err := s.RequestRepo.UpdateWithVersion(ctx, id, req.Version, update); err != nil {
		return nil, err
	}

	updated, err := s.RequestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.AuditService.LogChange(ctx, common_models.AuditActionApproval, "onboarding_requests", id, map[string]common_models.Change{
		"status": {Old: req.Status, New: StatusRejected},
	})
	return updated, nil
}

func (s *WorkflowServiceImpl) Cancel(ctx context.Context, tenantID, actorID, id string) (*OnboardingRequest, error) {
	req, err := s.RequestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil || req.TenantID != tenantID {
		return nil, fmt.Errorf("request not found")
	}
	if req.IsTerminal() {
		return nil, conflictf("request is already %s", req.Status)
	}

	now := time.Now()
	entry := HistoryEntry{
		StepNumber: req.CurrentStep,
		Action:     "cancelled",
		ActorID:    actorID,
		Timestamp:  now,
	}
	update := bson.M{
		"$set": bson.M{
			"status":       StatusCancelled,
			"cancelled_by": actorID,
			"cancelled_at": now,
		},
		"$push": bson.M{"history": entry},
	}
	if err := s.RequestRepo.UpdateWithVersion(ctx, id, req.Version, update); err != nil {
		return nil, err
	}

	updated, err := s.RequestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	s.AuditService.LogChange(ctx, common_models.AuditActionWorkflow, "onboarding_requests", id, map[string]common_models.Change{
		"status": {Old: req.Status, New: StatusCancelled},
	})
	return updated, nil
}

func (s *WorkflowServiceImpl) StartWorkflow(ctx context.Context, tenantID, actorID, configID string, evalContext map[string]interface{}) (string, error) {
	req, err := s.CreateRequest(ctx, tenantID, actorID, configID, evalContext)
	if err != nil {
		return "", err
	}
	return req.ID.Hex(), nil
}

// Escalate handles one fired timer. If the request already moved past the
// step the timer is stale and nothing happens; the exactly-once guarantee is
// the sweeper's, this method only has to be safe to call.
func (s *WorkflowServiceImpl) Escalate(ctx context.Context, requestID string, stepNumber int) error {
	req, err := s.RequestRepo.GetByID(ctx, requestID)
	if err != nil {
		return err
	}
	if req == nil || req.IsTerminal() || req.CurrentStep != stepNumber {
		return nil
	}

	cfg, err := s.ConfigRepo.GetByID(ctx, req.WorkflowConfigID)
	if err != nil {
		return err
	}
	if cfg == nil {
		return nil
	}
	step := findStep(cfg, stepNumber)
	if step == nil {
		return nil
	}

	rule := step.AssignmentRule
	switch {
	case rule.EscalateTo != "":
		return s.escalateToRole(ctx, req, step)
	case rule.ForceAdvance:
		_, err := s.Approve(ctx, req.TenantID, common_models.SystemActorID, requestID, stepNumber, "auto-advanced after timeout")
		if _, conflict := err.(*ConflictError); conflict {
			return nil
		}
		return err
	default:
		s.notifyAssignee(ctx, req, "Approval overdue",
			fmt.Sprintf("Request %s has been waiting on step %d past its deadline", requestID, stepNumber))
		return nil
	}
}

// escalateToRole hands the step to the escalation role's queue. No new timer
// is scheduled; a timer fires at most once per (request, step).
func (s *WorkflowServiceImpl) escalateToRole(ctx context.Context, req *OnboardingRequest, step *WorkflowStep) error {
	role := step.AssignmentRule.EscalateTo
	now := time.Now()

	assignedTo := ""
	assignment, err := s.Resolver.Resolve(ctx, req.TenantID, AssignmentRule{Type: AssignRole, RoleID: role})
	if err != nil {
		if _, ok := err.(*AssignmentError); !ok {
			return err
		}
		s.Log.Warn("escalation role has no holders, reassigning to empty queue",
			zap.String("request_id", req.ID.Hex()), zap.String("role", role))
		assignment = nil
	}

	entry := HistoryEntry{
		StepNumber: step.StepNumber,
		Action:     "escalated",
		ActorID:    common_models.SystemActorID,
		Notes:      fmt.Sprintf("reassigned to role %s after timeout", role),
		Timestamp:  now,
	}
	update := bson.M{
		"$set": bson.M{
			"assigned_to":   assignedTo,
			"assigned_role": role,
		},
		"$push": bson.M{"history": entry},
	}
	if err := s.RequestRepo.UpdateWithVersion(ctx, req.ID.Hex(), req.Version, update); err != nil {
		if _, conflict := err.(*ConflictError); conflict {
			// Someone acted on the step while the timer fired.
			return nil
		}
		return err
	}

	if assignment != nil {
		for _, candidate := range assignment.Candidates {
			if err := s.Notifier.Notify(ctx, req.TenantID, candidate, "Escalated approval request",
				fmt.Sprintf("Request %s step %d was escalated to your role", req.ID.Hex(), step.StepNumber)); err != nil {
				s.Log.Warn("escalation notification failed", zap.Error(err))
			}
		}
	}

	s.AuditService.LogChange(ctx, common_models.AuditActionEscalation, "onboarding_requests", req.ID.Hex(), map[string]common_models.Change{
		"assigned_role": {Old: req.AssignedRole, New: role},
	})
	return nil
}
