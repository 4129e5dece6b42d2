package rule

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go-onboard/internal/config"
	"go-onboard/pkg/expr"

	"github.com/d5/tengo/v2"
	"go.uber.org/zap"
)

// Action capability names. The set is closed: each name dispatches to one
// capability with its own parameter schema, validated when the rule is
// written.
const (
	ActionUpdateField      = "update_field"
	ActionTriggerWorkflow  = "trigger_workflow"
	ActionSendNotification = "send_notification"
	ActionRunScript        = "run_script"
	ActionWebhook          = "webhook"

	// ActionRequireApproval is a named alias of trigger_workflow that starts
	// the tenant's default approval workflow.
	ActionRequireApproval = "require_additional_approval"
)

// FieldMutator applies a field mutation to the entity a context snapshot was
// taken from.
type FieldMutator interface {
	UpdateField(ctx context.Context, tenantID, entityType, entityID, field string, value interface{}) error
}

// WorkflowStarter starts an approval workflow for the evaluated entity.
type WorkflowStarter interface {
	StartWorkflow(ctx context.Context, tenantID, actorID, configID string, evalContext map[string]interface{}) (string, error)
}

// Notifier dispatches a notification to a user.
type Notifier interface {
	Notify(ctx context.Context, tenantID, userID, title, message string) error
}

// ActionExecutor runs matched-rule actions against collaborators.
type ActionExecutor interface {
	ValidateSpec(spec *expr.ActionSpec) error
	Execute(ctx context.Context, tenantID, actorID, entityType string, evalContext map[string]interface{}, action expr.Action) error
}

type ActionExecutorImpl struct {
	fieldMutator    FieldMutator
	workflowStarter WorkflowStarter
	notifier        Notifier
	httpClient      *http.Client
	actionTimeout   time.Duration
	log             *zap.Logger
}

func NewActionExecutor(
	fieldMutator FieldMutator,
	workflowStarter WorkflowStarter,
	notifier Notifier,
	cfg *config.Config,
	log *zap.Logger,
) ActionExecutor {
	return &ActionExecutorImpl{
		fieldMutator:    fieldMutator,
		workflowStarter: workflowStarter,
		notifier:        notifier,
		httpClient:      &http.Client{Timeout: cfg.ActionTimeout},
		actionTimeout:   cfg.ActionTimeout,
		log:             log,
	}
}

// requiredParams per capability; checked against the compiled spec when a
// rule is created or updated so a rule with an unusable action never
// persists.
var requiredParams = map[string][]string{
	ActionUpdateField:      {"field", "value"},
	ActionTriggerWorkflow:  {},
	ActionRequireApproval:  {},
	ActionSendNotification: {"user", "message"},
	ActionRunScript:        {"script"},
	ActionWebhook:          {"url"},
}

func (e *ActionExecutorImpl) ValidateSpec(spec *expr.ActionSpec) error {
	required, ok := requiredParams[spec.Type]
	if !ok {
		return fmt.Errorf("unsupported action type: %s", spec.Type)
	}
	for _, param := range required {
		if _, ok := spec.Params[param]; !ok {
			return fmt.Errorf("action %s requires parameter %q", spec.Type, param)
		}
	}
	return nil
}

func (e *ActionExecutorImpl) Execute(ctx context.Context, tenantID, actorID, entityType string, evalContext map[string]interface{}, action expr.Action) error {
	ctx, cancel := context.WithTimeout(ctx, e.actionTimeout)
	defer cancel()

	switch action.Type {
	case ActionUpdateField:
		return e.executeUpdateField(ctx, tenantID, entityType, evalContext, action.Config)

	case ActionTriggerWorkflow, ActionRequireApproval:
		return e.executeTriggerWorkflow(ctx, tenantID, actorID, evalContext, action.Config)

	case ActionSendNotification:
		return e.executeSendNotification(ctx, tenantID, action.Config)

	case ActionRunScript:
		return e.executeRunScript(ctx, entityType, evalContext, action.Config)

	case ActionWebhook:
		return e.executeWebhook(ctx, entityType, evalContext, action.Config)

	default:
		return fmt.Errorf("unsupported action type: %s", action.Type)
	}
}

func (e *ActionExecutorImpl) executeUpdateField(ctx context.Context, tenantID, entityType string, evalContext map[string]interface{}, cfg map[string]interface{}) error {
	field, _ := cfg["field"].(string)
	value := cfg["value"]
	if field == "" {
		return fmt.Errorf("field name is required for update_field action")
	}

	entityID := fmt.Sprintf("%v", evalContext["entity_id"])
	if err := e.fieldMutator.UpdateField(ctx, tenantID, entityType, entityID, field, value); err != nil {
		return fmt.Errorf("failed to update field: %w", err)
	}

	// Later-executed rules see the mutated value: last write in priority
	// order wins within one pass.
	evalContext[field] = value

	e.log.Info("updated field", zap.String("entity", entityType), zap.String("field", field))
	return nil
}

func (e *ActionExecutorImpl) executeTriggerWorkflow(ctx context.Context, tenantID, actorID string, evalContext map[string]interface{}, cfg map[string]interface{}) error {
	configID, _ := cfg["workflow_config_id"].(string)

	requestID, err := e.workflowStarter.StartWorkflow(ctx, tenantID, actorID, configID, evalContext)
	if err != nil {
		return fmt.Errorf("failed to start workflow: %w", err)
	}

	e.log.Info("started workflow", zap.String("request_id", requestID))
	return nil
}

func (e *ActionExecutorImpl) executeSendNotification(ctx context.Context, tenantID string, cfg map[string]interface{}) error {
	userID, _ := cfg["user"].(string)
	title, _ := cfg["title"].(string)
	message, _ := cfg["message"].(string)

	if userID == "" {
		return fmt.Errorf("user is required for notification")
	}
	if title == "" {
		title = "Rule notification"
	}

	if err := e.notifier.Notify(ctx, tenantID, userID, title, message); err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	return nil
}

func (e *ActionExecutorImpl) executeRunScript(ctx context.Context, entityType string, evalContext map[string]interface{}, cfg map[string]interface{}) error {
	scriptContent, _ := cfg["script"].(string)
	if scriptContent == "" {
		return fmt.Errorf("script content is required")
	}

	script := tengo.NewScript([]byte(scriptContent))
	script.Add("entity", entityType)
	script.Add("context", evalContext)

	compiled, err := script.Compile()
	if err != nil {
		return fmt.Errorf("failed to compile script: %w", err)
	}
	if err := compiled.RunContext(ctx); err != nil {
		return fmt.Errorf("failed to run script: %w", err)
	}

	e.log.Info("executed script", zap.String("entity", entityType))
	return nil
}

func (e *ActionExecutorImpl) executeWebhook(ctx context.Context, entityType string, evalContext map[string]interface{}, cfg map[string]interface{}) error {
	url, _ := cfg["url"].(string)
	method, _ := cfg["method"].(string)
	if url == "" {
		return fmt.Errorf("webhook URL is required")
	}
	if method == "" {
		method = "POST"
	}

	payload := map[string]interface{}{
		"entity":    entityType,
		"context":   evalContext,
		"timestamp": time.Now().Format(time.RFC3339),
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(payloadBytes))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	if headers, ok := cfg["headers"].(map[string]interface{}); ok {
		for key, value := range headers {
			req.Header.Set(key, fmt.Sprintf("%v", value))
		}
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook returned error status: %d", resp.StatusCode)
	}

	e.log.Info("webhook sent", zap.String("url", url), zap.Int("status", resp.StatusCode))
	return nil
}
