package main

import (
	"context"
	"fmt"
	"log"
	"time"

	common_api "go-onboard/internal/common/api"
	"go-onboard/internal/config"
	"go-onboard/internal/database"
	"go-onboard/internal/features/audit"
	"go-onboard/internal/features/escalation"
	"go-onboard/internal/features/group"
	"go-onboard/internal/features/notification"
	"go-onboard/internal/features/rule"
	"go-onboard/internal/features/system"
	"go-onboard/internal/features/user"
	"go-onboard/internal/features/workflow"
	"go-onboard/internal/logger"
	"go-onboard/internal/middleware"
	"go-onboard/pkg/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

// NewFiberServer creates a new Fiber app instance
func NewFiberServer() *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(middleware.CORSMiddleware())

	return app
}

// AsRoute is a helper function to reduce boilerplate.
// It tags the constructor so Fx knows to add it to the "routes" group.
func AsRoute(f any) any {
	return fx.Annotate(
		f,
		fx.As(new(common_api.Route)),
		fx.ResultTags(`group:"routes"`),
	)
}

// RegisterAllRoutes takes the group "routes" (slice of interfaces)
// and calls Setup() on each one.
func RegisterAllRoutes(app *fiber.App, routes []common_api.Route) {
	log.Printf("Registering %d routes...\n", len(routes))
	for _, route := range routes {
		route.Setup(app)
	}
	log.Println("All routes registered successfully")
}

// RegisterAllRoutesWithAnnotation wraps RegisterAllRoutes with fx annotations
var RegisterAllRoutesWithAnnotation = fx.Annotate(
	RegisterAllRoutes,
	fx.ParamTags(``, `group:"routes"`),
)

// StartServer creates a lifecycle hook to start Fiber in a goroutine
// and shut it down when the app exits.
func StartServer(lc fx.Lifecycle, app *fiber.App, cfg *config.Config) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				port := fmt.Sprintf(":%s", cfg.Port)
				if err := app.Listen(port); err != nil {
					log.Fatalf("Server failed to start: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return app.Shutdown()
		},
	})
}

// InitializeIndexes ensures that necessary database indexes are created
func InitializeIndexes(
	lc fx.Lifecycle,
	ruleRepo rule.RuleRepository,
	groupRepo group.GroupRepository,
	timerRepo escalation.TimerRepository,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()

				if err := ruleRepo.EnsureIndexes(ctx); err != nil {
					log.Printf("Failed to ensure rule indexes: %v", err)
				}
				if err := groupRepo.EnsureIndexes(ctx); err != nil {
					log.Printf("Failed to ensure group indexes: %v", err)
				}
				if err := timerRepo.EnsureIndexes(ctx); err != nil {
					log.Printf("Failed to ensure escalation timer indexes: %v", err)
				}
			}()
			return nil
		},
	})
}

// @title           Onboarding Workflow Engine API
// @version         1.0
// @description     Business rule evaluation and approval workflow orchestration.

// @host            localhost:8080
// @BasePath        /
func main() {
	app := fx.New(
		fx.Provide(
			// Load Config
			config.LoadConfig,

			// Initialize Logger
			logger.NewLogger,

			// Initialize Fiber Server
			NewFiberServer,

			// Initialize Database
			database.NewDatabase,

			// Initialize Repositories
			audit.NewAuditRepository,
			rule.NewRuleRepository,
			group.NewGroupRepository,
			user.NewUserRepository,
			workflow.NewConfigRepository,
			workflow.NewRequestRepository,
			escalation.NewTimerRepository,
			notification.NewNotificationRepository,

			// Initialize Services
			audit.NewAuditService,
			notification.NewHub,
			notification.NewNotificationService,
			group.NewGroupService,
			workflow.NewAssignmentResolver,
			workflow.NewWorkflowService,
			escalation.NewEscalationService,
			rule.NewEntityFieldStore,
			rule.NewActionExecutor,
			rule.NewRuleService,

			// Interface Adapters to break circular dependencies and satisfy Fx
			func(r group.GroupRepository) workflow.GroupAssigner { return r },
			func(s *escalation.EscalationService) workflow.TimerScheduler { return s },
			func(s notification.NotificationService) workflow.Notifier { return s },
			func(s notification.NotificationService) rule.Notifier { return s },
			func(s workflow.WorkflowService) rule.WorkflowStarter { return s },

			// Initialize Controllers
			rule.NewRuleController,
			audit.NewAuditController,
			group.NewGroupController,
			workflow.NewWorkflowController,
			notification.NewNotificationController,

			// Initialize API Routes
			AsRoute(rule.NewRuleApi),
			AsRoute(audit.NewAuditApi),
			AsRoute(group.NewGroupApi),
			AsRoute(workflow.NewWorkflowApi),
			AsRoute(notification.NewNotificationApi),
			AsRoute(system.NewHealthApi),
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
		fx.Invoke(
			func(cfg *config.Config) {
				utils.SetSecret(cfg.JWTSecret)
			},

			// Register Routes & Start
			RegisterAllRoutesWithAnnotation,
			StartServer,

			// Wire and start the escalation sweeper
			func(lc fx.Lifecycle, esc *escalation.EscalationService, wf workflow.WorkflowService) {
				esc.SetEscalator(wf)
				esc.InitializeScheduler(lc)
			},

			InitializeIndexes,
		),
	)

	app.Run()
}
