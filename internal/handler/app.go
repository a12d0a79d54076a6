// Package handler provides the App struct that serves as the API facade
// for the lesson-plan service, and the HTTP handlers built on it.
package handler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"giaoan/internal/auth"
	"giaoan/internal/config"
	"giaoan/internal/docx"
	"giaoan/internal/errlog"
	"giaoan/internal/lesson"
	"giaoan/internal/llm"
	"giaoan/internal/plan"
	"giaoan/internal/render"
)

// ErrLoginLocked wraps a lockout reported by the login limiter.
var ErrLoginLocked = errors.New("login temporarily locked")

// App is the API facade that binds the backend services.
type App struct {
	db             *sql.DB
	users          *auth.UserStore
	sessionManager *auth.SessionManager
	loginLimiter   *auth.LoginLimiter
	plans          *plan.Store
	generator      *llm.LessonGenerator
	assembler      *render.Assembler
	configManager  *config.ConfigManager
}

// NewApp creates an App over db. When svc is nil the LLM client is built
// from the llm section of the configuration.
func NewApp(db *sql.DB, cm *config.ConfigManager, svc llm.LLMService) *App {
	cfg := cm.Get()
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if svc == nil {
		svc = llm.NewAPILLMService(
			cfg.LLM.Endpoint, cfg.LLM.APIKey, cfg.LLM.ModelName,
			cfg.LLM.Temperature, cfg.LLM.MaxTokens,
			time.Duration(cfg.LLM.TimeoutSeconds)*time.Second,
		)
	}
	return &App{
		db:             db,
		users:          auth.NewUserStore(db),
		sessionManager: auth.NewSessionManager(db, time.Duration(cfg.Session.TTLHours)*time.Hour),
		loginLimiter:   auth.NewLoginLimiter(db),
		plans:          plan.NewStore(db),
		generator:      llm.NewLessonGenerator(svc),
		assembler:      render.Default(),
		configManager:  cm,
	}
}

// SessionManager exposes the session manager for background cleanup.
func (app *App) SessionManager() *auth.SessionManager { return app.sessionManager }

// LoginLimiter exposes the login limiter for background cleanup.
func (app *App) LoginLimiter() *auth.LoginLimiter { return app.loginLimiter }

// LoginResponse is returned by Login and Register.
type LoginResponse struct {
	Token     string     `json:"token"`
	ExpiresAt time.Time  `json:"expires_at"`
	User      *auth.User `json:"user"`
}

// Register creates an account and logs it in.
func (app *App) Register(email, name, password string) (*LoginResponse, error) {
	u, err := app.users.Register(email, name, password)
	if err != nil {
		return nil, err
	}
	log.Printf("[Auth] registered %s", u.Email)
	return app.startSession(u)
}

// Login authenticates a teacher, enforcing the failed-attempt lockout.
func (app *App) Login(email, password, ip string) (*LoginResponse, error) {
	email = auth.NormalizeEmail(email)
	if err := app.loginLimiter.CheckAllowed(email, ip); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoginLocked, err)
	}
	u, err := app.users.Authenticate(email, password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			app.loginLimiter.RecordAttempt(email, ip, false)
		}
		return nil, err
	}
	app.loginLimiter.RecordAttempt(email, ip, true)
	return app.startSession(u)
}

func (app *App) startSession(u *auth.User) (*LoginResponse, error) {
	s, err := app.sessionManager.CreateSession(u.ID)
	if err != nil {
		return nil, err
	}
	return &LoginResponse{Token: s.ID, ExpiresAt: s.ExpiresAt, User: u}, nil
}

// Logout deletes the session.
func (app *App) Logout(token string) error {
	return app.sessionManager.DeleteSession(token)
}

// ListPlans returns the user's plan summaries.
func (app *App) ListPlans(userID string) ([]plan.Summary, error) {
	return app.plans.List(userID)
}

// CreatePlan stores a new plan.
func (app *App) CreatePlan(userID string, p lesson.Plan) (*plan.Record, error) {
	return app.plans.Create(userID, p)
}

// GetPlan returns one of the user's plans.
func (app *App) GetPlan(userID, id string) (*plan.Record, error) {
	return app.plans.GetForUser(userID, id)
}

// UpdatePlan replaces one of the user's plans.
func (app *App) UpdatePlan(userID, id string, p lesson.Plan) (*plan.Record, error) {
	return app.plans.Update(userID, id, p)
}

// DeletePlan removes one of the user's plans.
func (app *App) DeletePlan(userID, id string) error {
	return app.plans.Delete(userID, id)
}

// GeneratePlanRequest is the body of POST /api/plans/generate.
type GeneratePlanRequest struct {
	llm.GenerateRequest
	TeacherName string `json:"teacherName"`
}

// GeneratePlan drafts a plan with the LLM and stores it.
func (app *App) GeneratePlan(ctx context.Context, userID string, req GeneratePlanRequest) (*plan.Record, error) {
	content, err := app.generator.Generate(ctx, req.GenerateRequest)
	if err != nil {
		return nil, err
	}
	p := lesson.Plan{
		Subject:     strings.TrimSpace(req.Subject),
		Grade:       strings.TrimSpace(req.Grade),
		TeacherName: strings.TrimSpace(req.TeacherName),
		LessonTitle: strings.TrimSpace(req.LessonTitle),
		Duration:    strings.TrimSpace(req.Duration),
		Content:     content,
	}
	return app.plans.Create(userID, p)
}

// Export is a rendered document ready for download.
type Export struct {
	Filename string
	Data     []byte
}

// RenderPlan renders a plan to a .docx document.
func (app *App) RenderPlan(p lesson.Plan) (*Export, error) {
	data, err := docx.RenderWith(app.assembler, p)
	if err != nil {
		errlog.Logf("[Render] %q: %v", p.LessonTitle, err)
		return nil, err
	}
	return &Export{Filename: docx.Filename(p.LessonTitle), Data: data}, nil
}

// ExportPlan renders one of the user's stored plans.
func (app *App) ExportPlan(userID, id string) (*Export, error) {
	rec, err := app.plans.GetForUser(userID, id)
	if err != nil {
		return nil, err
	}
	return app.RenderPlan(rec.Plan)
}

// Health pings the database.
func (app *App) Health(ctx context.Context) error {
	return app.db.PingContext(ctx)
}
