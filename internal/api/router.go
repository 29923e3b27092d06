package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/soaringjerry/FootPulse/internal/middleware"
	"github.com/soaringjerry/FootPulse/internal/models"
	"github.com/soaringjerry/FootPulse/internal/services"
	"github.com/soaringjerry/FootPulse/internal/utils"
)

type Options struct {
	Auth           *middleware.Auth
	TokenTTL       time.Duration
	CORSOrigins    []string
	StaticDir      string
	DevFrontendURL string
	Version        string
	Commit         string
	BuildTime      string
	AccessLogger   *zerolog.Logger
	RequestTimeout time.Duration
}

type Router struct {
	store       Store
	opts        Options
	auth        *services.AuthService
	users       *services.UserService
	templates   *services.TemplateService
	responses   *services.ResponseService
	assignments *services.AssignmentService
	analytics   *services.AnalyticsService
	exports     *services.ExportService
}

func NewRouter(store Store, opts Options) *Router {
	if opts.Auth == nil {
		opts.Auth = middleware.NewAuth("")
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	analytics := services.NewAnalyticsService(store)
	return &Router{
		store:       store,
		opts:        opts,
		auth:        services.NewAuthService(store, opts.Auth.SignToken, opts.TokenTTL),
		users:       services.NewUserService(store, store),
		templates:   services.NewTemplateService(store, store),
		responses:   services.NewResponseService(store, store),
		assignments: services.NewAssignmentService(store, store),
		analytics:   analytics,
		exports:     services.NewExportService(analytics),
	}
}

// Handler assembles the middleware chain and every route.
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(rt.opts.Auth.WithAuth)
	r.Use(middleware.Logging(middleware.LoggingConfig{AccessLogger: rt.opts.AccessLogger, SkipPaths: []string{"/health"}}))
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.CORS(rt.opts.CORSOrigins))
	r.Use(middleware.LocaleMiddleware)

	r.Get("/health", rt.handleHealth)
	r.Get("/version", rt.handleVersion)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.NoStore)
		r.Use(chimw.Timeout(rt.opts.RequestTimeout))
		r.Post("/auth/login", rt.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Get("/me", rt.handleMe)

			r.Get("/users", rt.handleListUsers)
			r.Post("/users", rt.handleCreateUser)
			r.Patch("/users/{id}/reset-password", rt.handleResetPassword)

			r.Get("/templates", rt.handleListTemplates)
			r.Post("/templates", rt.handleCreateTemplate)
			r.Get("/templates/{id}", rt.handleGetTemplate)

			r.Get("/assignments", rt.handleListAssignments)
			r.Post("/assignments", rt.handleExecuteAssignments)
			r.Post("/assignments/preview", rt.handlePreviewAssignments)
			r.Delete("/assignments/{id}", rt.handleDeleteAssignment)

			r.Get("/responses", rt.handleListResponses)
			r.Post("/responses", rt.handleSubmitResponse)

			r.Get("/analytics/trend", rt.handleTrend)
			r.Get("/analytics/comparison", rt.handleComparison)
			r.Get("/analytics/radar", rt.handleRadar)
			r.Get("/analytics/growth", rt.handleGrowth)
			r.Get("/analytics/completion", rt.handleCompletion)

			r.Get("/export/responses", rt.handleExportResponses)
			r.Get("/export/comparison", rt.handleExportComparison)

			r.Get("/audit", rt.handleAudit)
		})
	})

	if fe := rt.frontend(); fe != nil {
		r.Handle("/*", fe)
	}
	return r
}

// frontend serves the built UI from StaticDir, or proxies to a dev server.
func (rt *Router) frontend() http.Handler {
	if rt.opts.StaticDir != "" {
		return http.FileServer(http.Dir(rt.opts.StaticDir))
	}
	if rt.opts.DevFrontendURL == "" {
		return nil
	}
	u, err := url.Parse(rt.opts.DevFrontendURL)
	if err != nil {
		log.Warn().Err(err).Str("url", rt.opts.DevFrontendURL).Msg("invalid dev frontend url")
		return nil
	}
	rp := httputil.NewSingleHostReverseProxy(u)
	rp.ModifyResponse = func(res *http.Response) error {
		res.Header.Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
		return nil
	}
	return rp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func statusFor(code services.ErrorCode) int {
	switch code {
	case services.ErrorInvalid:
		return http.StatusBadRequest
	case services.ErrorForbidden:
		return http.StatusForbidden
	case services.ErrorNotFound:
		return http.StatusNotFound
	case services.ErrorConflict:
		return http.StatusConflict
	case services.ErrorUnauthorized:
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// writeError maps service errors to their status; anything else is logged
// and reported as a localized 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	if se, ok := services.AsServiceError(err); ok {
		writeJSON(w, statusFor(se.Code), errorBody{Code: string(se.Code), Message: se.Message})
		return
	}
	if errors.Is(err, services.ErrDuplicate) {
		writeJSON(w, http.StatusConflict, errorBody{Code: string(services.ErrorConflict), Message: err.Error()})
		return
	}
	log.Error().Err(err).Str("request_id", chimw.GetReqID(r.Context())).
		Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
	locale := middleware.LocaleFromContext(r.Context())
	writeJSON(w, http.StatusInternalServerError, errorBody{Code: "internal", Message: utils.T(locale, "error.internal")})
}

const maxBody = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		return services.NewInvalidError(fmt.Sprintf("invalid json: %v", err))
	}
	return nil
}

// actor resolves the authenticated user from the token claims.
func (rt *Router) actor(r *http.Request) (*models.User, error) {
	uid, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		return nil, services.NewUnauthorizedError("unauthorized")
	}
	u, err := rt.store.GetUser(uid)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, services.NewUnauthorizedError("unknown user")
	}
	return u, nil
}

// parseSelection reads a FilterSelection from the query string. Each
// dimension accepts repeated keys and comma separated values.
func parseSelection(q url.Values) services.FilterSelection {
	list := func(key string) []string {
		var out []string
		for _, v := range q[key] {
			for _, p := range strings.Split(v, ",") {
				if p = strings.TrimSpace(p); p != "" {
					out = append(out, p)
				}
			}
		}
		return out
	}
	return services.FilterSelection{
		UserIDs:     list("userIds"),
		TrainerIDs:  list("trainerIds"),
		MonthIDs:    list("monthIds"),
		TemplateIDs: list("templateIds"),
		CategoryIDs: list("categoryIds"),
		QuestionIDs: list("questionIds"),
	}
}

func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	locale := middleware.LocaleFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":     true,
		"name":   "FootPulse API",
		"locale": locale,
		"msg":    utils.T(locale, "health.ok"),
	})
}

func (rt *Router) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"version":   rt.opts.Version,
		"commit":    rt.opts.Commit,
		"buildTime": rt.opts.BuildTime,
	})
}

func (rt *Router) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in services.LoginInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := rt.auth.Login(in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"accessToken": res.Token,
		"tokenType":   "bearer",
		"expiresAt":   res.ExpiresAt,
		"user":        res.User,
	})
}

func (rt *Router) handleMe(w http.ResponseWriter, r *http.Request) {
	u, err := rt.actor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (rt *Router) handleListUsers(w http.ResponseWriter, r *http.Request) {
	u, err := rt.actor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	users, err := rt.users.List(u)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (rt *Router) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	u, err := rt.actor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in services.CreateUserInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	created, err := rt.users.Create(u, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (rt *Router) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	u, err := rt.actor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in services.ResetPasswordInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	if err := rt.users.ResetPassword(u, chi.URLParam(r, "id"), in); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"detail": "password reset"})
}

func (rt *Router) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	list, err := rt.templates.List()
	if err != nil {
		writeError(w, r, err)
		return
	}
	locale := middleware.LocaleFromContext(r.Context())
	out := make([]*models.Template, 0, len(list))
	for _, t := range list {
		out = append(out, services.Localize(t, locale))
	}
	writeJSON(w, http.StatusOK, out)
}

func (rt *Router) handleGetTemplate(w http.ResponseWriter, r *http.Request) {
	t, err := rt.templates.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, services.Localize(t, middleware.LocaleFromContext(r.Context())))
}

func (rt *Router) handleCreateTemplate(w http.ResponseWriter, r *http.Request) {
	u, err := rt.actor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in services.CreateTemplateInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	t, err := rt.templates.Create(u, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (rt *Router) handleListAssignments(w http.ResponseWriter, r *http.Request) {
	u, err := rt.actor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	list, err := rt.assignments.List(u)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

type previewBody struct {
	*services.AssignmentPlan
	Outcome       services.PlanOutcome `json:"outcome"`
	NewCount      int                  `json:"newCount"`
	ExistingCount int                  `json:"existingCount"`
}

func (rt *Router) handlePreviewAssignments(w http.ResponseWriter, r *http.Request) {
	u, err := rt.actor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in services.BulkAssignInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	plan, err := rt.assignments.Preview(u, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, previewBody{
		AssignmentPlan: plan,
		Outcome:        plan.Outcome(),
		NewCount:       len(plan.Created),
		ExistingCount:  len(plan.AlreadyExists),
	})
}

func (rt *Router) handleExecuteAssignments(w http.ResponseWriter, r *http.Request) {
	u, err := rt.actor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in services.BulkAssignInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := rt.assignments.Execute(u, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (rt *Router) handleDeleteAssignment(w http.ResponseWriter, r *http.Request) {
	u, err := rt.actor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := rt.assignments.Delete(u, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (rt *Router) handleListResponses(w http.ResponseWriter, r *http.Request) {
	u, err := rt.actor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	list, err := rt.responses.List(u)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (rt *Router) handleSubmitResponse(w http.ResponseWriter, r *http.Request) {
	u, err := rt.actor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var in services.SubmitResponseInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := rt.responses.Submit(u, in)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

// serveView runs one analytics view over the query-string selection.
func serveView[T any](rt *Router, w http.ResponseWriter, r *http.Request, view func(context.Context, *models.User, services.FilterSelection) ([]T, error)) {
	u, err := rt.actor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := view(r.Context(), u, parseSelection(r.URL.Query()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (rt *Router) handleTrend(w http.ResponseWriter, r *http.Request) {
	serveView(rt, w, r, rt.analytics.Trend)
}

func (rt *Router) handleComparison(w http.ResponseWriter, r *http.Request) {
	serveView(rt, w, r, rt.analytics.Comparison)
}

func (rt *Router) handleRadar(w http.ResponseWriter, r *http.Request) {
	serveView(rt, w, r, rt.analytics.Radar)
}

func (rt *Router) handleGrowth(w http.ResponseWriter, r *http.Request) {
	serveView(rt, w, r, rt.analytics.Growth)
}

func (rt *Router) handleCompletion(w http.ResponseWriter, r *http.Request) {
	serveView(rt, w, r, rt.analytics.Completion)
}

func writeCSV(w http.ResponseWriter, res *services.ExportResult) {
	w.Header().Set("Content-Type", res.ContentType)
	w.Header().Set("Content-Disposition", "attachment; filename="+res.Filename)
	_, _ = w.Write(res.Data)
}

func (rt *Router) handleExportResponses(w http.ResponseWriter, r *http.Request) {
	u, err := rt.actor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := rt.exports.ExportResponses(r.Context(), u, services.ExportParams{
		Format:    r.URL.Query().Get("format"),
		Selection: parseSelection(r.URL.Query()),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCSV(w, res)
}

func (rt *Router) handleExportComparison(w http.ResponseWriter, r *http.Request) {
	u, err := rt.actor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	res, err := rt.exports.ExportComparison(r.Context(), u, parseSelection(r.URL.Query()))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCSV(w, res)
}

func (rt *Router) handleAudit(w http.ResponseWriter, r *http.Request) {
	u, err := rt.actor(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if u.Role != models.RoleAdmin {
		writeError(w, r, services.NewForbiddenError("admin only"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 1000 {
		limit = 200
	}
	entries, err := rt.store.ListAudit(limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
