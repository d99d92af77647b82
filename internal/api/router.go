package api

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/roundupgames/audit-backend/internal/api/httpx"
	"github.com/roundupgames/audit-backend/internal/api/validate"
	"github.com/roundupgames/audit-backend/internal/config"
	"github.com/roundupgames/audit-backend/internal/metrics"
	"github.com/roundupgames/audit-backend/internal/middleware"
	"github.com/roundupgames/audit-backend/internal/models"
	"github.com/roundupgames/audit-backend/internal/orgs"
	"github.com/roundupgames/audit-backend/internal/services"
)

type RouterDeps struct {
	Cfg      config.Config
	UserSvc  *services.UserService
	OrgSvc   *services.OrgService
	AuditSvc *services.AuditService
	AuthMW   *middleware.AuthMiddleware
}

func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover, middleware.HTTPMetrics, middleware.RateLimit(d.Cfg.RateRPS))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// ---------- auth ----------
		r.Post("/auth/register", func(w http.ResponseWriter, r *http.Request) {
			var req struct{ Username, Email, Password string }
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid body", nil)
				return
			}
			var errs validate.Errs
			for _, ef := range []*validate.ErrField{
				validate.Required("username", req.Username),
				validate.Required("email", req.Email),
				validate.Required("password", req.Password),
			} {
				if ef != nil {
					errs = append(errs, *ef)
				}
			}
			if len(errs) > 0 {
				httpx.WriteError(w, http.StatusBadRequest, "validation", errs.Error(), errs)
				return
			}
			u, err := d.UserSvc.Register(r.Context(), req.Username, req.Email, req.Password)
			if err != nil {
				httpx.WriteError(w, http.StatusBadRequest, "register_failed", err.Error(), nil)
				return
			}
			httpx.WriteJSON(w, http.StatusCreated, u)
		})

		r.Post("/auth/login", func(w http.ResponseWriter, r *http.Request) {
			var req struct{ Email, Password string }
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid body", nil)
				return
			}
			pair, err := d.UserSvc.Login(r.Context(), req.Email, req.Password)
			if err != nil {
				httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid credentials", nil)
				return
			}
			httpx.WriteJSON(w, http.StatusOK, pair)
		})

		r.Post("/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
			var req struct {
				RefreshToken string `json:"refresh_token"`
			}
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
				httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid body", nil)
				return
			}
			pair, err := d.UserSvc.Refresh(r.Context(), req.RefreshToken)
			if err != nil {
				httpx.WriteError(w, http.StatusUnauthorized, "unauthorized", "invalid refresh token", nil)
				return
			}
			httpx.WriteJSON(w, http.StatusOK, pair)
		})

		// ---------- organizations ----------
		r.Group(func(r chi.Router) {
			r.Use(d.AuthMW.Auth)

			r.Get("/orgs/accessible", func(w http.ResponseWriter, r *http.Request) {
				claims, _ := middleware.ClaimsFrom(r.Context())
				out, err := d.OrgSvc.AccessibleOrganizations(r.Context(), claims.UserID)
				if err != nil {
					httpx.WriteError(w, http.StatusInternalServerError, "internal_error", err.Error(), nil)
					return
				}
				if out == nil {
					out = []orgs.AccessibleOrg{}
				}
				httpx.WriteJSON(w, http.StatusOK, out)
			})

			r.Get("/orgs/{id}/access", func(w http.ResponseWriter, r *http.Request) {
				claims, _ := middleware.ClaimsFrom(r.Context())
				orgID := chi.URLParam(r, "id")
				role, err := d.OrgSvc.ResolveAccess(r.Context(), claims.UserID, orgID)
				if err != nil {
					httpx.WriteError(w, http.StatusInternalServerError, "internal_error", err.Error(), nil)
					return
				}
				if role == models.RoleNone {
					httpx.WriteError(w, http.StatusForbidden, "forbidden", "no access to organization", nil)
					return
				}
				httpx.WriteJSON(w, http.StatusOK, map[string]string{
					"organization_id": orgID,
					"role":            string(role),
				})
			})
		})

		// ---------- admin ----------
		r.Group(func(r chi.Router) {
			r.Use(d.AuthMW.Auth, middleware.RequireGlobalAdmin)

			r.Post("/orgs/{id}/members", func(w http.ResponseWriter, r *http.Request) {
				orgID := chi.URLParam(r, "id")
				var req struct {
					UserID string `json:"user_id"`
					Role   string `json:"role"`
				}
				if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
					httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid body", nil)
					return
				}
				var errs validate.Errs
				for _, ef := range []*validate.ErrField{
					validate.Required("user_id", req.UserID),
					validate.Required("role", req.Role),
					validate.OneOf("role", req.Role,
						string(models.RoleOwner), string(models.RoleAdmin), string(models.RoleReporter),
						string(models.RoleViewer), string(models.RoleMember)),
				} {
					if ef != nil {
						errs = append(errs, *ef)
					}
				}
				if len(errs) > 0 {
					httpx.WriteError(w, http.StatusBadRequest, "validation", errs.Error(), errs)
					return
				}

				if err := d.OrgSvc.GrantMembership(r.Context(), orgID, req.UserID, models.Role(req.Role)); err != nil {
					httpx.WriteError(w, http.StatusInternalServerError, "grant_failed", err.Error(), nil)
					return
				}

				targetType, targetID := "organization_member", req.UserID
				entry := models.AuditEntryInput{
					Action:      "admin.membership_granted",
					TargetType:  &targetType,
					TargetID:    &targetID,
					TargetOrgID: &orgID,
					Changes:     models.Changes{"role": {New: req.Role}},
				}
				fillActorContext(r, &entry)
				d.AuditSvc.RecordAsync(entry)

				httpx.WriteJSON(w, http.StatusOK, map[string]string{
					"organization_id": orgID,
					"user_id":         req.UserID,
					"role":            req.Role,
				})
			})

			r.Post("/audit/entries", func(w http.ResponseWriter, r *http.Request) {
				var in models.AuditEntryInput
				if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
					httpx.WriteError(w, http.StatusBadRequest, "bad_request", "invalid body", nil)
					return
				}
				if ef := validate.Required("action", in.Action); ef != nil {
					httpx.WriteError(w, http.StatusBadRequest, "validation", ef.Msg, ef)
					return
				}
				fillActorContext(r, &in)

				row, err := d.AuditSvc.Record(r.Context(), in)
				if err != nil {
					httpx.WriteError(w, http.StatusInternalServerError, "audit_append_failed", err.Error(), nil)
					return
				}
				httpx.WriteJSON(w, http.StatusCreated, row)
			})

			r.Get("/audit/entries", func(w http.ResponseWriter, r *http.Request) {
				limit, offset := 50, 0
				if v := r.URL.Query().Get("limit"); v != "" {
					if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
						limit = n
					}
				}
				if v := r.URL.Query().Get("offset"); v != "" {
					if n, err := strconv.Atoi(v); err == nil && n >= 0 {
						offset = n
					}
				}
				rows, err := d.AuditSvc.List(r.Context(), limit, offset)
				if err != nil {
					httpx.WriteError(w, http.StatusInternalServerError, "internal_error", err.Error(), nil)
					return
				}
				if rows == nil {
					rows = []models.AuditRow{}
				}
				httpx.WriteJSON(w, http.StatusOK, rows)
			})

			r.Get("/audit/verify", func(w http.ResponseWriter, r *http.Request) {
				result, err := d.AuditSvc.Verify(r.Context())
				if err != nil {
					httpx.WriteError(w, http.StatusInternalServerError, "internal_error", err.Error(), nil)
					return
				}
				httpx.WriteJSON(w, http.StatusOK, result)
			})
		})
	})

	return r
}

// fillActorContext stamps request-derived actor fields onto an entry unless
// the caller already set them.
func fillActorContext(r *http.Request, in *models.AuditEntryInput) {
	if claims, ok := middleware.ClaimsFrom(r.Context()); ok && in.ActorUserID == nil {
		uid := claims.UserID
		in.ActorUserID = &uid
	}
	if in.ActorIP == nil {
		if ip := clientIP(r); ip != "" {
			in.ActorIP = &ip
		}
	}
	if in.ActorUserAgent == nil {
		if ua := r.Header.Get("User-Agent"); ua != "" {
			in.ActorUserAgent = &ua
		}
	}
	if in.RequestID == "" {
		in.RequestID = middleware.RequestIDFrom(r.Context())
	}
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
