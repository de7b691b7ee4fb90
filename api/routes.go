package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Matcry12/careervr/internal/config"
	"github.com/Matcry12/careervr/internal/gate"
	"github.com/Matcry12/careervr/internal/migrator"
	"github.com/Matcry12/careervr/internal/moderation"
	"github.com/Matcry12/careervr/internal/repository"
	"github.com/Matcry12/careervr/internal/store"
	"github.com/Matcry12/careervr/pkg/models"
)

// Deps are the wired storage components the routes serve.
type Deps struct {
	Backend  store.Backend
	Gate     gate.Gate
	Repos    *repository.Repos
	Migrator *migrator.Migrator
}

func SetupRoutes(cfg *config.Config, version, buildTime string, deps Deps) *mux.Router {
	r := mux.NewRouter()

	// Middleware chain
	r.Use(LoggingMiddleware)
	r.Use(CORSMiddleware)
	r.Use(RecoveryMiddleware)
	r.Use(MetricsMiddleware)

	// Create handlers
	systemHandler := &SystemHandler{Backend: deps.Backend.Name(), Gate: deps.Gate}
	authHandler := NewAuthHandler(deps.Repos.Users, cfg.JWTSecret, cfg.TokenDuration)
	jobsHandler := NewJobsHandler(deps.Repos.Jobs)
	submissionsHandler := NewSubmissionsHandler(deps.Repos.Submissions)
	postsHandler := NewPostsHandler(deps.Repos.Posts, moderation.New(deps.Repos.Posts, logger))
	adminHandler := NewAdminHandler(deps.Migrator)

	admin := RequireRole(models.RoleAdmin)
	staff := RequireRole(models.RoleMentor, models.RoleAdmin)

	// Open endpoints
	r.HandleFunc("/version", systemHandler.VersionHandler(version, buildTime)).Methods("GET")
	r.HandleFunc("/health", systemHandler.HealthHandler).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	// Guests and signed-in users share the API; a token is optional.
	apiRoutes := r.PathPrefix("/api").Subrouter()
	apiRoutes.Use(SessionMiddleware(cfg.JWTSecret))

	apiRoutes.HandleFunc("/auth/token", authHandler.Token).Methods("POST")
	apiRoutes.HandleFunc("/auth/me", authHandler.Me).Methods("GET")
	apiRoutes.HandleFunc("/users", authHandler.Register).Methods("POST")
	apiRoutes.HandleFunc("/users/{username}", authHandler.GetUser).Methods("GET")
	apiRoutes.HandleFunc("/users/{username}", authHandler.UpdateUser).Methods("PATCH")
	apiRoutes.HandleFunc("/users/{username}/history", authHandler.AddHistory).Methods("POST")

	apiRoutes.HandleFunc("/jobs", jobsHandler.ListJobs).Methods("GET")
	apiRoutes.Handle("/jobs", admin(http.HandlerFunc(jobsHandler.ReplaceJobs))).Methods("POST")
	apiRoutes.Handle("/jobs/sync", admin(http.HandlerFunc(jobsHandler.SyncJobs))).Methods("POST")

	apiRoutes.HandleFunc("/submissions", submissionsHandler.CreateSubmission).Methods("POST")
	apiRoutes.Handle("/submissions", admin(http.HandlerFunc(submissionsHandler.ListSubmissions))).Methods("GET")

	apiRoutes.HandleFunc("/posts", postsHandler.ListPosts).Methods("GET")
	apiRoutes.HandleFunc("/posts", postsHandler.CreatePost).Methods("POST")
	apiRoutes.Handle("/posts/metrics", staff(http.HandlerFunc(postsHandler.Metrics))).Methods("GET")
	apiRoutes.HandleFunc("/posts/{id}", postsHandler.DeletePost).Methods("DELETE")
	apiRoutes.HandleFunc("/posts/{id}/comments", postsHandler.CreateComment).Methods("POST")
	apiRoutes.HandleFunc("/posts/{id}/like", postsHandler.Like).Methods("POST")
	apiRoutes.HandleFunc("/posts/{id}/report", postsHandler.Report).Methods("POST")
	apiRoutes.Handle("/posts/{id}/pin", staff(http.HandlerFunc(postsHandler.Pin))).Methods("POST")
	apiRoutes.HandleFunc("/posts/{id}/comments/{cid}/report", postsHandler.Report).Methods("POST")
	apiRoutes.HandleFunc("/posts/{id}/comments/{cid}/helpful", postsHandler.Helpful).Methods("POST")

	apiRoutes.Handle("/admin/migrate", admin(http.HandlerFunc(adminHandler.Migrate))).Methods("POST")
	apiRoutes.Handle("/admin/repair-ownership", admin(http.HandlerFunc(adminHandler.RepairOwnership))).Methods("POST")

	return r
}
