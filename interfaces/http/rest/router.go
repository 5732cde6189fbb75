package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"tutormatch-backend/application/commands/bus"
	querybus "tutormatch-backend/application/queries/bus"
	"tutormatch-backend/infrastructure/config"
	"tutormatch-backend/interfaces/http/rest/handlers"
	"tutormatch-backend/interfaces/http/rest/middleware"
	"tutormatch-backend/pkg/auth"
)

// Router creates and configures the HTTP router
type Router struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	validator  *auth.JWTValidator
	cfg        *config.Config
	logger     *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	validator *auth.JWTValidator,
	cfg *config.Config,
	logger *zap.Logger,
) *Router {
	return &Router{
		commandBus: commandBus,
		queryBus:   queryBus,
		validator:  validator,
		cfg:        cfg,
		logger:     logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))

	if rt.cfg.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"http://localhost:3000", "https://*.tutormatch.io"},
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)

	router.Route("/api/v1", func(r chi.Router) {
		userHandler := handlers.NewUserHandler(rt.commandBus, rt.queryBus, rt.logger)

		// Registration stands outside authentication; everything else
		// requires a valid token.
		r.Post("/users", userHandler.RegisterUser)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Authenticate(rt.validator, rt.logger))

			r.Route("/users", func(r chi.Router) {
				r.Get("/", userHandler.ListUsers)
				r.Get("/{userID}", userHandler.GetUser)
				r.Put("/{userID}", userHandler.UpdateUser)
				r.Put("/{userID}/status", userHandler.ChangeUserStatus)
				r.Put("/{userID}/role", userHandler.ChangeUserRole)
				r.Post("/{userID}/failed-logins", userHandler.RecordFailedLogin)
			})

			r.Route("/tutors", func(r chi.Router) {
				tutorHandler := handlers.NewTutorHandler(rt.commandBus, rt.queryBus, rt.logger)
				r.Post("/", tutorHandler.PromoteToTutor)
				r.Get("/", tutorHandler.ListTutors)
				r.Get("/{tutorID}", tutorHandler.GetTutor)
				r.Put("/{tutorID}", tutorHandler.UpdateTutor)
				r.Put("/{tutorID}/status", tutorHandler.ChangeTutorStatus)
				r.Post("/{tutorID}/sessions", tutorHandler.RecordSessionOutcome)
			})

			r.Route("/matching-requests", func(r chi.Router) {
				matchingHandler := handlers.NewMatchingHandler(rt.commandBus, rt.queryBus, rt.logger)
				r.Post("/", matchingHandler.CreateRequest)
				r.Get("/", matchingHandler.ListRequests)
				r.Post("/expire", matchingHandler.ExpireRequests)
				r.Get("/{requestID}", matchingHandler.GetRequest)
				r.Post("/{requestID}/assign", matchingHandler.AssignTutor)
				r.Post("/{requestID}/confirm", matchingHandler.ConfirmMatch)
				r.Post("/{requestID}/cancel", matchingHandler.CancelRequest)
			})
		})
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}

// readinessCheck handles readiness check requests
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ready"}`))
}
