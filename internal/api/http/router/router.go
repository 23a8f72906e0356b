package router

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/dtroode/chatdata-server/internal/api/http/handler"
	"github.com/dtroode/chatdata-server/internal/api/http/middleware"
	"github.com/dtroode/chatdata-server/internal/logger"
	"github.com/dtroode/chatdata-server/internal/model"
)

// Services groups the application services exposed over HTTP.
type Services struct {
	Profile handler.ProfileService
	Ledger  handler.LedgerService
	Receipt handler.ReceiptService
	Auth    handler.AuthService
	Token   interface {
		handler.TokenService
		middleware.TokenService
	}
}

// Options configures routing.
type Options struct {
	BasePath       string
	AllowedOrigins []string
	RequireAuth    bool
	MaxImageBytes  int64
}

// Router wires HTTP handlers and middleware.
type Router struct {
	services       Services
	socket         http.Handler
	contextManager model.ContextManager
	opts           Options
	logger         *logger.Logger
}

// New creates a new HTTP Router. socket serves realtime subscriptions.
func New(
	services Services,
	socket http.Handler,
	contextManager model.ContextManager,
	opts Options,
	logger *logger.Logger,
) *Router {
	return &Router{
		services:       services,
		socket:         socket,
		contextManager: contextManager,
		opts:           opts,
		logger:         logger,
	}
}

// Register builds the handler tree. Every route is mounted under BasePath:
//
//	POST   /register, /login, /refresh, /logout
//	GET    /data                               list profiles
//	POST   /data                               create profile
//	GET    /data/{id}                          get profile
//	DELETE /data/{id}                          delete profile
//	PATCH  /data/{id}/updateImage              upload avatar
//	PATCH  /data/{id}/messages                 append message
//	GET    /data/{id}/messages/{messageId}     reconcile
//	PATCH  /data/{id}/markAsSeen               mark exchange seen
//	PATCH  /data/{id}/messages/seen            mark one message seen
//	GET    /images/{key}                       serve avatar
//	GET    /socket                             realtime events
func (r *Router) Register() http.Handler {
	logging := middleware.NewLogging(r.logger)

	root := mux.NewRouter()
	root.Use(logging.Handle)

	api := root.PathPrefix(r.opts.BasePath).Subrouter()
	if r.socket != nil {
		api.Methods(http.MethodGet).Path("/socket").Handler(r.socket)
	}
	r.registerAuthRoutes(api)
	r.registerImageRoutes(api)
	r.registerDataRoutes(api)

	return cors.New(cors.Options{
		AllowedOrigins:   r.opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler(root)
}

func (r *Router) registerAuthRoutes(api *mux.Router) {
	h := handler.NewAuth(r.services.Auth, r.services.Token, r.logger)

	api.Methods(http.MethodPost).Path("/register").HandlerFunc(h.Register)
	api.Methods(http.MethodPost).Path("/login").HandlerFunc(h.Login)
	api.Methods(http.MethodPost).Path("/refresh").HandlerFunc(h.Refresh)
	api.Methods(http.MethodPost).Path("/logout").HandlerFunc(h.Logout)
}

func (r *Router) registerImageRoutes(api *mux.Router) {
	h := handler.NewProfile(r.services.Profile, r.opts.MaxImageBytes, r.logger)

	api.Methods(http.MethodGet).Path("/images/{key:.+}").HandlerFunc(h.Image)
}

func (r *Router) registerDataRoutes(api *mux.Router) {
	profiles := handler.NewProfile(r.services.Profile, r.opts.MaxImageBytes, r.logger)
	messages := handler.NewMessage(r.services.Ledger, r.services.Receipt, r.logger)

	data := api.PathPrefix("/data").Subrouter()
	if r.opts.RequireAuth {
		authenticate := middleware.NewAuthenticate(r.services.Token, r.contextManager, r.logger)
		data.Use(authenticate.Handle)
	}

	data.Methods(http.MethodGet).Path("").HandlerFunc(profiles.List)
	data.Methods(http.MethodPost).Path("").HandlerFunc(profiles.Create)
	data.Methods(http.MethodGet).Path("/{id}").HandlerFunc(profiles.Get)
	data.Methods(http.MethodDelete).Path("/{id}").HandlerFunc(profiles.Delete)
	data.Methods(http.MethodPatch).Path("/{id}/updateImage").HandlerFunc(profiles.UpdateImage)
	data.Methods(http.MethodPatch).Path("/{id}/messages").HandlerFunc(messages.Append)
	data.Methods(http.MethodPatch).Path("/{id}/messages/seen").HandlerFunc(messages.MarkSingleSeen)
	data.Methods(http.MethodGet).Path("/{id}/messages/{messageId}").HandlerFunc(messages.Reconcile)
	data.Methods(http.MethodPatch).Path("/{id}/markAsSeen").HandlerFunc(messages.MarkSeen)
}
