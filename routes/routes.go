package routes

import (
	"log/slog"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/snakr/snakr-api/auth"
	"github.com/snakr/snakr-api/config"
	"github.com/snakr/snakr-api/handlers"
	"github.com/snakr/snakr-api/middleware"
)

type Handlers struct {
	Health     *handlers.HealthHandler
	Household  *handlers.HouseholdHandler
	Invitation *handlers.InvitationHandler
	Item       *handlers.ItemHandler
	Event      *handlers.EventHandler
	Receipt    *handlers.ReceiptHandler
}

// SetupRoutes собирает дерево маршрутов. Порядок middleware фиксирован:
// request id раньше логгера, чтобы каждая строка лога несла request_id;
// rate limit после аутентификации, чтобы ключом был пользователь, а не IP.
func SetupRoutes(
	router *chi.Mux,
	cfg *config.Config,
	verifier *auth.Verifier,
	limiter *middleware.RateLimiter,
	logger *slog.Logger,
	h Handlers,
) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RequestLogger(logger))
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader, "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.NotFound(handlers.NotFoundRoute)
	router.MethodNotAllowed(handlers.MethodNotAllowed)

	authenticate := middleware.Authenticate(verifier, logger, handlers.UnauthorizedResponse)
	rateLimit := middleware.RateLimit(limiter, cfg.RateLimitEnabled, handlers.RateLimitResponse)

	router.Get("/", h.Health.RootHandler)
	router.Get("/health", h.Health.HealthHandler)

	router.Route("/api/v1", func(r chi.Router) {
		// Публичный предпросмотр приглашения: доступ по токену из ссылки,
		// аутентификация не требуется.
		r.Group(func(r chi.Router) {
			r.Use(rateLimit)
			r.Get("/invitations/{token}", h.Invitation.GetInvitationHandler)
		})

		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(rateLimit)

			r.Post("/invitations/accept", h.Invitation.AcceptInvitationHandler)

			r.Route("/households", func(r chi.Router) {
				r.Post("/", h.Household.CreateHouseholdHandler)
				r.Get("/", h.Household.ListHouseholdsHandler)

				r.Route("/{householdID}", func(r chi.Router) {
					r.Get("/", h.Household.GetHouseholdHandler)
					r.Put("/", h.Household.UpdateHouseholdHandler)
					r.Delete("/", h.Household.DeleteHouseholdHandler)

					r.Put("/members/{userID}", h.Household.UpdateMemberRoleHandler)
					r.Delete("/members/{userID}", h.Household.RemoveMemberHandler)

					r.Post("/invitations", h.Invitation.CreateInvitationHandler)
					r.Get("/invitations", h.Invitation.ListInvitationsHandler)

					r.Route("/items", func(r chi.Router) {
						r.Post("/", h.Item.CreateItemHandler)
						r.Get("/", h.Item.ListItemsHandler)
						r.Get("/{itemID}", h.Item.GetItemHandler)
						r.Put("/{itemID}", h.Item.UpdateItemHandler)
						r.Delete("/{itemID}", h.Item.DeleteItemHandler)
						r.Post("/{itemID}/actions", h.Item.QuickActionHandler)
					})

					r.Get("/restock", h.Item.GetRestockListHandler)

					r.Get("/events", h.Event.ListEventsHandler)
					r.Get("/events/ws", h.Event.StreamEventsHandler)

					r.Route("/receipts", func(r chi.Router) {
						r.Post("/", h.Receipt.UploadReceiptHandler)
						r.Get("/", h.Receipt.ListReceiptsHandler)
						r.Get("/{receiptID}", h.Receipt.GetReceiptHandler)
					})
				})
			})
		})
	})
}
