package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"convorec/internal/cart"
	"convorec/internal/middleware"
)

// RouterDeps collects everything NewRouter needs to assemble the HTTP
// surface, mirroring the teacher's httpserver.RouterDeps shape.
type RouterDeps struct {
	Logger  *slog.Logger
	Handler *Handler
}

// NewRouter assembles a chi router with the shared middleware stack,
// generalizing the teacher's httpserver.NewRouter from a single webhook
// route to the full conversational gateway surface.
func NewRouter(deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recover(deps.Logger))
	r.Use(middleware.Logging(deps.Logger))

	h := deps.Handler

	r.Get("/health", h.HandleHealth)
	r.Post("/chat", h.HandleChat)
	r.Get("/session/{id}", h.HandleGetSession)
	r.Post("/session/reset", h.HandleResetSession)

	r.Post("/cart/favorite", h.HandleCartAction(cart.ActionFavorite))
	r.Post("/cart/add", h.HandleCartAction(cart.ActionAdd))
	r.Post("/cart/checkout", h.HandleCartAction(cart.ActionCheckout))
	r.Get("/product/{id}", h.HandleProductDetail)

	return r
}
