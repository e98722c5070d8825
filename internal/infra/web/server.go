package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"catering-platform/internal/infra/redis"
	"catering-platform/internal/usecase"
)

type Server struct {
	chatUC   usecase.ChatUseCase
	orderUC  usecase.OrderUseCase
	tracking *redis.TrackingCache // nil disables the tracking field on order reads
	auth     *AuthManager
	log      *zerolog.Logger
}

func NewServer(
	chatUC usecase.ChatUseCase,
	orderUC usecase.OrderUseCase,
	tracking *redis.TrackingCache,
	auth *AuthManager,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		chatUC:   chatUC,
		orderUC:  orderUC,
		tracking: tracking,
		auth:     auth,
		log:      logger,
	}
}

// Router assembles the full route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(s.auth.Middleware)

		r.Post("/chat/turns", chatTurnHandler(s.chatUC))
		r.Get("/chat/sessions/{id}/turns", chatTurnsListHandler(s.chatUC))
		r.Post("/chat/sessions/{id}/confirm", chatConfirmHandler(s.chatUC))
		r.Post("/chat/sessions/{id}/close", chatCloseHandler(s.chatUC))

		r.Get("/orders", ordersListHandler(s.orderUC))
		r.Get("/orders/{id}", orderGetHandler(s.orderUC, s.tracking))
		r.Post("/orders/{id}/cancel", orderCancelHandler(s.orderUC))

		r.Get("/dishes", dishesHandler(s.orderUC))
	})
	return r
}
