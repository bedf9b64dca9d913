package wire

import (
	"context"
	"net/http"

	"scrim-booking/internal/adaptor"
	"scrim-booking/internal/usecase"
	"scrim-booking/pkg/middleware"
	"scrim-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Pinger reports whether a backing store is reachable.
type Pinger func(ctx context.Context) error

type App struct {
	Router *chi.Mux
}

func Wiring(service *usecase.Service, config *utils.Config, health Pinger, logger *zap.Logger) *App {
	handler := adaptor.NewHandler(service, config, logger)

	return &App{
		Router: setupRouter(handler, config, health, logger),
	}
}

func setupRouter(handler *adaptor.Handler, config *utils.Config, health Pinger, logger *zap.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.CORS(config.App.FrontendURL))

	wireBooking(r, handler.Booking, logger)
	wirePayment(r, handler.Payment, logger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		if health != nil {
			if err := health(r.Context()); err != nil {
				logger.Warn("Health check failed", zap.Error(err))
				utils.ResponseJSON(w, http.StatusServiceUnavailable, false, "unhealthy", nil, nil)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return r
}
