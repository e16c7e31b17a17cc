package worker

import (
	"net/http"
	"time"

	"server/src/api/handlers"
	"server/src/config"
	"server/src/database"
	"server/src/repositories"
	"server/src/services"
	"server/src/worker/controllers"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// Server is the reconciliation worker: it sweeps portfolio balances and only
// exposes a healthcheck over HTTP.
type Server struct {
	Router     *chi.Mux
	Controller *controllers.Controller
}

func NewServer(cfg *config.Config, logger *logrus.Logger) (*Server, error) {
	db, err := database.SetupDB(cfg)
	if err != nil {
		return nil, err
	}

	portfolioRepo := repositories.NewPortfolioRepository(db)
	tradeRepo := repositories.NewTradeRepository(db)
	reconciler := services.NewReconcilerService(db, portfolioRepo, tradeRepo)

	controller := controllers.NewController(reconciler, logger)
	if err := controller.Start(cfg); err != nil {
		return nil, err
	}

	server := &Server{
		Router:     chi.NewRouter(),
		Controller: controller,
	}
	server.Router.Get("/alive", handlers.Healthcheck)
	return server, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

func NewHTTPServer(server *Server, cfg *config.Config) *http.Server {
	return &http.Server{
		Addr:         ":" + cfg.Service.Port,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		Handler:      server,
	}
}
