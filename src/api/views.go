package api

import (
	"net/http"
	"time"

	"server/src/api/handlers"
	"server/src/config"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

type Server struct {
	Router  *chi.Mux
	Handler *handlers.Handler
}

func NewServer(cfg *config.Config, logger *logrus.Logger) (*Server, error) {
	handler, err := handlers.NewHandler(cfg, logger)
	if err != nil {
		return nil, err
	}
	server := &Server{
		Router:  chi.NewRouter(),
		Handler: handler,
	}
	server.InitRoutes()
	return server, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

func (s *Server) InitRoutes() {
	s.Router.Get("/alive", handlers.Healthcheck)

	s.Router.Route("/api/paper-trading/portfolios", func(r chi.Router) {
		r.Get("/", s.Handler.GetUserPortfolios)
		r.Post("/", s.Handler.CreatePortfolio)
		r.Get("/{portfolioId}", s.Handler.GetPortfolioDetails)
		r.Delete("/{portfolioId}", s.Handler.DeletePortfolio)
		r.Post("/{portfolioId}/trades", s.Handler.ExecuteTrade)
		r.Get("/{portfolioId}/trades", s.Handler.GetTradeHistory)
		r.Post("/{portfolioId}/repair", s.Handler.RepairBalance)
	})
}

func NewHTTPServer(server *Server, cfg *config.Config) *http.Server {
	return &http.Server{
		Addr:         ":" + cfg.Service.Port,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		Handler:      server,
	}
}
