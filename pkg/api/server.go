package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/joripage/matching-engine/pkg/exchange"
	"github.com/joripage/matching-engine/pkg/logging"
	"github.com/joripage/matching-engine/pkg/orderbook"
	"github.com/rs/cors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Exchange is the subset of *exchange.Exchange the HTTP layer needs.
type Exchange interface {
	SubmitOrder(ctx context.Context, req exchange.OrderRequest) (*exchange.OrderResponse, error)
	GetDepth(ctx context.Context) orderbook.Depth
	GetBalances(ctx context.Context, accountID string) map[string]decimal.Decimal
	EstimateQuote(ctx context.Context, req exchange.QuoteRequest) (*exchange.QuoteResponse, error)
}

type Config struct {
	Addr        string
	CORSOrigins []string
}

// Server handles the REST API
type Server struct {
	x      Exchange
	cfg    Config
	router *mux.Router
	http   *http.Server
	hub    *Hub
	logger *logging.Logger
}

func NewServer(x Exchange, cfg Config, logger *logging.Logger) *Server {
	if logger == nil {
		logger = logging.Wrap(zap.NewNop())
	}
	s := &Server{
		x:      x,
		cfg:    cfg,
		router: mux.NewRouter(),
		hub:    NewHub(logger),
		logger: logger,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestLogger)

	s.router.HandleFunc("/", s.handleWelcome).Methods("GET")
	s.router.HandleFunc("/order", s.handleSubmitOrder).Methods("POST")
	s.router.HandleFunc("/depth", s.handleGetDepth).Methods("GET")
	s.router.HandleFunc("/balance/{userId}", s.handleGetBalance).Methods("GET")
	s.router.HandleFunc("/quote", s.handleGetQuote).Methods("GET", "POST")

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")
	s.router.HandleFunc("/ws", s.handleWebSocket)
}

// Hub is the websocket feed; register it as a trade and depth sink.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Handler returns the router wrapped in CORS handling.
func (s *Server) Handler() http.Handler {
	origins := s.cfg.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization", requestIDHeader},
	})
	return c.Handler(s.router)
}

// Start blocks serving HTTP until Shutdown is called.
func (s *Server) Start() error {
	s.http = &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.logger.Info(context.Background(), "http server starting", zap.String("addr", s.cfg.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.hub.Close()
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// ==============================
// REST Handlers
// ==============================

func (s *Server) handleWelcome(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, "Welcome to the Trading App Backend Algorithm!")
}

func (s *Server) handleSubmitOrder(w http.ResponseWriter, r *http.Request) {
	var req exchange.OrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	resp, err := s.x.SubmitOrder(r.Context(), req)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleGetDepth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, DepthResponse{Depth: toDepthSnapshot(s.x.GetDepth(r.Context()))})
}

func (s *Server) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["userId"]
	respondJSON(w, http.StatusOK, BalanceResponse{Balances: s.x.GetBalances(r.Context(), userID)})
}

// handleGetQuote reads side and quantity from the query string, falling back
// to a JSON body.
func (s *Server) handleGetQuote(w http.ResponseWriter, r *http.Request) {
	var req exchange.QuoteRequest

	q := r.URL.Query()
	if q.Get("side") != "" || q.Get("quantity") != "" {
		req.Side = orderbook.Side(q.Get("side"))
		qty, err := decimal.NewFromString(q.Get("quantity"))
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid quantity", err.Error())
			return
		}
		req.Quantity = qty
	} else if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body", err.Error())
			return
		}
	}

	resp, err := s.x.EstimateQuote(r.Context(), req)
	if err != nil {
		s.respondDomainError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, exchange.ErrInsufficientLiquidity):
		respondError(w, http.StatusBadRequest, "Not enough liquidity", "")
	case errors.Is(err, exchange.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, "invalid input", err.Error())
	case errors.Is(err, exchange.ErrUnknownAccount):
		respondError(w, http.StatusNotFound, "unknown account", err.Error())
	default:
		logging.FromContext(r.Context(), s.logger).Error(r.Context(), "request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal error", "")
	}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, error string, message string) {
	respondJSON(w, status, ErrorResponse{
		Error:   error,
		Message: message,
	})
}
