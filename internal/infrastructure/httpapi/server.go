package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	app_service "onchain-intel/internal/application/service"
	"onchain-intel/internal/domain/entity"
	"onchain-intel/internal/domain/repository"
	domain_service "onchain-intel/internal/domain/service"
	"onchain-intel/internal/infrastructure/logger"
)

// Wallet ownership headers
const (
	HeaderWalletAddress   = "X-Wallet-Address"
	HeaderWalletSignature = "X-Wallet-Signature"
	HeaderWalletIssuedAt  = "X-Wallet-Issued-At"
)

const maxBodyBytes = 1 << 16

// Dependencies are the services the HTTP surface exposes
type Dependencies struct {
	Addresses     *app_service.AddressService
	Details       *app_service.DetailService
	Paginator     *app_service.TransferPaginator
	Graphs        *app_service.GraphService
	Tagging       *app_service.TaggingService
	Summaries     *app_service.SummaryService
	Lookup        *app_service.TagLookup
	Authenticator domain_service.Authenticator
	Debounce      time.Duration

	// Checks report the connectivity of optional backends on /health
	Checks map[string]func(context.Context) bool
}

// Server serves the JSON API and the search websocket
type Server struct {
	deps     Dependencies
	upgrader websocket.Upgrader
	logger   *logger.Logger
}

// NewServer creates a new API server
func NewServer(deps Dependencies, logger *logger.Logger) *Server {
	return &Server{
		deps: deps,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger: logger.WithComponent("http-api"),
	}
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /api/addresses", s.handleList)
	mux.HandleFunc("GET /api/addresses/{id}", s.handleDetail)
	mux.HandleFunc("POST /api/addresses/{id}/refresh", s.handleRefresh)
	mux.HandleFunc("GET /api/addresses/{id}/transfers", s.handleTransfers)
	mux.HandleFunc("GET /api/addresses/{id}/graph", s.handleGraph)
	mux.HandleFunc("GET /api/addresses/{id}/connections", s.handleConnections)
	mux.HandleFunc("GET /api/addresses/{id}/summary", s.handleSummary)
	mux.HandleFunc("GET /api/addresses/{id}/tags", s.handleTags)
	mux.HandleFunc("POST /api/addresses/{id}/tags", s.handleSubmitTag)
	mux.HandleFunc("POST /api/addresses/{id}/tags/{tagID}/vote", s.handleVote)
	mux.HandleFunc("GET /api/search/ws", s.handleSearchSocket)

	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, code := "ok", http.StatusOK
	checks := make(map[string]bool, len(s.deps.Checks))
	for name, check := range s.deps.Checks {
		checks[name] = check(ctx)
		if !checks[name] {
			status, code = "degraded", http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, map[string]interface{}{"status": status, "checks": checks})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	key := repository.SortKey(q.Get("sort"))
	if key == "" {
		key = repository.SortByInfluence
	}
	dir := repository.SortDirection(q.Get("dir"))
	if dir == "" {
		dir = repository.SortDesc
	}
	// select applies a column header click to the current ordering
	if selected := q.Get("select"); selected != "" {
		key, dir = domain_service.NextSort(key, dir, repository.SortKey(selected))
	}

	records := s.deps.Addresses.List(app_service.ListQuery{
		Term:      q.Get("q"),
		SortKey:   key,
		Direction: dir,
	})
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(records),
		"sort":    key,
		"dir":     dir,
		"records": records,
	})
}

func (s *Server) handleDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := s.deps.Details.LoadDetail(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Addresses.RefreshStats(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleTransfers(w http.ResponseWriter, r *http.Request) {
	rec, err := s.deps.Addresses.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	offset, err := intParam(r, "offset", 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var page app_service.PageResult
	if r.URL.Query().Get("refetch") == "true" {
		page = s.deps.Paginator.Refetch(r.Context(), rec.Address, offset)
	} else {
		page = s.deps.Paginator.Page(r.Context(), rec.Address, offset)
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	offset, err := intParam(r, "offset", 0)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	view, err := s.deps.Graphs.Build(r.Context(), r.PathValue("id"), offset)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleConnections(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 25)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	conns, err := s.deps.Graphs.Connections(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if conns == nil {
		conns = []*entity.WalletConnection{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"connections": conns})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	res, err := s.deps.Summaries.Summary(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleTags returns official and community tags ranked by net score, with the
// caller's own vote flags when the caller is identified
func (s *Server) handleTags(w http.ResponseWriter, r *http.Request) {
	rec, err := s.deps.Addresses.Get(r.PathValue("id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	identity, err := s.identify(r)
	if err != nil {
		identity = ""
	}

	community := make([]entity.Tag, 0, len(rec.CommunityTags))
	for _, t := range rec.CommunityTags {
		community = append(community, t.ViewFor(identity))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tags": domain_service.RankTags(rec.OfficialTags, community),
	})
}

type submitTagRequest struct {
	Text     string             `json:"text"`
	Category entity.TagCategory `json:"category"`
}

func (s *Server) handleSubmitTag(w http.ResponseWriter, r *http.Request) {
	identity, err := s.identify(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req submitTagRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	tag, err := s.deps.Tagging.SubmitTag(r.Context(), identity, r.PathValue("id"), req.Text, req.Category)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tag)
}

type voteRequest struct {
	Direction entity.VoteDirection `json:"direction"`
}

func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	identity, err := s.identify(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	var req voteRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	tag, err := s.deps.Tagging.Vote(r.Context(), identity, r.PathValue("id"), r.PathValue("tagID"), req.Direction)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tag)
}

// identify returns the verified caller identity, or "" when no wallet headers are sent
func (s *Server) identify(r *http.Request) (string, error) {
	address := strings.TrimSpace(r.Header.Get(HeaderWalletAddress))
	signature := strings.TrimSpace(r.Header.Get(HeaderWalletSignature))
	if address == "" && signature == "" {
		return "", nil
	}
	if s.deps.Authenticator == nil {
		return "", entity.ErrAuthorizationRequired
	}
	return s.deps.Authenticator.Verify(address, signature, strings.TrimSpace(r.Header.Get(HeaderWalletIssuedAt)))
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
	} else {
		s.logger.Debug("Request rejected",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Error(err))
	}

	body := map[string]interface{}{"error": err.Error()}
	var partial *entity.PartialFailure
	if errors.As(err, &partial) {
		body["step"] = partial.Step
	}
	writeJSON(w, status, body)
}

func statusFor(err error) int {
	var partial *entity.PartialFailure
	switch {
	case errors.Is(err, entity.ErrNotFound), errors.Is(err, entity.ErrTagNotFound):
		return http.StatusNotFound
	case errors.Is(err, entity.ErrAuthorizationRequired):
		return http.StatusUnauthorized
	case errors.Is(err, entity.ErrImmutableTarget), errors.Is(err, entity.ErrAddressImmutable):
		return http.StatusForbidden
	case errors.Is(err, entity.ErrDuplicateTag):
		return http.StatusConflict
	case errors.Is(err, entity.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.As(err, &partial), errors.Is(err, entity.ErrLedgerRejected):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func intParam(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer: %w", name, entity.ErrInvalidInput)
	}
	return v, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %v: %w", err, entity.ErrInvalidInput)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
