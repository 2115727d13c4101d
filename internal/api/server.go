package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"oremarket/internal/catalog"
	"oremarket/internal/game"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const maxBodyBytes = 8 << 20

type Server struct {
	log    *slog.Logger
	game   *game.Service
	replay *replayCache
	mux    *chi.Mux
}

func New(logger *slog.Logger, gameSvc *game.Service) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		log:    logger,
		game:   gameSvc,
		replay: newReplayCache(1024),
		mux:    chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.idempotent)

		r.Get("/dashboard", s.handleDashboard)
		r.Get("/market", s.handleMarket)
		r.Get("/market/{key}", s.handleResource)
		r.Post("/market/tick", s.handleTick)

		r.Get("/orders", s.handleOrders)
		r.Post("/orders", s.handleNewOrder)
		r.Post("/orders/{id}/{action}", s.handleOrderAction)

		r.Get("/investments", s.handleInvestments)
		r.Post("/investments", s.handleInvest)
		r.Post("/investments/{id}/sell", s.handleSellInvestment)

		r.Get("/companies", s.handleCompanies)
		r.Post("/companies", s.handleCreateCompany)
		r.Post("/companies/leave", s.handleLeaveCompany)
		r.Post("/companies/{id}/join", s.handleJoinCompany)
		r.Post("/companies/{id}/transfer", s.handleTransfer)
		r.Post("/companies/{id}/dissolve", s.handleDissolveCompany)

		r.Get("/leaderboard", s.handleLeaderboard)
		r.Get("/catalog/export", s.handleCatalogExport)
		r.Put("/host/ores/{key}", s.handleSetHostOre)
		r.Delete("/host/ores/{key}", s.handleRemoveHostOre)

		r.Get("/state/export", s.handleStateExport)
		r.Post("/state/import", s.handleStateImport)
		r.Post("/state/reset", s.handleStateReset)

		r.Get("/settings", s.handleSettings)
		r.Put("/settings", s.handleUpdateSettings)
		r.Put("/webhook", s.handleSetWebhook)
		r.Delete("/webhook", s.handleClearWebhook)
	})
}

func (s *Server) handleDashboard(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.game.Dashboard())
}

func (s *Server) handleMarket(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"resources": s.game.Market()})
}

func (s *Server) handleResource(w http.ResponseWriter, r *http.Request) {
	out, err := s.game.ResourceDetail(chi.URLParam(r, "key"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTick(w http.ResponseWriter, r *http.Request) {
	out, err := s.game.Tick(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"resources": out})
}

func (s *Server) handleOrders(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"orders": s.game.Orders()})
}

func (s *Server) handleNewOrder(w http.ResponseWriter, r *http.Request) {
	var in game.OrderRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.game.GenerateOrder(r.Context(), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleOrderAction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx := r.Context()
	switch action := chi.URLParam(r, "action"); action {
	case "accept":
		out, err := s.game.AcceptOrder(ctx, id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	case "complete":
		out, err := s.game.CompleteOrder(ctx, id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	case "decline":
		lost, err := s.game.DeclineOrder(ctx, id)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id, "xp_lost": lost})
	case "cancel":
		if err := s.game.CancelOrder(ctx, id); err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id, "cancelled": true})
	default:
		writeError(w, http.StatusNotFound, "unknown order action "+action)
	}
}

func (s *Server) handleInvestments(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"investments": s.game.Investments()})
}

func (s *Server) handleInvest(w http.ResponseWriter, r *http.Request) {
	var in game.InvestRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.game.Invest(r.Context(), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleSellInvestment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	proceeds, err := s.game.SellInvestment(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "proceeds": proceeds})
}

func (s *Server) handleCompanies(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"companies": s.game.Companies()})
}

func (s *Server) handleCreateCompany(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.game.CreateCompany(r.Context(), in.Name)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (s *Server) handleJoinCompany(w http.ResponseWriter, r *http.Request) {
	out, err := s.game.JoinCompany(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleLeaveCompany(w http.ResponseWriter, r *http.Request) {
	if err := s.game.LeaveCompany(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"left": true})
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Amount float64 `json:"amount"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.game.Transfer(r.Context(), chi.URLParam(r, "id"), in.Amount)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDissolveCompany(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.game.DissolveCompany(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": id, "dissolved": true})
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.game.Leaderboard())
}

func (s *Server) handleCatalogExport(w http.ResponseWriter, _ *http.Request) {
	out, err := s.game.ExportCatalog()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/toml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

func (s *Server) handleSetHostOre(w http.ResponseWriter, r *http.Request) {
	var in catalog.Ore
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.game.SetHostOre(r.Context(), chi.URLParam(r, "key"), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRemoveHostOre(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if err := s.game.RemoveHostOre(r.Context(), key); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"key": key, "removed": true})
}

func (s *Server) handleStateExport(w http.ResponseWriter, _ *http.Request) {
	out, err := s.game.ExportState()
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="oremarket-save.json"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(out)
}

func (s *Server) handleStateImport(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.game.ImportState(r.Context(), raw); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.game.Dashboard())
}

func (s *Server) handleStateReset(w http.ResponseWriter, r *http.Request) {
	if err := s.game.Reset(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.game.Dashboard())
}

func (s *Server) handleSettings(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"settings": s.game.Settings(), "webhook": s.game.Webhook() != ""})
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var in game.SettingsPatch
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := s.game.UpdateSettings(r.Context(), in)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSetWebhook(w http.ResponseWriter, r *http.Request) {
	var in struct {
		URL string `json:"url"`
	}
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.game.SetWebhook(r.Context(), in.URL); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"webhook": true})
}

func (s *Server) handleClearWebhook(w http.ResponseWriter, r *http.Request) {
	if err := s.game.ClearWebhook(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"webhook": false})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch game.KindOf(err) {
	case game.KindValidation, game.KindPersistence:
		writeError(w, http.StatusBadRequest, err.Error())
	case game.KindPrecondition:
		writeError(w, http.StatusConflict, err.Error())
	case game.KindNotFound:
		writeError(w, http.StatusNotFound, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// decodeJSON reads an optional JSON body; an empty body leaves out as is.
func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": strings.TrimSpace(message)})
}
