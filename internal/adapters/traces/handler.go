package traces

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"agritrack/internal/core"
	"agritrack/pkg/domain"
)

// TraceService is the service surface the handler depends on. The core
// service satisfies it.
type TraceService interface {
	CreateProduct(ctx context.Context, name, farmLocation string, harvestDate core.Date, variety string) (core.Product, error)
	AppendStage(ctx context.Context, productID string, stageType core.StageType, data string) (core.ProductStage, error)
	AppendSampleStages(ctx context.Context, productID string) ([]core.ProductStage, error)
	GetProduct(ctx context.Context, id string) (core.Product, bool)
	GetStages(ctx context.Context, productID string) []core.ProductStage
	ListProducts(ctx context.Context) []core.Product
	Stats(ctx context.Context) core.ListingStats
}

// Handler provides HTTP access to products, stage history, and exports.
type Handler struct {
	Service TraceService
	Exports ExportScheduler
}

// NewHandler constructs a trace HTTP handler.
func NewHandler(service TraceService) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		writeError(w, http.StatusInternalServerError, "trace service not configured")
		return
	}

	path := strings.TrimSuffix(r.URL.Path, "/")
	switch {
	case path == "/api/v1/products":
		switch r.Method {
		case http.MethodGet:
			h.handleListProducts(w, r)
		case http.MethodPost:
			h.handleCreateProduct(w, r)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	case strings.HasPrefix(path, "/api/v1/products/"):
		h.handleProduct(w, r, strings.TrimPrefix(path, "/api/v1/products/"))
	case path == "/api/v1/stats" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"stats": h.Service.Stats(r.Context())})
	case strings.HasPrefix(path, "/api/v1/exports"):
		if h.Exports == nil {
			http.NotFound(w, r)
			return
		}
		h.handleExports(w, r, path)
	default:
		http.NotFound(w, r)
	}
}

func (h *Handler) handleListProducts(w http.ResponseWriter, r *http.Request) {
	query := core.DefaultListingQuery().WithFilter(r.URL.Query().Get("filter"))
	if sort := r.URL.Query().Get("sort"); sort != "" {
		switch core.SortField(sort) {
		case core.SortByName, core.SortByFarmLocation, core.SortByHarvestDate:
			query.Field = core.SortField(sort)
		default:
			writeError(w, http.StatusBadRequest, "unknown sort field")
			return
		}
	}
	if order := r.URL.Query().Get("order"); order != "" {
		switch core.SortOrder(order) {
		case core.SortAscending, core.SortDescending:
			query.Order = core.SortOrder(order)
		default:
			writeError(w, http.StatusBadRequest, "unknown sort order")
			return
		}
	}
	products := core.ApplyListing(h.Service.ListProducts(r.Context()), query)
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

type createProductRequest struct {
	Name         string `json:"name"`
	FarmLocation string `json:"farmLocation"`
	HarvestDate  string `json:"harvestDate"`
	Variety      string `json:"variety"`
}

func (h *Handler) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid product payload")
		return
	}
	harvestDate, err := domain.ParseDate(req.HarvestDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "harvestDate must be YYYY-MM-DD")
		return
	}
	product, err := h.Service.CreateProduct(r.Context(), req.Name, req.FarmLocation, harvestDate, req.Variety)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"product": product})
}

func (h *Handler) handleProduct(w http.ResponseWriter, r *http.Request, remainder string) {
	segments := strings.Split(remainder, "/")
	id := segments[0]
	if id == "" {
		http.NotFound(w, r)
		return
	}

	if len(segments) == 1 {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		product, ok := h.Service.GetProduct(r.Context(), id)
		if !ok {
			writeError(w, http.StatusNotFound, "product not found")
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"product": product,
			"stages":  h.Service.GetStages(r.Context(), id),
		})
		return
	}

	if len(segments) != 2 {
		http.NotFound(w, r)
		return
	}
	switch segments[1] {
	case "stages":
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, map[string]any{"stages": h.Service.GetStages(r.Context(), id)})
		case http.MethodPost:
			h.handleAppendStage(w, r, id)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	case "sample-stages":
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		stages, err := h.Service.AppendSampleStages(r.Context(), id)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"stages": stages})
	default:
		http.NotFound(w, r)
	}
}

type appendStageRequest struct {
	StageType string `json:"stageType"`
	Data      string `json:"data"`
}

func (h *Handler) handleAppendStage(w http.ResponseWriter, r *http.Request, productID string) {
	var req appendStageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid stage payload")
		return
	}
	stage, err := h.Service.AppendStage(r.Context(), productID, core.StageType(req.StageType), req.Data)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"stage": stage})
}

type exportRequest struct {
	ProductID   string   `json:"productId"`
	Formats     []string `json:"formats"`
	RequestedBy string   `json:"requestedBy"`
}

func (h *Handler) handleExports(w http.ResponseWriter, r *http.Request, path string) {
	if path == "/api/v1/exports" {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		var req exportRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid export payload")
			return
		}
		formats := make([]ExportFormat, 0, len(req.Formats))
		for _, f := range req.Formats {
			formats = append(formats, ExportFormat(strings.ToLower(strings.TrimSpace(f))))
		}
		record, err := h.Exports.EnqueueExport(r.Context(), ExportInput{
			ProductID:   req.ProductID,
			Formats:     formats,
			RequestedBy: req.RequestedBy,
		})
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]any{"export": record})
		return
	}

	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := strings.TrimPrefix(path, "/api/v1/exports/")
	if id == "" || strings.Contains(id, "/") {
		http.NotFound(w, r)
		return
	}
	record, ok := h.Exports.GetExport(id)
	if !ok {
		writeError(w, http.StatusNotFound, "export not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"export": record})
}

// BearerMiddleware copies a Bearer token from the Authorization header onto
// the request context so the identity gate can see it. Requests without one
// pass through anonymous.
func BearerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			token = strings.TrimSpace(token)
			if token != "" {
				r = r.WithContext(domain.WithToken(r.Context(), token))
			}
		}
		next.ServeHTTP(w, r)
	})
}

// writeServiceError maps domain errors onto HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	var verr domain.ValidationError
	var nf domain.NotFoundError
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, err.Error())
	case errors.As(err, &nf):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &verr):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"error": message})
}
