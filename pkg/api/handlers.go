package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/ruslano69/tdtp-datagen/pkg/config"
	"github.com/ruslano69/tdtp-datagen/pkg/core/engine"
	"github.com/ruslano69/tdtp-datagen/pkg/core/generr"
	"github.com/ruslano69/tdtp-datagen/pkg/core/strategy"
	"github.com/ruslano69/tdtp-datagen/pkg/core/table"
	"github.com/ruslano69/tdtp-datagen/pkg/emit"
	"github.com/ruslano69/tdtp-datagen/pkg/pipeline"
)

// maxBody ограничение размера конфигурации в запросе
const maxBody = 1 << 20

type handler struct {
	registry *strategy.Registry
	logger   zerolog.Logger
	maxRows  int
}

type errorResponse struct {
	ErrorName string              `json:"error_name"`
	Message   string              `json:"message"`
	Step      *int                `json:"step,omitempty"`
	Column    string              `json:"column,omitempty"`
	Fields    []generr.FieldError `json:"fields,omitempty"`
}

func handlePing(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"message": "pong"})
}

// Strategies GET /get_all_strategies
func (h *handler) Strategies(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"strategies": h.registry.Names()})
}

// Schemas GET /get_strategy_schemas
func (h *handler) Schemas(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"strategies": h.registry.Schemas()})
}

// Generate POST /generate_data: конфигурация в теле, записи в ответе.
// Writers, stream и result_log из конфигурации здесь не выполняются.
func (h *handler) Generate(w http.ResponseWriter, r *http.Request) {
	cfg, ok := h.readConfig(w, r)
	if !ok {
		return
	}
	tbl, ok := h.generate(w, r, cfg)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"data": emit.OrderedRecords(tbl.Names(), tbl.Slice(0, tbl.Rows())),
	})
}

// readConfig читает и проверяет конфигурацию из тела запроса
func (h *handler) readConfig(w http.ResponseWriter, r *http.Request) (*config.Config, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		writeError(w, generr.Configuration("failed to read request body: %v", err))
		return nil, false
	}

	cfg, err := config.Parse(body)
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	if cfg.NumOfRows > h.maxRows {
		writeError(w, generr.Configuration("num_of_rows %d exceeds the limit of %d", cfg.NumOfRows, h.maxRows))
		return nil, false
	}
	return cfg, true
}

// generate строит таблицу. При ошибке ответ уже записан.
func (h *handler) generate(w http.ResponseWriter, r *http.Request, cfg *config.Config) (*table.Table, bool) {
	opts := append(cfg.EngineOptions(), engine.WithRegistry(h.registry), engine.WithLogger(h.logger))
	tbl, err := engine.New(opts...).Run(r.Context(), cfg.Steps(), cfg.NumOfRows, cfg.Shuffle)
	if err != nil {
		if pipeline.IsCanceled(err) {
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{ErrorName: "Canceled", Message: err.Error()})
			return nil, false
		}
		writeError(w, err)
		return nil, false
	}
	return tbl, true
}

// statusFor ошибки конфигурации и параметров дают 400, остальные 500
func statusFor(err error) int {
	switch generr.KindOf(err) {
	case generr.KindConfiguration, generr.KindValidation, generr.KindDependency, generr.KindMaskEvaluation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	resp := errorResponse{ErrorName: "InternalError", Message: "unexpected error while generating data"}

	var gerr *generr.Error
	if errors.As(err, &gerr) {
		resp.ErrorName = gerr.Kind.String()
		if status == http.StatusBadRequest || gerr.Kind == generr.KindGeneration {
			resp.Message = err.Error()
		}
		if gerr.Step >= 0 {
			step := gerr.Step
			resp.Step = &step
		}
		resp.Column = gerr.Column
		resp.Fields = gerr.Fields
	}
	writeJSON(w, status, resp)
}
