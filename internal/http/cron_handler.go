package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/localboost/localboost/internal/http/middleware"
	"github.com/localboost/localboost/internal/service"
	"github.com/localboost/localboost/internal/service/broadcast"
	"github.com/localboost/localboost/pkg/logger"
	"github.com/localboost/localboost/pkg/metrics"
)

type BroadcastSchedulerRunner interface {
	Run(ctx context.Context) (*broadcast.SchedulerSummary, error)
}

type WinnerCheckRunner interface {
	RunWinnerCheck(ctx context.Context) (*broadcast.WinnerCheckSummary, error)
}

type AutomationEngineRunner interface {
	Run(ctx context.Context) (*service.AutomationRunSummary, error)
}

type ActionCommandProcessor interface {
	ProcessPending(ctx context.Context) (*service.ActionCommandSummary, error)
}

// CronHandler exposes the batch jobs to an external scheduler
type CronHandler struct {
	scheduler      BroadcastSchedulerRunner
	winnerCheck    WinnerCheckRunner
	automation     AutomationEngineRunner
	actionCommands ActionCommandProcessor
	secret         string
	logger         logger.Logger
}

func NewCronHandler(
	scheduler BroadcastSchedulerRunner,
	winnerCheck WinnerCheckRunner,
	automation AutomationEngineRunner,
	actionCommands ActionCommandProcessor,
	secret string,
	logger logger.Logger,
) *CronHandler {
	return &CronHandler{
		scheduler:      scheduler,
		winnerCheck:    winnerCheck,
		automation:     automation,
		actionCommands: actionCommands,
		secret:         secret,
		logger:         logger,
	}
}

func (h *CronHandler) RegisterRoutes(mux *http.ServeMux) {
	requireSecret := middleware.RequireCronSecret(h.secret)

	mux.Handle("/communication/broadcast-scheduler", requireSecret(h.job("broadcast_scheduler", func(ctx context.Context) (interface{}, int, error) {
		summary, err := h.scheduler.Run(ctx)
		if err != nil {
			return nil, 0, err
		}
		return summary, summary.Due, nil
	})))
	mux.Handle("/communication/ab-test-winner", requireSecret(h.job("ab_test_winner", func(ctx context.Context) (interface{}, int, error) {
		summary, err := h.winnerCheck.RunWinnerCheck(ctx)
		if err != nil {
			return nil, 0, err
		}
		return summary, summary.Due, nil
	})))
	mux.Handle("/communication/automation-engine", requireSecret(h.job("automation_engine", func(ctx context.Context) (interface{}, int, error) {
		summary, err := h.automation.Run(ctx)
		if err != nil {
			return nil, 0, err
		}
		return summary, summary.Claimed, nil
	})))
	mux.Handle("/communication/action-commands", requireSecret(h.job("action_commands", func(ctx context.Context) (interface{}, int, error) {
		summary, err := h.actionCommands.ProcessPending(ctx)
		if err != nil {
			return nil, 0, err
		}
		return summary, summary.Claimed, nil
	})))
}

// job wraps one batch run. The summary counts are flattened next to
// success:true in the response.
func (h *CronHandler) job(name string, run func(ctx context.Context) (interface{}, int, error)) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !allowMethods(w, r, http.MethodPost) {
			return
		}

		started := time.Now()
		summary, items, err := run(r.Context())
		metrics.RecordJobRun(r.Context(), name, started, items, err)
		if err != nil {
			h.logger.WithFields(map[string]interface{}{
				"job":   name,
				"error": err.Error(),
			}).Error("Cron job failed")
			WriteJSONError(w, err.Error(), http.StatusInternalServerError)
			return
		}

		writeJSON(w, http.StatusOK, flattenSummary(summary))
	})
}

func flattenSummary(summary interface{}) map[string]interface{} {
	out := map[string]interface{}{}
	if raw, err := json.Marshal(summary); err == nil {
		_ = json.Unmarshal(raw, &out)
	}
	out["success"] = true
	return out
}
