package httpapi

import (
	"net/http"
	"os"

	"go.uber.org/zap"

	"github.com/and161185/authd/internal/config"
	"github.com/and161185/authd/internal/errs"
	"github.com/and161185/authd/internal/health"
)

// Aux serves the unauthenticated sidecar surface: process liveness, the
// redacted configuration view, and the health report drop box.
type Aux struct {
	registry *health.Registry
	cfg      *config.Resolved
	log      *zap.Logger
}

func NewAux(registry *health.Registry, cfg *config.Resolved, log *zap.Logger) *Aux {
	return &Aux{registry: registry, cfg: cfg, log: log}
}

func (a *Aux) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /config", a.configView)
	mux.HandleFunc("GET /health", a.healthView)
	mux.HandleFunc("GET /pid", a.pidView)
	mux.HandleFunc("POST /health/report", a.healthReport)
	mux.HandleFunc("GET /health/{process}", a.processStatus)
	return mux
}

func (a *Aux) configView(w http.ResponseWriter, _ *http.Request) {
	writeOK(w, redactedConfig(a.cfg))
}

func (a *Aux) healthView(w http.ResponseWriter, _ *http.Request) {
	writeOK(w, map[string]any{"state": health.StateOK})
}

func (a *Aux) pidView(w http.ResponseWriter, _ *http.Request) {
	writeOK(w, map[string]any{"pid": os.Getpid()})
}

func (a *Aux) healthReport(w http.ResponseWriter, r *http.Request) {
	var rep health.Report
	if !decodeJSON(w, r, &rep) {
		return
	}
	if rep.Process == "" {
		writeError(w, a.log, errs.ErrValidation)
		return
	}
	state := rep.State
	if state == "" {
		state = health.StateOK
	}
	a.registry.Report(rep.Process, health.Status{
		State:  state,
		Detail: rep.Detail,
		Port:   rep.Port,
		PID:    rep.PID,
	})
	writeOK(w, nil)
}

func (a *Aux) processStatus(w http.ResponseWriter, r *http.Request) {
	st, err := a.registry.Query(r.PathValue("process"))
	if err != nil {
		writeError(w, a.log, err)
		return
	}
	writeOK(w, st)
}
