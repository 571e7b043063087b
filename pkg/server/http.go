package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yudhasubki/spinlock"
	httpresponse "github.com/yudhasubki/spinlock/pkg/http"
	"github.com/yudhasubki/spinlock/pkg/report"
	"github.com/yudhasubki/spinlock/pkg/stress"
)

var (
	errStoreDisabled = errors.New("report store is not configured")
	errBusy          = errors.New("another stress run is in progress")
)

// Http exposes stress runs over HTTP. Only one run executes at a time; a
// request arriving while a run is in progress is rejected, not queued.
type Http struct {
	Store    *report.Store
	Defaults stress.Config

	running spinlock.SpinLock
}

func (h *Http) Router() http.Handler {
	r := chi.NewRouter()

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/workloads", h.GetWorkloads)

	r.Route("/runs", func(r chi.Router) {
		r.Post("/", h.CreateRun)
		r.Get("/", h.GetRuns)
		r.Get("/{runId}", h.GetRun)
	})

	return r
}

func (h *Http) GetWorkloads(w http.ResponseWriter, r *http.Request) {
	httpresponse.Write(w, http.StatusOK, &httpresponse.Response{
		Message: httpresponse.MessageSuccess,
		Data:    stress.Workloads(),
	})
}

func (h *Http) CreateRun(w http.ResponseWriter, r *http.Request) {
	var request stress.Config

	err := json.NewDecoder(r.Body).Decode(&request)
	if err != nil && !errors.Is(err, io.EOF) {
		slog.Error("[CreateRun] error decode request", "error", err)
		httpresponse.Error(w, http.StatusBadRequest, err)
		return
	}

	if !h.running.TryLock() {
		httpresponse.Write(w, http.StatusConflict, &httpresponse.Response{
			Message: httpresponse.MessageBusy,
			Error:   errBusy.Error(),
		})
		return
	}
	defer h.running.Unlock()

	result, err := stress.Run(r.Context(), h.merge(request))
	if errors.Is(err, stress.ErrUnknownWorkload) || errors.Is(err, stress.ErrInvalidConfig) {
		httpresponse.Error(w, http.StatusBadRequest, err)
		return
	}

	run := report.FromReport(result, err)
	if h.Store != nil {
		if errSave := h.Store.Save(context.WithoutCancel(r.Context()), run); errSave != nil {
			slog.Error("[CreateRun] error save run", "run_id", run.Id, "error", errSave)
			httpresponse.Error(w, http.StatusInternalServerError, errSave)
			return
		}
	}

	code := http.StatusOK
	message := httpresponse.MessageSuccess
	switch {
	case errors.Is(err, stress.ErrInvariant):
		code, message = http.StatusUnprocessableEntity, httpresponse.MessageFailure
	case err != nil:
		code, message = http.StatusServiceUnavailable, httpresponse.MessageFailure
	}

	httpresponse.Write(w, code, &httpresponse.Response{
		Message: message,
		Data:    run,
	})
}

func (h *Http) GetRuns(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		httpresponse.Error(w, http.StatusNotImplemented, errStoreDisabled)
		return
	}

	filter := report.Filter{
		Workload: r.URL.Query()["workload"],
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil {
			httpresponse.Error(w, http.StatusBadRequest, err)
			return
		}
		filter.Limit = n
	}

	runs, err := h.Store.List(r.Context(), filter)
	if err != nil {
		slog.Error("[GetRuns] error list runs", "error", err)
		httpresponse.Error(w, http.StatusInternalServerError, err)
		return
	}

	httpresponse.Write(w, http.StatusOK, &httpresponse.Response{
		Message: httpresponse.MessageSuccess,
		Data:    runs,
	})
}

func (h *Http) GetRun(w http.ResponseWriter, r *http.Request) {
	if h.Store == nil {
		httpresponse.Error(w, http.StatusNotImplemented, errStoreDisabled)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "runId"))
	if err != nil {
		httpresponse.Error(w, http.StatusBadRequest, err)
		return
	}

	run, err := h.Store.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, report.ErrRunNotFound) {
			httpresponse.Write(w, http.StatusNotFound, &httpresponse.Response{
				Message: httpresponse.MessageNotFound,
				Error:   err.Error(),
			})
			return
		}
		httpresponse.Error(w, http.StatusInternalServerError, err)
		return
	}

	httpresponse.Write(w, http.StatusOK, &httpresponse.Response{
		Message: httpresponse.MessageSuccess,
		Data:    run,
	})
}

// merge fills the zero fields of request from the server defaults.
func (h *Http) merge(request stress.Config) stress.Config {
	if request.Workload == "" {
		request.Workload = h.Defaults.Workload
	}
	if request.Workers == 0 {
		request.Workers = h.Defaults.Workers
	}
	if request.Iterations == 0 {
		request.Iterations = h.Defaults.Iterations
	}
	if request.Timeout == 0 {
		request.Timeout = h.Defaults.Timeout
	}
	return request
}
