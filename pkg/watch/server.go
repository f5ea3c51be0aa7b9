package watch

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/vtree/pkg/render"
	"github.com/vango-dev/vtree/pkg/treejson"
)

// NewServer returns the HTTP surface of a hub:
//
//	GET /tree       latest tree as an HTML page
//	GET /tree.json  latest tree as a treejson Document
//	GET /ws         websocket follow stream
//	GET /metrics    Prometheus metrics from gatherer, when non-nil
//	GET /healthz    liveness
func NewServer(hub *Hub, gatherer prometheus.Gatherer) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Get("/tree", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		rd := render.NewRenderer(render.RendererConfig{Pretty: true, Listeners: true})
		page := render.PageData{Title: "vtree " + hub.TreeID(), Body: hub.Tree()}
		if err := rd.RenderPage(w, page); err != nil {
			hub.cfg.Logger.Error("render failed", "error", err)
		}
	})

	r.Get("/tree.json", func(w http.ResponseWriter, _ *http.Request) {
		data, err := treejson.EncodeJSON(hub.Tree())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	r.Handle("/ws", hub)

	if gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	}
	return r
}
