package api

import (
	"net/http"

	"github.com/safing/occbase/info"
	"github.com/safing/occbase/metrics"
)

func handleMetrics(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	metrics.WriteMetrics(w)
}

func handleInfo(w http.ResponseWriter, _ *http.Request) {
	i := info.GetInfo()
	storages := make([]map[string]string, 0, len(i.Storages))
	for _, s := range i.Storages {
		storages = append(storages, map[string]string{
			"type":    s.Type,
			"module":  s.Module,
			"version": s.Version,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":     i.Name,
		"version":  i.Version,
		"commit":   i.Commit,
		"dirty":    i.Dirty,
		"go":       i.Go,
		"platform": i.Platform,
		"storages": storages,
		"license":  i.License,
	})
}
