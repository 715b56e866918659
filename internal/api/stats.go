package api

import (
	"net/http"
	"path/filepath"
	"runtime"

	"github.com/klauspost/cpuid/v2"

	"github.com/mcules/ransomguard/internal/metrics"
	"github.com/mcules/ransomguard/internal/model"
)

type hostInfo struct {
	CPU           string   `json:"cpu"`
	Vendor        string   `json:"vendor"`
	PhysicalCores int      `json:"physical_cores"`
	LogicalCores  int      `json:"logical_cores"`
	Features      []string `json:"features"`
	GOOS          string   `json:"goos"`
	GOARCH        string   `json:"goarch"`
}

type statsResponse struct {
	Model   model.Info       `json:"model"`
	Metrics metrics.Snapshot `json:"metrics"`
	History map[string]int64 `json:"history"`
	Host    hostInfo         `json:"host"`
}

func currentHost() hostInfo {
	return hostInfo{
		CPU:           cpuid.CPU.BrandName,
		Vendor:        cpuid.CPU.VendorString,
		PhysicalCores: cpuid.CPU.PhysicalCores,
		LogicalCores:  cpuid.CPU.LogicalCores,
		Features:      cpuid.CPU.FeatureSet(),
		GOOS:          runtime.GOOS,
		GOARCH:        runtime.GOARCH,
	}
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	counts, err := h.History.CountByLabel(r.Context())
	if err != nil {
		h.logger().Warn("count predictions", "err", err)
		counts = map[string]int64{}
	}

	var snap metrics.Snapshot
	if h.Metrics != nil {
		snap = h.Metrics.Snapshot()
	}

	writeJSON(w, http.StatusOK, statsResponse{
		Model:   h.Dispatcher.Describe(),
		Metrics: snap,
		History: counts,
		Host:    currentHost(),
	})
}

func (h *Handler) index(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, filepath.Join(h.StaticDir, "index.html"))
}
