package service

import (
	"context"

	"github.com/bytedance/sonic"

	"botfleet/internal/models"
	"botfleet/pkg/logger"
)

// Stats — best-effort снимок ресурсов контейнера. Никогда не паникует
// и не возвращает ошибку: при любом сбое просто nil.
func (m *Manager) Stats(ctx context.Context, instanceID string) *models.InstanceStats {
	reader, err := m.docker.ContainerStatsOneShot(ctx, instanceID)
	if err != nil {
		logger.Warn("[ORCH] stats %s: %v", instanceID, err)
		return nil
	}
	defer reader.Body.Close()

	var raw struct {
		MemoryStats struct {
			Usage uint64 `json:"usage"`
			Limit uint64 `json:"limit"`
		} `json:"memory_stats"`
		CPUStats struct {
			CPUUsage struct {
				TotalUsage uint64 `json:"total_usage"`
			} `json:"cpu_usage"`
			SystemUsage uint64 `json:"system_cpu_usage"`
			OnlineCPUs  uint32 `json:"online_cpus"`
		} `json:"cpu_stats"`
		Networks map[string]struct {
			RxBytes uint64 `json:"rx_bytes"`
			TxBytes uint64 `json:"tx_bytes"`
		} `json:"networks"`
	}
	if err := sonic.ConfigDefault.NewDecoder(reader.Body).Decode(&raw); err != nil {
		logger.Warn("[ORCH] разбор stats %s: %v", instanceID, err)
		return nil
	}

	st := &models.InstanceStats{
		MemoryUsage: raw.MemoryStats.Usage,
		MemoryLimit: raw.MemoryStats.Limit,
		CPUUsage:    raw.CPUStats.CPUUsage.TotalUsage,
		SystemCPU:   raw.CPUStats.SystemUsage,
		OnlineCPUs:  raw.CPUStats.OnlineCPUs,
	}
	if len(raw.Networks) > 0 {
		st.Networks = make(map[string]uint64, len(raw.Networks))
		for name, n := range raw.Networks {
			st.RxBytes += n.RxBytes
			st.TxBytes += n.TxBytes
			st.Networks[name] = n.RxBytes + n.TxBytes
		}
	}
	return st
}
