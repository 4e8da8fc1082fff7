package models

type InstanceStatus string

const (
	InstanceAbsent  InstanceStatus = "absent"
	InstanceRunning InstanceStatus = "running"
	InstanceStopped InstanceStatus = "stopped"
)

// InstanceStats — best-effort снимок ресурсов контейнера.
type InstanceStats struct {
	MemoryUsage uint64            `json:"memory_usage"`
	MemoryLimit uint64            `json:"memory_limit"`
	CPUUsage    uint64            `json:"cpu_usage"`
	SystemCPU   uint64            `json:"system_cpu"`
	OnlineCPUs  uint32            `json:"online_cpus"`
	RxBytes     uint64            `json:"rx_bytes"`
	TxBytes     uint64            `json:"tx_bytes"`
	Networks    map[string]uint64 `json:"networks,omitempty"`
}
