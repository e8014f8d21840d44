package services

import (
	"context"
	"time"

	"strata/internal/logstream"
)

// ServiceState is the coarse lifecycle state of a service.
type ServiceState string

const (
	StateRunning    ServiceState = "running"
	StateStopped    ServiceState = "stopped"
	StateStarting   ServiceState = "starting"
	StateStopping   ServiceState = "stopping"
	StateRestarting ServiceState = "restarting"
	StateError      ServiceState = "error"
	StateUnknown    ServiceState = "unknown"
)

// BackendKind names the mechanism a service runs under.
type BackendKind string

const (
	KindContainer BackendKind = "container"
	KindProcess   BackendKind = "process"
)

// PortMapping is one published port of a service.
type PortMapping struct {
	HostIP        string `json:"hostIP,omitempty" yaml:"hostIP,omitempty"`
	HostPort      int    `json:"hostPort" yaml:"hostPort"`
	ContainerPort int    `json:"containerPort" yaml:"containerPort"`
	Protocol      string `json:"protocol,omitempty" yaml:"protocol,omitempty"`
}

// ServiceDescriptor identifies a service and how to reach its backend.
// Descriptors are immutable once built.
type ServiceDescriptor struct {
	Name string      `json:"name" yaml:"name"`
	Kind BackendKind `json:"kind" yaml:"kind"`

	// RuntimeHandle is the container name or ID (container kind).
	RuntimeHandle string        `json:"runtimeHandle,omitempty" yaml:"runtimeHandle,omitempty"`
	Ports         []PortMapping `json:"ports,omitempty" yaml:"ports,omitempty"`
	DependsOn     []string      `json:"dependsOn,omitempty" yaml:"dependsOn,omitempty"`

	// Process kind.
	Unit       string            `json:"unit,omitempty" yaml:"unit,omitempty"`
	PidFile    string            `json:"pidFile,omitempty" yaml:"pidFile,omitempty"`
	LogFile    string            `json:"logFile,omitempty" yaml:"logFile,omitempty"`
	Artifact   string            `json:"artifact,omitempty" yaml:"artifact,omitempty"`
	Args       []string          `json:"args,omitempty" yaml:"args,omitempty"`
	WorkDir    string            `json:"workDir,omitempty" yaml:"workDir,omitempty"`
	Env        map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
	HealthPort int               `json:"healthPort,omitempty" yaml:"healthPort,omitempty"`
}

// HealthResult is the outcome of a single health check.
type HealthResult struct {
	Healthy bool           `json:"healthy"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// LogRecord is one line of service output.
type LogRecord struct {
	Service   string
	Stream    logstream.StreamType
	Timestamp time.Time // zero unless timestamps were requested and present
	Line      string
}

// DefaultTail is the number of lines returned when LogOptions.Tail is unset.
const DefaultTail = 100

// LogOptions selects which log lines a stream returns.
type LogOptions struct {
	Follow bool
	// Tail is the number of trailing lines; 0 means DefaultTail and a
	// negative value means all lines.
	Tail       int
	Since      time.Time
	Until      time.Time
	Timestamps bool
}

func (o LogOptions) tail() int {
	switch {
	case o.Tail == 0:
		return DefaultTail
	case o.Tail < 0:
		return 0
	default:
		return o.Tail
	}
}

// NetworkIO is the sum of received and transmitted bytes.
type NetworkIO struct {
	RxBytes uint64 `json:"rxBytes"`
	TxBytes uint64 `json:"txBytes"`
}

// DiskIO is the sum of read and written bytes.
type DiskIO struct {
	ReadBytes  uint64 `json:"readBytes"`
	WriteBytes uint64 `json:"writeBytes"`
}

// Stats is a resource usage snapshot. The zero value means "no data".
type Stats struct {
	CPUPercent    float64   `json:"cpuPercent"`
	MemoryUsed    uint64    `json:"memoryUsed"`
	MemoryLimit   uint64    `json:"memoryLimit"`
	MemoryPercent float64   `json:"memoryPercent"`
	Network       NetworkIO `json:"network"`
	Disk          DiskIO    `json:"disk"`
}

// Service is the uniform capability set of one managed service, whatever
// backend runs it.
type Service interface {
	Name() string
	Descriptor() ServiceDescriptor

	// Lifecycle management
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Restart(ctx context.Context) error

	// Status never fails; lookup problems yield StateUnknown.
	Status(ctx context.Context) ServiceState
	// HealthCheck never fails; problems are reported as unhealthy.
	HealthCheck(ctx context.Context) HealthResult
	Logs(ctx context.Context, opts LogOptions) (*LogStream, error)
	// Stats returns the zero value when no data is available.
	Stats(ctx context.Context) Stats
	Exec(ctx context.Context, cmd []string) (string, error)
}
