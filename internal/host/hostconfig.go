package host

import (
	"fmt"
	"os"
	"runtime"
	"strings"
	"sync"

	"cpu-verify/internal/logging"

	"github.com/intel/goresctrl/pkg/rdt"
	"github.com/prometheus/procfs"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// HostConfig describes the machine a run executes on.
// It is initialized once at startup and recorded in the run's sysinfo folder.
type HostConfig struct {
	CPUVendor     string `yaml:"cpu_vendor"`
	CPUModel      string `yaml:"cpu_model"`
	LogicalCPUs   int    `yaml:"logical_cpus"`
	NumSockets    int    `yaml:"sockets"`
	Hostname      string `yaml:"hostname"`
	OSInfo        string `yaml:"os_info"`
	KernelVersion string `yaml:"kernel_version"`

	RDT RDTConfig `yaml:"rdt"`
}

type RDTConfig struct {
	Supported          bool                `yaml:"supported"`
	MonitoringFeatures map[string][]string `yaml:"monitoring_features,omitempty"`
}

var (
	globalHostConfig *HostConfig
	hostConfigOnce   sync.Once
	hostConfigErr    error
)

// GetHostConfig returns the global host configuration, initializing it on
// first call.
func GetHostConfig() (*HostConfig, error) {
	hostConfigOnce.Do(func() {
		globalHostConfig, hostConfigErr = initializeHostConfig()
	})
	return globalHostConfig, hostConfigErr
}

func initializeHostConfig() (*HostConfig, error) {
	logger := logging.GetLogger()

	config := &HostConfig{}

	if err := config.initSystemInfo(); err != nil {
		return nil, fmt.Errorf("failed to initialize system info: %w", err)
	}

	config.initCPUInfo(procfs.DefaultMountPoint)

	if err := config.initRDTInfo(); err != nil {
		logger.WithError(err).Debug("RDT not available on this host")
		config.RDT.Supported = false
	}

	logger.WithFields(logrus.Fields{
		"cpu_model":     config.CPUModel,
		"logical_cpus":  config.LogicalCPUs,
		"sockets":       config.NumSockets,
		"kernel":        config.KernelVersion,
		"rdt_supported": config.RDT.Supported,
	}).Info("Host configuration initialized")

	return config, nil
}

func (hc *HostConfig) initSystemInfo() error {
	hostname, err := os.Hostname()
	if err != nil {
		return fmt.Errorf("failed to get hostname: %w", err)
	}
	hc.Hostname = hostname
	hc.OSInfo = runtime.GOOS + "/" + runtime.GOARCH

	hc.KernelVersion = kernelRelease()
	if hc.KernelVersion == "" {
		hc.KernelVersion = "unknown"
	}
	return nil
}

// releaseFromProcVersion picks the release out of a /proc/version line
// ("Linux version 6.8.0-45-generic ...").
func releaseFromProcVersion(data string) string {
	fields := strings.Fields(data)
	if len(fields) >= 3 && fields[1] == "version" {
		return fields[2]
	}
	return ""
}

func (hc *HostConfig) initCPUInfo(procRoot string) {
	hc.LogicalCPUs = runtime.NumCPU()
	if hc.LogicalCPUs < 1 {
		hc.LogicalCPUs = 1
	}
	hc.CPUVendor = "unknown"
	hc.CPUModel = "unknown"
	hc.NumSockets = 1

	fs, err := procfs.NewFS(procRoot)
	if err != nil {
		return
	}
	infos, err := fs.CPUInfo()
	if err != nil {
		logging.GetLogger().WithError(err).Debug("Failed to read cpuinfo")
		return
	}
	hc.applyCPUInfo(infos)
}

func (hc *HostConfig) applyCPUInfo(infos []procfs.CPUInfo) {
	if len(infos) == 0 {
		return
	}
	if infos[0].VendorID != "" {
		hc.CPUVendor = infos[0].VendorID
	}
	if infos[0].ModelName != "" {
		hc.CPUModel = infos[0].ModelName
	}

	sockets := lo.Uniq(lo.FilterMap(infos, func(info procfs.CPUInfo, _ int) (string, bool) {
		return info.PhysicalID, info.PhysicalID != ""
	}))
	if len(sockets) > 0 {
		hc.NumSockets = len(sockets)
	}
}

func (hc *HostConfig) initRDTInfo() error {
	if err := rdt.Initialize(""); err != nil {
		return err
	}
	hc.RDT.Supported = rdt.MonSupported()
	if !hc.RDT.Supported {
		return nil
	}

	hc.RDT.MonitoringFeatures = make(map[string][]string)
	for resource, features := range rdt.GetMonFeatures() {
		hc.RDT.MonitoringFeatures[string(resource)] = features
	}
	return nil
}

// WriteYAML records the host description, used for the run's sysinfo folder.
func (hc *HostConfig) WriteYAML(path string) error {
	data, err := yaml.Marshal(hc)
	if err != nil {
		return fmt.Errorf("failed to marshal host config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write host config %s: %w", path, err)
	}
	return nil
}
