package collector

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/sensors"

	"pulse/internal/models"
)

const bytesPerMB = 1024 * 1024

// HostCollector reads host counters and turns them into one MetricSample.
// Every sub-reading runs under a bounded timeout; a failed sub-reading
// degrades that field to zero and is logged, it never aborts the whole
// sample. The reader funcs are swappable in tests.
type HostCollector struct {
	log         *slog.Logger
	readTimeout time.Duration
	diskPath    string

	cpuPercent   func(ctx context.Context, interval time.Duration, percpu bool) ([]float64, error)
	virtualMem   func(ctx context.Context) (*mem.VirtualMemoryStat, error)
	diskUsage    func(ctx context.Context, path string) (*disk.UsageStat, error)
	netCounters  func(ctx context.Context, pernic bool) ([]net.IOCountersStat, error)
	temperatures func(ctx context.Context) ([]sensors.TemperatureStat, error)
}

func NewHostCollector(readTimeout time.Duration, logger *slog.Logger) *HostCollector {
	if readTimeout <= 0 {
		readTimeout = 5 * time.Second
	}
	return &HostCollector{
		log:          logger,
		readTimeout:  readTimeout,
		diskPath:     "/",
		cpuPercent:   cpu.PercentWithContext,
		virtualMem:   mem.VirtualMemoryWithContext,
		diskUsage:    disk.UsageWithContext,
		netCounters:  net.IOCountersWithContext,
		temperatures: sensors.TemperaturesWithContext,
	}
}

// Collect produces a sample stamped with the current UTC time. Only when
// every counter read fails (the OS metric API is unavailable) does the whole
// sample fail; the scheduler retries on the next tick.
func (h *HostCollector) Collect(ctx context.Context) (models.MetricSample, error) {
	sample := models.MetricSample{TS: time.Now().UTC()}
	failed := 0

	if cpuPct, err := h.readCPU(ctx); err != nil {
		h.log.Warn("read cpu", "err", err)
		failed++
	} else {
		sample.CPUPct = cpuPct
	}
	if ramPct, err := h.readRAM(ctx); err != nil {
		h.log.Warn("read memory", "err", err)
		failed++
	} else {
		sample.RAMPct = ramPct
	}
	if diskPct, err := h.readDisk(ctx); err != nil {
		h.log.Warn("read disk", "err", err)
		failed++
	} else {
		sample.DiskPct = diskPct
	}
	if sentMB, recvMB, err := h.readNet(ctx); err != nil {
		h.log.Warn("read network counters", "err", err)
		failed++
	} else {
		sample.NetSentMB = sentMB
		sample.NetRecvMB = recvMB
	}
	if failed == 4 {
		return models.MetricSample{}, fmt.Errorf("host counters unavailable")
	}
	sample.CPUTempC = h.readCPUTemp(ctx)
	return sample, nil
}

func (h *HostCollector) readCPU(ctx context.Context) (float64, error) {
	tctx, cancel := context.WithTimeout(ctx, h.readTimeout)
	defer cancel()
	vals, err := h.cpuPercent(tctx, 0, false)
	if err != nil {
		return 0, err
	}
	if len(vals) == 0 {
		return 0, fmt.Errorf("no cpu usage reported")
	}
	return clampPct(vals[0]), nil
}

func (h *HostCollector) readRAM(ctx context.Context) (float64, error) {
	tctx, cancel := context.WithTimeout(ctx, h.readTimeout)
	defer cancel()
	vm, err := h.virtualMem(tctx)
	if err != nil {
		return 0, err
	}
	return clampPct(vm.UsedPercent), nil
}

func (h *HostCollector) readDisk(ctx context.Context) (float64, error) {
	tctx, cancel := context.WithTimeout(ctx, h.readTimeout)
	defer cancel()
	usage, err := h.diskUsage(tctx, h.diskPath)
	if err != nil {
		return 0, err
	}
	return clampPct(usage.UsedPercent), nil
}

func (h *HostCollector) readNet(ctx context.Context) (sentMB, recvMB float64, err error) {
	tctx, cancel := context.WithTimeout(ctx, h.readTimeout)
	defer cancel()
	counters, err := h.netCounters(tctx, false)
	if err != nil {
		return 0, 0, err
	}
	if len(counters) == 0 {
		return 0, 0, fmt.Errorf("no network counters reported")
	}
	return float64(counters[0].BytesSent) / bytesPerMB, float64(counters[0].BytesRecv) / bytesPerMB, nil
}

// readCPUTemp returns nil when the host exposes no usable sensor. Hosts
// without sensors are common, so the miss is logged at debug level only.
func (h *HostCollector) readCPUTemp(ctx context.Context) *float64 {
	tctx, cancel := context.WithTimeout(ctx, h.readTimeout)
	defer cancel()
	stats, err := h.temperatures(tctx)
	if err != nil {
		h.log.Debug("read temperature sensors", "err", err)
		return nil
	}
	return pickCPUTemp(stats)
}

func pickCPUTemp(stats []sensors.TemperatureStat) *float64 {
	var fallback *float64
	for i := range stats {
		s := stats[i]
		if s.Temperature <= 0 {
			continue
		}
		key := strings.ToLower(s.SensorKey)
		if strings.Contains(key, "coretemp") || strings.Contains(key, "k10temp") ||
			strings.Contains(key, "cpu_thermal") || strings.Contains(key, "cpu") {
			t := s.Temperature
			return &t
		}
		if fallback == nil {
			t := s.Temperature
			fallback = &t
		}
	}
	return fallback
}

func clampPct(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
