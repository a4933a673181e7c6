// Package ops samples host and content metrics for the admin ops panel and
// streams them to connected admins.
package ops

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"salterio-site/internal/backend"
	"salterio-site/internal/intake"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

const MaxHistory = 500

type Sample struct {
	CapturedAt        time.Time `json:"capturedAt"`
	ProcessRSSBytes   int64     `json:"processRssBytes"`
	SystemMemoryTotal int64     `json:"systemMemoryTotalBytes"`
	SystemMemoryUsed  int64     `json:"systemMemoryUsedBytes"`
	DiskTotalBytes    int64     `json:"diskTotalBytes"`
	DiskUsedBytes     int64     `json:"diskUsedBytes"`
	ProcessCPULoad    float64   `json:"processCpuLoad"`
	SystemCPULoad     float64   `json:"systemCpuLoad"`
	Events            int       `json:"eventsCount"`
	Gallery           int       `json:"galleryCount"`
	Members           int       `json:"membersCount"`
	OpenEnquiries     int       `json:"openEnquiriesCount"`
}

type HostStats struct {
	ProcessRSSBytes   int64
	SystemMemoryTotal int64
	SystemMemoryUsed  int64
	DiskTotalBytes    int64
	DiskUsedBytes     int64
	ProcessCPULoad    float64
	SystemCPULoad     float64
}

// ReadHost reads process and system usage. Any probe that fails reports
// zero; a missing diskPath falls back to "/".
func ReadHost(diskPath string) HostStats {
	var st HostStats
	if memStat, err := mem.VirtualMemory(); err == nil {
		st.SystemMemoryTotal = int64(memStat.Total)
		st.SystemMemoryUsed = int64(memStat.Total - memStat.Available)
	}
	diskStat, err := disk.Usage(diskPath)
	if err != nil {
		diskStat, err = disk.Usage("/")
	}
	if err == nil {
		st.DiskTotalBytes = int64(diskStat.Total)
		st.DiskUsedBytes = int64(diskStat.Used)
	}
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if rss, err := proc.MemoryInfo(); err == nil && rss != nil {
			st.ProcessRSSBytes = int64(rss.RSS)
		}
		if pct, err := proc.CPUPercent(); err == nil {
			st.ProcessCPULoad = pct / 100.0
		}
	}
	if sysCPU, err := cpu.Percent(0, false); err == nil && len(sysCPU) > 0 {
		st.SystemCPULoad = sysCPU[0] / 100.0
	}
	return st
}

type Collector struct {
	rows     backend.RowStore
	diskPath string
	host     func(diskPath string) HostStats
	now      func() time.Time
	log      *slog.Logger
}

func NewCollector(rows backend.RowStore, diskPath string, log *slog.Logger) *Collector {
	if log == nil {
		log = slog.Default()
	}
	return &Collector{rows: rows, diskPath: diskPath, host: ReadHost, now: time.Now, log: log}
}

// Capture takes one sample and stores it.
func (c *Collector) Capture(ctx context.Context) (Sample, error) {
	h := c.host(c.diskPath)
	s := Sample{
		CapturedAt:        c.now().UTC(),
		ProcessRSSBytes:   h.ProcessRSSBytes,
		SystemMemoryTotal: h.SystemMemoryTotal,
		SystemMemoryUsed:  h.SystemMemoryUsed,
		DiskTotalBytes:    h.DiskTotalBytes,
		DiskUsedBytes:     h.DiskUsedBytes,
		ProcessCPULoad:    h.ProcessCPULoad,
		SystemCPULoad:     h.SystemCPULoad,
	}

	counts := []struct {
		table   string
		filters []backend.Filter
		dst     *int
	}{
		{backend.TableEvents, nil, &s.Events},
		{backend.TableGallery, nil, &s.Gallery},
		{backend.TableMembers, nil, &s.Members},
		{backend.TableEnquiries, []backend.Filter{backend.Eq("status", intake.StatusOpen)}, &s.OpenEnquiries},
	}
	for _, cnt := range counts {
		n, err := c.rows.Count(ctx, cnt.table, cnt.filters)
		if err != nil {
			return Sample{}, fmt.Errorf("count %s: %w", cnt.table, err)
		}
		*cnt.dst = n
	}

	_, err := c.rows.Insert(ctx, backend.TableMetricSamples, backend.Row{
		"captured_at":               s.CapturedAt,
		"process_rss_bytes":         s.ProcessRSSBytes,
		"system_memory_total_bytes": s.SystemMemoryTotal,
		"system_memory_used_bytes":  s.SystemMemoryUsed,
		"disk_total_bytes":          s.DiskTotalBytes,
		"disk_used_bytes":           s.DiskUsedBytes,
		"process_cpu_load":          s.ProcessCPULoad,
		"system_cpu_load":           s.SystemCPULoad,
		"events_count":              s.Events,
		"gallery_count":             s.Gallery,
		"members_count":             s.Members,
		"open_enquiries_count":      s.OpenEnquiries,
	})
	if err != nil {
		return Sample{}, err
	}
	return s, nil
}

// History returns up to limit of the latest samples, oldest first.
func (c *Collector) History(ctx context.Context, limit int) ([]Sample, error) {
	if limit <= 0 {
		limit = 120
	}
	if limit > MaxHistory {
		limit = MaxHistory
	}
	rows, err := c.rows.Select(ctx, backend.TableMetricSamples,
		backend.Query{}.OrderBy("captured_at", false).Between(0, limit-1))
	if err != nil {
		return nil, err
	}
	items := make([]Sample, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		items = append(items, sampleFromRow(rows[i]))
	}
	return items, nil
}

func sampleFromRow(r backend.Row) Sample {
	return Sample{
		CapturedAt:        r.Time("captured_at"),
		ProcessRSSBytes:   int64(r.Int("process_rss_bytes")),
		SystemMemoryTotal: int64(r.Int("system_memory_total_bytes")),
		SystemMemoryUsed:  int64(r.Int("system_memory_used_bytes")),
		DiskTotalBytes:    int64(r.Int("disk_total_bytes")),
		DiskUsedBytes:     int64(r.Int("disk_used_bytes")),
		ProcessCPULoad:    r.Float("process_cpu_load"),
		SystemCPULoad:     r.Float("system_cpu_load"),
		Events:            r.Int("events_count"),
		Gallery:           r.Int("gallery_count"),
		Members:           r.Int("members_count"),
		OpenEnquiries:     r.Int("open_enquiries_count"),
	}
}

// Run captures a sample every interval and hands it to publish until ctx is
// done. Failed captures are logged and skipped.
func (c *Collector) Run(ctx context.Context, interval time.Duration, publish func(Sample)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			sample, err := c.Capture(ctx)
			if err != nil {
				c.log.Error("metrics capture failed", "error", err)
				continue
			}
			publish(sample)
		case <-ctx.Done():
			return
		}
	}
}
