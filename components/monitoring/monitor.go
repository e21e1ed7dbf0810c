package monitoring

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/akriventsev/agentapi/framework/component"
	"github.com/akriventsev/agentapi/framework/config"
	"github.com/akriventsev/agentapi/framework/core"
)

// TypeName имя типа компонента мониторинга
const TypeName = "system_monitor"

// Имена публикуемых событий
const (
	EventMetrics = "system.metrics"
	EventAlert   = "system.alert"
)

// SystemMetrics один снимок показателей системы
type SystemMetrics struct {
	CPUPercent    float64
	MemoryPercent float64
	DiskPercent   float64
	Timestamp     time.Time
}

// Collector источник системных показателей. Продуктивная реализация
// читает показатели хоста; тесты подставляют детерминированный источник.
type Collector interface {
	Collect(ctx context.Context) (SystemMetrics, error)
}

// systemCollector собирает показатели хоста через gopsutil
type systemCollector struct {
	diskPath string
}

// NewSystemCollector создает сборщик показателей хоста
func NewSystemCollector(diskPath string) Collector {
	if diskPath == "" {
		diskPath = "/"
	}
	return &systemCollector{diskPath: diskPath}
}

func (s *systemCollector) Collect(ctx context.Context) (SystemMetrics, error) {
	cpuPercents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return SystemMetrics{}, err
	}
	var cpuPercent float64
	if len(cpuPercents) > 0 {
		cpuPercent = cpuPercents[0]
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return SystemMetrics{}, err
	}

	du, err := disk.UsageWithContext(ctx, s.diskPath)
	if err != nil {
		return SystemMetrics{}, err
	}

	return SystemMetrics{
		CPUPercent:    cpuPercent,
		MemoryPercent: vm.UsedPercent,
		DiskPercent:   du.UsedPercent,
		Timestamp:     time.Now(),
	}, nil
}

// alert порог с подавлением повторных срабатываний
type alert struct {
	name          string
	condition     func(SystemMetrics) bool
	lastTriggered time.Time
}

// Monitor периодически собирает показатели системы, хранит ограниченную
// историю, публикует события и проверяет пороговые алерты. Повторное
// срабатывание одного алерта подавляется в течение cooldown.
type Monitor struct {
	rc        component.RuntimeContext
	collector Collector
	interval  time.Duration
	cooldown  time.Duration

	mu      sync.RWMutex
	history []SystemMetrics
	alerts  []*alert

	stop chan struct{}
	done chan struct{}
}

const (
	maxHistory  = 1000
	trimHistory = 500
)

// NewMonitor создает монитор с источником показателей collector
func NewMonitor(rc component.RuntimeContext, collector Collector, interval, cooldown time.Duration) *Monitor {
	m := &Monitor{
		rc:        rc,
		collector: collector,
		interval:  interval,
		cooldown:  cooldown,
	}
	m.alerts = []*alert{
		{name: "high_cpu", condition: func(s SystemMetrics) bool { return s.CPUPercent > 80 }},
		{name: "high_memory", condition: func(s SystemMetrics) bool { return s.MemoryPercent > 85 }},
		{name: "low_disk_space", condition: func(s SystemMetrics) bool { return s.DiskPercent > 90 }},
	}
	return m
}

// Start запускает фоновый цикл сбора
func (m *Monitor) Start() {
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	go m.loop()
}

// Stop останавливает фоновый цикл и дожидается его завершения
func (m *Monitor) Stop() {
	if m.stop == nil {
		return
	}
	close(m.stop)
	<-m.done
	m.stop = nil
}

func (m *Monitor) loop() {
	defer close(m.done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			if err := m.CollectOnce(context.Background()); err != nil {
				logger := m.rc.Logger()
				logger.Warn().Err(err).Msg("metrics collection failed")
			}
		}
	}
}

// CollectOnce выполняет один цикл сбора: снимает показатели, дописывает
// историю, публикует событие и проверяет алерты
func (m *Monitor) CollectOnce(ctx context.Context) error {
	metrics, err := m.collector.Collect(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.history = append(m.history, metrics)
	if len(m.history) > maxHistory {
		m.history = append([]SystemMetrics(nil), m.history[len(m.history)-trimHistory:]...)
	}
	m.mu.Unlock()

	m.rc.Publish(ctx, EventMetrics, core.Params{
		"cpu_percent":    metrics.CPUPercent,
		"memory_percent": metrics.MemoryPercent,
		"disk_percent":   metrics.DiskPercent,
		"timestamp":      metrics.Timestamp.Format(time.RFC3339),
	})

	m.checkAlerts(ctx, metrics)
	return nil
}

func (m *Monitor) checkAlerts(ctx context.Context, metrics SystemMetrics) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for _, a := range m.alerts {
		if !a.condition(metrics) {
			continue
		}
		if !a.lastTriggered.IsZero() && now.Sub(a.lastTriggered) <= m.cooldown {
			continue
		}
		a.lastTriggered = now

		logger := m.rc.Logger()
		logger.Warn().
			Str("alert", a.name).
			Float64("cpu_percent", metrics.CPUPercent).
			Float64("memory_percent", metrics.MemoryPercent).
			Float64("disk_percent", metrics.DiskPercent).
			Msg("system alert triggered")

		m.rc.Publish(ctx, EventAlert, core.Params{
			"alert":          a.name,
			"cpu_percent":    metrics.CPUPercent,
			"memory_percent": metrics.MemoryPercent,
			"disk_percent":   metrics.DiskPercent,
		})
	}
}

// Latest возвращает последний снимок показателей
func (m *Monitor) Latest() (SystemMetrics, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.history) == 0 {
		return SystemMetrics{}, false
	}
	return m.history[len(m.history)-1], true
}

// Summary агрегирует историю за указанный период
func (m *Monitor) Summary(window time.Duration) core.Result {
	cutoff := time.Now().Add(-window)

	m.mu.RLock()
	defer m.mu.RUnlock()

	var (
		count                  int
		sumCPU, sumMem, sumDsk float64
		maxCPU, maxMem         float64
	)
	for _, s := range m.history {
		if !s.Timestamp.After(cutoff) {
			continue
		}
		count++
		sumCPU += s.CPUPercent
		sumMem += s.MemoryPercent
		sumDsk += s.DiskPercent
		if s.CPUPercent > maxCPU {
			maxCPU = s.CPUPercent
		}
		if s.MemoryPercent > maxMem {
			maxMem = s.MemoryPercent
		}
	}

	if count == 0 {
		return core.Result{"sample_count": 0}
	}
	return core.Result{
		"avg_cpu":      sumCPU / float64(count),
		"avg_memory":   sumMem / float64(count),
		"avg_disk":     sumDsk / float64(count),
		"max_cpu":      maxCPU,
		"max_memory":   maxMem,
		"sample_count": count,
	}
}

// Health оценивает состояние по последнему снимку
func (m *Monitor) Health() core.Result {
	latest, ok := m.Latest()

	status := "healthy"
	result := core.Result{}
	if ok {
		switch {
		case latest.CPUPercent > 90 || latest.MemoryPercent > 95 || latest.DiskPercent > 95:
			status = "critical"
		case latest.CPUPercent > 70 || latest.MemoryPercent > 80 || latest.DiskPercent > 80:
			status = "warning"
		}
		result["cpu_percent"] = latest.CPUPercent
		result["memory_percent"] = latest.MemoryPercent
		result["disk_percent"] = latest.DiskPercent
	}
	result["status"] = status
	result["timestamp"] = time.Now().Format(time.RFC3339)
	return result
}

// HealthCheck реализует core.HealthCheckable: критическое состояние
// по последнему снимку считается отказом проверки
func (m *Monitor) HealthCheck(ctx context.Context) error {
	health := m.Health()
	if health["status"] == "critical" {
		return fmt.Errorf("system resources critical: cpu %v%%, memory %v%%, disk %v%%",
			health["cpu_percent"], health["memory_percent"], health["disk_percent"])
	}
	return nil
}

var _ core.HealthCheckable = (*Monitor)(nil)

// constructor строит компонент мониторинга вокруг монитора с указанным
// источником показателей
func constructor(collector func(cfg config.Component) Collector) component.Constructor {
	return func(rc component.RuntimeContext, name string, cfg config.Component) (*component.Component, error) {
		interval := cfg.Duration("interval", 30*time.Second)
		cooldown := cfg.Duration("alert_cooldown", 5*time.Minute)

		monitor := NewMonitor(rc, collector(cfg), interval, cooldown)

		healthCheck := component.NewCapability("health_check",
			func(ctx context.Context, params core.Params) (core.Result, error) {
				return monitor.Health(), nil
			})

		metricsSummary := component.NewCapability("metrics_summary",
			func(ctx context.Context, params core.Params) (core.Result, error) {
				hours := 1
				if v, ok := params.Int("hours"); ok {
					hours = v
				}
				return monitor.Summary(time.Duration(hours) * time.Hour), nil
			}).WithSchema(component.Schema{"hours": component.Optional})

		collectNow := component.NewCapability("collect_now",
			func(ctx context.Context, params core.Params) (core.Result, error) {
				if err := monitor.CollectOnce(ctx); err != nil {
					return nil, err
				}
				latest, _ := monitor.Latest()
				return core.Result{
					"cpu_percent":    latest.CPUPercent,
					"memory_percent": latest.MemoryPercent,
					"disk_percent":   latest.DiskPercent,
				}, nil
			})

		c := component.New(name, TypeName).
			WithCapability(healthCheck).
			WithCapability(metricsSummary).
			WithCapability(collectNow).
			WithInstance(monitor).
			WithInitHook(func(ctx context.Context, c *component.Component) error {
				monitor.Start()
				return nil
			}).
			WithStopHook(func(ctx context.Context, c *component.Component) error {
				monitor.Stop()
				return nil
			})
		return c, nil
	}
}

// Register регистрирует тип компонента с источником показателей хоста
func Register(types *component.TypeRegistry) error {
	return types.Register(TypeName, constructor(func(cfg config.Component) Collector {
		return NewSystemCollector(cfg.String("disk_path", "/"))
	}))
}

// RegisterWithCollector регистрирует тип компонента с внешним
// источником показателей
func RegisterWithCollector(types *component.TypeRegistry, collector Collector) error {
	return types.Register(TypeName, constructor(func(cfg config.Component) Collector {
		return collector
	}))
}
