// Package monitoring предоставляет системный мониторинг и экспорт
// метрик диспетчеризации на основе OpenTelemetry.
package monitoring

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/akriventsev/agentapi/framework/runtime"
)

// Metrics сборщик метрик диспетчеризации способностей
type Metrics struct {
	meter             metric.Meter
	executionsTotal   metric.Int64Counter
	executionDuration metric.Float64Histogram
	errorsTotal       metric.Int64Counter
	activeExecutions  metric.Int64UpDownCounter
}

// NewMetrics создает новый сборщик метрик
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter("agentapi")

	executionsTotal, err := meter.Int64Counter(
		"capability_executions_total",
		metric.WithDescription("Total number of capability executions"),
	)
	if err != nil {
		return nil, err
	}

	executionDuration, err := meter.Float64Histogram(
		"capability_execution_duration_seconds",
		metric.WithDescription("Capability execution duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	errorsTotal, err := meter.Int64Counter(
		"capability_errors_total",
		metric.WithDescription("Total number of failed capability executions"),
	)
	if err != nil {
		return nil, err
	}

	activeExecutions, err := meter.Int64UpDownCounter(
		"active_executions",
		metric.WithDescription("Number of capability executions in flight"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		meter:             meter,
		executionsTotal:   executionsTotal,
		executionDuration: executionDuration,
		errorsTotal:       errorsTotal,
		activeExecutions:  activeExecutions,
	}, nil
}

// RecordExecution записывает метрику одного вызова способности
func (m *Metrics) RecordExecution(ctx context.Context, componentID, capability string, duration time.Duration, success bool) {
	attrs := []attribute.KeyValue{
		attribute.String("component", componentID),
		attribute.String("capability", capability),
		attribute.Bool("success", success),
	}

	m.executionsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.executionDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))

	if !success {
		m.errorsTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("component", componentID),
			attribute.String("capability", capability),
		))
	}
}

// IncrementActive увеличивает счетчик выполняемых вызовов
func (m *Metrics) IncrementActive(ctx context.Context) {
	m.activeExecutions.Add(ctx, 1)
}

// DecrementActive уменьшает счетчик выполняемых вызовов
func (m *Metrics) DecrementActive(ctx context.Context) {
	m.activeExecutions.Add(ctx, -1)
}

// ExecutionStarted реализует runtime.ExecutionObserver
func (m *Metrics) ExecutionStarted(componentID, capability string) {
	m.IncrementActive(context.Background())
}

// ExecutionFinished реализует runtime.ExecutionObserver
func (m *Metrics) ExecutionFinished(componentID, capability string, duration time.Duration, err error) {
	ctx := context.Background()
	m.DecrementActive(ctx)
	m.RecordExecution(ctx, componentID, capability, duration, err == nil)
}

var _ runtime.ExecutionObserver = (*Metrics)(nil)
