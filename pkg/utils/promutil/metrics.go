package promutil

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricDesc describes a metric emitted by a custom collector. Labels are
// given per sample, so one descriptor serves every labelled series.
type MetricDesc struct {
	fqName string
	help   string
}

func NewMetricDesc(opts prometheus.Opts) *MetricDesc {
	return &MetricDesc{
		fqName: prometheus.BuildFQName(opts.Namespace, opts.Subsystem, opts.Name),
		help:   opts.Help,
	}
}

func (d *MetricDesc) Desc(labels prometheus.Labels) *prometheus.Desc {
	return prometheus.NewDesc(d.fqName, d.help, nil, labels)
}

func (d *MetricDesc) Counter(value int64, labels prometheus.Labels) prometheus.Metric {
	return prometheus.MustNewConstMetric(d.Desc(labels), prometheus.CounterValue, float64(value))
}

func (d *MetricDesc) Gauge(value float64, labels prometheus.Labels) prometheus.Metric {
	return prometheus.MustNewConstMetric(d.Desc(labels), prometheus.GaugeValue, value)
}

func (d *MetricDesc) GaugeBool(value bool, labels prometheus.Labels) prometheus.Metric {
	v := float64(0)
	if value {
		v = 1
	}
	return d.Gauge(v, labels)
}

func (d *MetricDesc) Seconds(value time.Duration, labels prometheus.Labels) prometheus.Metric {
	return d.Gauge(value.Seconds(), labels)
}

func (d *MetricDesc) Timestamp(value time.Time, labels prometheus.Labels) prometheus.Metric {
	return d.Gauge(float64(value.UnixNano())/1e9, labels)
}

// With returns labels extended by extra, leaving labels untouched.
func With(labels prometheus.Labels, extra prometheus.Labels) prometheus.Labels {
	merged := make(prometheus.Labels, len(labels)+len(extra))
	for k, v := range labels {
		merged[k] = v
	}
	for k, v := range extra {
		merged[k] = v
	}
	return merged
}
