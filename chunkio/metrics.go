// Copyright 2019 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package chunkio

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsRegisterer is the registerer on which store metrics are
// registered. It is consulted once, when the first store is created;
// it must be set before then to take effect. A nil registerer
// leaves the metrics unregistered.
var MetricsRegisterer prometheus.Registerer = prometheus.DefaultRegisterer

type storeMetrics struct {
	stores   prometheus.Gauge
	chunks   prometheus.Counter
	bytes    prometheus.Counter
	rawBytes prometheus.Counter
}

var (
	metricsOnce sync.Once
	metricsv    *storeMetrics
)

func metrics() *storeMetrics {
	metricsOnce.Do(func() {
		f := promauto.With(MetricsRegisterer)
		metricsv = &storeMetrics{
			stores: f.NewGauge(prometheus.GaugeOpts{
				Name: "spill_stores_open",
				Help: "Number of open spill stores",
			}),
			chunks: f.NewCounter(prometheus.CounterOpts{
				Name: "spill_chunks_written_total",
				Help: "Number of chunks written to spill stores",
			}),
			bytes: f.NewCounter(prometheus.CounterOpts{
				Name: "spill_bytes_written_total",
				Help: "Number of bytes written to spill files",
			}),
			rawBytes: f.NewCounter(prometheus.CounterOpts{
				Name: "spill_raw_bytes_written_total",
				Help: "Serialized size of chunks written to spill stores, before compression",
			}),
		}
	})
	return metricsv
}
