// SPDX-License-Identifier: MIT
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Business metrics
	storiesArchivedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "litkeeper_stories_archived_total",
		Help: "Total number of stories successfully archived as EPUB",
	})

	pagesFetchedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "litkeeper_pages_fetched_total",
		Help: "Story pages fetched by outcome",
	}, []string{"outcome"}) // outcome=success|error|cached

	chaptersCollected = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "litkeeper_chapters_per_story",
		Help:    "Chapters collected per archived story",
		Buckets: []float64{1, 2, 3, 5, 10, 20, 50},
	})

	jobFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "litkeeper_job_failures_total",
		Help: "Total number of archive job failures by stage",
	}, []string{"stage"}) // stage=fetch|cover|epub|index|notify

	jobDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "litkeeper_job_duration_seconds",
		Help:    "End-to-end duration of archive jobs",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})

	jobsInFlight = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "litkeeper_jobs_in_flight",
		Help: "Archive jobs currently running",
	})

	epubBytesWritten = promauto.NewCounter(prometheus.CounterOpts{
		Name: "litkeeper_epub_bytes_written_total",
		Help: "Total bytes of EPUB output written",
	})

	notificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "litkeeper_notifications_total",
		Help: "Telegram notifications sent by outcome",
	}, []string{"outcome"}) // outcome=success|error

	// Cache metrics
	cacheOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "litkeeper_cache_ops_total",
		Help: "Page cache operations by result",
	}, []string{"op"}) // op=hit|miss|set
)

func IncStoryArchived()            { storiesArchivedTotal.Inc() }
func IncPageFetched(outcome string) { pagesFetchedTotal.WithLabelValues(outcome).Inc() }
func ObserveChapters(n int)        { chaptersCollected.Observe(float64(n)) }
func IncJobFailure(stage string)   { jobFailuresTotal.WithLabelValues(stage).Inc() }
func ObserveJobDuration(sec float64) { jobDurationSeconds.Observe(sec) }
func IncNotification(outcome string) { notificationsTotal.WithLabelValues(outcome).Inc() }
func AddEPUBBytes(n int64)         { epubBytesWritten.Add(float64(n)) }
func IncCacheOp(op string)         { cacheOpsTotal.WithLabelValues(op).Inc() }

// JobStarted marks a job as running; the returned func marks it finished.
func JobStarted() func() {
	jobsInFlight.Inc()
	return jobsInFlight.Dec
}
