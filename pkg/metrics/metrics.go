// Package metrics defines the opencensus measures recorded by batch jobs and
// message delivery. Views are exported by whichever metrics exporter
// pkg/tracing registered.
package metrics

import (
	"context"
	"time"

	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

var (
	KeyJob     = tag.MustNewKey("job")
	KeyOutcome = tag.MustNewKey("outcome")
	KeyChannel = tag.MustNewKey("channel")
)

var (
	JobRuns       = stats.Int64("localboost/job/runs", "Batch job executions", stats.UnitDimensionless)
	JobLatency    = stats.Float64("localboost/job/latency", "Batch job duration", stats.UnitMilliseconds)
	JobItems      = stats.Int64("localboost/job/items", "Records processed by a batch job", stats.UnitDimensionless)
	MessagesSent  = stats.Int64("localboost/messages/sent", "Delivery attempts", stats.UnitDimensionless)
	WebhookEvents = stats.Int64("localboost/billing/webhook_events", "Billing webhook events received", stats.UnitDimensionless)
)

var (
	JobRunsView = &view.View{
		Name:        "localboost/job/runs",
		Measure:     JobRuns,
		Description: "Count of batch job executions by job and outcome",
		TagKeys:     []tag.Key{KeyJob, KeyOutcome},
		Aggregation: view.Count(),
	}
	JobLatencyView = &view.View{
		Name:        "localboost/job/latency",
		Measure:     JobLatency,
		Description: "Distribution of batch job durations",
		TagKeys:     []tag.Key{KeyJob},
		Aggregation: view.Distribution(10, 50, 100, 250, 500, 1000, 2500, 5000, 10000, 30000, 60000),
	}
	JobItemsView = &view.View{
		Name:        "localboost/job/items",
		Measure:     JobItems,
		Description: "Records processed by batch jobs",
		TagKeys:     []tag.Key{KeyJob},
		Aggregation: view.Sum(),
	}
	MessagesSentView = &view.View{
		Name:        "localboost/messages/sent",
		Measure:     MessagesSent,
		Description: "Delivery attempts by channel and outcome",
		TagKeys:     []tag.Key{KeyChannel, KeyOutcome},
		Aggregation: view.Count(),
	}
	WebhookEventsView = &view.View{
		Name:        "localboost/billing/webhook_events",
		Measure:     WebhookEvents,
		Description: "Billing webhook events by outcome",
		TagKeys:     []tag.Key{KeyOutcome},
		Aggregation: view.Count(),
	}
)

// Views lists every view defined here
var Views = []*view.View{JobRunsView, JobLatencyView, JobItemsView, MessagesSentView, WebhookEventsView}

// Register registers all views with opencensus
func Register() error {
	return view.Register(Views...)
}

// RecordJobRun records one execution of a batch job
func RecordJobRun(ctx context.Context, job string, started time.Time, items int, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	elapsed := float64(time.Since(started)) / float64(time.Millisecond)

	_ = stats.RecordWithTags(ctx,
		[]tag.Mutator{tag.Upsert(KeyJob, job), tag.Upsert(KeyOutcome, outcome)},
		JobRuns.M(1))
	_ = stats.RecordWithTags(ctx,
		[]tag.Mutator{tag.Upsert(KeyJob, job)},
		JobLatency.M(elapsed), JobItems.M(int64(items)))
}

// RecordSend records one delivery attempt
func RecordSend(ctx context.Context, channel string, success bool) {
	outcome := "sent"
	if !success {
		outcome = "failed"
	}
	_ = stats.RecordWithTags(ctx,
		[]tag.Mutator{tag.Upsert(KeyChannel, channel), tag.Upsert(KeyOutcome, outcome)},
		MessagesSent.M(1))
}

// RecordWebhookEvent records one billing webhook delivery
func RecordWebhookEvent(ctx context.Context, outcome string) {
	_ = stats.RecordWithTags(ctx,
		[]tag.Mutator{tag.Upsert(KeyOutcome, outcome)},
		WebhookEvents.M(1))
}
