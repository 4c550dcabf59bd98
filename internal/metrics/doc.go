// Package metrics aggregates page load samples for one concurrency level.
//
// A [Collector] is created per level. Successful navigations are recorded with
// [Collector.RecordSample]; failed ones with [Collector.RecordFailure] and never
// contribute to the mean:
//
//	collector := metrics.NewCollector()
//	collector.RecordSample(elapsed)
//	collector.RecordFailure("navigate", err)
//
//	stats := collector.Stats()
//	if !stats.Empty() {
//		fmt.Println(stats.MeanMs)
//	}
//
// # Statistics
//
// [Stats] carries the sample count, the exact arithmetic mean in milliseconds,
// the observed min and max, and failure counts grouped by kind and by a
// friendly error label (see [FriendlyErrorName]).
//
// # Thread Safety
//
// The Collector guards its state with a mutex; it is safe to record from many
// goroutines.
package metrics
