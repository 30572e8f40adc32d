// Package scheduler runs tasks on cron schedules with a per-job overlap policy.
//
// Schedules are parsed by github.com/robfig/cron/v3. Expressions take the
// standard five fields, an optional leading seconds field, or a descriptor:
//
//	"*/5 * * * *"     every five minutes
//	"30 0 9 * * 1-5"  09:00:30 on weekdays
//	"@hourly"         at the top of every hour
//	"@every 90s"      every ninety seconds
//
// Basic Usage:
//
//	s := scheduler.New()
//	defer func() { <-s.Stop() }()
//
//	err := s.ScheduleCron("refresh-cache", "*/5 * * * *", refresh, scheduler.Coalesce)
//	if err != nil {
//		return err
//	}
//	s.Start()
//
// Overlap Policies:
//
// A job can fire, or be triggered by hand, while its previous run is still in
// progress. Each job owns a concurrency.Throttler, and its Overlap picks the
// throttler's mode:
//
//   - SkipIfRunning (concurrency.Drop): the new run is dropped and counted as
//     skipped.
//   - Queue (concurrency.Enqueue): every run happens, in firing order.
//   - Restart (concurrency.Replace): the new run starts at once; the outcome
//     of the older one is discarded.
//   - Coalesce (concurrency.KeepLatest): at most one follow-up run is kept.
//
// Trigger runs a job immediately through the same policy, which is handy for
// "run now" buttons and tests.
//
// Errors:
//
// Invalid ids, expressions, and overlap values are reported as
// *errors.ValidationError. Failed runs, including recovered panics, go to
// Config.OnError and, with Debug set, to the log.
//
// Lifecycle:
//
// Stop halts the cron engine, disposes every job's throttler so queued runs
// are discarded, and returns a channel that closes once running tasks have
// returned. A stopped scheduler rejects new jobs and triggers with
// errors.ErrClosed.
//
// Metrics:
//
// NewWithMetrics counts runs in the flowgate_scheduler_runs_total counter by scheduler,
// job, and outcome, and exposes each job's lock and pending gauges.
package scheduler
