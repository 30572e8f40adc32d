/*
Package scheduling holds time-based job execution built on the
execution-control primitives.

  - scheduler: cron jobs with an overlap policy per job

Task Scheduler:

	s := scheduler.New()
	defer func() { <-s.Stop() }()

	// Weekdays at 09:00; a firing that finds the previous run still busy
	// is folded into one follow-up run.
	s.ScheduleCron("digest", "0 9 * * 1-5", sendDigest, scheduler.Coalesce)
	s.Start()

	// Run it now, through the same overlap policy.
	s.Trigger(ctx, "digest")

All scheduling components are safe for concurrent use and pass a context to
every task.
*/
package scheduling
