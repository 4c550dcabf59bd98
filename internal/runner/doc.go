// Package runner drives a loadsweep measurement.
//
// A [Sampler] measures one concurrency level. Every round it starts one
// goroutine per simulated user; each goroutine launches its own
// [browser.Session], times a single navigation to the target and closes the
// session. The round ends when every user has finished, and rounds never
// overlap:
//
//	sampler, err := runner.NewSampler(runner.Options{
//		Target:            "https://example.com",
//		Launcher:          launcher,
//		NavigationTimeout: 30 * time.Second,
//		Reporter:          reporter,
//	})
//	res, err := sampler.Run(ctx, 10, 5) // 10 users, 5 rounds
//
// Failed launches and navigations become a [Failure] handed to the
// [FailureReporter]; they add no sample and never stop the round.
//
// A [Sweep] runs the sampler over an ordered list of levels, prints one
// summary line per level and appends a row to the result log:
//
//	sweep, err := runner.NewSweep(runner.SweepOptions{
//		Sampler: sampler,
//		Log:     resultLog,
//		Stdout:  os.Stdout,
//		Stderr:  os.Stderr,
//	})
//	results, err := sweep.Run(ctx, []int{10, 20, 30}, 5)
//
// A level in which every navigation failed produces a warning instead of a
// row. Only result log write errors and cancellation end a sweep early.
package runner
