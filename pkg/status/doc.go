/*
Package status collects the per-folder outcomes of a run and presents them.

	            +-------------+
	            |   Report    |
	            |  (outcomes) |
	            +------+------+
	                   |
	      +------------+-----------+
	      |                        |
	+-----+------+           +-----+-----+
	|  Summary   |           |  Console  |
	|  (counts)  |           |  (lines)  |
	+------------+           +-----------+

🎯 Purpose:
- Records what happened to every eligible folder
- Tallies successes, failures, delete failures and skips
- Tells "nothing was eligible" apart from "everything failed"
- Renders colored per-folder lines and a summary for the console

🔄 Flow:
1. The operation reports scan and selection sizes
2. Each folder outcome is tracked as it finishes
3. The summary decides the exit status of the run

🤝 Interfaces:
- Formatter: turns outcomes and progress into log messages

🔍 Example:

	report := status.NewReport(status.ModeSync, logger)
	report.SetScan(len(scan.Records), len(scan.Warnings))
	report.Track(ctx, status.FolderOutcome{Folder: "A", Status: status.StatusTransferred})
	if err := report.Err(); err != nil {
		os.Exit(1)
	}
*/
package status
