/*
Package operation implements the runs shredsync can perform.

	+-------------+
	|  Operation  |
	| (list/sync) |
	+------+------+
	       |
	+------+------+------+------+
	|      |             |      |
	scan  select     transfer  history

🎯 Purpose:
- Lists the folders a run would pick up
- Syncs eligible folders: transfer, optional source delete, record
- Collapses accidental X/X nesting in the destination

🔄 Flow (sync):
1. Scan the source through the catalog
2. Filter by threshold or window
3. Skip folders the history marks processed, unless verifying
4. Per folder, transfer, delete when asked, then record and flush
5. Report every outcome; failures never stop the run

⚡ Guarantees:
- A failed transfer never deletes the source
- A folder's outcome is durable before the next folder starts
- list never writes to the history

🔍 Example:

	op, err := operation.NewSyncOperation(opts, config.RunArgs{Mode: config.ModeSync, Delete: true})
	if err != nil {
		return err
	}
	if err := operation.NewRunner(logger, false).Run(ctx, op); err != nil {
		return err
	}
	return op.Report().Err()
*/
package operation
