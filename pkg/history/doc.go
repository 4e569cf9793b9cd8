/*
Package history remembers which folders a sync has already handled.

	+-----------+        +-----------+
	|   View    |------->|   Store   |
	| (verify)  |        +-----+-----+
	+-----------+              |
	                 +---------+---------+
	                 |                   |
	           +-----+-----+       +-----+------+
	           | FileStore |       | SQLiteStore|
	           |  (JSON)   |       |  (ncruces) |
	           +-----------+       +------------+

🎯 Purpose:
- Keeps one entry per folder with its latest outcome
- Lets a sync skip folders that already succeeded
- Keeps prior successes intact during a verify run until a new outcome lands
- Remembers source deletes that failed so a later `sync delete` can retry them

🔄 Flow:
1. Open loads the configured store; a missing file is an empty history
2. Each outcome is committed and flushed before the next folder starts
3. Close releases the store

⚠️ Concurrency:
A store has a single writer. Running two syncs against the same history is
not supported; wrap the command in flock(1) when a scheduler may overlap runs.

🔍 Example:

	store, err := history.Open(ctx, cfg.History)
	if err != nil {
		return err
	}
	defer store.Close()
	view := history.NewView(store, verify)
	if !view.IsProcessed("2024-03-15_trip") {
		// transfer, then
		err = view.Commit(ctx, history.Entry{Folder: "2024-03-15_trip", Outcome: history.OutcomeSuccess})
	}
*/
package history
