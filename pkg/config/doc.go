/*
Package config loads the static settings for a shredsync run.

	+-------------+      +-------------+
	| YAML / JSON |      |     HCL     |
	|   Parser    |      |   Parser    |
	+------+------+      +------+------+
	       |                    |
	       +---------+----------+
	                 |
	          +------+------+
	          |   Config    |
	          | (Validate)  |
	          +-------------+

🎯 Purpose:
- Reads the settings file (source, destination, selection, transfer, history, log, umask)
- Fills defaults and rejects contradictory settings
- Parses the positional run arguments (`list`, `sync delete`, `sync nodelete verify`)

A Config is immutable once validated and is handed to each component at
construction; nothing in shredsync reads configuration from globals.

🔍 Example:

	cfg, err := config.LoadConfig(ctx, "shredsync.yaml")
	run, err := config.ParseRunArgs([]string{"sync", "nodelete"})
*/
package config
