// Package collect runs a fixed battery of kubectl assessment commands
// against a cluster and archives the raw output. Each run produces one
// flat text file per command plus a comprehensive JSON report, and is
// recorded in a SQLite index so past runs can be listed. Output
// directories are guarded by a file lock so concurrent collectors do not
// interleave their files.
package collect
