// Command mlctl administers a media library database from the shell.
//
// It creates users and libraries, controls which users may play which
// libraries, adds probed media files to the catalog and maintains the
// transcode cache.
//
// Usage:
//
//	mlctl <command> [arguments]
//
// Commands:
//
//	adduser [-admin] <username>   Create a user. Prompts for the password twice.
//	passwd <username>             Set a password. The user's sessions end.
//	addlibrary <name> <root>      Register a library rooted at a directory.
//	grant <username> <library>    Allow a user to play media in a library.
//	revoke <username> <library>   Withdraw that permission.
//	add <library> <file>...       Run ffprobe on each file and upsert it into
//	                              the catalog. Files must be under the
//	                              library root.
//	sweep                         Delete partial cache files left by a crash.
//	status                        Print users, libraries, media and cache size.
//
// Environment:
//
//	DATABASE_DIR - Path to database directory (default: /database)
//	CACHE_DIR    - Path to cache directory (default: /cache)
//	FFPROBE_PATH - ffprobe binary (default: ffprobe)
//
// Admins can play every library without a grant. Run sweep only while the
// server is stopped; it cannot see the server's fills in progress. The
// server sweeps on start as well.
package main
