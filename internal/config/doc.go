// Package config loads snout's application configuration.
//
// # Overview
//
// The config file says where snout keeps its files and how it logs. User
// facing settings (account, browsing, display) live in the prefs package
// instead; this file is for the install, not the user.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/snout/config.toml (default)
//  3. If the config file doesn't exist, fall back to hardcoded defaults
//  4. If the file exists but fields are missing/empty, use defaults
//
// # Default Values
//
//   - Config file: ~/.config/snout/config.toml
//   - Data directory: ~/.local/share/snout
//   - Database: <data_dir>/snout.db
//   - Error log: <data_dir>/errors.log
//   - Application log: <data_dir>/logs/snout.log
//   - Preferences: ~/.config/snout/prefs.toml
//   - Sealed credentials: ~/.config/snout/credentials.json
//   - Suggestion server: 127.0.0.1:7621
//
// # TOML Format
//
//	data_dir = "~/.local/share/snout"
//	db_path = "~/.local/share/snout/snout.db"
//	suggest_addr = "127.0.0.1:7621"
//
//	[log]
//	level = "info"
//	file_count = 3
//	file_size_mb = 10
//	keep_days = 7
//	console = false
//
// Every field is optional. Tilde expansion is performed on every path.
//
// # Error Handling
//
// Load returns errors for path expansion failures, unreadable files, and
// TOML parse errors. A missing file is not an error.
package config
