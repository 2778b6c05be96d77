// Package config loads the socketd server configuration.
//
// Configuration comes from three layers, later layers winning:
//
//  1. Built-in defaults (see Default)
//  2. A YAML file
//  3. SOCKETD_* environment variables
//
// Command-line flags are applied by the caller on top of the loaded value. Once
// the server starts, the configuration is treated as immutable.
//
// # Configuration File Location
//
// Without --config the file is looked up in platform-appropriate locations:
//   - Linux: $XDG_CONFIG_HOME/socketd/config.yaml or $HOME/.config/socketd/config.yaml
//   - macOS: $HOME/.config/socketd/config.yaml
//   - Windows: %LOCALAPPDATA%\socketd\config.yaml
//
// A missing default file is not an error; a missing explicit file is.
//
// # Example
//
//	host: 0.0.0.0
//	client_port: 9000
//	admin_port: 9001
//	max_clients: 200
//	rate_limit:
//	  messages: 20
//	  per_seconds: 10
//	broadcast:
//	  recipients: all
//	auth:
//	  mode: token
//	  store: redis
//	  redis:
//	    addr: 127.0.0.1:6379
//	    key_prefix: "socketd:token:"
//	log:
//	  level: info
//	  channel: stdout
//
// # Security
//
// Secrets such as the JWT signing key or database passwords may be placed in
// the file, so it is written with user-only permissions (0600).
package config
