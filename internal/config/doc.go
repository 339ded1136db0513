// Package config handles configuration loading for the rokuo admin console.
//
// # Overview
//
// Configuration is loaded from YAML files with environment variable expansion.
// The package provides validation and sensible defaults.
//
// # Environment Variable Expansion
//
// Configuration values can reference environment variables:
//
//	backend:
//	  anon_key: "${ROKUO_BACKEND_ANON_KEY}"
//
// Syntax: ${VAR_NAME}
//
// # Configuration Sections
//
// Application display settings:
//
//	app:
//	  name: "StreamRokuo Admin"
//
// Console server:
//
//	server:
//	  http_addr: "0.0.0.0:8080"
//	  session_ttl: "12h"
//
// Managed backend:
//
//	backend:
//	  url: "https://backend.example.com"       # auth + REST base
//	  anon_key: "${ROKUO_BACKEND_ANON_KEY}"
//	  api_url: "https://api.example.com"       # bespoke admin API (defaults to url)
//
// Tailscale:
//
//	tailscale:
//	  enabled: false
//	  hostname: "rokuo-admin"
//	  auth_key: "${TS_AUTHKEY}"
//
// Logging:
//
//	logging:
//	  level: "info"   # debug, info, warn, error
//	  format: "text"  # text, json
package config
