// Package config provides configuration loading for the console core.
//
// The configuration is stored in cryoconsole.json. Every key can be
// overridden from the environment with the CRYOCONSOLE_ prefix, nested keys
// joined by underscores (CRYOCONSOLE_BACKEND_URL, CRYOCONSOLE_LOG_LEVEL).
//
// # Configuration File Structure
//
//	{
//	  "backend": { "url": "https://cryostat.example.com:8181" },
//	  "http": {
//	    "timeout": "30s",
//	    "retry_max": 2,
//	    "retry_wait_min": "1s",
//	    "retry_wait_max": "5s",
//	    "skip_tls_verify": false
//	  },
//	  "session": { "debounce_window": "100ms" },
//	  "notifications": {
//	    "reconnect_interval": "5s",
//	    "handshake_timeout": "0s"
//	  },
//	  "credentials": { "path": "", "ttl": "24h" },
//	  "log": { "level": "info", "format": "text", "file": "" },
//	  "status": { "address": "" },
//	  "tracing": { "enabled": false, "tracer_name": "cryoconsole" }
//	}
//
// # Usage
//
//	cfg, err := config.Load(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Backend:", cfg.Backend.URL)
package config
