// Package config loads runtime configuration for the agrodetect CLI.
//
// Sources, later ones winning: built-in defaults, an optional JSON file
// given with -c or -config, then the flags -a (server URL), -i (online
// check interval, seconds) and -t (request timeout, seconds).
//
//	{
//	  "server_url": "http://127.0.0.1:8080",
//	  "request_timeout": "60s",
//	  "online_check_interval": "5s"
//	}
package config
