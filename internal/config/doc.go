// Package config provides configuration parsing for the vtree command.
//
// The configuration is stored in vtree.json in the working directory.
// Every field is optional; command line flags override what it sets.
// This package handles loading, saving, and validating configuration.
//
// # Configuration File Structure
//
//	{
//	  "log": {
//	    "level": "info"
//	  },
//	  "diff": {
//	    "format": "text",
//	    "color": "auto"
//	  },
//	  "apply": {
//	    "strictRegistry": false,
//	    "slowUpdate": "16ms"
//	  },
//	  "watch": {
//	    "listen": "localhost:7070",
//	    "debounce": "100ms",
//	    "heartbeat": "20s",
//	    "maxLag": 32,
//	    "sendBuffer": 64,
//	    "metrics": true
//	  }
//	}
//
// # Usage
//
//	cfg, err := config.LoadOrDefault(".")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Listen:", cfg.Watch.Listen)
package config
