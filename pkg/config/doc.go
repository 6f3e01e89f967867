// Package config loads wsbridge configuration.
//
// Configuration comes from three layers, later ones overriding earlier ones:
//   - Default values (Default)
//   - A YAML or JSON file (LoadFromFile), chosen by extension
//   - Environment variables prefixed with WSBRIDGE_ (ApplyEnv)
//
// Example file:
//
//	websocket:
//	  port: 8080
//	  tickInterval: 16ms
//	  errorPolicy: observe
//	http:
//	  port: 8001
//	  bindAddress: any
//	log:
//	  level: debug
package config
