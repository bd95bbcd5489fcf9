package config

// HTTPConfig contains the console HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the console to. Loopback by default since
	// the console acts on behalf of a single operator session.
	Addr string `env:"HTTP_ADDR" envDefault:"127.0.0.1:8090"`
}
