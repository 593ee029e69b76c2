package telemetry

// OrderServiceConfig is the telemetry configuration for the order service
var OrderServiceConfig = Config{
	ServiceName:    "order-service",
	ServiceVersion: "1.0.0",
}

// NewConfigForService creates a new telemetry config for a custom service
func NewConfigForService(serviceName, version, otlpEndpoint string) Config {
	return Config{
		ServiceName:    serviceName,
		ServiceVersion: version,
		OTLPEndpoint:   otlpEndpoint,
	}
}

// WithOTLPEndpoint sets the OTLP endpoint for a config
func (c Config) WithOTLPEndpoint(endpoint string) Config {
	c.OTLPEndpoint = endpoint
	return c
}

// WithEnvironment tags the config with the deployment environment
func (c Config) WithEnvironment(env string) Config {
	c.Environment = env
	return c
}
