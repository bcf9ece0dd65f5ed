package config

import "github.com/caarlos0/env/v6"

type Config struct {
	// HTTP listen port
	Port int `env:"PORT" envDefault:"5250"`

	// Path to the SQLite database file
	DBPath string `env:"DB_PATH" envDefault:"data/geoestate.db"`

	// Optional GeoJSON FeatureCollection of neighborhood boundaries,
	// loaded into the store at startup when set
	NeighborhoodsFile string `env:"NEIGHBORHOODS_FILE"`

	// Hard cap on results returned by a single spatial query
	EngineMaxResults int `env:"ENGINE_MAX_RESULTS" envDefault:"1000"`

	// Interval between periodic engine refreshes from the store, in seconds
	RefreshInterval int `env:"REFRESH_INTERVAL" envDefault:"300"`

	// BatchProcessing configuration
	BatchProcessing struct {
		// Buffered batches the listing queue holds before rejecting pushes
		QueueSize int `env:"BATCH_QUEUE_SIZE" envDefault:"100"`

		// Maximum number of retries for failed batches
		MaxRetries int `env:"BATCH_MAX_RETRIES" envDefault:"3"`

		// Delay between retries in seconds
		RetryDelay int `env:"BATCH_RETRY_DELAY" envDefault:"5"`
	}
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
