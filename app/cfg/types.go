package cfg

type Cfg struct {
	// Database configuration
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// Application configuration
	PlacesDir         string
	Port              string
	WorkerCount       int
	SchedulerInterval int
	LockSweepInterval int
	APIAccessKey      string

	// External provider configuration
	WikipediaBaseURL string
	FetchTimeout     int

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}
