package models

// MConfig Structure
type MConfig struct {
	Name     string          `yaml:"name"`
	Host     string          `yaml:"host"`
	Port     int             `yaml:"port"`
	LogLevel string          `yaml:"log_level"`
	Provider MProviderConfig `yaml:"provider"`
	Storage  MStorageConfig  `yaml:"storage"`
	Network  MNetworkConfig  `yaml:"network"`
	Worker   MWorkerConfig   `yaml:"worker"`
	Jobs     []MJobConfig    `yaml:"jobs"`
}

type MProviderConfig struct {
	Scheme    string `yaml:"scheme"`
	Host      string `yaml:"host"`
	AuthToken string `yaml:"auth_token"` // normally injected from the environment
}

type MStorageConfig struct {
	DBType             string `yaml:"db_type"`
	DBPath             string `yaml:"db_path"`
	DBConnectionString string `yaml:"db_connection_string"`
	Location           string `yaml:"location"`   // pathname A part, may be empty
	SiteLabel          string `yaml:"site_label"` // B part source: "name" or "site_number"
	ArtifactDir        string `yaml:"artifact_dir"`
}

type MNetworkConfig struct {
	RequestTimeout int    `yaml:"timeout"`
	MaxRetries     int    `yaml:"retries"`
	UserAgent      string `yaml:"user_agent"`
}

type MWorkerConfig struct {
	BinaryPath string `yaml:"binary_path"`
}

type MJobConfig struct {
	Name            string   `yaml:"name"`
	Mode            string   `yaml:"mode"` // "extract" or "grid"
	WatershedID     string   `yaml:"watershed_id"`
	ProductIDs      []string `yaml:"product_ids"`
	LookbackHours   int      `yaml:"lookback_hours"`
	ScheduleMinutes int      `yaml:"schedule_minutes"`
}
