package config

// Supported values of DB.GormEngine.
const (
	EngineSQLite   = "sqlite"
	EngineMySQL    = "mysql"
	EnginePostgres = "postgres"
)

// DB holds the database configuration settings.
type DB struct {
	GormEngine   string `mapstructure:"gormEngine"`
	Path         string // sqlite file, ":memory:" for a throwaway database
	Extras       string
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	MaxOpenConns int  `mapstructure:"maxOpenConns"` // ignored for sqlite which always uses one
	LogQueries   bool `mapstructure:"logQueries"`
}
