package dsn

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/boxwatch/boxwatch/internal/config"
)

func TestCreate(t *testing.T) {
	tests := []struct {
		name string
		db   config.DB
		want string
	}{
		{
			name: "sqlite file",
			db:   config.DB{GormEngine: config.EngineSQLite, Path: "boxwatch.db"},
			want: "boxwatch.db",
		},
		{
			name: "sqlite with pragma",
			db:   config.DB{GormEngine: config.EngineSQLite, Path: "boxwatch.db", Extras: "_pragma=busy_timeout(5000)"},
			want: "boxwatch.db?_pragma=busy_timeout(5000)",
		},
		{
			name: "mysql",
			db: config.DB{
				GormEngine: config.EngineMySQL, Host: "db", Port: 3306, User: "u", Password: "p", Name: "bw",
				Extras: "parseTime=True",
			},
			want: "u:p@tcp(db:3306)/bw?parseTime=True",
		},
		{
			name: "postgres",
			db: config.DB{
				GormEngine: config.EnginePostgres, Host: "db", Port: 5432, User: "u", Password: "p", Name: "bw",
				Extras: "sslmode=disable&TimeZone=UTC",
			},
			want: "host=db port=5432 user=u password=p dbname=bw sslmode=disable TimeZone=UTC",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Create(&config.Config{DB: tt.db}))
		})
	}
}
