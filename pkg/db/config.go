// Package db opens and tunes the application's gorm connection.
package db

// Config is the connection configuration for Open. Lifetime and idle
// time are in seconds; zero values keep the driver defaults.
type Config struct {
	Type            string
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxIdleConn     int
	MaxOpenConn     int
	ConnMaxLifetime int
	ConnMaxIdleTime int
}
