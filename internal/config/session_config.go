package config

import (
	"strconv"
	"time"
)

type SessionConfig interface {
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetSessionTTL() time.Duration
	GetSessionCookieName() string
}

type Session struct{}

var _ SessionConfig = Session{}

// GetRedisAddr returns the session store address. Empty means "do not even
// try Redis" and the server falls straight back to the in-memory store.
func (Session) GetRedisAddr() string {
	return GetEnv("REDIS_ADDR", "localhost:6379")
}

func (Session) GetRedisPassword() string {
	return GetEnv("REDIS_PASSWORD", "")
}

func (Session) GetRedisDB() int {
	db, err := strconv.Atoi(GetEnv("REDIS_DB", "0"))
	if err != nil {
		return 0
	}
	return db
}

// GetSessionTTL is the sliding session expiry. Every save refreshes it.
func (Session) GetSessionTTL() time.Duration {
	minutes, err := strconv.Atoi(GetEnv("SESSION_TTL_MINUTES", "60"))
	if err != nil || minutes <= 0 {
		minutes = 60
	}
	return time.Duration(minutes) * time.Minute
}

func (Session) GetSessionCookieName() string {
	return GetEnv("SESSION_COOKIE_NAME", "sfbridge_session")
}
