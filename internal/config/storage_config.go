package config

import "path/filepath"

type StorageConfig interface {
	GetStorageBackend() string
	GetTokenFilePath() string
	GetSQLitePath() string
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetRedisKeyPrefix() string
}

type Storage struct{}

var _ StorageConfig = Storage{}

const (
	storageEnvVar        = "SMARTCANE_STORAGE"
	sqlitePathEnvVar     = "SMARTCANE_SQLITE_PATH"
	redisAddrEnvVar      = "SMARTCANE_REDIS_ADDR"
	redisPasswordEnvVar  = "SMARTCANE_REDIS_PASSWORD"
	redisDBEnvVar        = "SMARTCANE_REDIS_DB"
	redisKeyPrefixEnvVar = "SMARTCANE_REDIS_PREFIX"

	StorageFile   = "file"
	StorageSQLite = "sqlite"
	StorageRedis  = "redis"
	StorageMemory = "memory"
)

func (Storage) GetStorageBackend() string {
	return GetEnv(storageEnvVar, StorageFile)
}

func (Storage) GetTokenFilePath() string {
	return filepath.Join(EnvVars{}.GetDataFolder(), "tokens.json")
}

func (Storage) GetSQLitePath() string {
	return GetEnv(sqlitePathEnvVar, filepath.Join(EnvVars{}.GetDataFolder(), "smartcane.db"))
}

func (Storage) GetRedisAddr() string {
	return GetEnv(redisAddrEnvVar, "localhost:6379")
}

func (Storage) GetRedisPassword() string {
	return GetEnv(redisPasswordEnvVar, "")
}

func (Storage) GetRedisDB() int {
	return GetInt(redisDBEnvVar, 0)
}

func (Storage) GetRedisKeyPrefix() string {
	return GetEnv(redisKeyPrefixEnvVar, "smartcane:")
}
