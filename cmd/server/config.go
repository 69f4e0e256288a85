package main

import "time"

const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendBadger = "badger"
)

type Config struct {
	LogLevel             string        `env:"LOG_LEVEL,default=info"`
	Host                 string        `env:"HOST,default=0.0.0.0"`
	Port                 int           `env:"PORT,default=3000"`
	HistoryBackend       string        `env:"HISTORY_BACKEND,default=memory"`
	MaxHistory           int           `env:"MAX_HISTORY,default=100"`
	LoadLimit            int           `env:"LOAD_LIMIT,default=50"`
	BufferSize           int           `env:"BUFFER_SIZE,default=256"`
	ConnectionBufferSize int           `env:"CONNECTION_BUFFER_SIZE,default=64"`
	PersistTimeout       time.Duration `env:"PERSIST_TIMEOUT,default=5s"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=200ms"`
	ShutdownTimeout      time.Duration `env:"SHUTDOWN_TIMEOUT,default=10s"`
	BadgerFilepath       string        `env:"BADGER_FILEPATH,default=data/history"`
	RedisAddr            string        `env:"REDIS_ADDR,default=127.0.0.1:6379"`
	RedisKey             string        `env:"REDIS_KEY,default=chat:history"`
}
