package main

import "time"

type Config struct {
	Rooms                     string        `env:"ROOMS,required=true"`
	Host                      string        `env:"HOST,default=localhost"`
	Port                      int           `env:"PORT,default=8080"`
	HealthPort                int           `env:"HEALTH_PORT,default=8081"`
	RoomHistoryLimit          int           `env:"ROOM_HISTORY_LIMIT,default=100"`
	DMHistoryLimit            int           `env:"DM_HISTORY_LIMIT,default=50"`
	BufferSize                int           `env:"BUFFER_SIZE,required=true"`
	ConnectionBufferSize      int           `env:"CONNECTION_BUFFER_SIZE,required=true"`
	MaxMessageSize            int64         `env:"MAX_MESSAGE_SIZE,default=1048576"`
	SinkTimeout               time.Duration `env:"SINK_TIMEOUT,required=true"`
	ReportInterval            time.Duration `env:"REPORT_INTERVAL,default=30s"`
	ModerationEnabled         bool          `env:"MODERATION_ENABLED,default=false"`
	ModerationCharReplacement rune          `env:"MODERATION_CHARACTER_REPLACEMENT,default=42"`
	LogLevel                  string        `env:"LOG_LEVEL,required=true"`
}
