package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/worklog/internal/flagx"
	"github.com/dmitrijs2005/worklog/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify intervals either as
// strings like "3s" or as integer nanoseconds. Pointer and zero fields mean
// "not set" and leave the current value untouched.
type JsonConfig struct {
	RemoteDSN           string          `json:"remote_dsn"`
	LocalDBPath         string          `json:"local_db_path"`
	OnlineCheckInterval *timex.Duration `json:"online_check_interval"`
	RemoteTimeout       *timex.Duration `json:"remote_timeout"`
	HealthEndpoint      string          `json:"health_endpoint"`
	JWTSecret           string          `json:"jwt_secret"`
	S3RootUser          string          `json:"s3_root_user"`
	S3RootPassword      string          `json:"s3_root_password"`
	S3Bucket            string          `json:"s3_bucket"`
	S3Region            string          `json:"s3_region"`
	S3BaseEndpoint      string          `json:"s3_base_endpoint"`
	S3PublicBaseURL     string          `json:"s3_public_base_url"`
	MaxReplayAttempts   *int            `json:"max_replay_attempts"`
	LogFile             *string         `json:"log_file"`
	LogLevel            string          `json:"log_level"`
}

// parseJson overlays Config with values loaded from a JSON file selected
// with -c or -config. Without the flag nothing is loaded. Panics on read or
// unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.ConfigPath(os.Args[1:])
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	jc.apply(cfg)
}

func (jc *JsonConfig) apply(cfg *Config) {
	setString(&cfg.RemoteDSN, jc.RemoteDSN)
	setString(&cfg.LocalDBPath, jc.LocalDBPath)
	setString(&cfg.HealthEndpoint, jc.HealthEndpoint)
	setString(&cfg.JWTSecret, jc.JWTSecret)
	setString(&cfg.S3RootUser, jc.S3RootUser)
	setString(&cfg.S3RootPassword, jc.S3RootPassword)
	setString(&cfg.S3Bucket, jc.S3Bucket)
	setString(&cfg.S3Region, jc.S3Region)
	setString(&cfg.S3BaseEndpoint, jc.S3BaseEndpoint)
	setString(&cfg.S3PublicBaseURL, jc.S3PublicBaseURL)
	setString(&cfg.LogLevel, jc.LogLevel)

	if jc.OnlineCheckInterval != nil {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
	if jc.RemoteTimeout != nil {
		cfg.RemoteTimeout = jc.RemoteTimeout.Duration
	}
	if jc.MaxReplayAttempts != nil {
		cfg.MaxReplayAttempts = *jc.MaxReplayAttempts
	}
	// An explicit "" switches logging back to stderr.
	if jc.LogFile != nil {
		cfg.LogFile = *jc.LogFile
	}
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
