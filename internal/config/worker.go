package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// WorkerConfig configures the notification consumer binary.
type WorkerConfig struct {
	Group         string
	Consumer      string
	ClaimInterval time.Duration
	BlockTimeout  time.Duration
}

var envKeyReplacer = strings.NewReplacer(".", "_")

func setWorkerDefaults(v *viper.Viper) {
	v.SetDefault("worker.group", "notification-workers")
	v.SetDefault("worker.consumer", "worker-1")
	v.SetDefault("worker.claiminterval", "30s")
	v.SetDefault("worker.blocktimeout", "5s")
}
