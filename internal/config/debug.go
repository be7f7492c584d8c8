package config

import "os"

func IsDebug() bool {
	return os.Getenv("SHOPBOT_DEBUG") == "1"
}
