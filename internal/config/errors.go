package config

import "errors"

var errNoConnections = errors.New("connections array is empty")
