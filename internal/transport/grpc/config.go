package grpcx

import "time"

type Config struct {
	Addr        string
	CallTimeout time.Duration
}
