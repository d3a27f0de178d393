package redis

import (
	"context"
	"testing"
	"time"

	"github.com/MrSnakeDoc/marks/internal/logger"
)

func TestNextWait(t *testing.T) {
	tests := []struct {
		wait, max, want time.Duration
	}{
		{time.Second, 10 * time.Second, 2 * time.Second},
		{4 * time.Second, 5 * time.Second, 5 * time.Second},
		{10 * time.Second, 10 * time.Second, 10 * time.Second},
	}
	for _, tt := range tests {
		if got := nextWait(tt.wait, tt.max); got != tt.want {
			t.Errorf("nextWait(%v, %v) = %v, want %v", tt.wait, tt.max, got, tt.want)
		}
	}
}

func TestNewRejectsInvalidOptions(t *testing.T) {
	valid := ConnectOptions{
		Addr:           "localhost:6379",
		ConnectTimeout: time.Second,
		RetryInterval:  time.Millisecond,
		MaxWait:        time.Millisecond,
		PingTimeout:    time.Millisecond,
	}

	tests := []struct {
		name   string
		mutate func(*ConnectOptions)
	}{
		{"missing addr", func(o *ConnectOptions) { o.Addr = "" }},
		{"zero connect timeout", func(o *ConnectOptions) { o.ConnectTimeout = 0 }},
		{"zero retry interval", func(o *ConnectOptions) { o.RetryInterval = 0 }},
		{"zero max wait", func(o *ConnectOptions) { o.MaxWait = 0 }},
		{"zero ping timeout", func(o *ConnectOptions) { o.PingTimeout = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := valid
			tt.mutate(&opts)
			if _, err := New(context.Background(), opts, logger.NewNop()); err == nil {
				t.Error("New() should reject invalid options")
			}
		})
	}
}

func TestNewGivesUpOnUnreachableServer(t *testing.T) {
	opts := ConnectOptions{
		Addr:           "127.0.0.1:1",
		DialTimeout:    50 * time.Millisecond,
		ConnectTimeout: 200 * time.Millisecond,
		RetryInterval:  20 * time.Millisecond,
		MaxWait:        50 * time.Millisecond,
		PingTimeout:    50 * time.Millisecond,
	}
	if _, err := New(context.Background(), opts, logger.NewNop()); err == nil {
		t.Error("New() should fail when redis is unreachable")
	}
}
