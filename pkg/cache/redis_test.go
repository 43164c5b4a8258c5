package cache

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/heritage-api/pkg/config"
)

func TestNewRedisDisabled(t *testing.T) {
	client, err := NewRedis(context.Background(), config.RedisConfig{Enabled: false, Host: "redis", Port: 6379})
	require.NoError(t, err)
	assert.Nil(t, client)
}

func TestNewRedisUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	cfg := config.RedisConfig{Enabled: true, Host: "127.0.0.1", Port: port}
	client, err := NewRedis(context.Background(), cfg)
	assert.Nil(t, client)
	require.Error(t, err)
	assert.Contains(t, err.Error(), Addr(cfg))
}

func TestAddrBracketsIPv6(t *testing.T) {
	assert.Equal(t, "[::1]:6379", Addr(config.RedisConfig{Host: "::1", Port: 6379}))
	assert.Equal(t, "redis:6380", Addr(config.RedisConfig{Host: "redis", Port: 6380}))
}
