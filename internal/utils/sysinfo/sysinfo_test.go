package sysinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOptimalPoolConfig_RespectsRequestedWorkers(t *testing.T) {
	m := NewMonitor()
	cfg := m.OptimalPoolConfig(3, 50)
	assert.LessOrEqual(t, cfg.Workers, 3)
	assert.Greater(t, cfg.Workers, 0)
}

func TestOptimalPoolConfig_DefaultsWithinBound(t *testing.T) {
	m := NewMonitor()
	cfg := m.OptimalPoolConfig(0, 50)
	assert.GreaterOrEqual(t, cfg.Workers, 1)
	assert.LessOrEqual(t, cfg.Workers, 8)
	assert.GreaterOrEqual(t, cfg.BatchSize, 1)
}

func TestOptimalPoolConfig_Caches(t *testing.T) {
	m := NewMonitor()
	first := m.OptimalPoolConfig(0, 50)
	second := m.OptimalPoolConfig(0, 50)
	assert.Equal(t, first, second)
}
