package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"golang.org/x/time/rate"
)

func TestLimiterRegistryPerPrincipal(t *testing.T) {
	reg := NewLimiterRegistry(1, 2)

	alice := reg.LimiterFor("alice")
	assert.Same(t, alice, reg.LimiterFor("alice"))
	assert.NotSame(t, alice, reg.LimiterFor("bob"))

	assert.True(t, alice.Allow())
	assert.True(t, alice.Allow())
	assert.False(t, alice.Allow())
	assert.True(t, reg.LimiterFor("bob").Allow())
}

func TestLimiterRegistryUnlimited(t *testing.T) {
	reg := NewLimiterRegistry(0, 0)
	assert.Equal(t, rate.Inf, reg.LimiterFor("x").Limit())
}
