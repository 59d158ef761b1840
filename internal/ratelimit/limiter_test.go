package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"popreg/internal/kv"
)

type LimiterSuite struct {
	suite.Suite
	mr      *miniredis.Miniredis
	limiter *Limiter
	ctx     context.Context
}

func TestLimiterSuite(t *testing.T) {
	suite.Run(t, new(LimiterSuite))
}

func (s *LimiterSuite) SetupTest() {
	mr, err := miniredis.Run()
	s.Require().NoError(err)
	s.mr = mr
	s.limiter = New(kv.NewRedisStore(
		redis.NewClient(&redis.Options{Addr: mr.Addr()})), 60, time.Minute)
	s.ctx = context.Background()
}

func (s *LimiterSuite) TearDownTest() {
	s.mr.Close()
}

func (s *LimiterSuite) TestFixedWindow() {
	s.Run("allows up to the limit", func() {
		for i := 0; i < 60; i++ {
			s.Require().True(s.limiter.Allow(s.ctx, "10.0.0.1"), "request %d", i+1)
		}
	})

	s.Run("rejects the request over the limit", func() {
		s.False(s.limiter.Allow(s.ctx, "10.0.0.1"))
	})

	s.Run("clients are counted independently", func() {
		s.True(s.limiter.Allow(s.ctx, "10.0.0.2"))
	})

	s.Run("window expiry resets the counter", func() {
		s.mr.FastForward(61 * time.Second)
		s.True(s.limiter.Allow(s.ctx, "10.0.0.1"))
	})
}

func (s *LimiterSuite) TestFailOpen() {
	s.mr.SetError("connection refused")
	defer s.mr.SetError("")

	for i := 0; i < 100; i++ {
		s.Require().True(s.limiter.Allow(s.ctx, "10.0.0.1"),
			"store outage must never reject traffic")
	}
}
