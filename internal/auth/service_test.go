package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"popreg/internal/auth/store/session"
	"popreg/internal/kv"
	"popreg/internal/user"
	dErrors "popreg/pkg/domain-errors"
)

// fakeUsers implements UserSource over a map and counts lookups, so tests
// can assert that a locked identity never reaches credential verification.
type fakeUsers struct {
	mu      sync.Mutex
	byName  map[string]user.User
	lookups int
}

func (f *fakeUsers) GetByUsername(_ context.Context, username string) (*user.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookups++
	u, ok := f.byName[username]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (f *fakeUsers) lookupCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lookups
}

const (
	lockThreshold = 5
	lockTTL       = 30 * time.Minute
)

type AuthServiceSuite struct {
	suite.Suite
	mr      *miniredis.Miniredis
	users   *fakeUsers
	service *Service
	ctx     context.Context
}

func TestAuthServiceSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceSuite))
}

func (s *AuthServiceSuite) SetupTest() {
	mr, err := miniredis.Run()
	s.Require().NoError(err)
	s.mr = mr

	store := kv.NewRedisStore(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	s.users = &fakeUsers{byName: map[string]user.User{
		"alice": {
			ID:       7,
			Username: "alice",
			Password: user.HashPassword("correct-horse"),
			RealName: "Alice Chen",
			Role:     "admin",
			Status:   user.StatusActive,
		},
		"mallory": {
			ID:       8,
			Username: "mallory",
			Password: user.HashPassword("whatever"),
			Status:   user.StatusDisabled,
		},
	}}

	s.service = NewService(
		s.users,
		session.New(store, time.Hour),
		NewLockout(store, lockThreshold, lockTTL),
		NewIssuer("test-secret", time.Hour),
	)
	s.ctx = context.Background()
}

func (s *AuthServiceSuite) TearDownTest() {
	s.mr.Close()
}

func (s *AuthServiceSuite) failLogin(username string, times int) {
	for i := 0; i < times; i++ {
		_, err := s.service.Login(s.ctx, username, "wrong-password")
		s.Require().True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	}
}

func (s *AuthServiceSuite) TestLogin() {
	s.Run("valid credentials mint a validatable token", func() {
		result, err := s.service.Login(s.ctx, "alice", "correct-horse")
		s.Require().NoError(err)
		s.NotEmpty(result.Token)
		s.Equal(int64(7), result.UserID)
		s.Equal("Alice Chen", result.RealName)

		claims, err := s.service.ValidateToken(s.ctx, result.Token)
		s.Require().NoError(err)
		s.Equal("alice", claims.Username)
		s.Equal("admin", claims.Role)
	})

	s.Run("wrong password is unauthorized", func() {
		_, err := s.service.Login(s.ctx, "alice", "wrong-password")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("unknown user gets the same message as wrong password", func() {
		_, err := s.service.Login(s.ctx, "nobody", "anything")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
		s.Equal("invalid username or password", dErrors.MessageOf(err))
	})

	s.Run("disabled account is forbidden", func() {
		_, err := s.service.Login(s.ctx, "mallory", "whatever")
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *AuthServiceSuite) TestLockout() {
	s.Run("locks after the threshold and fails fast", func() {
		s.failLogin("alice", lockThreshold)

		before := s.users.lookupCount()
		_, err := s.service.Login(s.ctx, "alice", "correct-horse")
		s.Require().True(dErrors.HasCode(err, dErrors.CodeLocked))
		s.Contains(dErrors.MessageOf(err), "try again in")
		s.Equal(before, s.users.lookupCount(),
			"a locked identity must not reach credential verification")
	})

	s.Run("lock expires on its own", func() {
		s.mr.FastForward(lockTTL + time.Minute)

		result, err := s.service.Login(s.ctx, "alice", "correct-horse")
		s.Require().NoError(err)
		s.NotEmpty(result.Token)
	})

	s.Run("success clears the failure counter", func() {
		s.failLogin("alice", lockThreshold-1)

		_, err := s.service.Login(s.ctx, "alice", "correct-horse")
		s.Require().NoError(err)

		// The slate is clean: the next run of failures starts from zero.
		s.failLogin("alice", lockThreshold-1)
		_, err = s.service.Login(s.ctx, "alice", "correct-horse")
		s.NoError(err)
	})

	s.Run("each failure restarts the lock window", func() {
		s.failLogin("alice", lockThreshold-1)
		s.mr.FastForward(lockTTL - time.Minute)
		s.failLogin("alice", 1)

		// Without the refresh the counter would have expired with the first
		// failures; the fifth attempt must still trip the lock.
		_, err := s.service.Login(s.ctx, "alice", "correct-horse")
		s.True(dErrors.HasCode(err, dErrors.CodeLocked))
	})
}

func (s *AuthServiceSuite) TestSingleSession() {
	first, err := s.service.Login(s.ctx, "alice", "correct-horse")
	s.Require().NoError(err)
	second, err := s.service.Login(s.ctx, "alice", "correct-horse")
	s.Require().NoError(err)

	s.Run("newer login supersedes the older session", func() {
		_, err := s.service.ValidateToken(s.ctx, first.Token)
		s.Require().True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
		s.Equal("session superseded", dErrors.MessageOf(err))

		claims, err := s.service.ValidateToken(s.ctx, second.Token)
		s.Require().NoError(err)
		s.Equal(int64(7), claims.UserID)
	})
}

func (s *AuthServiceSuite) TestLogout() {
	result, err := s.service.Login(s.ctx, "alice", "correct-horse")
	s.Require().NoError(err)

	s.service.Logout(s.ctx, result.Token)

	s.Run("token is rejected after logout", func() {
		_, err := s.service.ValidateToken(s.ctx, result.Token)
		s.Require().True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
		s.Equal("no active session", dErrors.MessageOf(err))
	})

	s.Run("logout of garbage token is a no-op", func() {
		s.NotPanics(func() { s.service.Logout(s.ctx, "not-a-token") })
	})
}

func (s *AuthServiceSuite) TestValidateToken() {
	s.Run("garbage token is unauthorized", func() {
		_, err := s.service.ValidateToken(s.ctx, "garbage")
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("well-formed token without a session is unauthorized", func() {
		token, err := NewIssuer("test-secret", time.Hour).Mint(&user.User{ID: 99, Username: "ghost"})
		s.Require().NoError(err)

		_, err = s.service.ValidateToken(s.ctx, token)
		s.Require().True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
		s.Equal("no active session", dErrors.MessageOf(err))
	})
}

func (s *AuthServiceSuite) TestStoreOutage() {
	result, err := s.service.Login(s.ctx, "alice", "correct-horse")
	s.Require().NoError(err)

	s.mr.SetError("connection refused")
	defer s.mr.SetError("")

	s.Run("login refuses when lockout state is unverifiable", func() {
		_, err := s.service.Login(s.ctx, "alice", "correct-horse")
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})

	s.Run("validation rejects when the session record is unreachable", func() {
		_, err := s.service.ValidateToken(s.ctx, result.Token)
		s.Require().True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
		s.Equal("session unavailable", dErrors.MessageOf(err))
	})
}
