package user

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"popreg/internal/cache"
	"popreg/internal/kv"
	"popreg/internal/search"
	dErrors "popreg/pkg/domain-errors"
)

// capturePublisher records published events for assertions.
type capturePublisher struct {
	mu     sync.Mutex
	events []capturedEvent
}

type capturedEvent struct {
	topic string
	event search.Event
}

func (p *capturePublisher) Publish(_ context.Context, topic string, event search.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, capturedEvent{topic: topic, event: event})
}

func (p *capturePublisher) all() []capturedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]capturedEvent(nil), p.events...)
}

type UserServiceSuite struct {
	suite.Suite
	mr      *miniredis.Miniredis
	store   *InMemoryStore
	events  *capturePublisher
	service *Service
	ctx     context.Context
}

func TestUserServiceSuite(t *testing.T) {
	suite.Run(t, new(UserServiceSuite))
}

func (s *UserServiceSuite) SetupTest() {
	mr, err := miniredis.Run()
	s.Require().NoError(err)
	s.mr = mr
	s.store = NewInMemoryStore()
	s.events = &capturePublisher{}

	c := cache.New[User]("user", kv.NewRedisStore(
		redis.NewClient(&redis.Options{Addr: mr.Addr()})), time.Hour)
	s.service = NewService(s.store, c, s.events)
	s.ctx = context.Background()
}

func (s *UserServiceSuite) TearDownTest() {
	s.mr.Close()
}

func (s *UserServiceSuite) register(username, email string) *User {
	u := &User{
		Username: username,
		Password: "correct-horse",
		RealName: "Test User",
		Email:    email,
		Role:     "user",
	}
	s.Require().NoError(s.service.Register(s.ctx, u))
	return u
}

func (s *UserServiceSuite) TestRegister() {
	s.Run("creates active account with hashed password", func() {
		u := s.register("alice", "alice@example.com")

		stored, err := s.store.GetByID(s.ctx, u.ID)
		s.Require().NoError(err)
		s.Equal(StatusActive, stored.Status)
		s.Equal(HashPassword("correct-horse"), stored.Password)
	})

	s.Run("emits a create event", func() {
		events := s.events.all()
		s.Require().Len(events, 1)
		s.Equal(search.TopicUserSync, events[0].topic)
		s.Equal(search.OpCreate, events[0].event.Operation)
		s.Equal(IndexName, events[0].event.Index)
		s.Equal("alice", events[0].event.Document["username"])
	})

	s.Run("rejects duplicate username", func() {
		err := s.service.Register(s.ctx, &User{Username: "alice", Password: "password123"})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("rejects duplicate email", func() {
		err := s.service.Register(s.ctx, &User{
			Username: "alice2", Password: "password123", Email: "alice@example.com",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("rejects short password", func() {
		err := s.service.Register(s.ctx, &User{Username: "bob", Password: "short"})
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("rejects malformed phone", func() {
		err := s.service.Register(s.ctx, &User{
			Username: "bob", Password: "password123", Phone: "12345",
		})
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}

func (s *UserServiceSuite) TestCacheAsideReads() {
	u := s.register("alice", "alice@example.com")

	s.Run("read by id populates alias set", func() {
		got, err := s.service.GetByID(s.ctx, u.ID)
		s.Require().NoError(err)
		s.Equal("alice", got.Username)

		s.True(s.mr.Exists(KeyByID(u.ID)))
		s.True(s.mr.Exists(KeyByUsername("alice")))
		s.True(s.mr.Exists(KeyByEmail("alice@example.com")))
	})

	s.Run("read by username is served from cache", func() {
		// Remove the row; a cache hit is the only way to still see it.
		delete(s.store.users, u.ID)
		defer func() { s.store.users[u.ID] = *u }()

		got, err := s.service.GetByUsername(s.ctx, "alice")
		s.Require().NoError(err)
		s.Require().NotNil(got)
		s.Equal(u.ID, got.ID)
	})

	s.Run("unknown user resolves to nil", func() {
		got, err := s.service.GetByID(s.ctx, 999)
		s.Require().NoError(err)
		s.Nil(got)
	})

	s.Run("zero id short-circuits", func() {
		got, err := s.service.GetByID(s.ctx, 0)
		s.Require().NoError(err)
		s.Nil(got)
	})
}

func (s *UserServiceSuite) TestUpdate() {
	u := s.register("alice", "alice@example.com")
	_, err := s.service.GetByID(s.ctx, u.ID)
	s.Require().NoError(err)
	s.Require().True(s.mr.Exists(KeyByUsername("alice")))

	s.Run("renaming drops the old alias", func() {
		updated := *u
		updated.Username = "bob"
		updated.Password = ""
		s.Require().NoError(s.service.Update(s.ctx, &updated))

		s.False(s.mr.Exists(KeyByUsername("alice")), "pre-image alias must be invalidated")
		s.False(s.mr.Exists(KeyByUsername("bob")))
		s.False(s.mr.Exists(KeyByID(u.ID)))

		// The old name now resolves to nothing, the new one to the account.
		got, err := s.service.GetByUsername(s.ctx, "alice")
		s.Require().NoError(err)
		s.Nil(got)
		got, err = s.service.GetByUsername(s.ctx, "bob")
		s.Require().NoError(err)
		s.Require().NotNil(got)
		s.Equal(u.ID, got.ID)
	})

	s.Run("empty password keeps the stored hash", func() {
		stored, err := s.store.GetByID(s.ctx, u.ID)
		s.Require().NoError(err)
		s.Equal(HashPassword("correct-horse"), stored.Password)
	})

	s.Run("new password is stored hashed, never plaintext", func() {
		updated, err := s.store.GetByID(s.ctx, u.ID)
		s.Require().NoError(err)
		updated.Password = "fresh-password-1"
		s.Require().NoError(s.service.Update(s.ctx, updated))

		stored, err := s.store.GetByID(s.ctx, u.ID)
		s.Require().NoError(err)
		s.Equal(HashPassword("fresh-password-1"), stored.Password)
		s.NotContains(stored.Password, "fresh-password-1")
	})

	s.Run("short new password is rejected", func() {
		updated, err := s.store.GetByID(s.ctx, u.ID)
		s.Require().NoError(err)
		updated.Password = "short"
		err = s.service.Update(s.ctx, updated)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("emits one update event per successful write", func() {
		events := s.events.all()
		s.Require().Len(events, 3)
		s.Equal(search.OpUpdate, events[1].event.Operation)
		s.Equal("bob", events[1].event.Document["username"])
		s.Equal(search.OpUpdate, events[2].event.Operation)
	})

	s.Run("unknown id is not found", func() {
		err := s.service.Update(s.ctx, &User{ID: 999, Username: "ghost"})
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *UserServiceSuite) TestDelete() {
	u := s.register("alice", "alice@example.com")
	_, err := s.service.GetByID(s.ctx, u.ID)
	s.Require().NoError(err)

	s.Require().NoError(s.service.Delete(s.ctx, u.ID))

	s.Run("row and cache entries are gone", func() {
		s.False(s.mr.Exists(KeyByID(u.ID)))
		s.False(s.mr.Exists(KeyByUsername("alice")))

		got, err := s.service.GetByID(s.ctx, u.ID)
		s.Require().NoError(err)
		s.Nil(got)
	})

	s.Run("emits a delete event without document", func() {
		events := s.events.all()
		s.Require().Len(events, 2)
		s.Equal(search.OpDelete, events[1].event.Operation)
		s.Equal(u.ID, events[1].event.ID)
		s.Nil(events[1].event.Document)
	})

	s.Run("double delete is not found", func() {
		err := s.service.Delete(s.ctx, u.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
