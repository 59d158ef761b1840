package resident

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

type capturePublisher struct {
	mu     sync.Mutex
	events []search.Event
	topics []string
}

func (p *capturePublisher) Publish(_ context.Context, topic string, event search.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.events = append(p.events, event)
}

type ResidentServiceSuite struct {
	suite.Suite
	mr      *miniredis.Miniredis
	store   *InMemoryStore
	events  *capturePublisher
	service *Service
	ctx     context.Context
}

func TestResidentServiceSuite(t *testing.T) {
	suite.Run(t, new(ResidentServiceSuite))
}

func (s *ResidentServiceSuite) SetupTest() {
	mr, err := miniredis.Run()
	s.Require().NoError(err)
	s.mr = mr
	s.store = NewInMemoryStore()
	s.events = &capturePublisher{}

	c := cache.New[Resident]("resident", kv.NewRedisStore(
		redis.NewClient(&redis.Options{Addr: mr.Addr()})), time.Hour)
	s.service = NewService(s.store, c, s.events)
	s.ctx = context.Background()
}

func (s *ResidentServiceSuite) TearDownTest() {
	s.mr.Close()
}

func (s *ResidentServiceSuite) create(userID int64, idCard string) *Resident {
	r := &Resident{
		UserID:    userID,
		RealName:  "Wang Fang",
		IDCard:    idCard,
		Gender:    2,
		BirthDate: time.Date(1990, 5, 20, 0, 0, 0, 0, time.UTC),
	}
	s.Require().NoError(s.service.Create(s.ctx, r))
	return r
}

func (s *ResidentServiceSuite) TestCreate() {
	r := s.create(11, "110101199005200021")

	s.Run("emits a create event on the resident feed", func() {
		s.Require().Len(s.events.events, 1)
		s.Equal(search.TopicResidentSync, s.events.topics[0])
		s.Equal(search.OpCreate, s.events.events[0].Operation)
		s.Equal(IndexName, s.events.events[0].Index)
		s.Equal("1990-05-20", s.events.events[0].Document["birthDate"])
	})

	s.Run("rejects duplicate identity document number", func() {
		err := s.service.Create(s.ctx, &Resident{
			UserID: 12, RealName: "Li Wei", IDCard: r.IDCard,
		})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("rejects missing real name", func() {
		err := s.service.Create(s.ctx, &Resident{IDCard: "110101199001011234"})
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("rejects missing identity document number", func() {
		err := s.service.Create(s.ctx, &Resident{RealName: "Li Wei"})
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})
}

func (s *ResidentServiceSuite) TestAliasReads() {
	r := s.create(11, "110101199005200021")

	s.Run("lookup by owning account warms the full alias set", func() {
		got, err := s.service.GetByUserID(s.ctx, 11)
		s.Require().NoError(err)
		s.Equal(r.ID, got.ID)

		s.True(s.mr.Exists(KeyByID(r.ID)))
		s.True(s.mr.Exists(KeyByUserID(11)))
		s.True(s.mr.Exists(KeyByIDCard(r.IDCard)))
	})

	s.Run("lookup by document number hits without the row", func() {
		delete(s.store.residents, r.ID)
		defer func() { s.store.residents[r.ID] = *r }()

		got, err := s.service.GetByIDCard(s.ctx, r.IDCard)
		s.Require().NoError(err)
		s.Require().NotNil(got)
		s.Equal(r.ID, got.ID)
	})

	s.Run("blank document number short-circuits", func() {
		got, err := s.service.GetByIDCard(s.ctx, "  ")
		s.Require().NoError(err)
		s.Nil(got)
	})
}

func (s *ResidentServiceSuite) TestUpdate() {
	r := s.create(11, "110101199005200021")
	_, err := s.service.GetByID(s.ctx, r.ID)
	s.Require().NoError(err)

	updated := *r
	updated.UserID = 42
	updated.CurrentAddress = "88 Garden Road"
	s.Require().NoError(s.service.Update(s.ctx, &updated))

	s.Run("pre-image alias is dropped with the rest", func() {
		s.False(s.mr.Exists(KeyByUserID(11)))
		s.False(s.mr.Exists(KeyByID(r.ID)))

		got, err := s.service.GetByUserID(s.ctx, 11)
		s.Require().NoError(err)
		s.Nil(got)
		got, err = s.service.GetByUserID(s.ctx, 42)
		s.Require().NoError(err)
		s.Require().NotNil(got)
		s.Equal("88 Garden Road", got.CurrentAddress)
	})

	s.Run("emits an update event", func() {
		s.Require().Len(s.events.events, 2)
		s.Equal(search.OpUpdate, s.events.events[1].Operation)
	})
}

func (s *ResidentServiceSuite) TestLogicalDelete() {
	r := s.create(11, "110101199005200021")
	_, err := s.service.GetByID(s.ctx, r.ID)
	s.Require().NoError(err)

	s.Require().NoError(s.service.Delete(s.ctx, r.ID))

	s.Run("record disappears from every read path", func() {
		got, err := s.service.GetByID(s.ctx, r.ID)
		s.Require().NoError(err)
		s.Nil(got)
		got, err = s.service.GetByIDCard(s.ctx, r.IDCard)
		s.Require().NoError(err)
		s.Nil(got)
	})

	s.Run("row survives with the deleted flag set", func() {
		row, ok := s.store.residents[r.ID]
		s.Require().True(ok)
		s.True(row.Deleted)
	})

	s.Run("document number can be registered again", func() {
		s.NoError(s.service.Create(s.ctx, &Resident{
			UserID: 13, RealName: "Wang Fang", IDCard: r.IDCard,
		}))
	})

	s.Run("emits a delete event", func() {
		events := s.events.events
		s.Equal(search.OpDelete, events[1].Operation)
		s.Equal(r.ID, events[1].ID)
		s.Nil(events[1].Document)
	})
}
