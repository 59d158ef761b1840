package resident

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"popreg/internal/cache"
	"popreg/internal/search"
	dErrors "popreg/pkg/domain-errors"
	"popreg/pkg/platform/sentinel"
)

// IndexName is the full-text index fed by this service's change events.
const IndexName = "resident_index"

// Service owns the resident read/write paths. Same shape as the user
// service: cache-aside reads, and writes followed by alias invalidation and
// a change event.
type Service struct {
	store  Store
	cache  *cache.Cache[Resident]
	events search.Publisher
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func NewService(store Store, c *cache.Cache[Resident], events search.Publisher, opts ...Option) *Service {
	s := &Service{
		store:  store,
		cache:  c,
		events: events,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) GetByID(ctx context.Context, id int64) (*Resident, error) {
	if id == 0 {
		return nil, nil
	}
	return s.cache.Get(ctx, KeyByID(id), s.loader(func(ctx context.Context) (*Resident, error) {
		return s.store.GetByID(ctx, id)
	}))
}

func (s *Service) GetByUserID(ctx context.Context, userID int64) (*Resident, error) {
	if userID == 0 {
		return nil, nil
	}
	return s.cache.GetByAlias(ctx, KeyByUserID(userID), s.loader(func(ctx context.Context) (*Resident, error) {
		return s.store.GetByUserID(ctx, userID)
	}))
}

func (s *Service) GetByIDCard(ctx context.Context, idCard string) (*Resident, error) {
	idCard = strings.TrimSpace(idCard)
	if idCard == "" {
		return nil, nil
	}
	return s.cache.GetByAlias(ctx, KeyByIDCard(idCard), s.loader(func(ctx context.Context) (*Resident, error) {
		return s.store.GetByIDCard(ctx, idCard)
	}))
}

func (s *Service) loader(fn func(ctx context.Context) (*Resident, error)) cache.Loader[Resident] {
	return func(ctx context.Context) (*Resident, error) {
		r, err := fn(ctx)
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load resident")
		}
		return r, nil
	}
}

func (s *Service) Create(ctx context.Context, r *Resident) error {
	if err := validate(r); err != nil {
		return err
	}

	if existing, err := s.GetByIDCard(ctx, r.IDCard); err != nil {
		return err
	} else if existing != nil {
		return dErrors.New(dErrors.CodeConflict, "identity document number already registered")
	}

	if err := s.store.Create(ctx, r); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.New(dErrors.CodeConflict, "identity document number already registered")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "create resident")
	}

	s.cache.Invalidate(ctx, r)
	s.events.Publish(ctx, search.TopicResidentSync, search.Create(IndexName, r.ID, r.Document()))
	return nil
}

func (s *Service) Update(ctx context.Context, r *Resident) error {
	if err := validate(r); err != nil {
		return err
	}

	old, err := s.store.GetByID(ctx, r.ID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "resident not found")
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "load resident")
	}

	if err := s.store.Update(ctx, r); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.New(dErrors.CodeConflict, "identity document number already registered")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "update resident")
	}

	s.cache.Invalidate(ctx, old, r)
	s.events.Publish(ctx, search.TopicResidentSync, search.Update(IndexName, r.ID, r.Document()))
	return nil
}

// Delete is logical: the row is flagged, reads stop returning it, and the
// index receives a delete event.
func (s *Service) Delete(ctx context.Context, id int64) error {
	old, err := s.store.GetByID(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "resident not found")
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "load resident")
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "delete resident")
	}

	s.cache.Invalidate(ctx, old)
	s.events.Publish(ctx, search.TopicResidentSync, search.Delete(IndexName, id))
	return nil
}

func validate(r *Resident) error {
	if r == nil || strings.TrimSpace(r.RealName) == "" {
		return dErrors.New(dErrors.CodeBadRequest, "real name is required")
	}
	if strings.TrimSpace(r.IDCard) == "" {
		return dErrors.New(dErrors.CodeBadRequest, "identity document number is required")
	}
	return nil
}
