package user

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
const IndexName = "user_index"

// Service owns the user read/write paths: cache-aside reads over the
// system-of-record, and writes followed by alias invalidation and a change
// event. Writes execute strictly store -> invalidate -> publish for one
// request; concurrent requests for the same user are not serialized.
type Service struct {
	store  Store
	cache  *cache.Cache[User]
	events search.Publisher
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func NewService(store Store, c *cache.Cache[User], events search.Publisher, opts ...Option) *Service {
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

// GetByID returns nil without error when the user does not exist.
func (s *Service) GetByID(ctx context.Context, id int64) (*User, error) {
	if id == 0 {
		return nil, nil
	}
	return s.cache.Get(ctx, KeyByID(id), s.loader(func(ctx context.Context) (*User, error) {
		return s.store.GetByID(ctx, id)
	}))
}

func (s *Service) GetByUsername(ctx context.Context, username string) (*User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, nil
	}
	return s.cache.GetByAlias(ctx, KeyByUsername(username), s.loader(func(ctx context.Context) (*User, error) {
		return s.store.GetByUsername(ctx, username)
	}))
}

func (s *Service) GetByEmail(ctx context.Context, email string) (*User, error) {
	email = strings.TrimSpace(email)
	if email == "" {
		return nil, nil
	}
	return s.cache.GetByAlias(ctx, KeyByEmail(email), s.loader(func(ctx context.Context) (*User, error) {
		return s.store.GetByEmail(ctx, email)
	}))
}

// loader adapts a store lookup to the cache contract: not-found becomes a
// nil entity so absence is never cached as an error.
func (s *Service) loader(fn func(ctx context.Context) (*User, error)) cache.Loader[User] {
	return func(ctx context.Context) (*User, error) {
		u, err := fn(ctx)
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load user")
		}
		return u, nil
	}
}

// Register creates a new account.
func (s *Service) Register(ctx context.Context, u *User) error {
	if err := s.validate(u); err != nil {
		return err
	}
	if u.Password == "" {
		return dErrors.New(dErrors.CodeBadRequest, "password is required")
	}
	if len(u.Password) < 8 {
		return dErrors.New(dErrors.CodeBadRequest, "password must be at least 8 characters")
	}

	if existing, err := s.GetByUsername(ctx, u.Username); err != nil {
		return err
	} else if existing != nil {
		return dErrors.New(dErrors.CodeConflict, "username already taken")
	}
	if u.Email != "" {
		if existing, err := s.GetByEmail(ctx, u.Email); err != nil {
			return err
		} else if existing != nil {
			return dErrors.New(dErrors.CodeConflict, "email already in use")
		}
	}

	u.Password = HashPassword(u.Password)
	u.Status = StatusActive
	if err := s.store.Create(ctx, u); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.New(dErrors.CodeConflict, "username or email already taken")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "create user")
	}

	// Nothing should be cached under a brand-new alias set, but invalidate
	// anyway so a stale entry from a recently deleted account cannot mask
	// the committed row.
	s.cache.Invalidate(ctx, u)
	s.events.Publish(ctx, search.TopicUserSync, search.Create(IndexName, u.ID, u.Document()))
	return nil
}

// Update rewrites the row, then invalidates the union of the pre-image and
// post-image alias sets (a changed username or email must drop the old
// alias too), then emits the change event.
func (s *Service) Update(ctx context.Context, u *User) error {
	if err := s.validate(u); err != nil {
		return err
	}

	old, err := s.store.GetByID(ctx, u.ID)
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "user not found")
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "load user")
	}
	// An empty password means "unchanged"; a non-empty one is a credential
	// change and must be hashed like any other, or login would compare a
	// hash against plaintext forever after.
	if u.Password == "" {
		u.Password = old.Password
	} else {
		if len(u.Password) < 8 {
			return dErrors.New(dErrors.CodeBadRequest, "password must be at least 8 characters")
		}
		u.Password = HashPassword(u.Password)
	}

	if err := s.store.Update(ctx, u); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return dErrors.New(dErrors.CodeConflict, "username or email already taken")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "update user")
	}

	s.cache.Invalidate(ctx, old, u)
	s.events.Publish(ctx, search.TopicUserSync, search.Update(IndexName, u.ID, u.Document()))
	return nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	old, err := s.store.GetByID(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "user not found")
	}
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "load user")
	}

	if err := s.store.Delete(ctx, id); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "delete user")
	}

	s.cache.Invalidate(ctx, old)
	s.events.Publish(ctx, search.TopicUserSync, search.Delete(IndexName, id))
	return nil
}

func (s *Service) validate(u *User) error {
	if u == nil || strings.TrimSpace(u.Username) == "" {
		return dErrors.New(dErrors.CodeBadRequest, "username is required")
	}
	if u.Phone != "" && !ValidPhone(u.Phone) {
		return dErrors.New(dErrors.CodeBadRequest, "phone must be 11 digits starting with 1")
	}
	if u.Email != "" && !ValidEmail(u.Email) {
		return dErrors.New(dErrors.CodeBadRequest, "invalid email address")
	}
	return nil
}
