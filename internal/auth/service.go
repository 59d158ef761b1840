package auth

import (
	"context"
	"log/slog"

	"popreg/internal/auth/store/session"
	"popreg/internal/kv"
	"popreg/internal/platform/metrics"
	"popreg/internal/user"
	dErrors "popreg/pkg/domain-errors"
)

// UserSource resolves identities against the system-of-record (through the
// entity cache). Implemented by the user service.
type UserSource interface {
	GetByUsername(ctx context.Context, username string) (*user.User, error)
}

// Service is the session/authentication state machine: bearer-token
// issuance, validation, revocation, and brute-force lockout, all backed by
// the shared key-value store so every service instance sees the same state.
type Service struct {
	users    UserSource
	sessions *session.Store
	lockout  *Lockout
	issuer   *Issuer
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func NewService(users UserSource, sessions *session.Store, lockout *Lockout, issuer *Issuer, opts ...Option) *Service {
	s := &Service{
		users:    users,
		sessions: sessions,
		lockout:  lockout,
		issuer:   issuer,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LoginResult is returned to the client alongside the minted token.
type LoginResult struct {
	Token    string `json:"token"`
	UserID   int64  `json:"userId"`
	Username string `json:"username"`
	RealName string `json:"realName"`
	Role     string `json:"role"`
}

// Login verifies credentials and mints a token. The lockout check runs
// first: a locked identity fails fast with the remaining lock duration and
// no credential check is attempted.
func (s *Service) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	locked, remaining, err := s.lockout.Status(ctx, username)
	if err != nil {
		// Cannot tell whether the identity is locked; refusing the login is
		// safer than opening a brute-force window during a store outage.
		s.logger.Error("lockout state unavailable", "username", username, "error", err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "authentication temporarily unavailable")
	}
	if locked {
		minutes := int(remaining.Minutes()) + 1
		return nil, dErrors.Newf(dErrors.CodeLocked,
			"account locked, try again in %d minutes", minutes)
	}

	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load user")
	}
	if u == nil || u.Password != user.HashPassword(password) {
		s.recordFailure(ctx, username)
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid username or password")
	}
	if u.Status == user.StatusDisabled {
		return nil, dErrors.New(dErrors.CodeForbidden, "account disabled")
	}

	if err := s.lockout.Clear(ctx, username); err != nil {
		s.logger.Warn("clearing lockout counter failed", "username", username, "error", err)
	}

	token, err := s.issuer.Mint(u)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "mint token")
	}
	// Overwrites any prior record: at most one valid session per identity.
	if err := s.sessions.Put(ctx, u.ID, token); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "store session")
	}

	if s.metrics != nil {
		s.metrics.Logins.Inc()
	}
	return &LoginResult{
		Token:    token,
		UserID:   u.ID,
		Username: u.Username,
		RealName: u.RealName,
		Role:     u.Role,
	}, nil
}

// ValidateToken checks the stateless half (signature, embedded expiry)
// locally, then requires the shared session record for the claimed identity
// to hold this exact token. The indirection is what makes logout and
// one-session-per-identity effective even though the token itself is
// self-contained.
func (s *Service) ValidateToken(ctx context.Context, token string) (*Claims, error) {
	claims, err := s.issuer.Parse(token)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired token")
	}

	res := s.sessions.Get(ctx, claims.UserID)
	switch res.Status {
	case kv.StatusHit:
		if string(res.Value) != token {
			// Superseded by a newer login.
			return nil, dErrors.New(dErrors.CodeUnauthorized, "session superseded")
		}
		return claims, nil
	case kv.StatusMiss:
		// Logged out, evicted, or never logged in through this flow.
		return nil, dErrors.New(dErrors.CodeUnauthorized, "no active session")
	default:
		// Fail closed: a token that cannot be checked against the shared
		// record is not accepted.
		s.logger.Warn("session store unavailable, rejecting token",
			"userId", claims.UserID, "operation", "get", "error", res.Err)
		return nil, dErrors.New(dErrors.CodeUnauthorized, "session unavailable")
	}
}

// Logout revokes the presented token's session. Best-effort by contract:
// undecodable tokens and store errors are swallowed, so logout never fails
// at the HTTP surface.
func (s *Service) Logout(ctx context.Context, token string) {
	claims, err := s.issuer.Parse(token)
	if err != nil {
		return
	}
	if err := s.sessions.Delete(ctx, claims.UserID); err != nil {
		s.logger.Warn("session delete failed",
			"userId", claims.UserID, "operation", "delete", "error", err)
	}
}

func (s *Service) recordFailure(ctx context.Context, username string) {
	if s.metrics != nil {
		s.metrics.LoginFailures.Inc()
	}
	count, err := s.lockout.Fail(ctx, username)
	if err != nil {
		s.logger.Warn("recording login failure failed", "username", username, "error", err)
		return
	}
	if count == int64(s.lockout.threshold) {
		if s.metrics != nil {
			s.metrics.Lockouts.Inc()
		}
		s.logger.Warn("account locked after repeated failures",
			"username", username, "failures", count)
	}
}
