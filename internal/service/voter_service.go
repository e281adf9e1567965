package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"election-service/internal/analytics"
	"election-service/internal/audit"
	"election-service/internal/auth"
	"election-service/internal/events"
	"election-service/internal/hashing"
	"election-service/internal/models"
	"election-service/internal/repository"
	"election-service/internal/util"
)

// sideEffectTimeout bounds the post-commit writes, which outlive the request context.
const sideEffectTimeout = 5 * time.Second

// Dependencies wires VoterService. Nil sinks are replaced with no-op implementations.
type Dependencies struct {
	Voters    repository.VoterRepository
	Hasher    *hashing.Hasher
	Tokens    *auth.TokenManager
	Revoker   TokenRevoker
	Limiter   LoginLimiter
	Events    EventPublisher
	Audit     AuditLog
	Analytics AnalyticsStore
	Logger    *zap.Logger
}

// VoterService owns registration, credentials and the verification decision.
type VoterService struct {
	voters    repository.VoterRepository
	hasher    *hashing.Hasher
	tokens    *auth.TokenManager
	revoker   TokenRevoker
	limiter   LoginLimiter
	events    EventPublisher
	audit     AuditLog
	analytics AnalyticsStore
	logger    *zap.Logger
	now       func() time.Time
}

func NewVoterService(deps Dependencies) *VoterService {
	s := &VoterService{
		voters:    deps.Voters,
		hasher:    deps.Hasher,
		tokens:    deps.Tokens,
		revoker:   deps.Revoker,
		limiter:   deps.Limiter,
		events:    deps.Events,
		audit:     deps.Audit,
		analytics: deps.Analytics,
		logger:    deps.Logger,
		now:       time.Now,
	}
	if s.events == nil {
		s.events = events.Nop{}
	}
	if s.audit == nil {
		s.audit = audit.Nop{}
	}
	if s.analytics == nil {
		s.analytics = analytics.Nop{}
	}
	if s.logger == nil {
		s.logger = util.Get()
	}
	return s
}

// Register validates the form and stores a pending voter. Validation problems are
// returned as FieldErrors.
func (s *VoterService) Register(ctx context.Context, req *RegisterRequest) (*models.Voter, error) {
	startTime := time.Now()

	form, errs := req.validate()
	if form.username != "" && len(errs["username"]) == 0 {
		if _, err := s.voters.GetVoterByUsername(ctx, form.username); err == nil {
			errs.Add("username", msgUsernameTaken)
		} else if !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("failed to check username: %w", err)
		}
	}
	if err := errs.orNil(); err != nil {
		registrationsTotal.WithLabelValues("invalid").Inc()
		return nil, err
	}

	hash, err := s.hasher.HashPassword(form.password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now().UTC()
	voter := &models.Voter{
		ID:           uuid.NewString(),
		Username:     form.username,
		Email:        form.email,
		Age:          form.age,
		Gender:       form.gender,
		Region:       form.region,
		Status:       models.StatusPending,
		CreatedAt:    now,
		Role:         models.RoleVoter,
		PasswordHash: hash,
		UpdatedAt:    &now,
	}

	if err := s.voters.CreateVoter(ctx, voter); err != nil {
		if errors.Is(err, repository.ErrUsernameTaken) {
			registrationsTotal.WithLabelValues("invalid").Inc()
			return nil, FieldErrors{"username": {msgUsernameTaken}}
		}
		registrationsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to create voter: %w", err)
	}
	registrationsTotal.WithLabelValues("created").Inc()

	s.afterCommit(ctx, map[string]func(context.Context) error{
		"events":    func(ctx context.Context) error { return s.events.PublishRegistered(ctx, voter) },
		"analytics": func(ctx context.Context) error { return s.analytics.RecordRegistration(ctx, voter) },
	})

	s.logger.Info("Voter registered",
		util.String("voter_id", voter.ID),
		util.String("region", voter.Region),
		util.Duration("duration", time.Since(startTime)))

	return voter, nil
}

// Authenticate checks credentials and issues a token pair. Repeated failures lock the
// username for the configured period.
func (s *VoterService) Authenticate(ctx context.Context, username, password string) (*models.TokenPair, error) {
	if s.limiter != nil {
		locked, err := s.limiter.IsLocked(ctx, username)
		if err != nil {
			return nil, err
		}
		if locked {
			loginsTotal.WithLabelValues("locked").Inc()
			return nil, ErrAccountLocked
		}
	}

	voter, err := s.voters.GetVoterByUsername(ctx, username)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	ok := false
	if voter != nil {
		ok, err = s.hasher.VerifyPassword(password, voter.PasswordHash)
		if err != nil {
			s.logger.Error("Stored password hash is unreadable",
				util.String("voter_id", voter.ID),
				util.ErrorField(err))
			ok = false
		}
	}

	if !ok {
		loginsTotal.WithLabelValues("failed").Inc()
		if s.limiter != nil {
			if _, err := s.limiter.RecordFailure(ctx, username); err != nil {
				s.logger.Warn("Failed to record login failure", util.ErrorField(err))
			}
		}
		return nil, ErrInvalidCredentials
	}

	if s.limiter != nil {
		if err := s.limiter.Reset(ctx, username); err != nil {
			s.logger.Warn("Failed to reset login attempts", util.ErrorField(err))
		}
	}

	pair, err := s.tokens.Issue(voter.ID, voter.Role)
	if err != nil {
		return nil, err
	}
	loginsTotal.WithLabelValues("success").Inc()
	return pair, nil
}

// Authorize validates an access token and rejects revoked ones.
func (s *VoterService) Authorize(ctx context.Context, token string) (*auth.Claims, error) {
	claims, err := s.tokens.Parse(token, auth.AccessToken)
	if err != nil {
		return nil, err
	}
	if err := s.checkRevoked(ctx, claims); err != nil {
		return nil, err
	}
	return claims, nil
}

// Refresh exchanges a refresh token for a new access token.
func (s *VoterService) Refresh(ctx context.Context, refreshToken string) (*models.TokenPair, error) {
	claims, err := s.tokens.Parse(refreshToken, auth.RefreshToken)
	if err != nil {
		return nil, err
	}
	if err := s.checkRevoked(ctx, claims); err != nil {
		return nil, err
	}

	voter, err := s.voters.GetVoterByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, auth.ErrInvalidToken
		}
		return nil, err
	}

	access, err := s.tokens.IssueAccess(voter.ID, voter.Role)
	if err != nil {
		return nil, err
	}
	return &models.TokenPair{Access: access}, nil
}

// Logout revokes the presented access token and, when given, the refresh token of the
// same account.
func (s *VoterService) Logout(ctx context.Context, claims *auth.Claims, refreshToken string) error {
	if s.revoker == nil {
		return nil
	}
	now := s.now()
	if err := s.revoker.RevokeToken(ctx, claims.ID, claims.TTL(now)); err != nil {
		return err
	}

	if refreshToken == "" {
		return nil
	}
	refresh, err := s.tokens.Parse(refreshToken, auth.RefreshToken)
	if err != nil || refresh.UserID != claims.UserID {
		return nil
	}
	return s.revoker.RevokeToken(ctx, refresh.ID, refresh.TTL(now))
}

func (s *VoterService) checkRevoked(ctx context.Context, claims *auth.Claims) error {
	if s.revoker == nil {
		return nil
	}
	revoked, err := s.revoker.IsRevoked(ctx, claims.ID)
	if err != nil {
		return err
	}
	if revoked {
		return ErrTokenRevoked
	}
	return nil
}

// Status returns the verification status of the voter's own record.
func (s *VoterService) Status(ctx context.Context, voterID string) (models.VerificationStatus, error) {
	voter, err := s.getVoter(ctx, voterID)
	if err != nil {
		return models.StatusPending, err
	}
	return voter.Status, nil
}

func (s *VoterService) ListVoters(ctx context.Context) ([]*models.Voter, error) {
	voters, err := s.voters.ListVoters(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list voters: %w", err)
	}
	return voters, nil
}

// Decide records an admin decision on a pending voter and returns the stored record.
// A voter that was already decided is left unchanged.
func (s *VoterService) Decide(ctx context.Context, voterID string, decision bool, adminID string) (*models.Voter, error) {
	status := models.StatusFromDecision(decision)
	decidedAt := s.now().UTC()

	voter, err := s.voters.SetVerification(ctx, voterID, status, adminID, decidedAt)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		decisionsTotal.WithLabelValues("not_found").Inc()
		return nil, ErrVoterNotFound
	case errors.Is(err, repository.ErrAlreadyDecided):
		decisionsTotal.WithLabelValues("conflict").Inc()
		current := "unknown"
		if voter != nil {
			current = voter.Status.Label()
		}
		s.logger.Info("Decision refused, voter already decided",
			util.String("voter_id", voterID),
			util.String("current", current),
			util.String("admin_id", adminID))
		return nil, ErrAlreadyDecided
	case err != nil:
		decisionsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("failed to set verification: %w", err)
	}
	decisionsTotal.WithLabelValues(status.Label()).Inc()

	record := &models.Decision{
		EventID:   uuid.NewString(),
		VoterID:   voter.ID,
		AdminID:   adminID,
		Status:    voter.Status,
		Region:    voter.Region,
		DecidedAt: decidedAt,
	}
	s.afterCommit(ctx, map[string]func(context.Context) error{
		"events":    func(ctx context.Context) error { return s.events.PublishDecision(ctx, record) },
		"audit":     func(ctx context.Context) error { return s.audit.RecordDecision(ctx, record) },
		"analytics": func(ctx context.Context) error { return s.analytics.RecordDecision(ctx, record) },
	})

	s.logger.Info("Voter verification decided",
		util.String("voter_id", voter.ID),
		util.String("status", status.Label()),
		util.String("admin_id", adminID))

	return voter, nil
}

// afterCommit runs the side-effect writes concurrently. Failures are logged and counted;
// the committed change stands regardless.
func (s *VoterService) afterCommit(ctx context.Context, sinks map[string]func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)
	defer cancel()

	var g errgroup.Group
	for name, write := range sinks {
		name, write := name, write
		g.Go(func() error {
			if err := write(ctx); err != nil {
				sideEffectFailures.WithLabelValues(name).Inc()
				s.logger.Warn("Side-effect write failed",
					util.String("sink", name),
					util.ErrorField(err))
			}
			return nil
		})
	}
	_ = g.Wait()
}

// Analytics returns the registration breakdown, falling back to the voter store when
// the analytics store is unavailable.
func (s *VoterService) Analytics(ctx context.Context) (*models.RegistrationStats, error) {
	stats, err := s.analytics.Summary(ctx)
	if err == nil {
		return stats, nil
	}
	if !errors.Is(err, analytics.ErrNotConfigured) {
		s.logger.Warn("Analytics store unavailable, computing from voter store", util.ErrorField(err))
	}

	voters, err := s.ListVoters(ctx)
	if err != nil {
		return nil, err
	}
	return analytics.FromVoters(voters), nil
}

// DecisionHistory returns the recorded decisions for a voter, oldest first.
func (s *VoterService) DecisionHistory(ctx context.Context, voterID string) ([]*models.Decision, error) {
	if _, err := s.getVoter(ctx, voterID); err != nil {
		return nil, err
	}
	history, err := s.audit.History(ctx, voterID)
	if err != nil {
		return nil, fmt.Errorf("failed to load decision history: %w", err)
	}
	return history, nil
}

// EnsureAdmin creates the bootstrap admin account when it does not exist.
func (s *VoterService) EnsureAdmin(ctx context.Context, username, password, email string) error {
	if username == "" || password == "" {
		return fmt.Errorf("%w: admin username and password are required", ErrInvalidInput)
	}

	existing, err := s.voters.GetVoterByUsername(ctx, username)
	if err == nil {
		if !existing.IsAdmin() {
			return fmt.Errorf("%w: username %q belongs to a voter", ErrInvalidInput, username)
		}
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to look up admin: %w", err)
	}

	hash, err := s.hasher.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	now := s.now().UTC()
	admin := &models.Voter{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        email,
		Status:       models.StatusPending,
		CreatedAt:    now,
		Role:         models.RoleAdmin,
		PasswordHash: hash,
		UpdatedAt:    &now,
	}
	if err := s.voters.CreateVoter(ctx, admin); err != nil && !errors.Is(err, repository.ErrUsernameTaken) {
		return fmt.Errorf("failed to create admin: %w", err)
	}

	s.logger.Info("Admin account ensured", util.String("username", username))
	return nil
}

func (s *VoterService) HealthCheck(ctx context.Context) error {
	return s.voters.HealthCheck(ctx)
}

func (s *VoterService) getVoter(ctx context.Context, voterID string) (*models.Voter, error) {
	voter, err := s.voters.GetVoterByID(ctx, voterID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && voter.IsAdmin()) {
		return nil, ErrVoterNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get voter: %w", err)
	}
	return voter, nil
}
