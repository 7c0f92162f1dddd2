package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/google/uuid"
	"github.com/imbhaskarn/devboss-blog/internal/mail"
	"github.com/imbhaskarn/devboss-blog/internal/token"
)

// MailQueue enqueues rendered emails for asynchronous delivery. Delivery is
// decoupled from the request so a mail-transport outage never fails a
// response.
type MailQueue interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// Config carries the token lifetimes and the external base URL for callback
// links. The lifetimes intentionally differ per operation; they mirror the
// public API contract and must not be unified silently.
type Config struct {
	APIURL           string
	RefreshTokenTTL  time.Duration
	SignupAccessTTL  time.Duration
	SigninAccessTTL  time.Duration
	RefreshAccessTTL time.Duration
}

// Service orchestrates signup, signin, email verification, token refresh and
// password-reset flows.
type Service struct {
	repo     Repository
	tokens   *token.Manager
	cache    *token.Store
	renderer *mail.Renderer
	queue    MailQueue
	logger   *slog.Logger
	cfg      Config
}

// NewService constructs a Service.
func NewService(repo Repository, tokens *token.Manager, cache *token.Store, renderer *mail.Renderer, queue MailQueue, logger *slog.Logger, cfg Config) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:     repo,
		tokens:   tokens,
		cache:    cache,
		renderer: renderer,
		queue:    queue,
		logger:   logger,
		cfg:      cfg,
	}
}

// SignUpInput carries the registration fields.
type SignUpInput struct {
	Username string
	Email    string
	Password string
}

// Credentials is the token pair plus sanitized user returned by signup.
type Credentials struct {
	AccessToken  string     `json:"accessToken"`
	RefreshToken string     `json:"refreshToken"`
	User         PublicUser `json:"user"`
}

// SignUp registers a new account, issues a token pair and dispatches the
// verification email.
func (s *Service) SignUp(ctx context.Context, in SignUpInput) (*Credentials, error) {
	taken, err := s.repo.EmailExists(ctx, in.Email)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrEmailTaken
	}

	taken, err = s.repo.UsernameExists(ctx, in.Username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	// The unique indexes resolve a signup race: a concurrent insert with the
	// same email or username surfaces here as ErrEmailTaken/ErrUsernameTaken.
	user, err := s.repo.CreateUser(ctx, User{
		ID:           uuid.New(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: string(hash),
	})
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.tokens.GenerateRefreshToken(user.ID, s.cfg.RefreshTokenTTL)
	if err != nil {
		return nil, err
	}
	accessToken, err := s.tokens.GenerateAccessToken(accessPayload(user), s.cfg.SignupAccessTTL)
	if err != nil {
		return nil, err
	}

	opaque, err := token.NewOpaque()
	if err != nil {
		return nil, err
	}
	if err := s.cache.SaveVerification(ctx, user.Email, opaque); err != nil {
		return nil, err
	}
	if err := s.cache.MirrorAccessToken(ctx, user.Email, accessToken); err != nil {
		return nil, err
	}

	s.dispatchMail(ctx, user.Email, "Verify your email", func() (string, error) {
		return s.renderer.VerificationEmail(mail.LinkData{
			Name: user.Username,
			URL:  s.callbackURL("verify-email", opaque, user.Email),
		})
	})

	return &Credentials{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user.Public(),
	}, nil
}

// SignInInput carries the login fields; either Email or Username identifies
// the account.
type SignInInput struct {
	Email    string
	Username string
	Password string
}

// Session is the token pair plus full profile returned by signin.
type Session struct {
	AccessToken  string  `json:"accessToken"`
	RefreshToken string  `json:"refreshToken"`
	User         Profile `json:"user"`
}

// SignIn validates credentials and issues a token pair. Unknown identifier
// and wrong password both return ErrInvalidCredentials.
func (s *Service) SignIn(ctx context.Context, in SignInInput) (*Session, error) {
	identifier := in.Email
	if identifier == "" {
		identifier = in.Username
	}

	user, err := s.repo.FindByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	refreshToken, err := s.tokens.GenerateRefreshToken(user.ID, s.cfg.RefreshTokenTTL)
	if err != nil {
		return nil, err
	}
	accessToken, err := s.tokens.GenerateAccessToken(accessPayload(user), s.cfg.SigninAccessTTL)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if err := s.repo.TouchLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("stamp last login", slog.String("user_id", user.ID.String()), slog.Any("error", err))
	} else {
		user.LastLogin = &now
	}

	return &Session{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user.Profile(),
	}, nil
}

// VerifyEmail flips is_verified once the presented token matches the cached
// verification token. Mismatch, expiry and unknown address all collapse into
// ErrInvalidToken.
func (s *Service) VerifyEmail(ctx context.Context, presented, email string) (*PublicUser, error) {
	cached, err := s.cache.Verification(ctx, email)
	if err != nil {
		if errors.Is(err, token.ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if presented != cached {
		return nil, ErrInvalidToken
	}

	user, err := s.repo.MarkVerified(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}

	public := user.Public()
	return &public, nil
}

// Refresh validates a refresh token, re-reads the user and issues a new
// short-lived access token, mirroring it into the cache.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims, err := s.tokens.ValidateRefreshToken(refreshToken)
	if err != nil {
		return "", ErrInvalidToken
	}
	id, err := claims.UserID()
	if err != nil {
		return "", ErrInvalidToken
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return "", err
	}

	accessToken, err := s.tokens.GenerateAccessToken(accessPayload(user), s.cfg.RefreshAccessTTL)
	if err != nil {
		return "", err
	}
	if err := s.cache.MirrorAccessToken(ctx, user.Email, accessToken); err != nil {
		return "", err
	}
	return accessToken, nil
}

// ForgotPassword caches a reset token and dispatches the reset email. It
// succeeds for any address so responses never disclose whether an email is
// registered.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	opaque, err := token.NewOpaque()
	if err != nil {
		return err
	}
	if err := s.cache.SaveReset(ctx, email, opaque); err != nil {
		return err
	}

	s.dispatchMail(ctx, email, "Password reset link", func() (string, error) {
		return s.renderer.ResetEmail(mail.LinkData{
			Name: email,
			URL:  s.callbackURL("verify-forgot-password", opaque, email),
		})
	})
	return nil
}

// VerifyForgotPassword confirms reset eligibility and returns a short-lived
// access token. It does not change the password; that is a separate step
// outside this flow.
func (s *Service) VerifyForgotPassword(ctx context.Context, presented, email string) (string, error) {
	cached, err := s.cache.Reset(ctx, email)
	if err != nil {
		if errors.Is(err, token.ErrNotFound) {
			return "", ErrInvalidToken
		}
		return "", err
	}
	if presented != cached {
		return "", ErrInvalidToken
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return "", ErrInvalidToken
		}
		return "", err
	}

	return s.tokens.GenerateAccessToken(accessPayload(user), s.cfg.RefreshAccessTTL)
}

// dispatchMail renders and enqueues an email without surfacing failures to
// the caller.
func (s *Service) dispatchMail(ctx context.Context, to, subject string, render func() (string, error)) {
	body, err := render()
	if err != nil {
		s.logger.Error("render email", slog.String("to", to), slog.Any("error", err))
		return
	}
	if err := s.queue.SendEmail(ctx, to, subject, body); err != nil {
		s.logger.Warn("enqueue email", slog.String("to", to), slog.Any("error", err))
	}
}

func (s *Service) callbackURL(path, opaque, email string) string {
	q := url.Values{}
	q.Set("token", opaque)
	q.Set("email", email)
	return s.cfg.APIURL + "/api/v1/auth/" + path + "?" + q.Encode()
}

func accessPayload(u *User) token.AccessPayload {
	return token.AccessPayload{
		UserID:       u.ID,
		Username:     u.Username,
		Email:        u.Email,
		ProfileImage: u.ProfileImage,
	}
}
