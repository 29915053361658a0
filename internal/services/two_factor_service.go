package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"time"

	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/auth"
	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/cache"
	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/clock"
	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/delivery"
	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/models"
	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/internal/repositories"
	"github.com/CodeWith-PeterBull/laravel-breeze-2fa-sub000/pkg/logger"
	"github.com/go-playground/validator/v10"
)

// Cache namespaces
const (
	pendingCodeNamespace = "otp"
	usedStepNamespace    = "totp-used"
)

// recoveryAttemptMethod labels recovery code attempts in the audit trail
const recoveryAttemptMethod = "recovery"

// TwoFactorConfig holds orchestrator policy
type TwoFactorConfig struct {
	EnabledMethods []models.Method
	TOTPSecretSize int

	OTPLength int
	OTPExpiry time.Duration

	RecoveryEnabled bool
	RecoveryCount   int

	// ConfirmRateLimited applies the verification limiter to setup confirmation too
	ConfirmRateLimited bool

	DeviceTrustEnabled  bool
	DeviceTrustDuration time.Duration

	// StrictClassification routes a code to exactly one matcher by its shape.
	// Otherwise recovery matching is tried first whenever the length fits.
	StrictClassification bool
}

// TwoFactorDeps are the collaborators of TwoFactorService
type TwoFactorDeps struct {
	Repo     repositories.TwoFactorRepository
	Cipher   *auth.SecretCipher
	TOTP     *auth.TOTPManager
	Recovery *RecoveryCodeService
	Limiter  *RateLimitService
	Devices  *DeviceTrustService
	Audit    *AuditService
	Codes    cache.Store
	// Providers maps email and sms to their transport; a missing entry means the channel is unavailable
	Providers map[models.Method]delivery.Provider
	Notifier  Notifier
	Timing    *auth.TimingDelay
	Random    io.Reader
	Clock     clock.Clock
	Issuer    string
}

// TwoFactorService runs enrollment, confirmation and verification for every method
type TwoFactorService struct {
	repo      repositories.TwoFactorRepository
	cipher    *auth.SecretCipher
	totp      *auth.TOTPManager
	recovery  *RecoveryCodeService
	limiter   *RateLimitService
	devices   *DeviceTrustService
	audit     *AuditService
	codes     cache.Store
	providers map[models.Method]delivery.Provider
	notifier  Notifier
	timing    *auth.TimingDelay
	random    io.Reader
	clock     clock.Clock
	issuer    string
	config    TwoFactorConfig
	validate  *validator.Validate
	logger    *slog.Logger
}

// NewTwoFactorService creates a new TwoFactorService
func NewTwoFactorService(deps TwoFactorDeps, config TwoFactorConfig, logger *slog.Logger) *TwoFactorService {
	if deps.Notifier == nil {
		deps.Notifier = NoopNotifier{}
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real{}
	}
	if config.OTPLength <= 0 {
		config.OTPLength = auth.DefaultCodeLength
	}
	if config.OTPExpiry <= 0 {
		config.OTPExpiry = 10 * time.Minute
	}
	if config.TOTPSecretSize <= 0 {
		config.TOTPSecretSize = auth.DefaultSecretSize
	}

	return &TwoFactorService{
		repo:      deps.Repo,
		cipher:    deps.Cipher,
		totp:      deps.TOTP,
		recovery:  deps.Recovery,
		limiter:   deps.Limiter,
		devices:   deps.Devices,
		audit:     deps.Audit,
		codes:     deps.Codes,
		providers: deps.Providers,
		notifier:  deps.Notifier,
		timing:    deps.Timing,
		random:    deps.Random,
		clock:     deps.Clock,
		issuer:    deps.Issuer,
		config:    config,
		validate:  validator.New(),
		logger:    logger,
	}
}

// ============================================================================
// Storage boundary
// ============================================================================

// load returns the user's record with the secret opened, or ErrNotFound
func (s *TwoFactorService) load(ctx context.Context, userID string) (*models.TwoFactorAuth, error) {
	rec, err := s.repo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load two-factor record: %w", err)
	}

	tfa := &models.TwoFactorAuth{
		ID:                     rec.ID,
		UserID:                 rec.UserID,
		Enabled:                rec.Enabled,
		Method:                 rec.Method,
		PhoneNumber:            rec.PhoneNumber,
		ConfirmedAt:            rec.ConfirmedAt,
		BackupCodesGeneratedAt: rec.BackupCodesGeneratedAt,
		CreatedAt:              rec.CreatedAt,
		UpdatedAt:              rec.UpdatedAt,
	}

	if len(rec.SecretEncrypted) > 0 {
		secret, err := s.cipher.Open(rec.UserID, rec.SecretEncrypted)
		if err != nil {
			return nil, models.ConfigError("cannot decrypt two-factor secret for user %s: %v", userID, err)
		}
		tfa.Secret = secret
	}
	if tfa.Method == models.MethodTOTP && len(tfa.Secret) == 0 {
		return nil, models.ConfigError("totp record for user %s has no secret", userID)
	}

	return tfa, nil
}

// save seals the secret and upserts the record
func (s *TwoFactorService) save(ctx context.Context, tfa *models.TwoFactorAuth) error {
	rec := &models.TwoFactorAuthRecord{
		UserID:                 tfa.UserID,
		Enabled:                tfa.Enabled,
		Method:                 tfa.Method,
		PhoneNumber:            tfa.PhoneNumber,
		ConfirmedAt:            tfa.ConfirmedAt,
		BackupCodesGeneratedAt: tfa.BackupCodesGeneratedAt,
	}

	if len(tfa.Secret) > 0 {
		sealed, err := s.cipher.Seal(tfa.UserID, tfa.Secret)
		if err != nil {
			return fmt.Errorf("failed to seal two-factor secret: %w", err)
		}
		rec.SecretEncrypted = sealed
	}

	if err := s.repo.Save(ctx, rec); err != nil {
		return fmt.Errorf("failed to save two-factor record: %w", err)
	}
	tfa.ID = rec.ID
	return nil
}

func (s *TwoFactorService) methodEnabled(method models.Method) bool {
	for _, m := range s.config.EnabledMethods {
		if m == method {
			return true
		}
	}
	return false
}

func (s *TwoFactorService) event(userID string, method models.Method, meta models.RequestMeta, reason string) models.Event {
	return models.Event{
		UserID:    userID,
		Method:    method,
		IPAddress: meta.IPAddress,
		UserAgent: meta.UserAgent,
		Reason:    reason,
		At:        s.clock.Now(),
	}
}

// ============================================================================
// Enrollment
// ============================================================================

// Enable starts enrollment for method. The record stays disabled until Confirm.
// A pending enrollment is replaced; a confirmed one is refused.
func (s *TwoFactorService) Enable(ctx context.Context, profile models.UserProfile, method models.Method, opts models.EnableOptions) (*models.SetupResult, error) {
	if err := s.validate.Struct(profile); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}
	if err := s.validate.Struct(opts); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidInput, err)
	}
	if _, err := models.ParseMethod(method.String()); err != nil {
		return nil, err
	}
	if !s.methodEnabled(method) {
		return nil, models.ErrMethodDisabled
	}

	existing, err := s.repo.GetByUserID(ctx, profile.UserID)
	switch {
	case err == nil && existing.ConfirmedAt != nil:
		return nil, models.ErrAlreadyEnabled
	case err != nil && !errors.Is(err, models.ErrNotFound):
		return nil, fmt.Errorf("failed to load two-factor record: %w", err)
	}

	tfa := &models.TwoFactorAuth{
		UserID: profile.UserID,
		Method: method,
	}
	result := &models.SetupResult{Method: method}

	var destination string
	switch method {
	case models.MethodTOTP:
		secret, err := auth.GenerateTOTPSecret(s.random, s.config.TOTPSecretSize)
		if err != nil {
			return nil, err
		}
		tfa.Secret = secret

		account := profile.Email
		if account == "" {
			account = profile.UserID
		}
		// Built before saving so a failure leaves no pending record behind
		if result.QRPayload, err = s.totp.ProvisioningURI(account, secret); err != nil {
			return nil, err
		}
		result.Secret = auth.EncodeSecret(secret)
	case models.MethodEmail:
		if profile.Email == "" {
			return nil, fmt.Errorf("%w: email address required for email two-factor", models.ErrInvalidInput)
		}
		destination = profile.Email
	case models.MethodSMS:
		tfa.PhoneNumber = opts.PhoneNumber
		if tfa.PhoneNumber == "" {
			tfa.PhoneNumber = profile.PhoneNumber
		}
		if tfa.PhoneNumber == "" {
			return nil, fmt.Errorf("%w: phone number required for sms two-factor", models.ErrInvalidInput)
		}
		destination = tfa.PhoneNumber
	}

	if err := s.save(ctx, tfa); err != nil {
		return nil, err
	}
	s.clearPendingCode(ctx, profile.UserID)

	if method == models.MethodTOTP {
		var err error
		if result.QRCodeDataURL, err = s.totp.QRCodeDataURL(result.QRPayload); err != nil {
			// The URI alone is enough to enroll; the image is a convenience.
			s.logger.Warn("failed to render QR code",
				slog.String("user_id", profile.UserID),
				slog.Any("error", err))
		}
	} else {
		if err := s.deliver(ctx, profile.UserID, method, destination); err != nil {
			return nil, err
		}
		result.CodeSent = true
		result.Destination = logger.SanitizedDestination(destination)
	}

	if s.config.RecoveryEnabled && !opts.SkipRecoveryCodes {
		codes, err := s.issueRecoveryCodes(ctx, profile.UserID)
		if err != nil {
			return nil, err
		}
		result.RecoveryCodes = codes
	}

	s.logger.Info("two-factor enrollment started",
		slog.String("user_id", profile.UserID),
		slog.String("method", method.String()))
	s.notifier.OnEnabled(ctx, s.event(profile.UserID, method, models.RequestMeta{}, ""))

	return result, nil
}

func (s *TwoFactorService) issueRecoveryCodes(ctx context.Context, userID string) ([]string, error) {
	codes, err := s.recovery.Generate(ctx, userID, s.config.RecoveryCount)
	if err != nil {
		return nil, err
	}
	if err := s.repo.SetRecoveryCodesGeneratedAt(ctx, userID, s.clock.Now()); err != nil {
		return nil, fmt.Errorf("failed to stamp recovery code generation: %w", err)
	}
	return codes, nil
}

// Confirm proves possession of the pending method and switches two-factor on
func (s *TwoFactorService) Confirm(ctx context.Context, userID, code string, meta models.RequestMeta) (bool, error) {
	tfa, err := s.load(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return false, models.ErrNoPendingSetup
	}
	if err != nil {
		return false, err
	}
	if tfa.IsConfirmed() {
		return false, models.ErrNoPendingSetup
	}

	key := RateLimitKey(userID, meta.IPAddress)
	if s.config.ConfirmRateLimited {
		if limited, retryAfter := s.limiter.IsLimited(ctx, key); limited {
			s.recordAttempt(ctx, userID, tfa.Method.String(), models.AttemptSetup, meta, code, models.FailureRateLimited)
			s.notifier.OnRateLimited(ctx, s.event(userID, tfa.Method, meta, models.FailureRateLimited))
			return false, &models.RateLimitError{RetryAfter: retryAfter}
		}
	}

	ok, reason, err := s.checkPrimary(ctx, tfa, code)
	if err != nil {
		return false, err
	}
	if !ok {
		if s.config.ConfirmRateLimited {
			s.limiter.RecordAttempt(ctx, key)
		}
		s.recordAttempt(ctx, userID, tfa.Method.String(), models.AttemptSetup, meta, code, reason)
		s.notifier.OnVerificationFailed(ctx, s.event(userID, tfa.Method, meta, reason))
		return false, models.ErrInvalidCode
	}

	if err := s.repo.MarkConfirmed(ctx, userID, s.clock.Now()); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return false, models.ErrNoPendingSetup
		}
		return false, fmt.Errorf("failed to confirm two-factor: %w", err)
	}

	if s.config.ConfirmRateLimited {
		s.limiter.Clear(ctx, key)
	}
	s.recordAttempt(ctx, userID, tfa.Method.String(), models.AttemptSetup, meta, code, "")
	s.logger.Info("two-factor confirmed",
		slog.String("user_id", userID),
		slog.String("method", tfa.Method.String()))
	s.notifier.OnConfirmed(ctx, s.event(userID, tfa.Method, meta, ""))
	return true, nil
}

// Disable tears down two-factor for the user: device sessions, recovery codes
// and the record itself. It reports whether a record existed.
func (s *TwoFactorService) Disable(ctx context.Context, userID string) (bool, error) {
	rec, err := s.repo.GetByUserID(ctx, userID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return false, fmt.Errorf("failed to load two-factor record: %w", err)
	}

	devices, err := s.devices.ForgetAll(ctx, userID)
	if err != nil {
		return false, err
	}
	if _, err := s.recovery.DeleteAll(ctx, userID); err != nil {
		return false, err
	}
	deleted, err := s.repo.Delete(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete two-factor record: %w", err)
	}
	s.clearPendingCode(ctx, userID)

	if deleted {
		s.logger.Info("two-factor disabled",
			slog.String("user_id", userID),
			slog.Int64("devices_forgotten", devices))
		var method models.Method
		if rec != nil {
			method = rec.Method
		}
		e := s.event(userID, method, models.RequestMeta{}, "")
		e.Count = int(devices)
		s.notifier.OnDisabled(ctx, e)
	}
	return deleted, nil
}

// ============================================================================
// Verification
// ============================================================================

// Verify checks a code for a user with two-factor switched on. Failures are
// ErrInvalidCode, ErrNotEnabled or a *models.RateLimitError.
func (s *TwoFactorService) Verify(ctx context.Context, req models.VerifyRequest) (*models.VerifyResult, error) {
	start := time.Now()
	key := RateLimitKey(req.UserID, req.Meta.IPAddress)

	if limited, retryAfter := s.limiter.IsLimited(ctx, key); limited {
		s.recordAttempt(ctx, req.UserID, "", models.AttemptChallenge, req.Meta, req.Code, models.FailureRateLimited)
		s.notifier.OnRateLimited(ctx, s.event(req.UserID, "", req.Meta, models.FailureRateLimited))
		return nil, &models.RateLimitError{RetryAfter: retryAfter}
	}

	tfa, err := s.load(ctx, req.UserID)
	if err != nil && !errors.Is(err, models.ErrNotFound) {
		return nil, err
	}
	if tfa == nil || !tfa.IsActive() {
		s.limiter.RecordAttempt(ctx, key)
		s.recordAttempt(ctx, req.UserID, "", models.AttemptChallenge, req.Meta, req.Code, models.FailureNotEnabled)
		s.timing.WaitFrom(ctx, start)
		return nil, models.ErrNotEnabled
	}

	usedRecovery, ok, reason, err := s.match(ctx, tfa, req)
	if err != nil {
		return nil, err
	}

	attemptMethod := tfa.Method.String()
	if usedRecovery {
		attemptMethod = recoveryAttemptMethod
	}

	if !ok {
		s.limiter.RecordAttempt(ctx, key)
		s.recordAttempt(ctx, req.UserID, attemptMethod, models.AttemptChallenge, req.Meta, req.Code, reason)
		s.notifier.OnVerificationFailed(ctx, s.event(req.UserID, tfa.Method, req.Meta, reason))
		s.timing.WaitFrom(ctx, start)
		return nil, models.ErrInvalidCode
	}

	s.limiter.Clear(ctx, key)
	s.recordAttempt(ctx, req.UserID, attemptMethod, models.AttemptChallenge, req.Meta, req.Code, "")

	result := &models.VerifyResult{
		Verified:         true,
		Method:           tfa.Method,
		UsedRecoveryCode: usedRecovery,
	}

	if s.config.RecoveryEnabled {
		remaining, err := s.recovery.Remaining(ctx, req.UserID)
		if err != nil {
			return nil, err
		}
		result.RecoveryCodesRemaining = remaining
	}

	if usedRecovery {
		e := s.event(req.UserID, tfa.Method, req.Meta, "")
		e.Count = result.RecoveryCodesRemaining
		s.notifier.OnRecoveryCodeUsed(ctx, e)
	}
	s.notifier.OnVerified(ctx, s.event(req.UserID, tfa.Method, req.Meta, ""))

	if req.RememberDevice && s.config.DeviceTrustEnabled {
		// The code is already spent; a device that cannot be remembered
		// still gets its verified result, just without a credential.
		credential, err := s.devices.Remember(ctx, req.UserID, req.Meta, s.config.DeviceTrustDuration)
		if err != nil {
			s.logger.Error("failed to remember device",
				slog.String("user_id", req.UserID),
				slog.Any("error", err))
		} else {
			result.DeviceToken = credential
			s.notifier.OnDeviceRemembered(ctx, s.event(req.UserID, tfa.Method, req.Meta, ""))
		}
	}

	return result, nil
}

// match classifies the submission and runs the matching verifier(s).
// usedRecovery reports which matcher produced the final answer.
func (s *TwoFactorService) match(ctx context.Context, tfa *models.TwoFactorAuth, req models.VerifyRequest) (usedRecovery, ok bool, reason string, err error) {
	if s.config.RecoveryEnabled {
		normalized := auth.NormalizeRecoveryCode(req.Code)
		if auth.LooksLikeRecoveryCode(normalized, s.recovery.Length(), s.config.StrictClassification) {
			ok, err := s.recovery.Verify(ctx, tfa.UserID, normalized, req.Meta)
			if err != nil {
				return true, false, "", err
			}
			if ok {
				return true, true, "", nil
			}
			if s.config.StrictClassification {
				return true, false, models.FailureInvalidCode, nil
			}
		}
	}

	ok, reason, err = s.checkPrimary(ctx, tfa, req.Code)
	return false, ok, reason, err
}

// checkPrimary verifies code against the user's configured method
func (s *TwoFactorService) checkPrimary(ctx context.Context, tfa *models.TwoFactorAuth, code string) (bool, string, error) {
	switch tfa.Method {
	case models.MethodTOTP:
		opts := s.totp.Options()
		counter, ok, err := auth.VerifyTOTP(tfa.Secret, code, s.clock.Now(), opts)
		if err != nil {
			return false, "", err
		}
		if !ok {
			return false, models.FailureInvalidCode, nil
		}

		// Each time step may be used once
		ttl := time.Duration(opts.Period) * time.Second * time.Duration(2*opts.Window+1)
		claimed, err := s.codes.SetNX(ctx, usedStepNamespace, tfa.UserID+":"+strconv.FormatUint(counter, 10), "1", ttl)
		if err != nil {
			s.logger.Warn("totp replay guard unavailable",
				slog.String("user_id", tfa.UserID),
				slog.Any("error", err))
			return true, "", nil
		}
		if !claimed {
			return false, models.FailureReplay, nil
		}
		return true, "", nil

	case models.MethodEmail, models.MethodSMS:
		// The pending code is consumed in the same step it is matched, so
		// concurrent submissions of one code have a single winner.
		normalized := auth.NormalizeNumericCode(code)
		if normalized == "" {
			return false, models.FailureInvalidCode, nil
		}
		consumed, err := s.codes.CompareAndDelete(ctx, pendingCodeNamespace, tfa.UserID, auth.HashCode(normalized))
		if err != nil {
			return false, "", fmt.Errorf("failed to consume pending code: %w", err)
		}
		if !consumed {
			return false, models.FailureInvalidCode, nil
		}
		return true, "", nil
	}

	return false, "", models.ConfigError("unknown two-factor method %q", tfa.Method)
}

// ============================================================================
// Delivered codes
// ============================================================================

// SendCode issues a fresh code over the user's email or sms method.
// An empty method means the method the user enrolled with.
func (s *TwoFactorService) SendCode(ctx context.Context, profile models.UserProfile, method models.Method) (bool, error) {
	tfa, err := s.load(ctx, profile.UserID)
	if errors.Is(err, models.ErrNotFound) {
		return false, models.ErrNotEnabled
	}
	if err != nil {
		return false, err
	}

	if method == "" {
		method = tfa.Method
	}
	if method != tfa.Method || !method.UsesDeliveredCode() {
		return false, fmt.Errorf("%w: user is not enrolled for %s codes", models.ErrInvalidInput, method)
	}
	if !s.methodEnabled(method) {
		return false, models.ErrMethodDisabled
	}

	destination := profile.Email
	if method == models.MethodSMS {
		destination = tfa.PhoneNumber
		if destination == "" {
			destination = profile.PhoneNumber
		}
	}
	if destination == "" {
		return false, fmt.Errorf("%w: no destination for %s code", models.ErrInvalidInput, method)
	}

	if err := s.deliver(ctx, profile.UserID, method, destination); err != nil {
		return false, err
	}
	return true, nil
}

// deliver generates a code, parks its hash in the cache and hands the plaintext
// to the provider. A failed send clears the code so it can never be matched.
func (s *TwoFactorService) deliver(ctx context.Context, userID string, method models.Method, destination string) error {
	provider := s.providers[method]
	if provider == nil {
		return models.ConfigError("no delivery provider configured for %s", method)
	}

	code, err := auth.GenerateNumericCode(s.random, s.config.OTPLength)
	if err != nil {
		return err
	}
	if err := s.codes.Set(ctx, pendingCodeNamespace, userID, auth.HashCode(code), s.config.OTPExpiry); err != nil {
		return fmt.Errorf("failed to store pending code: %w", err)
	}

	result, err := provider.Send(ctx, destination, delivery.CodeMessage(s.issuer, code, s.config.OTPExpiry))
	if err != nil {
		s.clearPendingCode(ctx, userID)
		s.logger.Warn("two-factor code delivery failed",
			slog.String("user_id", userID),
			slog.String("method", method.String()),
			slog.String("provider", provider.Name()),
			slog.String("destination", logger.SanitizedDestination(destination)),
			slog.Any("error", err))
		s.notifier.OnDeliveryFailed(ctx, s.event(userID, method, models.RequestMeta{}, models.FailureDelivery))
		return fmt.Errorf("%w: %v", models.ErrDeliveryFailed, err)
	}

	s.logger.Info("two-factor code sent",
		slog.String("user_id", userID),
		slog.String("method", method.String()),
		slog.String("provider", result.Provider),
		slog.String("destination", logger.SanitizedDestination(destination)))
	s.notifier.OnCodeSent(ctx, s.event(userID, method, models.RequestMeta{}, ""))
	return nil
}

func (s *TwoFactorService) clearPendingCode(ctx context.Context, userID string) {
	if err := s.codes.Delete(ctx, pendingCodeNamespace, userID); err != nil {
		s.logger.Warn("failed to clear pending code",
			slog.String("user_id", userID),
			slog.Any("error", err))
	}
}

// ============================================================================
// Devices
// ============================================================================

// IsDeviceRemembered reports whether credential lets the user skip the challenge
func (s *TwoFactorService) IsDeviceRemembered(ctx context.Context, userID, credential string) (bool, error) {
	if !s.config.DeviceTrustEnabled {
		return false, nil
	}
	return s.devices.IsRemembered(ctx, userID, credential)
}

// ForgetDevice revokes the session behind credential
func (s *TwoFactorService) ForgetDevice(ctx context.Context, userID, credential string) error {
	n, err := s.devices.Forget(ctx, userID, credential)
	if err != nil {
		return err
	}
	if n > 0 {
		e := s.event(userID, "", models.RequestMeta{}, "")
		e.Count = int(n)
		s.notifier.OnDeviceForgotten(ctx, e)
	}
	return nil
}

// ForgetAllDevices revokes every remembered device and returns how many there were
func (s *TwoFactorService) ForgetAllDevices(ctx context.Context, userID string) (int64, error) {
	n, err := s.devices.ForgetAll(ctx, userID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		e := s.event(userID, "", models.RequestMeta{}, "")
		e.Count = int(n)
		s.notifier.OnDeviceForgotten(ctx, e)
	}
	return n, nil
}

// ListDevices returns the user's remembered devices scored against the current request
func (s *TwoFactorService) ListDevices(ctx context.Context, userID string, current models.RequestMeta, currentCredential string) ([]models.DeviceSummary, error) {
	return s.devices.List(ctx, userID, current, currentCredential)
}

// ============================================================================
// Status
// ============================================================================

// GetStatus reports the user's two-factor state. Users without a record are simply disabled.
func (s *TwoFactorService) GetStatus(ctx context.Context, userID string) (*models.Status, error) {
	rec, err := s.repo.GetByUserID(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return &models.Status{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load two-factor record: %w", err)
	}

	status := &models.Status{
		Enabled:                  rec.Enabled && rec.ConfirmedAt != nil,
		Method:                   rec.Method,
		Confirmed:                rec.ConfirmedAt != nil,
		ConfirmedAt:              rec.ConfirmedAt,
		RecoveryCodesGeneratedAt: rec.BackupCodesGeneratedAt,
	}
	if rec.PhoneNumber != "" {
		status.PhoneNumber = logger.SanitizedPhone(rec.PhoneNumber)
	}

	if status.RecoveryCodesRemaining, err = s.recovery.Remaining(ctx, userID); err != nil {
		return nil, err
	}
	if status.RememberedDevices, err = s.devices.Count(ctx, userID); err != nil {
		return nil, err
	}
	return status, nil
}

// IsEnabledForUser reports whether the user must pass a second factor
func (s *TwoFactorService) IsEnabledForUser(ctx context.Context, userID string) (bool, error) {
	rec, err := s.repo.GetByUserID(ctx, userID)
	if errors.Is(err, models.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load two-factor record: %w", err)
	}
	return rec.Enabled && rec.ConfirmedAt != nil, nil
}

// RegenerateRecoveryCodes replaces the user's recovery batch
func (s *TwoFactorService) RegenerateRecoveryCodes(ctx context.Context, userID string) ([]string, error) {
	if !s.config.RecoveryEnabled {
		return nil, models.ErrMethodDisabled
	}

	enabled, err := s.IsEnabledForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !enabled {
		return nil, models.ErrNotEnabled
	}

	codes, err := s.issueRecoveryCodes(ctx, userID)
	if err != nil {
		return nil, err
	}

	e := s.event(userID, "", models.RequestMeta{}, "")
	e.Count = len(codes)
	s.notifier.OnRecoveryCodesRegenerated(ctx, e)
	return codes, nil
}

// AttemptStatistics summarizes the user's attempts since the given time
func (s *TwoFactorService) AttemptStatistics(ctx context.Context, userID string, since time.Time) (*models.AttemptStats, error) {
	return s.audit.Stats(ctx, userID, since)
}

func (s *TwoFactorService) recordAttempt(ctx context.Context, userID, method string, kind models.AttemptType, meta models.RequestMeta, code, failureReason string) {
	s.audit.RecordAttempt(ctx, AttemptRecord{
		UserID:        userID,
		Meta:          meta,
		Method:        method,
		Type:          kind,
		Success:       failureReason == "",
		FailureReason: failureReason,
		Code:          code,
	})
}
