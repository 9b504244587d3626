package routes

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/congo-pay/onboarding/internal/account"
	"github.com/congo-pay/onboarding/internal/credential"
	"github.com/congo-pay/onboarding/internal/events"
	"github.com/congo-pay/onboarding/internal/kyc"
	"github.com/congo-pay/onboarding/internal/notification"
	"github.com/congo-pay/onboarding/internal/onboarding"
	"github.com/congo-pay/onboarding/internal/otp"
)

// assemble builds the onboarding service from whatever backing services are
// present, falling back to in-memory stores and logging senders.
func assemble(ctx context.Context, d Deps) (*onboarding.Service, func(), error) {
	cfg := d.Cfg
	logger := d.Logger
	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Warn("close dependency", slog.Any("error", err))
			}
		}
	}

	var store otp.Store
	if d.Cache != nil {
		store = otp.NewRedisStore(d.Cache, cfg.OTPStoreTimeout)
	} else {
		logger.Warn("redis not configured; using in-memory otp store")
		store = otp.NewMemoryStore()
	}
	digester, err := otp.NewDigester(cfg.OTPSecret)
	if err != nil {
		return nil, nil, err
	}
	otpCfg := cfg.OTP()
	limiter := otp.NewRateLimiter(store, otpCfg.Limits, otpCfg.AtomicRateLimit)
	issuer := otp.NewIssuer(store, limiter, digester, otpCfg, logger)
	guard := otp.NewGuard(store, digester, otpCfg, logger)

	hashers, err := credential.NewSet(cfg.CredentialPepper)
	if err != nil {
		return nil, nil, err
	}

	var (
		records  onboarding.Repository
		accounts account.Repository
	)
	if d.DB != nil {
		records = onboarding.NewPostgresRepository(d.DB)
		accounts = account.NewPostgresRepository(d.DB)
	} else {
		logger.Warn("database not configured; using in-memory repositories")
		records = onboarding.NewMemoryRepository()
		accounts = account.NewMemoryRepository()
	}

	var sms notification.Sender = notification.NewLogSender(logger)
	if d.Rabbit != nil {
		qs, err := notification.NewQueueSender(d.Rabbit, cfg.SMSQueue, otpCfg.Expiry, logger)
		if err != nil {
			return nil, nil, err
		}
		sms = qs
		closers = append(closers, qs.Close)
	}

	var publisher events.Publisher = events.Nop{}
	if kp := events.NewKafkaPublisher(cfg.KafkaBrokerList(), cfg.OnboardingEventsTopic); kp != nil {
		publisher = kp
		closers = append(closers, kp.Close)
	}

	var documents kyc.DocumentStore = kyc.NewMemoryStore()
	if d.Objects != nil {
		ms, err := kyc.NewMinioStore(ctx, d.Objects, cfg.KYCBucket, logger)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		documents = ms
	}

	svc, err := onboarding.NewService(onboarding.Deps{
		Repo:        records,
		Issuer:      issuer,
		Guard:       guard,
		Hashers:     hashers,
		Accounts:    account.NewService(accounts, cfg.LimitedDailyLimit),
		Documents:   documents,
		SMS:         sms,
		Events:      publisher,
		Risk:        onboarding.NewRuleEvaluator(cfg.RiskMaxOTPRetries, cfg.RiskMinAge),
		Logger:      logger,
		CountryCode: cfg.DefaultCountryCode,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("build onboarding service: %w", err)
	}
	return svc, cleanup, nil
}
