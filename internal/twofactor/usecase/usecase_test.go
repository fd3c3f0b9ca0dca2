package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/shandysiswandi/posture/internal/pkg/clock"
	"github.com/shandysiswandi/posture/internal/pkg/goerror"
	"github.com/shandysiswandi/posture/internal/pkg/goroutine"
	"github.com/shandysiswandi/posture/internal/pkg/jwt"
	"github.com/shandysiswandi/posture/internal/pkg/mfa"
	"github.com/shandysiswandi/posture/internal/pkg/otp"
	"github.com/shandysiswandi/posture/internal/pkg/validator"
	"github.com/shandysiswandi/posture/internal/twofactor/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testIdentity = "8f14e45f-ceea-467f-a0e6-6e1b5a2c1d11"

type mockRepoDB struct {
	mock.Mock
}

func (m *mockRepoDB) GetCredential(ctx context.Context, identity string) (*entity.Credential, error) {
	args := m.Called(ctx, identity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.Credential), args.Error(1)
}

func (m *mockRepoDB) SaveCredential(ctx context.Context, identity string, sealedSecret []byte) error {
	return m.Called(ctx, identity, sealedSecret).Error(0)
}

func (m *mockRepoDB) ClearCredential(ctx context.Context, identity string) error {
	return m.Called(ctx, identity).Error(0)
}

// memRepo is an in-memory credential store with the same single-write
// semantics as the real stores.
type memRepo struct {
	mu   sync.Mutex
	rows map[string]entity.Credential
}

func newMemRepo() *memRepo {
	return &memRepo{rows: map[string]entity.Credential{}}
}

func (r *memRepo) GetCredential(_ context.Context, identity string) (*entity.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.rows[identity]
	if !ok {
		return nil, goerror.ErrNotFound
	}
	return &c, nil
}

func (r *memRepo) SaveCredential(_ context.Context, identity string, sealed []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows[identity] = entity.Credential{Identity: identity, Secret: sealed, Enabled: true}
	return nil
}

func (r *memRepo) ClearCredential(_ context.Context, identity string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rows[identity]; ok {
		r.rows[identity] = entity.Credential{Identity: identity}
	}
	return nil
}

type recordingPublisher struct {
	mu       sync.Mutex
	enabled  []EnrollmentEvent
	disabled []EnrollmentEvent
	err      error
}

func (p *recordingPublisher) PublishTOTPEnabled(_ context.Context, ev EnrollmentEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled = append(p.enabled, ev)
	return p.err
}

func (p *recordingPublisher) PublishTOTPDisabled(_ context.Context, ev EnrollmentEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.disabled = append(p.disabled, ev)
	return p.err
}

type fixture struct {
	uc   *Usecase
	totp *otp.TOTP
	enc  *mfa.AESGCMEncryptor
	now  *time.Time
	pub  *recordingPublisher
	gm   *goroutine.Manager
}

func newFixture(t *testing.T, repo repoDB) *fixture {
	t.Helper()

	v, err := validator.NewV10Validator()
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 9, 0, 15, 0, time.UTC)
	f := &fixture{
		totp: otp.NewTOTP(otp.Config{Issuer: "Posture"}),
		enc:  mfa.NewAESGCMEncryptor(mfa.StaticKeyProvider{KeyBytes: make([]byte, 32)}),
		now:  &now,
		pub:  &recordingPublisher{},
		gm:   goroutine.NewManager(4),
	}
	f.uc = New(Dependency{
		RepoDB:        repo,
		RepoMessaging: f.pub,
		Validator:     v,
		Encryptor:     f.enc,
		Totp:          f.totp,
		Clock:         clock.Func(func() time.Time { return *f.now }),
		Goroutine:     f.gm,
	})
	return f
}

func authCtx(identity, email string) context.Context {
	return jwt.SetAuth(context.Background(), jwt.Claims{
		RegisteredClaims: gojwt.RegisteredClaims{Subject: identity},
		Email:            email,
	})
}

func (f *fixture) code(t *testing.T, secret string, at time.Time) string {
	t.Helper()
	c, err := f.totp.GenerateCode(secret, at)
	require.NoError(t, err)
	return c
}

func assertCode(t *testing.T, err error, code goerror.Code) {
	t.Helper()
	var gerr *goerror.Error
	require.ErrorAs(t, err, &gerr)
	assert.Equal(t, code, gerr.Code())
}

func TestUnauthenticatedNeverTouchesStore(t *testing.T) {
	repo := &mockRepoDB{}
	f := newFixture(t, repo)
	ctx := context.Background()

	_, err := f.uc.Generate(ctx)
	assertCode(t, err, goerror.CodeUnauthenticated)

	assertCode(t, f.uc.Verify(ctx, VerifyInput{Secret: "JBSWY3DPEHPK3PXP", Code: "123456"}), goerror.CodeUnauthenticated)

	_, err = f.uc.Validate(ctx, ValidateInput{Code: "123456"})
	assertCode(t, err, goerror.CodeUnauthenticated)

	assertCode(t, f.uc.Disable(ctx), goerror.CodeUnauthenticated)

	_, err = f.uc.Status(authCtx("", ""))
	assertCode(t, err, goerror.CodeUnauthenticated)

	repo.AssertNotCalled(t, "GetCredential", mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "SaveCredential", mock.Anything, mock.Anything, mock.Anything)
	repo.AssertNotCalled(t, "ClearCredential", mock.Anything, mock.Anything)
}

func TestGenerate(t *testing.T) {
	f := newFixture(t, &mockRepoDB{})

	out, err := f.uc.Generate(authCtx(testIdentity, "analyst@example.com"))
	require.NoError(t, err)
	assert.NotEmpty(t, out.Secret)
	assert.Contains(t, out.ProvisioningURI, "otpauth://totp/")
	assert.Contains(t, out.ProvisioningURI, "issuer=Posture")
	assert.Contains(t, out.ProvisioningURI, "analyst@example.com")

	out, err = f.uc.Generate(authCtx(testIdentity, ""))
	require.NoError(t, err)
	assert.Contains(t, out.ProvisioningURI, testIdentity)
}

func TestVerify(t *testing.T) {
	secret := "JBSWY3DPEHPK3PXP"

	t.Run("mismatch leaves record untouched", func(t *testing.T) {
		repo := &mockRepoDB{}
		f := newFixture(t, repo)

		for _, code := range []string{"000000", "12345", "abcdef", ""} {
			err := f.uc.Verify(authCtx(testIdentity, ""), VerifyInput{Secret: secret, Code: code})
			assertCode(t, err, goerror.CodeInvalidCode)
		}
		err := f.uc.Verify(authCtx(testIdentity, ""), VerifyInput{Secret: "", Code: "123456"})
		assertCode(t, err, goerror.CodeInvalidCode)

		repo.AssertNotCalled(t, "SaveCredential", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("match stores sealed secret and publishes", func(t *testing.T) {
		repo := &mockRepoDB{}
		f := newFixture(t, repo)

		var sealed []byte
		repo.On("SaveCredential", mock.Anything, testIdentity, mock.AnythingOfType("[]uint8")).
			Run(func(args mock.Arguments) { sealed = args.Get(2).([]byte) }).
			Return(nil).Once()

		// grouped lower-case input as shown by authenticator apps
		err := f.uc.Verify(authCtx(testIdentity, ""), VerifyInput{Secret: "jbsw y3dp ehpk 3pxp", Code: f.code(t, secret, *f.now)})
		require.NoError(t, err)
		repo.AssertExpectations(t)

		assert.NotContains(t, string(sealed), secret)
		plain, err := f.enc.Decrypt(sealed, mfa.Scope{Identity: testIdentity, Purpose: mfa.PurposeOTPSeed})
		require.NoError(t, err)
		assert.Equal(t, secret, string(plain))

		require.NoError(t, f.gm.Wait())
		require.Len(t, f.pub.enabled, 1)
		assert.Equal(t, testIdentity, f.pub.enabled[0].Identity)
	})

	t.Run("previous step accepted within skew", func(t *testing.T) {
		repo := &mockRepoDB{}
		f := newFixture(t, repo)
		repo.On("SaveCredential", mock.Anything, testIdentity, mock.Anything).Return(nil).Once()

		err := f.uc.Verify(authCtx(testIdentity, ""), VerifyInput{Secret: secret, Code: f.code(t, secret, f.now.Add(-30*time.Second))})
		assert.NoError(t, err)
	})

	t.Run("store failure is storage_error", func(t *testing.T) {
		repo := &mockRepoDB{}
		f := newFixture(t, repo)
		repo.On("SaveCredential", mock.Anything, testIdentity, mock.Anything).Return(errors.New("conn reset")).Once()

		err := f.uc.Verify(authCtx(testIdentity, ""), VerifyInput{Secret: secret, Code: f.code(t, secret, *f.now)})
		assertCode(t, err, goerror.CodeStorage)

		require.NoError(t, f.gm.Wait())
		assert.Empty(t, f.pub.enabled)
	})

	t.Run("publish failure does not fail verify", func(t *testing.T) {
		repo := &mockRepoDB{}
		f := newFixture(t, repo)
		f.pub.err = errors.New("broker down")
		repo.On("SaveCredential", mock.Anything, testIdentity, mock.Anything).Return(nil).Once()

		err := f.uc.Verify(authCtx(testIdentity, ""), VerifyInput{Secret: secret, Code: f.code(t, secret, *f.now)})
		require.NoError(t, err)
		assert.Error(t, f.gm.Wait())
	})
}

func TestValidateFailures(t *testing.T) {
	t.Run("load failure is profile_unavailable", func(t *testing.T) {
		for _, loadErr := range []error{goerror.ErrNotFound, errors.New("timeout")} {
			repo := &mockRepoDB{}
			f := newFixture(t, repo)
			repo.On("GetCredential", mock.Anything, testIdentity).Return(nil, loadErr).Once()

			_, err := f.uc.Validate(authCtx(testIdentity, ""), ValidateInput{Code: "123456"})
			assertCode(t, err, goerror.CodeProfileUnavailable)
		}
	})

	t.Run("disabled record is totp_not_enabled", func(t *testing.T) {
		for _, cred := range []*entity.Credential{
			{Identity: testIdentity},
			{Identity: testIdentity, Enabled: true},
			{Identity: testIdentity, Secret: []byte("sealed")},
		} {
			repo := &mockRepoDB{}
			f := newFixture(t, repo)
			repo.On("GetCredential", mock.Anything, testIdentity).Return(cred, nil).Once()

			_, err := f.uc.Validate(authCtx(testIdentity, ""), ValidateInput{Code: "123456"})
			assertCode(t, err, goerror.CodeTOTPNotEnabled)
		}
	})

	t.Run("secret sealed for another identity is unavailable", func(t *testing.T) {
		repo := &mockRepoDB{}
		f := newFixture(t, repo)
		sealed, err := f.enc.Encrypt([]byte("JBSWY3DPEHPK3PXP"), mfa.Scope{Identity: "someone-else", Purpose: mfa.PurposeOTPSeed})
		require.NoError(t, err)
		repo.On("GetCredential", mock.Anything, testIdentity).
			Return(&entity.Credential{Identity: testIdentity, Secret: sealed, Enabled: true}, nil).Once()

		_, err = f.uc.Validate(authCtx(testIdentity, ""), ValidateInput{Code: "123456"})
		assertCode(t, err, goerror.CodeProfileUnavailable)
	})
}

func TestValidateMatchesWithinSkewOnly(t *testing.T) {
	secret := "JBSWY3DPEHPK3PXP"
	f := newFixture(t, newMemRepo())
	ctx := authCtx(testIdentity, "")
	require.NoError(t, f.uc.Verify(ctx, VerifyInput{Secret: secret, Code: f.code(t, secret, *f.now)}))

	tests := []struct {
		name   string
		offset time.Duration
		valid  bool
	}{
		{"current step", 0, true},
		{"previous step", -30 * time.Second, true},
		{"next step", 30 * time.Second, true},
		{"two steps back", -60 * time.Second, false},
		{"two steps ahead", 60 * time.Second, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := f.uc.Validate(ctx, ValidateInput{Code: f.code(t, secret, f.now.Add(tt.offset))})
			require.NoError(t, err)
			assert.Equal(t, tt.valid, out.Valid)
		})
	}

	out, err := f.uc.Validate(ctx, ValidateInput{Code: "12ab56"})
	require.NoError(t, err)
	assert.False(t, out.Valid)

	// repeated failures never lock the identity out
	for range 10 {
		_, err := f.uc.Validate(ctx, ValidateInput{Code: "000000"})
		require.NoError(t, err)
	}
	out, err = f.uc.Validate(ctx, ValidateInput{Code: f.code(t, secret, *f.now)})
	require.NoError(t, err)
	assert.True(t, out.Valid)
}

func TestDisableAndStatus(t *testing.T) {
	t.Run("status hard fault is storage_error", func(t *testing.T) {
		repo := &mockRepoDB{}
		f := newFixture(t, repo)
		repo.On("GetCredential", mock.Anything, testIdentity).Return(nil, errors.New("conn refused")).Once()

		_, err := f.uc.Status(authCtx(testIdentity, ""))
		assertCode(t, err, goerror.CodeStorage)
	})

	t.Run("disable store failure is storage_error", func(t *testing.T) {
		repo := &mockRepoDB{}
		f := newFixture(t, repo)
		repo.On("ClearCredential", mock.Anything, testIdentity).Return(errors.New("conn refused")).Once()

		assertCode(t, f.uc.Disable(authCtx(testIdentity, "")), goerror.CodeStorage)
	})

	t.Run("disable is idempotent", func(t *testing.T) {
		f := newFixture(t, newMemRepo())
		ctx := authCtx(testIdentity, "")

		require.NoError(t, f.uc.Disable(ctx))
		require.NoError(t, f.uc.Disable(ctx))

		st, err := f.uc.Status(ctx)
		require.NoError(t, err)
		assert.False(t, st.Enabled)

		require.NoError(t, f.gm.Wait())
		assert.Len(t, f.pub.disabled, 2)
	})
}

func TestEnrollmentLifecycle(t *testing.T) {
	f := newFixture(t, newMemRepo())
	ctx := authCtx(testIdentity, "analyst@example.com")
	t0 := *f.now

	gen, err := f.uc.Generate(ctx)
	require.NoError(t, err)

	st, err := f.uc.Status(ctx)
	require.NoError(t, err)
	assert.False(t, st.Enabled, "generate must not persist")

	stale := f.code(t, gen.Secret, t0.Add(-10*time.Minute))
	assertCode(t, f.uc.Verify(ctx, VerifyInput{Secret: gen.Secret, Code: stale}), goerror.CodeInvalidCode)

	st, err = f.uc.Status(ctx)
	require.NoError(t, err)
	assert.False(t, st.Enabled, "failed verify must not enable")

	require.NoError(t, f.uc.Verify(ctx, VerifyInput{Secret: gen.Secret, Code: f.code(t, gen.Secret, t0)}))

	st, err = f.uc.Status(ctx)
	require.NoError(t, err)
	assert.True(t, st.Enabled)

	*f.now = t0.Add(5 * time.Minute)

	out, err := f.uc.Validate(ctx, ValidateInput{Code: f.code(t, gen.Secret, f.now.Add(-90*time.Second))})
	require.NoError(t, err)
	assert.False(t, out.Valid, "code from three windows ago")

	out, err = f.uc.Validate(ctx, ValidateInput{Code: f.code(t, gen.Secret, t0)})
	require.NoError(t, err)
	assert.False(t, out.Valid, "code from five minutes ago")

	out, err = f.uc.Validate(ctx, ValidateInput{Code: f.code(t, gen.Secret, *f.now)})
	require.NoError(t, err)
	assert.True(t, out.Valid)

	require.NoError(t, f.uc.Disable(ctx))

	st, err = f.uc.Status(ctx)
	require.NoError(t, err)
	assert.False(t, st.Enabled)

	_, err = f.uc.Validate(ctx, ValidateInput{Code: f.code(t, gen.Secret, *f.now)})
	assertCode(t, err, goerror.CodeTOTPNotEnabled)

	require.NoError(t, f.gm.Wait())
	assert.Len(t, f.pub.enabled, 1)
	assert.Len(t, f.pub.disabled, 1)
}
