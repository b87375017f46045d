// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package registration_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"codeberg.org/oliverandrich/regdesk/internal/apperror"
	"codeberg.org/oliverandrich/regdesk/internal/config"
	"codeberg.org/oliverandrich/regdesk/internal/models"
	"codeberg.org/oliverandrich/regdesk/internal/repository"
	"codeberg.org/oliverandrich/regdesk/internal/services/auth"
	"codeberg.org/oliverandrich/regdesk/internal/services/otp"
	"codeberg.org/oliverandrich/regdesk/internal/services/regnumber"
	"codeberg.org/oliverandrich/regdesk/internal/services/registration"
	"codeberg.org/oliverandrich/regdesk/internal/storage"
	"codeberg.org/oliverandrich/regdesk/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeNotifier struct {
	mu         sync.Mutex
	otps       map[string]string
	codes      map[string]string
	regNumbers []string
	welcomed   []string
	codeErr    error
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{otps: map[string]string{}, codes: map[string]string{}}
}

func (f *fakeNotifier) SendOTP(_ context.Context, to, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.otps[to] = code
	return nil
}

func (f *fakeNotifier) SendVerificationCode(_ context.Context, account *models.Account, code string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.codeErr != nil {
		return f.codeErr
	}
	f.codes[account.Email] = code
	return nil
}

func (f *fakeNotifier) SendRegNumber(_ context.Context, account *models.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.regNumbers = append(f.regNumbers, account.RegNumberValue())
	return nil
}

func (f *fakeNotifier) SendWelcome(_ context.Context, account *models.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.welcomed = append(f.welcomed, account.Email)
	return errors.New("mail relay down")
}

type fakeApprover struct {
	mu       sync.Mutex
	accounts []int64
}

func (f *fakeApprover) RequestApproval(_ context.Context, account *models.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.accounts = append(f.accounts, account.ID)
	return nil
}

type fixture struct {
	svc      *registration.Service
	repo     *repository.Repository
	notifier *fakeNotifier
	approver *fakeApprover
	tokens   *auth.TokenIssuer
	store    *storage.LocalStore
	setClock func(time.Time)
	now      func() time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	_, repo := testutil.NewTestDB(t)
	clock, set := testutil.FixedClock(time.Now().UTC())
	notifier := newFakeNotifier()
	approver := &fakeApprover{}
	otpCfg := &config.OTPConfig{TTL: 5 * time.Minute, VerifiedTTL: 30 * time.Minute, VerificationCodeTTL: 10 * time.Minute}

	store, err := storage.NewLocalStore(t.TempDir())
	require.NoError(t, err)
	tokens := auth.NewTokenIssuer(&config.AuthConfig{
		AdminSecret: "a", VolunteerSecret: "v", UserSecret: "u", JWTExpire: time.Hour,
	})

	svc := registration.NewService(registration.Deps{
		Repo:      repo,
		OTP:       otp.NewService(otp.NewMemoryStore(), notifier, otpCfg, otp.WithClock(clock)),
		Allocator: regnumber.NewAllocator(nil),
		Store:     store,
		Notifier:  notifier,
		Approver:  approver,
		Tokens:    tokens,
	}, otpCfg, registration.WithClock(clock))

	return &fixture{svc: svc, repo: repo, notifier: notifier, approver: approver, tokens: tokens, store: store, setClock: set, now: clock}
}

func textFile(name, content string) registration.File {
	return registration.File{
		Filename:    name,
		Size:        int64(len(content)),
		ContentType: "application/pdf",
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader(content)), nil
		},
	}
}

func userSubmission(email, phone string) *registration.Submission {
	return &registration.Submission{
		Fields: map[string]string{
			"name": "Asha Devi", "email": email, "phone": phone, "password": "river-lamp-42",
			"guardian": "Ram", "address": "Village Road 1", "currentAddress": "Village Road 1",
			"dob": "2000-01-01", "gender": "female", "bankAccNumber": "1234567890",
			"bankName": "SBI", "ifsc": "SBIN0000001", "volunteerName": "Ravi",
			"pwdCategory": "No", "entrepreneurshipInterest": "No",
		},
		Files: map[string]registration.File{
			"image":              textFile("photo.jpg", "img"),
			"undertaking":        textFile("u.pdf", "u"),
			"policeVerification": textFile("p.pdf", "p"),
			"educationDocument":  textFile("e.pdf", "e"),
			"bankPassbook":       textFile("b.pdf", "b"),
		},
	}
}

// volunteerSubmission references documents that were uploaded beforehand.
func (f *fixture) volunteerSubmission(t *testing.T, email, phone string) *registration.Submission {
	t.Helper()
	sub := &registration.Submission{
		Fields: map[string]string{
			"name": "Ravi Kumar", "email": email, "phone": phone, "password": "river-lamp-42",
			"verificationMethod": "email", "guardian": "Mohan", "address": "Main Street 5",
			"dob": "1990-05-05", "gender": "male",
		},
	}
	for _, name := range registration.VolunteerProfile.RequiredDocuments {
		ref, err := f.store.Save(context.Background(), name, name+".pdf", strings.NewReader(name), int64(len(name)), "application/pdf")
		require.NoError(t, err)
		sub.Fields[name] = ref
	}
	return sub
}

func requireAppError(t *testing.T, err error, status int, message string) {
	t.Helper()
	appErr, ok := apperror.As(err)
	require.True(t, ok, "expected apperror, got %v", err)
	assert.Equal(t, status, appErr.Status)
	assert.Equal(t, message, appErr.Message)
}

func TestUserRegistration_FullFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.svc.SendEmailOTP(ctx, " Asha@Example.com "))
	code := f.notifier.otps["asha@example.com"]
	require.Len(t, code, otp.CodeLength)

	require.NoError(t, f.svc.VerifyEmailOTP(ctx, "asha@example.com", code))

	account, err := f.svc.RegisterUser(ctx, userSubmission("Asha@example.com", "+919000000001"))
	require.NoError(t, err)

	assert.True(t, account.AccountVerified)
	assert.Equal(t, "asha@example.com", account.Email)
	assert.Equal(t, "T/ASF/CANDIDATE/00001", account.RegNumberValue())
	assert.Len(t, account.Documents, 5)
	for _, doc := range account.Documents {
		ok, err := f.store.Exists(ctx, doc.Path)
		require.NoError(t, err)
		assert.True(t, ok, doc.Path)
	}
	assert.Equal(t, []int64{account.ID}, f.approver.accounts)
	assert.Equal(t, []string{"asha@example.com"}, f.notifier.welcomed)

	// The verified OTP was spent by the registration.
	_, err = f.svc.RegisterUser(ctx, userSubmission("asha@example.com", "+919000000002"))
	requireAppError(t, err, http.StatusBadRequest, "Email not verified. Please verify your email first.")

	err = f.svc.SendEmailOTP(ctx, "asha@example.com")
	requireAppError(t, err, http.StatusBadRequest, "Email is already registered.")
}

func TestUserRegistration_SequentialNumbers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i, email := range []string{"a@example.com", "b@example.com"} {
		require.NoError(t, f.svc.SendEmailOTP(ctx, email))
		require.NoError(t, f.svc.VerifyEmailOTP(ctx, email, f.notifier.otps[email]))
		account, err := f.svc.RegisterUser(ctx, userSubmission(email, fmt.Sprintf("+91900000000%d", i+1)))
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("T/ASF/CANDIDATE/%05d", i+1), account.RegNumberValue())
	}
}

func TestVerifyEmailOTP_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.svc.VerifyEmailOTP(ctx, "", "")
	requireAppError(t, err, http.StatusBadRequest, "Email and OTP are required.")

	err = f.svc.VerifyEmailOTP(ctx, "nobody@example.com", "123456")
	requireAppError(t, err, http.StatusBadRequest, "OTP not found or expired.")

	require.NoError(t, f.svc.SendEmailOTP(ctx, "a@example.com"))
	err = f.svc.VerifyEmailOTP(ctx, "a@example.com", "000000")
	requireAppError(t, err, http.StatusBadRequest, "Invalid OTP.")

	f.setClock(f.now().Add(6 * time.Minute))
	err = f.svc.VerifyEmailOTP(ctx, "a@example.com", f.notifier.otps["a@example.com"])
	requireAppError(t, err, http.StatusBadRequest, "OTP Expired.")
}

func TestRegisterUser_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	missingField := userSubmission("a@example.com", "+919000000001")
	delete(missingField.Fields, "ifsc")
	_, err := f.svc.RegisterUser(ctx, missingField)
	requireAppError(t, err, http.StatusBadRequest, "All fields are required.")

	badPhone := userSubmission("a@example.com", "9000000001")
	_, err = f.svc.RegisterUser(ctx, badPhone)
	requireAppError(t, err, http.StatusBadRequest, "Invalid phone number.")

	missingDoc := userSubmission("a@example.com", "+919000000001")
	delete(missingDoc.Files, "bankPassbook")
	_, err = f.svc.RegisterUser(ctx, missingDoc)
	requireAppError(t, err, http.StatusBadRequest, "All required documents must be uploaded.")

	pwd := userSubmission("a@example.com", "+919000000001")
	pwd.Fields["pwdCategory"] = "Yes"
	_, err = f.svc.RegisterUser(ctx, pwd)
	requireAppError(t, err, http.StatusBadRequest, "PWD Certificate is required.")

	bpl := userSubmission("a@example.com", "+919000000001")
	bpl.Fields["entrepreneurshipInterest"] = "Yes"
	_, err = f.svc.RegisterUser(ctx, bpl)
	requireAppError(t, err, http.StatusBadRequest, "BPL/marginalized category certificate is required.")

	weak := userSubmission("a@example.com", "+919000000001")
	weak.Fields["password"] = "12345678"
	_, err = f.svc.RegisterUser(ctx, weak)
	assert.True(t, apperror.Is(err, apperror.KindValidation))
}

func TestRegisterUser_DuplicatePhone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	testutil.NewTestAccount(t, f.repo, models.KindUser, "first@example.com", "+919000000001")

	require.NoError(t, f.svc.SendEmailOTP(ctx, "second@example.com"))
	require.NoError(t, f.svc.VerifyEmailOTP(ctx, "second@example.com", f.notifier.otps["second@example.com"]))

	_, err := f.svc.RegisterUser(ctx, userSubmission("second@example.com", "+919000000001"))
	requireAppError(t, err, http.StatusBadRequest, "Email or phone is already registered.")
}

func TestVolunteerRegistration_FullFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	pending, err := f.svc.RegisterVolunteer(ctx, f.volunteerSubmission(t, "ravi@example.com", "+919000000005"))
	require.NoError(t, err)
	assert.False(t, pending.AccountVerified)
	assert.Len(t, pending.Documents, 4)

	code := f.notifier.codes["ravi@example.com"]
	require.Len(t, code, registration.VerificationCodeLength)

	account, token, err := f.svc.VerifyAccount(ctx, models.KindVolunteer, "ravi@example.com", "+919000000005", code)
	require.NoError(t, err)
	assert.True(t, account.AccountVerified)
	assert.False(t, account.HasPendingCode())
	assert.Equal(t, "T/ASF/FE/000001", account.RegNumberValue())
	assert.Equal(t, []string{"T/ASF/FE/000001"}, f.notifier.regNumbers)

	id, err := f.tokens.Parse(models.KindVolunteer, token)
	require.NoError(t, err)
	assert.Equal(t, account.ID, id)

	_, err = f.svc.RegisterVolunteer(ctx, f.volunteerSubmission(t, "ravi@example.com", "+919000000006"))
	requireAppError(t, err, http.StatusBadRequest, "Email or phone is already registered.")
}

func TestVerifyAccount_NewestWinsAndDuplicatesArePruned(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	expire := f.now().Add(10 * time.Minute)

	older := testutil.NewUnverifiedAccount(t, f.repo, models.KindVolunteer, "ravi@example.com", "+919000000005", 11111, expire)
	byPhone := testutil.NewUnverifiedAccount(t, f.repo, models.KindVolunteer, "other@example.com", "+919000000005", 22222, expire)
	newest := testutil.NewUnverifiedAccount(t, f.repo, models.KindVolunteer, "ravi@example.com", "+919000000007", 33333, expire)

	// The code of an older attempt is not accepted, yet the cleanup sticks.
	_, _, err := f.svc.VerifyAccount(ctx, models.KindVolunteer, "ravi@example.com", "+919000000005", "11111")
	requireAppError(t, err, http.StatusBadRequest, "Invalid OTP.")

	for _, id := range []int64{older.ID, byPhone.ID} {
		_, err := f.repo.GetAccountByID(ctx, id)
		assert.ErrorIs(t, err, repository.ErrNotFound)
	}

	account, _, err := f.svc.VerifyAccount(ctx, models.KindVolunteer, "ravi@example.com", "+919000000005", "33333")
	require.NoError(t, err)
	assert.Equal(t, newest.ID, account.ID)
	assert.Equal(t, "T/ASF/FE/000001", account.RegNumberValue())
}

func TestVerifyAccount_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	testutil.NewUnverifiedAccount(t, f.repo, models.KindVolunteer, "ravi@example.com", "+919000000005", 12345, f.now().Add(10*time.Minute))

	_, _, err := f.svc.VerifyAccount(ctx, models.KindVolunteer, "ravi@example.com", "", "12345")
	requireAppError(t, err, http.StatusBadRequest, "All fields are required.")

	_, _, err = f.svc.VerifyAccount(ctx, models.KindVolunteer, "ravi@example.com", "12345", "12345")
	requireAppError(t, err, http.StatusBadRequest, "Invalid phone number.")

	_, _, err = f.svc.VerifyAccount(ctx, models.KindVolunteer, "nobody@example.com", "+919000000009", "12345")
	requireAppError(t, err, http.StatusNotFound, "No pending verification found.")

	_, _, err = f.svc.VerifyAccount(ctx, models.KindVolunteer, "ravi@example.com", "+919000000005", "abc")
	requireAppError(t, err, http.StatusBadRequest, "Invalid OTP.")

	_, _, err = f.svc.VerifyAccount(ctx, models.KindAdmin, "ravi@example.com", "+919000000005", "12345")
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	f.setClock(f.now().Add(11 * time.Minute))
	_, _, err = f.svc.VerifyAccount(ctx, models.KindVolunteer, "ravi@example.com", "+919000000005", "12345")
	requireAppError(t, err, http.StatusBadRequest, "OTP has expired.")
}

func TestRegisterVolunteer_MailFailureKeepsRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.notifier.codeErr = errors.New("smtp down")

	_, err := f.svc.RegisterVolunteer(ctx, f.volunteerSubmission(t, "ravi@example.com", "+919000000005"))
	requireAppError(t, err, http.StatusInternalServerError, "Verification code failed to send.")

	pending, err := f.repo.ListUnverifiedByEmailOrPhone(ctx, models.KindVolunteer, "ravi@example.com", "+919000000005")
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestRegisterVolunteer_AttemptLimit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for range registration.VolunteerProfile.MaxUnverifiedAttempts + 1 {
		_, err := f.svc.RegisterVolunteer(ctx, f.volunteerSubmission(t, "ravi@example.com", "+919000000005"))
		require.NoError(t, err)
	}

	_, err := f.svc.RegisterVolunteer(ctx, f.volunteerSubmission(t, "ravi@example.com", "+919000000005"))
	require.Error(t, err)
	assert.True(t, apperror.Is(err, apperror.KindConflict))
}

func TestRegisterVolunteer_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sms := f.volunteerSubmission(t, "ravi@example.com", "+919000000005")
	sms.Fields["verificationMethod"] = "sms"
	_, err := f.svc.RegisterVolunteer(ctx, sms)
	requireAppError(t, err, http.StatusBadRequest, "Invalid verification method. Only email is supported.")

	foreignDoc := f.volunteerSubmission(t, "ravi@example.com", "+919000000005")
	foreignDoc.Fields["image"] = "https://example.com/photo.jpg"
	_, err = f.svc.RegisterVolunteer(ctx, foreignDoc)
	requireAppError(t, err, http.StatusBadRequest, "All required documents must be uploaded.")
}

func TestRegisterVolunteer_UnknownDocumentReference(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		ref  string
	}{
		{"never uploaded", "/uploads/image-1-aaaa1111.jpg"},
		{"other bucket", "s3://someone-elses-bucket/regdesk/image-1-aaaa1111.jpg"},
		{"path traversal", "/uploads/../registration_test.go"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := f.volunteerSubmission(t, "ravi@example.com", "+919000000005")
			sub.Fields["image"] = tt.ref

			_, err := f.svc.RegisterVolunteer(ctx, sub)
			requireAppError(t, err, http.StatusBadRequest, "All required documents must be uploaded.")
		})
	}

	pending, err := f.repo.ListUnverifiedByEmailOrPhone(ctx, models.KindVolunteer, "ravi@example.com", "+919000000005")
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRegisterUser_ConditionalDocumentByReference(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sub := userSubmission("a@example.com", "+919000000001")
	sub.Fields["pwdCategory"] = "Yes"
	sub.Fields["pwdCertificate"] = "/uploads/pwdCertificate-1-0000ffff.pdf"
	_, err := f.svc.RegisterUser(ctx, sub)
	requireAppError(t, err, http.StatusBadRequest, "PWD Certificate is required.")
}
