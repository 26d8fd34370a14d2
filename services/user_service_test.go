package services

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"redlink/utils"
)

type fakeMailer struct {
	to      []string
	subject []string
	body    []string
	err     error
}

func (m *fakeMailer) Send(to, subject, body string) error {
	m.to = append(m.to, to)
	m.subject = append(m.subject, subject)
	m.body = append(m.body, body)
	return m.err
}

func newUserService(t *testing.T) (*UserService, *fakeMailer, *miniredis.Miniredis) {
	t.Helper()
	db := newTestDB(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	mailer := &fakeMailer{}
	svc := NewUserService(db, utils.NewResetTokenStore(rdb), mailer, "http://localhost:3000")
	return svc, mailer, mr
}

func TestValidateRegister(t *testing.T) {
	cases := []struct {
		name     string
		username string
		email    string
		password string
		field    string
		message  string
	}{
		{"short username", "ab", "a@b.com", "secret", "username", "length must be greater than 2"},
		{"at sign in username", "a@b", "a@b.com", "secret", "username", "username cannot contain an @ sign"},
		{"short password", "alice", "a@b.com", "abc", "password", "length must be greater than 3"},
		{"bad email", "alice", "not-an-email", "secret", "email", "please enter a valid email"},
		{"valid", "alice", "a@b.com", "secret", "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			errs := ValidateRegister(tc.username, tc.email, tc.password)
			if tc.field == "" {
				if errs != nil {
					t.Fatalf("got %+v, want no errors", errs)
				}
				return
			}
			if len(errs) != 1 || errs[0].Field != tc.field || errs[0].Message != tc.message {
				t.Fatalf("got %+v, want [{%s %s}]", errs, tc.field, tc.message)
			}
		})
	}
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _, _ := newUserService(t)
	ctx := context.Background()

	user, errs, err := svc.Register(ctx, "Alice", "Alice@Example.com", "secret")
	if err != nil || errs != nil {
		t.Fatalf("register: errs=%+v err=%v", errs, err)
	}
	if user.Username != "alice" || user.Email != "alice@example.com" {
		t.Errorf("identity not lowercased: %q %q", user.Username, user.Email)
	}
	if user.PasswordHash == "secret" || user.PasswordHash == "" {
		t.Error("password stored without hashing")
	}

	got, errs, err := svc.Login(ctx, "alice", "secret")
	if err != nil || errs != nil {
		t.Fatalf("login by username: errs=%+v err=%v", errs, err)
	}
	if got.ID != user.ID {
		t.Errorf("login returned user %d, want %d", got.ID, user.ID)
	}

	got, errs, err = svc.Login(ctx, "alice@example.com", "secret")
	if err != nil || errs != nil {
		t.Fatalf("login by email: errs=%+v err=%v", errs, err)
	}
	if got.ID != user.ID {
		t.Errorf("email login returned user %d, want %d", got.ID, user.ID)
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc, _, _ := newUserService(t)
	ctx := context.Background()

	if _, errs, err := svc.Register(ctx, "alice", "a@b.com", "secret"); err != nil || errs != nil {
		t.Fatalf("first register: errs=%+v err=%v", errs, err)
	}
	// uniqueness is case-insensitive
	_, errs, err := svc.Register(ctx, "ALICE", "other@b.com", "secret")
	if err != nil {
		t.Fatalf("second register: %v", err)
	}
	if len(errs) != 1 || errs[0].Field != "username" || errs[0].Message != "username has already been taken" {
		t.Errorf("got %+v, want taken-username error", errs)
	}
}

func TestLoginFailures(t *testing.T) {
	svc, _, _ := newUserService(t)
	ctx := context.Background()

	if _, errs, err := svc.Register(ctx, "alice", "a@b.com", "secret"); err != nil || errs != nil {
		t.Fatalf("register: errs=%+v err=%v", errs, err)
	}

	_, errs, err := svc.Login(ctx, "nobody", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if len(errs) != 1 || errs[0].Field != "usernameOrEmail" {
		t.Errorf("unknown user: got %+v, want usernameOrEmail error", errs)
	}

	_, errs, err = svc.Login(ctx, "alice", "wrong")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if len(errs) != 1 || errs[0].Field != "password" || errs[0].Message != "incorrect password" {
		t.Errorf("wrong password: got %+v", errs)
	}
}

func TestMe(t *testing.T) {
	svc, _, _ := newUserService(t)
	ctx := context.Background()

	user, _, err := svc.Register(ctx, "alice", "a@b.com", "secret")
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	got, err := svc.Me(ctx, user.ID)
	if err != nil || got == nil || got.ID != user.ID {
		t.Fatalf("Me = %+v, %v", got, err)
	}

	got, err = svc.Me(ctx, 9999)
	if err != nil {
		t.Fatalf("Me missing: %v", err)
	}
	if got != nil {
		t.Errorf("Me for deleted account = %+v, want nil", got)
	}
}

func TestForgotPasswordUnknownEmail(t *testing.T) {
	svc, mailer, mr := newUserService(t)

	if err := svc.ForgotPassword(context.Background(), "ghost@example.com"); err != nil {
		t.Fatalf("ForgotPassword: %v", err)
	}
	if len(mailer.to) != 0 {
		t.Errorf("mail sent for unknown email: %v", mailer.to)
	}
	if keys := mr.Keys(); len(keys) != 0 {
		t.Errorf("tokens stored for unknown email: %v", keys)
	}
}

func resetToken(t *testing.T, mr *miniredis.Miniredis) string {
	t.Helper()
	for _, key := range mr.Keys() {
		if strings.HasPrefix(key, "forget-password:") {
			return strings.TrimPrefix(key, "forget-password:")
		}
	}
	t.Fatal("no reset token in store")
	return ""
}

func TestForgotPasswordFlow(t *testing.T) {
	svc, mailer, mr := newUserService(t)
	ctx := context.Background()

	user, _, err := svc.Register(ctx, "alice", "a@b.com", "secret")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := svc.ForgotPassword(ctx, "A@B.com"); err != nil {
		t.Fatalf("ForgotPassword: %v", err)
	}

	if len(mailer.to) != 1 || mailer.to[0] != "a@b.com" {
		t.Fatalf("mail recipients = %v, want [a@b.com]", mailer.to)
	}

	token := resetToken(t, mr)
	if !strings.Contains(mailer.body[0], "/change-password/"+token) {
		t.Errorf("mail body %q does not link the issued token", mailer.body[0])
	}
	if ttl := mr.TTL("forget-password:" + token); ttl != utils.ResetTokenTTL {
		t.Errorf("token ttl = %v, want %v", ttl, utils.ResetTokenTTL)
	}

	changed, errs, err := svc.ChangePassword(ctx, token, "newsecret")
	if err != nil || errs != nil {
		t.Fatalf("ChangePassword: errs=%+v err=%v", errs, err)
	}
	if changed.ID != user.ID {
		t.Errorf("changed user %d, want %d", changed.ID, user.ID)
	}

	if _, errs, _ := svc.Login(ctx, "alice", "secret"); errs == nil {
		t.Error("old password still accepted")
	}
	if _, errs, err := svc.Login(ctx, "alice", "newsecret"); err != nil || errs != nil {
		t.Errorf("new password rejected: errs=%+v err=%v", errs, err)
	}

	// the token is single use
	_, errs, err = svc.ChangePassword(ctx, token, "another")
	if err != nil {
		t.Fatalf("replay ChangePassword: %v", err)
	}
	if len(errs) != 1 || errs[0].Field != "token" || errs[0].Message != "token expired" {
		t.Errorf("replayed token: got %+v, want token-expired error", errs)
	}
}

func TestForgotPasswordSwallowsMailFailure(t *testing.T) {
	svc, mailer, mr := newUserService(t)
	ctx := context.Background()
	mailer.err = errSMTPDown

	if _, _, err := svc.Register(ctx, "alice", "a@b.com", "secret"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := svc.ForgotPassword(ctx, "a@b.com"); err != nil {
		t.Fatalf("ForgotPassword should not surface mail errors, got %v", err)
	}
	// the token is still issued even though the mail bounced
	resetToken(t, mr)
}

var errSMTPDown = errSentinel("smtp down")

type errSentinel string

func (e errSentinel) Error() string { return string(e) }

func TestChangePasswordValidation(t *testing.T) {
	svc, _, mr := newUserService(t)
	ctx := context.Background()

	_, errs, err := svc.ChangePassword(ctx, "whatever", "abc")
	if err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if len(errs) != 1 || errs[0].Field != "newPassword" {
		t.Errorf("short password: got %+v, want newPassword error", errs)
	}

	_, errs, err = svc.ChangePassword(ctx, "missing-token", "newsecret")
	if err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if len(errs) != 1 || errs[0].Field != "token" || errs[0].Message != "token expired" {
		t.Errorf("missing token: got %+v", errs)
	}

	// a token whose TTL has lapsed behaves like a missing one
	if _, _, err := svc.Register(ctx, "alice", "a@b.com", "secret"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := svc.ForgotPassword(ctx, "a@b.com"); err != nil {
		t.Fatalf("ForgotPassword: %v", err)
	}
	token := resetToken(t, mr)
	mr.FastForward(utils.ResetTokenTTL + time.Minute)

	_, errs, err = svc.ChangePassword(ctx, token, "newsecret")
	if err != nil {
		t.Fatalf("ChangePassword: %v", err)
	}
	if len(errs) != 1 || errs[0].Message != "token expired" {
		t.Errorf("expired token: got %+v", errs)
	}
}
