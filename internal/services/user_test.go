package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gatherly/apiserver/internal/storetest"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type sentMail struct {
	To      string
	Subject string
	Body    string
}

// recordingNotifier captures sends and can be told to fail.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMail
	fail bool
}

func (n *recordingNotifier) Send(_ context.Context, to, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errors.New("delivery failed")
	}
	n.sent = append(n.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

func (n *recordingNotifier) sentCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

func newUserService(notifier *recordingNotifier) (*UserService, *storetest.UserRepo) {
	repo := storetest.NewUserRepo()
	return NewUserService(repo, notifier, time.Second, zerolog.Nop()), repo
}

func TestRegisterHashesPassword(t *testing.T) {
	svc, _ := newUserService(&recordingNotifier{})

	user, emailSent, err := svc.Register(context.Background(), "Alice", "alice@example.com", "s3cret", []string{"organiser"})
	require.NoError(t, err)
	assert.True(t, emailSent)

	assert.NotEqual(t, "s3cret", user.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("s3cret")))
	assert.Error(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("other")))
}

func TestRegisterNormalizesEmail(t *testing.T) {
	svc, _ := newUserService(&recordingNotifier{})

	user, _, err := svc.Register(context.Background(), "Alice", "  Alice@Example.COM ", "s3cret", nil)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newUserService(&recordingNotifier{})

	_, _, err := svc.Register(context.Background(), "Alice", "alice@example.com", "s3cret", nil)
	require.NoError(t, err)

	_, _, err = svc.Register(context.Background(), "Another Alice", "ALICE@example.com", "different", nil)
	assert.ErrorIs(t, err, ErrDuplicateEmail)
}

func TestRegisterUnknownRole(t *testing.T) {
	svc, _ := newUserService(&recordingNotifier{})

	_, _, err := svc.Register(context.Background(), "Mallory", "mallory@example.com", "s3cret", []string{"superuser"})

	var roleErr *UnknownRoleError
	require.ErrorAs(t, err, &roleErr)
	assert.Equal(t, "superuser", roleErr.Name)
}

func TestRegisterDefaultsToParticipant(t *testing.T) {
	svc, _ := newUserService(&recordingNotifier{})

	user, _, err := svc.Register(context.Background(), "Pat", "pat@example.com", "s3cret", nil)
	require.NoError(t, err)
	require.Len(t, user.Roles, 1)
	assert.Equal(t, "participant", user.Roles[0].Name)
}

func TestRegisterSendsWelcomeEmail(t *testing.T) {
	notifier := &recordingNotifier{}
	svc, _ := newUserService(notifier)

	_, emailSent, err := svc.Register(context.Background(), "Alice", "alice@example.com", "s3cret", nil)
	require.NoError(t, err)
	assert.True(t, emailSent)
	require.Equal(t, 1, notifier.sentCount())
	assert.Equal(t, "alice@example.com", notifier.sent[0].To)
	assert.Equal(t, "Welcome aboard!", notifier.sent[0].Subject)
}

func TestRegisterSucceedsWhenNotifierFails(t *testing.T) {
	notifier := &recordingNotifier{fail: true}
	svc, _ := newUserService(notifier)

	user, emailSent, err := svc.Register(context.Background(), "Alice", "alice@example.com", "s3cret", nil)
	require.NoError(t, err)
	assert.False(t, emailSent)
	assert.NotZero(t, user.ID)
}

func TestVerify(t *testing.T) {
	svc, _ := newUserService(&recordingNotifier{})

	registered, _, err := svc.Register(context.Background(), "Alice", "alice@example.com", "s3cret", nil)
	require.NoError(t, err)

	user, err := svc.Verify(context.Background(), "alice@example.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, registered.ID, user.ID)

	_, err = svc.Verify(context.Background(), "alice@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Verify(context.Background(), "nobody@example.com", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
