package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"connectr/internal/adapter/storage/memory"
	"connectr/internal/domain/events"
	"connectr/internal/domain/identity"
	"connectr/internal/domain/mood"
	"connectr/internal/security"
	"connectr/internal/validation"
)

type capturePublisher struct {
	subjects []string
	events   []events.Event
}

func (p *capturePublisher) Publish(subject string, event events.Event) error {
	p.subjects = append(p.subjects, subject)
	p.events = append(p.events, event)
	return nil
}

type storeRemover struct {
	store *memory.Store
}

func (r storeRemover) DeleteForUser(ctx context.Context, userID string) error {
	_, err := r.store.DeleteEntriesForUser(ctx, userID)
	return err
}

type brokenDeleteStore struct {
	*memory.Store
}

func (brokenDeleteStore) DeleteUser(context.Context, string) error {
	return errors.New("connection reset")
}

type fixture struct {
	svc    *Service
	store  *memory.Store
	pub    *capturePublisher
	tokens *security.JWTTokenManager
	now    *time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	tokens, err := security.NewJWTTokenManager(security.JWTConfig{Secret: "test-secret", Issuer: "connectr", TTL: time.Hour})
	require.NoError(t, err)

	store := memory.NewStore()
	pub := &capturePublisher{}
	hasher := security.NewArgon2Hasher(security.Argon2idParams{Time: 1, Memory: 1024, Threads: 1})

	svc := NewService(store, storeRemover{store}, tokens, hasher, pub, Config{
		ResetTokenExpiry:       time.Hour,
		DefaultLocationSharing: identity.LocationSharingNeighborhood,
		EventsTopic:            "identity",
	}, zerolog.Nop())

	now := time.Now().UTC()
	svc.now = func() time.Time { return now }

	return &fixture{svc: svc, store: store, pub: pub, tokens: tokens, now: &now}
}

func (f *fixture) register(t *testing.T, email string) *identity.User {
	t.Helper()
	user, err := f.svc.Register(context.Background(), RegisterRequest{
		Email:    email,
		Password: "Passw0rdX",
		Name:     "Ada Lovelace",
	})
	require.NoError(t, err)
	return user
}

func TestService_Register(t *testing.T) {
	f := newFixture(t)

	user := f.register(t, "  Ada@Example.com ")
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, "Ada Lovelace", user.Name)
	assert.Equal(t, identity.LocationSharingNeighborhood, user.LocationSharing)
	assert.NotEqual(t, "Passw0rdX", user.PasswordHash)

	_, err := f.svc.Register(context.Background(), RegisterRequest{
		Email:    "ada@example.com",
		Password: "Passw0rdX",
		Name:     "Someone Else",
	})
	assert.ErrorIs(t, err, identity.ErrEmailTaken)
}

func TestService_Register_Validation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Register(context.Background(), RegisterRequest{Email: "nope", Password: "short", Name: "A"})
	require.Error(t, err)

	var verrs *validation.Errors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, []string{
		validation.MsgEmailInvalid,
		validation.MsgPasswordWeak,
		validation.MsgNameInvalid,
	}, verrs.Messages)
}

func TestService_LoginLogout(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.register(t, "ada@example.com")

	_, err := f.svc.Login(ctx, "ada@example.com", "WrongPass1")
	assert.ErrorIs(t, err, identity.ErrInvalidCredentials)

	_, err = f.svc.Login(ctx, "ghost@example.com", "Passw0rdX")
	assert.ErrorIs(t, err, identity.ErrInvalidCredentials)

	session, err := f.svc.Login(ctx, "ADA@example.com", "Passw0rdX")
	require.NoError(t, err)
	assert.Equal(t, user.ID, session.User.ID)

	claims, err := f.tokens.Validate(session.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.Subject)

	require.NoError(t, f.svc.Logout(ctx, session.Token))
	_, err = f.tokens.Validate(session.Token)
	assert.ErrorIs(t, err, identity.ErrInvalidToken)
}

func TestService_PasswordReset(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.register(t, "ada@example.com")

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "nobody@example.com"))
	assert.Empty(t, f.pub.events)

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "ada@example.com"))
	require.Len(t, f.pub.events, 1)
	assert.Equal(t, "identity."+user.ID+".password_reset_requested", f.pub.subjects[0])

	data, ok := f.pub.events[0].Data.(map[string]interface{})
	require.True(t, ok)
	token, ok := data["token"].(string)
	require.True(t, ok)
	require.NotEmpty(t, token)

	err := f.svc.ConfirmPasswordReset(ctx, "ada@example.com", "wrong-token", "NewPassw0rd")
	assert.ErrorIs(t, err, identity.ErrResetTokenInvalid)

	err = f.svc.ConfirmPasswordReset(ctx, "ada@example.com", token, "weak")
	var verrs *validation.Errors
	assert.ErrorAs(t, err, &verrs)

	require.NoError(t, f.svc.ConfirmPasswordReset(ctx, "ada@example.com", token, "NewPassw0rd"))

	_, err = f.svc.Login(ctx, "ada@example.com", "Passw0rdX")
	assert.ErrorIs(t, err, identity.ErrInvalidCredentials)
	_, err = f.svc.Login(ctx, "ada@example.com", "NewPassw0rd")
	assert.NoError(t, err)

	// Tokens are single use
	err = f.svc.ConfirmPasswordReset(ctx, "ada@example.com", token, "Another1Pass")
	assert.ErrorIs(t, err, identity.ErrResetTokenInvalid)
}

func TestService_PasswordReset_Expired(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.register(t, "ada@example.com")

	require.NoError(t, f.svc.RequestPasswordReset(ctx, "ada@example.com"))
	token := f.pub.events[0].Data.(map[string]interface{})["token"].(string)

	*f.now = f.now.Add(2 * time.Hour)
	err := f.svc.ConfirmPasswordReset(ctx, "ada@example.com", token, "NewPassw0rd")
	assert.ErrorIs(t, err, identity.ErrResetTokenInvalid)
}

func TestService_UpdateUser(t *testing.T) {
	f := newFixture(t)
	user := f.register(t, "ada@example.com")
	other := f.register(t, "grace@example.com")

	ctx := identity.WithClaims(context.Background(), identity.Claims{Subject: user.ID})

	updated, err := f.svc.UpdateUser(ctx, user.ID, UpdateProfileRequest{
		Name:     "Ada King",
		Email:    "ada.king@example.com",
		PhotoURL: "https://example.com/ada.png",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ada King", updated.Name)
	assert.Equal(t, "ada.king@example.com", updated.Email)

	_, err = f.svc.UpdateUser(ctx, other.ID, UpdateProfileRequest{Name: "Hijack", Email: "x@example.com"})
	assert.ErrorIs(t, err, identity.ErrForbidden)

	_, err = f.svc.UpdateUser(context.Background(), user.ID, UpdateProfileRequest{Name: "Ada", Email: "a@example.com"})
	assert.ErrorIs(t, err, identity.ErrInvalidToken)

	_, err = f.svc.UpdateUser(ctx, user.ID, UpdateProfileRequest{Name: "", Email: ""})
	var verrs *validation.Errors
	require.ErrorAs(t, err, &verrs)
	assert.Len(t, verrs.Messages, 2)

	_, err = f.svc.UpdateUser(ctx, user.ID, UpdateProfileRequest{Name: "Ada", Email: "grace@example.com"})
	assert.ErrorIs(t, err, identity.ErrEmailTaken)
}

func TestService_DeleteUser(t *testing.T) {
	f := newFixture(t)
	user := f.register(t, "ada@example.com")
	other := f.register(t, "grace@example.com")

	require.NoError(t, f.store.SaveEntry(context.Background(), mood.Entry{ID: "e1", UserID: user.ID, Mood: mood.Calm, Timestamp: *f.now}))

	ctx := identity.WithClaims(context.Background(), identity.Claims{Subject: user.ID})

	assert.ErrorIs(t, f.svc.DeleteUser(ctx, other.ID), identity.ErrForbidden)

	require.NoError(t, f.svc.DeleteUser(ctx, user.ID))

	_, err := f.svc.GetUser(ctx, user.ID)
	assert.ErrorIs(t, err, identity.ErrUserNotFound)

	entries, err := f.store.ListEntries(ctx, user.ID, f.now.Add(-time.Hour), f.now.Add(time.Hour))
	require.NoError(t, err)
	assert.Empty(t, entries)

	assert.Equal(t, "identity."+user.ID+".deleted", f.pub.subjects[len(f.pub.subjects)-1])
}

func TestService_DeleteUser_KeepsJournalWhenUserDeleteFails(t *testing.T) {
	f := newFixture(t)
	user := f.register(t, "ada@example.com")
	require.NoError(t, f.store.SaveEntry(context.Background(), mood.Entry{ID: "e1", UserID: user.ID, Mood: mood.Calm, Timestamp: *f.now}))

	svc := NewService(brokenDeleteStore{f.store}, storeRemover{f.store}, f.tokens, f.svc.hasher, f.pub, f.svc.config, zerolog.Nop())
	ctx := identity.WithClaims(context.Background(), identity.Claims{Subject: user.ID})

	assert.Error(t, svc.DeleteUser(ctx, user.ID))

	entries, err := f.store.ListEntries(ctx, user.ID, f.now.Add(-time.Hour), f.now.Add(time.Hour))
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, err = f.store.GetUser(ctx, user.ID)
	assert.NoError(t, err)
}
