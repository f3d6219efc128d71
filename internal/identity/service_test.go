package identity

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/eventure/ticketing/internal/auth"
)

type fakeUserStore struct {
	byID    map[string]User
	byEmail map[string]string // email -> id
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{byID: map[string]User{}, byEmail: map[string]string{}}
}

func (f *fakeUserStore) Create(_ context.Context, u User) (User, error) {
	if _, taken := f.byEmail[u.Email]; taken {
		return User{}, ErrEmailTaken
	}
	u.IsActive = true
	u.CreatedAt = time.Now()
	f.byID[u.ID] = u
	f.byEmail[u.Email] = u.ID
	return u, nil
}

func (f *fakeUserStore) GetByID(_ context.Context, id string) (User, error) {
	u, ok := f.byID[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (f *fakeUserStore) GetByEmail(_ context.Context, email string) (User, error) {
	id, ok := f.byEmail[email]
	if !ok {
		return User{}, ErrNotFound
	}
	return f.byID[id], nil
}

func (f *fakeUserStore) Update(_ context.Context, u User) (User, error) {
	old, ok := f.byID[u.ID]
	if !ok {
		return User{}, ErrNotFound
	}
	delete(f.byEmail, old.Email)
	f.byID[u.ID] = u
	f.byEmail[u.Email] = u.ID
	return u, nil
}

func (f *fakeUserStore) SetActive(_ context.Context, id string, active bool) error {
	u, ok := f.byID[id]
	if !ok {
		return ErrNotFound
	}
	u.IsActive = active
	f.byID[id] = u
	return nil
}

func (f *fakeUserStore) ListByRole(_ context.Context, role Role) ([]User, error) {
	var out []User
	for _, u := range f.byID {
		if u.Role == role {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakeUserStore) ListAll(_ context.Context) ([]User, error) {
	var out []User
	for _, u := range f.byID {
		out = append(out, u)
	}
	return out, nil
}

func newTestService() (*Service, *fakeUserStore) {
	store := newFakeUserStore()
	return &Service{Store: store, Secret: []byte("test-secret"), TokenTTL: time.Hour}, store
}

func TestRegisterHashesPasswordAndIssuesToken(t *testing.T) {
	svc, _ := newTestService()

	user, token, err := svc.Register(context.Background(), RegisterInput{
		Name: "Ana", Email: "ana@example.com", Password: "hunter22", Role: RoleAttendee,
	})
	require.NoError(t, err)
	require.NotEqual(t, "hunter22", user.PasswordHash)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("hunter22")))

	claims, err := auth.Verify([]byte("test-secret"), token)
	require.NoError(t, err)
	require.Equal(t, user.ID, claims.UserID)
	require.Equal(t, "attendee", claims.Role)
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, _, err := svc.Register(ctx, RegisterInput{Name: "Ana", Email: "a@b.c", Password: "short", Role: RoleAttendee})
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Register(ctx, RegisterInput{Name: "Ana", Email: "a@b.c", Password: "longenough", Role: "admin"})
	require.ErrorIs(t, err, ErrInvalidRole)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	in := RegisterInput{Name: "Ana", Email: "ana@example.com", Password: "hunter22", Role: RoleAttendee}
	_, _, err := svc.Register(ctx, in)
	require.NoError(t, err)

	_, _, err = svc.Register(ctx, in)
	require.ErrorIs(t, err, ErrEmailTaken)
}

func TestLogin(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	registered, _, err := svc.Register(ctx, RegisterInput{
		Name: "Ben", Email: "ben@example.com", Password: "hunter22", Role: RoleOrganizer,
	})
	require.NoError(t, err)

	t.Run("correct credentials", func(t *testing.T) {
		user, token, err := svc.Login(ctx, "ben@example.com", "hunter22")
		require.NoError(t, err)
		require.Equal(t, registered.ID, user.ID)
		require.NotEmpty(t, token)
	})

	t.Run("wrong password", func(t *testing.T) {
		_, _, err := svc.Login(ctx, "ben@example.com", "nope")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		_, _, err := svc.Login(ctx, "ghost@example.com", "hunter22")
		require.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("deactivated account", func(t *testing.T) {
		require.NoError(t, store.SetActive(ctx, registered.ID, false))
		_, _, err := svc.Login(ctx, "ben@example.com", "hunter22")
		require.ErrorIs(t, err, ErrInactive)
	})
}

func TestUpdateProfileKeepsUnsetFields(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	user, _, err := svc.Register(ctx, RegisterInput{
		Name: "Cara", Email: "cara@example.com", Password: "hunter22", Role: RoleAttendee,
	})
	require.NoError(t, err)

	updated, err := svc.UpdateProfile(ctx, user.ID, ProfileUpdate{Name: "Cara B."})
	require.NoError(t, err)
	require.Equal(t, "Cara B.", updated.Name)
	require.Equal(t, "cara@example.com", updated.Email)
	require.Equal(t, RoleAttendee, updated.Role)

	_, err = svc.UpdateProfile(ctx, user.ID, ProfileUpdate{Role: "superuser"})
	require.ErrorIs(t, err, ErrInvalidRole)
}
