package service

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cartRes "github.com/Alturino/storefront/cart/pkg/response"
	cartService "github.com/Alturino/storefront/cart/service"
	"github.com/Alturino/storefront/internal/catalog"
	"github.com/Alturino/storefront/internal/config"
	inErrors "github.com/Alturino/storefront/internal/errors"
	"github.com/Alturino/storefront/internal/kv"
	"github.com/Alturino/storefront/internal/notify"
	"github.com/Alturino/storefront/internal/session"
	productRes "github.com/Alturino/storefront/product/pkg/response"
	"github.com/Alturino/storefront/user/pkg/request"
	"github.com/Alturino/storefront/user/pkg/response"
)

type fakeAuth struct {
	token      string
	loginErr   error
	profile    response.Profile
	profileErr error
}

func (f fakeAuth) Login(context.Context, request.LoginRequest) (string, error) {
	return f.token, f.loginErr
}

func (f fakeAuth) Profile(context.Context, string) (response.Profile, error) {
	return f.profile, f.profileErr
}

func (f fakeAuth) Register(_ context.Context, param request.Register) (response.Profile, error) {
	return response.Profile{ID: 9, Email: param.Email, Name: param.Name}, nil
}

// directoryAuth signs in any email, handing out a token that its profile
// lookup maps back to that email.
type directoryAuth struct{}

func (directoryAuth) Login(_ context.Context, param request.LoginRequest) (string, error) {
	return "token-" + param.Email, nil
}

func (directoryAuth) Profile(_ context.Context, token string) (response.Profile, error) {
	email := strings.TrimPrefix(token, "token-")
	return response.Profile{Email: email, Name: email}, nil
}

func (directoryAuth) Register(_ context.Context, param request.Register) (response.Profile, error) {
	return response.Profile{Email: param.Email, Name: param.Name}, nil
}

type brokenCarts struct {
	restoreErr error
}

func (b brokenCarts) Restore(context.Context, string) (bool, error) {
	return false, b.restoreErr
}

func (brokenCarts) Archive(context.Context, string) error {
	return nil
}

type fixture struct {
	manager  *SessionManager
	carts    *cartService.CartStore
	store    kv.Store
	recorder *notify.Recorder
}

func newFixture(auth Auth) fixture {
	store := kv.NewMemory()
	recorder := &notify.Recorder{}
	sessions := session.NewStore(store)
	carts := cartService.NewCartStore(store, sessions, recorder, config.Cart{ArchivePolicy: config.ArchiveOnLogout})
	return fixture{
		manager:  NewSessionManager(auth, sessions, carts, recorder),
		carts:    carts,
		store:    store,
		recorder: recorder,
	}
}

var john = request.LoginRequest{Email: "john@mail.com", Password: "changeme"}

func shoe() productRes.Product {
	return productRes.Product{
		ID:       1,
		Title:    "Red Shoe",
		Price:    decimal.NewFromInt(50),
		Category: productRes.Category{ID: 1, Name: "Shoes"},
		Images:   []string{},
	}
}

func TestLogin(t *testing.T) {
	c := context.Background()
	f := newFixture(fakeAuth{
		token:   "abc",
		profile: response.Profile{ID: 1, Email: "john@mail.com", Name: "Jhon"},
	})

	current, err := f.manager.Login(c, john)
	require.NoError(t, err)
	assert.Equal(t, "john@mail.com", current.Email)
	assert.Equal(t, "Jhon", current.DisplayName)

	loaded, err := f.manager.Current(c)
	require.NoError(t, err)
	assert.Equal(t, "abc", loaded.Token)
	assert.Equal(t, "Jhon", loaded.DisplayName)
	assert.Contains(t, f.recorder.Drain(), notify.Notice{Message: "Login successful!", Kind: notify.KindSuccess})
}

func TestLoginWithoutProfile(t *testing.T) {
	c := context.Background()
	f := newFixture(fakeAuth{token: "abc", profileErr: inErrors.ErrFetchFailed})

	current, err := f.manager.Login(c, john)
	require.NoError(t, err, "profile failure should not fail login")
	assert.Equal(t, "john@mail.com", current.Email)
	assert.Empty(t, current.DisplayName)

	_, err = f.carts.AddItem(c, shoe(), 1)
	assert.NoError(t, err, "degraded session should still be authenticated")
}

func TestLoginRejected(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr error
	}{
		{
			name:    "given remote 401 should be unauthenticated",
			err:     &catalog.StatusError{StatusCode: http.StatusUnauthorized},
			wantErr: inErrors.ErrUnauthenticated,
		},
		{
			name:    "given network failure should be fetch failed",
			err:     errors.Join(inErrors.ErrFetchFailed, errors.New("connection refused")),
			wantErr: inErrors.ErrFetchFailed,
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			c := context.Background()
			f := newFixture(fakeAuth{loginErr: test.err})

			_, err := f.manager.Login(c, john)
			assert.ErrorIs(t, err, test.wantErr)

			_, err = f.manager.Current(c)
			assert.ErrorIs(t, err, inErrors.ErrUnauthenticated)
		})
	}
}

func TestLogoutArchivesCart(t *testing.T) {
	c := context.Background()
	f := newFixture(fakeAuth{token: "abc", profile: response.Profile{Email: "john@mail.com", Name: "Jhon"}})
	_, err := f.manager.Login(c, john)
	require.NoError(t, err)
	_, err = f.carts.AddItem(c, shoe(), 2)
	require.NoError(t, err)
	active, err := f.store.Get(c, cartService.KeyActiveCart)
	require.NoError(t, err)

	require.NoError(t, f.manager.Logout(c))

	archived, err := f.store.Get(c, cartService.KeyIdentityCart("john@mail.com"))
	require.NoError(t, err)
	assert.Equal(t, active, archived)

	items, err := f.carts.Items(c)
	require.NoError(t, err)
	assert.Empty(t, items, "active cart should be empty after logout")

	for _, key := range []string{session.KeyToken, session.KeyUserName, session.KeyEmail} {
		_, err := f.store.Get(c, key)
		assert.ErrorIs(t, err, inErrors.ErrNotFound, key)
	}

	_, err = f.manager.Login(c, john)
	require.NoError(t, err)
	items, err = f.carts.Items(c)
	require.NoError(t, err)
	require.Len(t, items, 1, "login should restore the archived cart")
	assert.Equal(t, 2, items[0].Quantity)
}

func TestLoginLogoutRoundTripKeepsArchive(t *testing.T) {
	c := context.Background()
	f := newFixture(fakeAuth{token: "abc", profile: response.Profile{Email: "john@mail.com"}})
	const archived = `[{"id":1,"title":"Red Shoe","price":"50","description":"","category":{"id":1,"name":"Shoes","image":""},"images":[],"quantity":3}]`
	require.NoError(t, f.store.Set(c, cartService.KeyIdentityCart("john@mail.com"), archived))

	_, err := f.manager.Login(c, john)
	require.NoError(t, err)
	require.NoError(t, f.manager.Logout(c))

	actual, err := f.store.Get(c, cartService.KeyIdentityCart("john@mail.com"))
	require.NoError(t, err)
	assert.Equal(t, archived, actual)
}

func TestLoginWithoutArchiveKeepsActiveCart(t *testing.T) {
	c := context.Background()
	f := newFixture(fakeAuth{token: "abc", profile: response.Profile{Email: "jane@mail.com"}})
	const anonymous = `[{"id":2,"title":"Hat","price":"5","description":"","category":{"id":1,"name":"Hats","image":""},"images":[],"quantity":1}]`
	require.NoError(t, f.store.Set(c, cartService.KeyActiveCart, anonymous))

	_, err := f.manager.Login(c, request.LoginRequest{Email: "jane@mail.com", Password: "pw"})
	require.NoError(t, err)

	actual, err := f.store.Get(c, cartService.KeyActiveCart)
	require.NoError(t, err)
	assert.Equal(t, anonymous, actual)
}

func TestLogoutWhenSignedOut(t *testing.T) {
	c := context.Background()
	f := newFixture(fakeAuth{})
	const anonymous = `[]`
	require.NoError(t, f.store.Set(c, cartService.KeyActiveCart, anonymous))

	require.NoError(t, f.manager.Logout(c))

	actual, err := f.store.Get(c, cartService.KeyActiveCart)
	require.NoError(t, err)
	assert.Equal(t, anonymous, actual)
	assert.Empty(t, f.recorder.Drain())
}

func TestLoginNotifiesCartListeners(t *testing.T) {
	c := context.Background()
	f := newFixture(fakeAuth{token: "abc", profile: response.Profile{Email: "john@mail.com"}})
	const archived = `[{"id":1,"title":"Red Shoe","price":"50","description":"","category":{"id":1,"name":"Shoes","image":""},"images":[],"quantity":3}]`
	require.NoError(t, f.store.Set(c, cartService.KeyIdentityCart("john@mail.com"), archived))

	counts := []int{}
	f.carts.Subscribe(func(items []cartRes.CartItem) {
		total := 0
		for _, item := range items {
			total += item.Quantity
		}
		counts = append(counts, total)
	})

	_, err := f.manager.Login(c, john)
	require.NoError(t, err)
	require.NoError(t, f.manager.Logout(c))

	assert.Equal(t, []int{3, 0}, counts)
}

func TestRegister(t *testing.T) {
	f := newFixture(fakeAuth{})

	profile, err := f.manager.Register(context.Background(), request.Register{
		Name:     "Jane",
		Email:    "jane@mail.com",
		Password: "secret",
		Avatar:   "https://x.y/a.png",
	})
	require.NoError(t, err)
	assert.Equal(t, "jane@mail.com", profile.Email)
}

func TestLoginSwitchesIdentity(t *testing.T) {
	c := context.Background()
	f := newFixture(directoryAuth{})
	jane := request.LoginRequest{Email: "jane@mail.com", Password: "pw"}

	_, err := f.manager.Login(c, john)
	require.NoError(t, err)
	_, err = f.carts.AddItem(c, shoe(), 2)
	require.NoError(t, err)

	current, err := f.manager.Login(c, jane)
	require.NoError(t, err)
	assert.Equal(t, "jane@mail.com", current.Email)

	items, err := f.carts.Items(c)
	require.NoError(t, err)
	assert.Empty(t, items, "jane should not inherit john's cart")

	archived, err := f.store.Get(c, cartService.KeyIdentityCart("john@mail.com"))
	require.NoError(t, err, "john's cart should be archived when jane signs in")
	assert.Contains(t, archived, `"quantity":2`)

	loaded, err := f.manager.Current(c)
	require.NoError(t, err)
	assert.Equal(t, "jane@mail.com", loaded.Email)

	require.NoError(t, f.manager.Logout(c))
	_, err = f.manager.Login(c, john)
	require.NoError(t, err)
	items, err = f.carts.Items(c)
	require.NoError(t, err)
	require.Len(t, items, 1, "john should get his cart back")
	assert.Equal(t, 2, items[0].Quantity)
}

func TestLoginRestoreFailure(t *testing.T) {
	c := context.Background()
	store := kv.NewMemory()
	sessions := session.NewStore(store)
	restoreErr := errors.New("storage unavailable")
	manager := NewSessionManager(
		fakeAuth{token: "abc", profile: response.Profile{Email: "john@mail.com"}},
		sessions,
		brokenCarts{restoreErr: restoreErr},
		&notify.Recorder{},
	)

	_, err := manager.Login(c, john)
	require.ErrorIs(t, err, restoreErr)

	_, err = manager.Current(c)
	assert.ErrorIs(t, err, inErrors.ErrUnauthenticated, "failed login should leave no session")
	for _, key := range []string{session.KeyToken, session.KeyUserName, session.KeyEmail} {
		_, err := store.Get(c, key)
		assert.ErrorIs(t, err, inErrors.ErrNotFound, key)
	}
}

func TestPasswordsAreNotLogged(t *testing.T) {
	const password = "s3cr3t-pa55"
	tests := []struct {
		name string
		run  func(c context.Context, manager *SessionManager) error
	}{
		{
			name: "given login should not log password",
			run: func(c context.Context, manager *SessionManager) error {
				_, err := manager.Login(c, request.LoginRequest{Email: "john@mail.com", Password: password})
				return err
			},
		},
		{
			name: "given register should not log password",
			run: func(c context.Context, manager *SessionManager) error {
				_, err := manager.Register(c, request.Register{
					Name:     "John",
					Email:    "john@mail.com",
					Password: password,
					Avatar:   "https://x.y/a.png",
				})
				return err
			},
		},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			var out bytes.Buffer
			c := zerolog.New(&out).Level(zerolog.TraceLevel).WithContext(context.Background())
			f := newFixture(directoryAuth{})

			require.NoError(t, test.run(c, f.manager))
			require.NotEmpty(t, out.String())
			assert.NotContains(t, out.String(), password)
		})
	}
}
