// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/docent-tui/internal/api"
	"github.com/jeranaias/docent-tui/internal/storage"
)

// =============================================================================
// HELPERS
// =============================================================================

type fakeClient struct {
	mu          sync.Mutex
	token       string
	verifyCalls int
	verifyUser  *api.User
	verifyErr   error
	loginResp   *api.AuthResponse
	loginErr    error
	meUser      *api.User
}

func (f *fakeClient) SetToken(token string) {
	f.mu.Lock()
	f.token = token
	f.mu.Unlock()
}

func (f *fakeClient) Token() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.token
}

func (f *fakeClient) Verify(ctx context.Context) (*api.User, error) {
	f.mu.Lock()
	f.verifyCalls++
	f.mu.Unlock()
	return f.verifyUser, f.verifyErr
}

func (f *fakeClient) Me(ctx context.Context) (*api.User, error) {
	if f.meUser == nil {
		return nil, api.ErrNetwork
	}
	return f.meUser, nil
}

func (f *fakeClient) Login(ctx context.Context, creds api.Credentials) (*api.AuthResponse, error) {
	return f.loginResp, f.loginErr
}

func (f *fakeClient) Signup(ctx context.Context, req api.SignupRequest) (*api.AuthResponse, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return &api.AuthResponse{Token: f.loginResp.Token, User: api.User{ID: 9, Email: req.Email, Name: req.Name}}, nil
}

func newFileCreds(t *testing.T) *storage.FileStore {
	t.Helper()
	return storage.NewFileStore(filepath.Join(t.TempDir(), "credentials.json"), "localhost:5000")
}

func signToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "1", "exp": exp.Unix()})
	s, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

// recorder collects every transition a subscriber sees.
type recorder struct {
	mu     sync.Mutex
	states []Session
}

func (r *recorder) record(s Session) {
	r.mu.Lock()
	r.states = append(r.states, s)
	r.mu.Unlock()
}

func (r *recorder) all() []Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Session(nil), r.states...)
}

// =============================================================================
// STORE TESTS
// =============================================================================

func TestStoreStartsSignedOut(t *testing.T) {
	s := NewStore()
	cur := s.Current()
	if cur.IsAuthenticated || cur.IsLoading || cur.User != nil || cur.Token != "" {
		t.Errorf("Current() = %+v, want zero session", cur)
	}
}

func TestStoreSetsUserAndTokenTogether(t *testing.T) {
	s := NewStore()
	rec := &recorder{}
	s.Subscribe(rec.record)

	s.setAuthenticated(api.User{ID: 1, Email: "a@b.c"}, "tok")
	s.clear()

	states := rec.all()
	require.Len(t, states, 2)
	assert.True(t, states[0].IsAuthenticated)
	assert.Equal(t, "tok", states[0].Token)
	require.NotNil(t, states[0].User)
	assert.Equal(t, "a@b.c", states[0].User.Email)

	assert.False(t, states[1].IsAuthenticated)
	assert.Empty(t, states[1].Token)
	assert.Nil(t, states[1].User)
}

func TestStoreSubscribersSeeSameOrder(t *testing.T) {
	s := NewStore()
	a, b := &recorder{}, &recorder{}
	s.Subscribe(a.record)
	s.Subscribe(b.record)

	s.setPending("t1")
	s.setAuthenticated(api.User{ID: 1}, "t1")
	s.setUser(api.User{ID: 1, Name: "Renamed"})
	s.clear()

	require.Len(t, a.all(), 4)
	assert.Equal(t, a.all(), b.all())
	assert.True(t, a.all()[0].IsLoading)
	assert.Equal(t, "Renamed", a.all()[2].User.Name)
}

func TestStoreConcurrentWritersSerialize(t *testing.T) {
	s := NewStore()
	rec := &recorder{}
	s.Subscribe(rec.record)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.setAuthenticated(api.User{ID: int64(i)}, fmt.Sprintf("tok-%d", i))
		}(i)
	}
	wg.Wait()

	states := rec.all()
	require.Len(t, states, 20)
	for _, st := range states {
		require.NotNil(t, st.User)
		assert.Equal(t, fmt.Sprintf("tok-%d", st.User.ID), st.Token, "user and token must change together")
	}
	last := states[len(states)-1]
	assert.Equal(t, last, s.Current())
}

func TestStoreUnsubscribeAndClose(t *testing.T) {
	s := NewStore()
	rec := &recorder{}
	unsubscribe := s.Subscribe(rec.record)

	s.setPending("a")
	unsubscribe()
	s.setPending("b")
	assert.Len(t, rec.all(), 1)

	other := &recorder{}
	s.Subscribe(other.record)
	s.Close()
	s.setPending("c")
	assert.Empty(t, other.all())
	assert.Equal(t, "b", s.Current().Token, "closed store ignores transitions")
}

func TestStoreCurrentIsACopy(t *testing.T) {
	s := NewStore()
	s.setAuthenticated(api.User{ID: 1, Name: "A"}, "tok")
	cur := s.Current()
	cur.User.Name = "mutated"
	if got := s.Current().User.Name; got != "A" {
		t.Errorf("User.Name = %q, want A", got)
	}
}

func TestSetUserRequiresAuthentication(t *testing.T) {
	s := NewStore()
	s.setUser(api.User{ID: 1})
	if s.Current().User != nil {
		t.Error("setUser should not authenticate a signed-out session")
	}
}

// =============================================================================
// GATE TESTS
// =============================================================================

func TestCheckWithoutCredentialRedirects(t *testing.T) {
	client := &fakeClient{}
	g := NewGate(NewStore(), client, newFileCreds(t))

	d, err := g.Check(context.Background())
	assert.Equal(t, RedirectSignIn, d)
	assert.ErrorIs(t, err, ErrNoCredential)
	assert.Zero(t, client.verifyCalls, "no network call without a credential")
}

func TestCheckExpiredTokenRedirectsWithoutNetwork(t *testing.T) {
	creds := newFileCreds(t)
	require.NoError(t, creds.Save(storage.Credential{Token: signToken(t, time.Now().Add(-time.Hour))}))
	client := &fakeClient{}
	g := NewGate(NewStore(), client, creds)

	d, err := g.Check(context.Background())
	assert.Equal(t, RedirectSignIn, d)
	assert.ErrorIs(t, err, ErrExpired)
	assert.Zero(t, client.verifyCalls)

	_, err = creds.Load()
	assert.ErrorIs(t, err, storage.ErrNoCredential, "expired credential is forgotten")
}

func TestCheckVerifiesPersistedToken(t *testing.T) {
	creds := newFileCreds(t)
	token := signToken(t, time.Now().Add(time.Hour))
	require.NoError(t, creds.Save(storage.Credential{Token: token}))

	client := &fakeClient{verifyUser: &api.User{ID: 3, Email: "u@example.com"}}
	store := NewStore()
	rec := &recorder{}
	store.Subscribe(rec.record)
	g := NewGate(store, client, creds)

	d, err := g.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Allowed, d)
	assert.Equal(t, token, client.Token())

	states := rec.all()
	require.Len(t, states, 2)
	assert.True(t, states[0].IsLoading, "verification is pending first")
	assert.False(t, states[0].IsAuthenticated)
	assert.True(t, states[1].IsAuthenticated)
	assert.False(t, states[1].IsLoading)
	assert.Equal(t, int64(3), states[1].User.ID)
}

func TestCheckAcceptsOpaqueTokens(t *testing.T) {
	client := &fakeClient{verifyUser: &api.User{ID: 1}}
	store := NewStore()
	store.setPending("not-a-jwt")
	g := NewGate(store, client, nil)

	d, err := g.Check(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Allowed, d)
	assert.Equal(t, 1, client.verifyCalls)
}

func TestCheckFailureKeepsCredentialOnNetworkError(t *testing.T) {
	creds := newFileCreds(t)
	require.NoError(t, creds.Save(storage.Credential{Token: "opaque"}))
	client := &fakeClient{verifyErr: fmt.Errorf("%w: refused", api.ErrNetwork)}
	store := NewStore()
	g := NewGate(store, client, creds)

	d, err := g.Check(context.Background())
	assert.Equal(t, RedirectSignIn, d)
	assert.ErrorIs(t, err, api.ErrNetwork)
	assert.False(t, store.Current().IsAuthenticated)
	assert.Empty(t, store.Current().Token)

	cred, err := creds.Load()
	require.NoError(t, err)
	assert.Equal(t, "opaque", cred.Token)
}

func TestCheckFailureForgetsRejectedCredential(t *testing.T) {
	creds := newFileCreds(t)
	require.NoError(t, creds.Save(storage.Credential{Token: "opaque"}))
	client := &fakeClient{verifyErr: &api.APIError{Status: http.StatusUnauthorized, Message: "Invalid token"}}
	g := NewGate(NewStore(), client, creds)

	d, _ := g.Check(context.Background())
	assert.Equal(t, RedirectSignIn, d)
	_, err := creds.Load()
	assert.ErrorIs(t, err, storage.ErrNoCredential)
	assert.Empty(t, client.Token())
}

func TestSignInPersistsCredential(t *testing.T) {
	creds := newFileCreds(t)
	client := &fakeClient{loginResp: &api.AuthResponse{Token: "tok", User: api.User{ID: 1, Email: "a@b.c"}}}
	store := NewStore()
	g := NewGate(store, client, creds)

	user, err := g.SignIn(context.Background(), "  a@b.c ", "pw")
	require.NoError(t, err)
	assert.Equal(t, "a@b.c", user.Email)
	assert.True(t, store.Current().IsAuthenticated)
	assert.Equal(t, "tok", client.Token())

	cred, err := creds.Load()
	require.NoError(t, err)
	assert.Equal(t, "tok", cred.Token)
	assert.Equal(t, "a@b.c", cred.Email)
}

func TestSignInFailureLeavesSessionUntouched(t *testing.T) {
	client := &fakeClient{loginErr: &api.APIError{Status: http.StatusUnauthorized, Message: "Invalid email or password"}}
	store := NewStore()
	rec := &recorder{}
	store.Subscribe(rec.record)
	g := NewGate(store, client, nil)

	_, err := g.SignIn(context.Background(), "a@b.c", "bad")
	require.Error(t, err)
	assert.Equal(t, "Invalid email or password", api.Message(err, ""))
	assert.Empty(t, rec.all())
}

func TestSignUpAndSignOut(t *testing.T) {
	creds := newFileCreds(t)
	client := &fakeClient{loginResp: &api.AuthResponse{Token: "new"}}
	store := NewStore()
	g := NewGate(store, client, creds)

	user, err := g.SignUp(context.Background(), api.SignupRequest{Email: "n@x.io", Password: "Passw0rd!", Name: " Nia "})
	require.NoError(t, err)
	assert.Equal(t, "Nia", user.Name)
	assert.True(t, store.Current().IsAuthenticated)

	g.SignOut()
	assert.False(t, store.Current().IsAuthenticated)
	assert.Empty(t, client.Token())
	_, err = creds.Load()
	assert.ErrorIs(t, err, storage.ErrNoCredential)
}

func TestRefreshReplacesProfile(t *testing.T) {
	client := &fakeClient{meUser: &api.User{ID: 1, Name: "New Name"}}
	store := NewStore()
	store.setAuthenticated(api.User{ID: 1, Name: "Old"}, "tok")
	g := NewGate(store, client, nil)

	_, err := g.Refresh(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "New Name", store.Current().User.Name)
	assert.Equal(t, "tok", store.Current().Token)
}

// TestUnauthorizedFromAnyCallSiteSignsOut drives the real API client: a 401
// on an unrelated read clears the session and the persisted credential.
func TestUnauthorizedFromAnyCallSiteSignsOut(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/api/auth/login":
			fmt.Fprint(w, `{"token":"tok","user":{"id":1,"email":"a@b.c","name":"A"}}`)
		default:
			w.WriteHeader(http.StatusUnauthorized)
			fmt.Fprint(w, `{"error":"Token has expired"}`)
		}
	}))
	defer srv.Close()

	client := api.New(api.Options{BaseURL: srv.URL + "/api", MaxRetries: 0})
	creds := newFileCreds(t)
	store := NewStore()
	g := NewGate(store, client, creds)
	client.OnUnauthorized(g.HandleUnauthorized)

	rec := &recorder{}
	store.Subscribe(rec.record)

	_, err := g.SignIn(context.Background(), "a@b.c", "pw")
	require.NoError(t, err)
	require.True(t, store.Current().IsAuthenticated)

	_, err = client.Documents(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, api.ErrUnauthorized))

	cur := store.Current()
	assert.False(t, cur.IsAuthenticated)
	assert.Nil(t, cur.User)
	assert.Empty(t, cur.Token)
	assert.Empty(t, client.Token())

	states := rec.all()
	require.Len(t, states, 2)
	assert.False(t, states[1].IsAuthenticated, "subscribers observe the sign-out")

	_, err = creds.Load()
	assert.ErrorIs(t, err, storage.ErrNoCredential)
}

// =============================================================================
// BUBBLE TEA BRIDGE
// =============================================================================

func TestWatcherDeliversTransitions(t *testing.T) {
	store := NewStore()
	w := Watch(store)
	defer w.Stop()

	store.setPending("tok")
	store.clear()

	msg, ok := w.Next()().(ChangedMsg)
	require.True(t, ok)
	assert.True(t, msg.Session.IsLoading)

	msg, ok = w.Next()().(ChangedMsg)
	require.True(t, ok)
	assert.False(t, msg.Session.IsLoading)
}

func TestWatcherStopReleasesNext(t *testing.T) {
	w := Watch(NewStore())
	done := make(chan any, 1)
	go func() { done <- w.Next()() }()
	w.Stop()
	w.Stop()

	select {
	case msg := <-done:
		assert.Nil(t, msg)
	case <-time.After(2 * time.Second):
		t.Fatal("Next did not return after Stop")
	}
}
