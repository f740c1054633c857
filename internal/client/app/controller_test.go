package app

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/atinyakov/productdesk/internal/client/api"
	"github.com/atinyakov/productdesk/internal/client/api/apitest"
	"github.com/atinyakov/productdesk/internal/client/session"
	"github.com/atinyakov/productdesk/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

// recordingView captures every call the controller makes.
type recordingView struct {
	main       bool
	userInfo   string
	vis        Visibility
	products   []models.Product
	shownCount int
	cleared    int
	alerts     []string
	notices    []string
}

func (v *recordingView) ShowLogin() {
	v.main = false
	v.userInfo = ""
}
func (v *recordingView) ShowMain() { v.main = true }
func (v *recordingView) SetUserInfo(text string) { v.userInfo = text }
func (v *recordingView) SetVisibility(vis Visibility) { v.vis = vis }
func (v *recordingView) ShowProducts(p []models.Product) {
	v.products = p
	v.shownCount++
}
func (v *recordingView) ClearProducts() {
	v.products = nil
	v.cleared++
}
func (v *recordingView) Alert(msg string) { v.alerts = append(v.alerts, msg) }
func (v *recordingView) Notify(msg string) { v.notices = append(v.notices, msg) }

// pageAPI mimics the endpoints used by the page with fixed answers.
type pageAPI struct {
	mu          sync.Mutex
	loginStatus int
	loginBody   string
	writeStatus int
	listBody    string
	productAuth []string
	productHas  []bool
}

func (p *pageAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if r.URL.Path == api.PathLogin {
		w.WriteHeader(p.loginStatus)
		_, _ = io.WriteString(w, p.loginBody)
		return
	}
	_, has := r.Header["Authorization"]
	p.productHas = append(p.productHas, has)
	p.productAuth = append(p.productAuth, r.Header.Get("Authorization"))
	if r.Method == http.MethodGet {
		_, _ = io.WriteString(w, p.listBody)
		return
	}
	w.WriteHeader(p.writeStatus)
}

func newPage(t *testing.T, p *pageAPI) (*Controller, *recordingView, *api.Client) {
	t.Helper()
	if p.loginStatus == 0 {
		p.loginStatus = http.StatusOK
	}
	if p.writeStatus == 0 {
		p.writeStatus = http.StatusCreated
	}
	if p.listBody == "" {
		p.listBody = `[{"id":1,"name":"Apples","category":"Fruit","price":1,"quantity":2}]`
	}
	ts := httptest.NewServer(p)
	t.Cleanup(ts.Close)
	client := api.New(ts.URL)
	view := &recordingView{}
	return NewController(client, view, zap.NewNop()), view, client
}

func TestUpdateUIForRole(t *testing.T) {
	tests := []struct {
		role session.Role
		want Visibility
	}{
		{session.RoleAdmin, Visibility{AdminOnly: true}},
		{session.RoleUser, Visibility{UserOnly: true}},
		{session.RoleUnknown, Visibility{}},
		{session.ParseRole("auditor"), Visibility{}},
		{session.ParseRole(""), Visibility{}},
	}
	for _, tt := range tests {
		t.Run(tt.role.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, UpdateUIForRole(tt.role))
		})
	}
}

func TestLogin_AdminScenario(t *testing.T) {
	page := &pageAPI{loginBody: `{"token":"t1","user":"alice","role":"admin"}`}
	ctl, view, client := newPage(t, page)

	require.NoError(t, ctl.Login(context.Background(), "alice", "pw"))

	assert.True(t, view.main)
	assert.Equal(t, "Logged in as: alice (admin)", view.userInfo)
	assert.Equal(t, Visibility{AdminOnly: true, UserOnly: false}, view.vis)
	assert.Equal(t, "t1", client.Session().Token())
	require.Len(t, page.productAuth, 1, "login triggers a product load")
	assert.Equal(t, "Bearer t1", page.productAuth[0])
	require.Len(t, view.products, 1)
	assert.Empty(t, view.alerts)
}

func TestLogin_UserRole(t *testing.T) {
	page := &pageAPI{loginBody: `{"token":"t2","user":"bob","role":"user"}`}
	ctl, view, _ := newPage(t, page)

	require.NoError(t, ctl.Login(context.Background(), "bob", "pw"))
	assert.Equal(t, Visibility{UserOnly: true}, view.vis)
	assert.Equal(t, "Logged in as: bob (user)", view.userInfo)
}

func TestLogin_UnknownRoleHidesBothGroups(t *testing.T) {
	page := &pageAPI{loginBody: `{"token":"t3","user":"carol","role":"auditor"}`}
	ctl, view, _ := newPage(t, page)

	require.NoError(t, ctl.Login(context.Background(), "carol", "pw"))
	assert.True(t, view.main)
	assert.Equal(t, Visibility{}, view.vis)
	assert.Equal(t, "Logged in as: carol (auditor)", view.userInfo)
}

func TestLogin_Rejected(t *testing.T) {
	page := &pageAPI{loginStatus: http.StatusUnauthorized, loginBody: "Invalid credentials"}
	ctl, view, client := newPage(t, page)
	ctl.Start()

	err := ctl.Login(context.Background(), "alice", "wrong")
	assert.ErrorIs(t, err, api.ErrLoginFailed)
	assert.Equal(t, []string{MsgLoginFailed}, view.alerts)
	assert.False(t, view.main)
	assert.Equal(t, "", client.Session().Token())
	assert.Empty(t, page.productAuth, "no product load after failed login")
}

func TestLogin_RejectedWhileLoggedInResetsView(t *testing.T) {
	page := &pageAPI{loginBody: `{"token":"t1","user":"alice","role":"admin"}`}
	ctl, view, client := newPage(t, page)
	ctx := context.Background()
	require.NoError(t, ctl.Login(ctx, "alice", "pw"))
	require.True(t, view.main)

	page.mu.Lock()
	page.loginStatus = http.StatusUnauthorized
	page.loginBody = "Invalid credentials"
	page.mu.Unlock()

	err := ctl.Login(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, api.ErrLoginFailed)
	assert.Equal(t, "", client.Session().Token())
	assert.False(t, view.main, "no token means the login view")
	assert.Equal(t, Visibility{}, view.vis, "no token means no role-gated UI")
	assert.Empty(t, view.userInfo)
	assert.Nil(t, view.products)
	assert.Equal(t, []string{MsgLoginFailed}, view.alerts)
}

func TestRegister_FailureWhileLoggedInResetsView(t *testing.T) {
	srv := apitest.New(t)
	view := &recordingView{}
	ctl := NewController(api.New(srv.URL), view, nil)
	ctx := context.Background()
	require.NoError(t, ctl.Login(ctx, "admin@example.com", "admin123"))
	require.Equal(t, Visibility{AdminOnly: true}, view.vis)

	err := ctl.Register(ctx, "Dup", "user@example.com", "pw")
	assert.ErrorIs(t, err, api.ErrLoginFailed)
	assert.False(t, view.main)
	assert.Equal(t, Visibility{}, view.vis)
	assert.Equal(t, []string{MsgRegisterFailed}, view.alerts)
}

func TestLogin_TransportError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	view := &recordingView{}
	ctl := NewController(api.New(url), view, nil)

	err := ctl.Login(context.Background(), "alice", "pw")
	require.Error(t, err)
	assert.Equal(t, []string{MsgLoginError}, view.alerts)
	assert.False(t, view.main)
}

func TestLogout(t *testing.T) {
	page := &pageAPI{loginBody: `{"token":"t1","user":"alice","role":"admin"}`}
	ctl, view, client := newPage(t, page)
	ctx := context.Background()
	require.NoError(t, ctl.Login(ctx, "alice", "pw"))

	ctl.Logout()
	assert.False(t, view.main)
	assert.Equal(t, Visibility{}, view.vis)
	assert.Nil(t, view.products)
	assert.Equal(t, 1, view.cleared)
	assert.Equal(t, "", client.Session().Token())

	require.NoError(t, ctl.LoadProducts(ctx))
	assert.False(t, page.productHas[len(page.productHas)-1], "no Authorization after logout")
}

func TestLoadProducts_Anonymous(t *testing.T) {
	page := &pageAPI{}
	ctl, view, _ := newPage(t, page)

	require.NoError(t, ctl.LoadProducts(context.Background()))
	require.Len(t, page.productHas, 1)
	assert.False(t, page.productHas[0])
	assert.Equal(t, 1, view.shownCount)
}

func TestLoadProducts_ErrorIsSurfaced(t *testing.T) {
	page := &pageAPI{listBody: "not json"}
	ctl, view, _ := newPage(t, page)

	core, logs := observer.New(zapcore.ErrorLevel)
	ctl.log = zap.New(core)

	err := ctl.LoadProducts(context.Background())
	assert.ErrorIs(t, err, api.ErrDecode)
	assert.Equal(t, []string{MsgLoadFailed}, view.notices)
	assert.Empty(t, view.alerts, "load failures are not blocking alerts")
	assert.Equal(t, 1, logs.FilterMessage("error loading products").Len())
}

func TestAddProduct_StatusMapping(t *testing.T) {
	tests := []struct {
		status    int
		want      bool
		wantAlert bool
	}{
		{http.StatusOK, true, false},
		{http.StatusCreated, true, false},
		{http.StatusNoContent, true, false},
		{http.StatusForbidden, false, true},
		{http.StatusUnauthorized, false, false},
		{http.StatusBadRequest, false, false},
		{http.StatusInternalServerError, false, false},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			page := &pageAPI{writeStatus: tt.status}
			ctl, view, _ := newPage(t, page)

			got := ctl.AddProduct(context.Background(), models.Product{Name: "Tea"})
			assert.Equal(t, tt.want, got)
			if tt.wantAlert {
				assert.Equal(t, []string{MsgAdminRequired}, view.alerts)
			} else {
				assert.Empty(t, view.alerts)
			}
		})
	}
}

func TestAddProduct_ForbiddenRegardlessOfPayload(t *testing.T) {
	payloads := []any{
		nil,
		models.Product{},
		map[string]any{"name": "x", "price": -1},
		json.RawMessage(`[1,2,3]`),
		"just a string",
	}
	for _, p := range payloads {
		page := &pageAPI{writeStatus: http.StatusForbidden}
		ctl, _, _ := newPage(t, page)
		assert.False(t, ctl.AddProduct(context.Background(), p), "payload %#v", p)
	}
}

func TestAddProduct_SendsTokenUnconditionally(t *testing.T) {
	page := &pageAPI{}
	ctl, _, _ := newPage(t, page)

	assert.True(t, ctl.AddProduct(context.Background(), models.Product{Name: "Tea"}))
	require.NotEmpty(t, page.productHas)
	assert.True(t, page.productHas[0], "write always carries Authorization")
	assert.Equal(t, "Bearer", page.productAuth[0])
}

func TestAddProduct_ReloadsOnSuccess(t *testing.T) {
	page := &pageAPI{}
	ctl, view, _ := newPage(t, page)

	require.True(t, ctl.AddProduct(context.Background(), models.Product{Name: "Tea"}))
	assert.Equal(t, 1, view.shownCount)
}

func TestController_FakeAPIRoundTrip(t *testing.T) {
	srv := apitest.New(t)
	view := &recordingView{}
	ctl := NewController(api.New(srv.URL), view, nil)
	ctx := context.Background()

	require.NoError(t, ctl.Login(ctx, "admin@example.com", "admin123"))
	require.True(t, ctl.AddProduct(ctx, models.Product{Name: "Tea", Category: "Drinks", Price: 2, Quantity: 5}))
	require.Len(t, view.products, 4)

	tea := view.products[3]
	require.True(t, ctl.UpdateProduct(ctx, tea.ID, models.Product{Name: "Green Tea", Category: "Drinks"}))
	require.NoError(t, ctl.SearchByCategory(ctx, "Drinks"))
	require.Len(t, view.products, 1)
	assert.Equal(t, "Green Tea", view.products[0].Name)

	require.True(t, ctl.DeleteProduct(ctx, tea.ID))
	_, err := ctl.ShowProduct(ctx, tea.ID)
	assert.ErrorIs(t, err, api.ErrNotFound)
	assert.Contains(t, view.notices, "Product 4 not found")

	ctl.Logout()
	require.NoError(t, ctl.Login(ctx, "user@example.com", "user123"))
	assert.False(t, ctl.DeleteProduct(ctx, 1))
	assert.Contains(t, view.alerts, MsgAdminRequired)

	profile, err := ctl.Profile(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Regular User", profile.Name)
}

func TestRegister_LogsIn(t *testing.T) {
	srv := apitest.New(t)
	view := &recordingView{}
	ctl := NewController(api.New(srv.URL), view, nil)

	require.NoError(t, ctl.Register(context.Background(), "Dana", "dana@example.com", "pw"))
	assert.True(t, view.main)
	assert.Equal(t, "Logged in as: Dana (user)", view.userInfo)
	assert.Equal(t, Visibility{UserOnly: true}, view.vis)

	err := ctl.Register(context.Background(), "Dana", "dana@example.com", "pw")
	assert.ErrorIs(t, err, api.ErrLoginFailed)
	assert.Equal(t, []string{MsgRegisterFailed}, view.alerts)
}

func TestExpireSession(t *testing.T) {
	exp := time.Now().Add(time.Hour)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("k"))
	require.NoError(t, err)

	page := &pageAPI{loginBody: `{"token":"` + token + `","user":"alice","role":"admin"}`}
	ctl, view, client := newPage(t, page)
	require.NoError(t, ctl.Login(context.Background(), "alice", "pw"))

	assert.False(t, ctl.ExpireSession(time.Now()))
	assert.NotEmpty(t, client.Session().Token())

	assert.True(t, ctl.ExpireSession(exp.Add(time.Second)))
	assert.Equal(t, "", client.Session().Token())
	assert.False(t, view.main)

	assert.False(t, ctl.ExpireSession(exp.Add(time.Second)), "nothing to expire when logged out")
}
