package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atinyakov/productdesk/internal/client/api"
	"github.com/atinyakov/productdesk/internal/client/session"
	"github.com/atinyakov/productdesk/internal/models"
	"go.uber.org/zap"
)

// User-facing messages.
const (
	MsgLoginFailed    = "Login failed"
	MsgLoginError     = "Login error"
	MsgAdminRequired  = "Access denied: Admin role required"
	MsgLoadFailed     = "Could not load products"
	MsgRegisterFailed = "Registration failed"
)

// Controller is the session client behind the UI. It owns no state of its
// own; the token lives in the api.Client session and the rendering in View.
type Controller struct {
	client *api.Client
	view   View
	log    *zap.Logger
}

// NewController wires a controller to an API client and a view.
func NewController(client *api.Client, view View, log *zap.Logger) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{client: client, view: view, log: log}
}

// Start renders the initial, logged-out state.
func (c *Controller) Start() {
	c.view.ShowLogin()
	c.view.SetVisibility(UpdateUIForRole(session.RoleUnknown))
}

// Login submits credentials. On success it switches to the main view,
// shows who is logged in, applies role visibility and loads the products.
// On failure it alerts the user and returns the error.
func (c *Controller) Login(ctx context.Context, username, password string) error {
	auth, err := c.client.Login(ctx, username, password)
	if err != nil {
		c.authFailed(err, MsgLoginFailed)
		return err
	}
	c.loggedIn(ctx, auth)
	return nil
}

// Register creates an account and, since the API signs new accounts in,
// continues exactly like a successful Login.
func (c *Controller) Register(ctx context.Context, name, email, password string) error {
	auth, err := c.client.Register(ctx, name, email, password)
	if err != nil {
		c.authFailed(err, MsgRegisterFailed)
		return err
	}
	c.loggedIn(ctx, auth)
	return nil
}

// authFailed runs after the client has already dropped the session, so the
// view is reset to match.
func (c *Controller) authFailed(err error, rejected string) {
	c.showLoggedOut()
	if errors.Is(err, api.ErrLoginFailed) {
		c.log.Info("authentication rejected", zap.Int("status", api.StatusCode(err)))
		c.view.Alert(rejected)
		return
	}
	c.log.Error("authentication error", zap.Error(err))
	c.view.Alert(MsgLoginError)
}

func (c *Controller) loggedIn(ctx context.Context, auth *models.AuthResponse) {
	snap := c.client.Session().Snapshot()
	c.log.Info("logged in", zap.String("user", snap.User), zap.Stringer("role", snap.Role))

	c.view.ShowMain()
	c.view.SetUserInfo(fmt.Sprintf("Logged in as: %s (%s)", auth.User, auth.Role))
	c.view.SetVisibility(UpdateUIForRole(snap.Role))
	_ = c.LoadProducts(ctx)
}

// Logout clears the session and reverts to the login view. It makes no
// server call.
func (c *Controller) Logout() {
	c.client.Logout()
	c.showLoggedOut()
}

func (c *Controller) showLoggedOut() {
	c.view.ShowLogin()
	c.view.SetVisibility(UpdateUIForRole(session.RoleUnknown))
	c.view.ClearProducts()
}

// LoadProducts fetches the product list and displays it. Failures are
// logged, noted on the view and returned.
func (c *Controller) LoadProducts(ctx context.Context) error {
	products, err := c.client.Products(ctx)
	if err != nil {
		c.log.Error("error loading products", zap.Error(err))
		c.view.Notify(MsgLoadFailed)
		return err
	}
	c.view.ShowProducts(products)
	return nil
}

// SearchByCategory displays only the products of one category.
func (c *Controller) SearchByCategory(ctx context.Context, category string) error {
	products, err := c.client.ProductsByCategory(ctx, category)
	if err != nil {
		c.log.Error("error searching products", zap.String("category", category), zap.Error(err))
		c.view.Notify(MsgLoadFailed)
		return err
	}
	c.view.ShowProducts(products)
	return nil
}

// ShowProduct fetches one product and displays it alone.
func (c *Controller) ShowProduct(ctx context.Context, id int) (*models.Product, error) {
	p, err := c.client.Product(ctx, id)
	if err != nil {
		if errors.Is(err, api.ErrNotFound) {
			c.view.Notify(fmt.Sprintf("Product %d not found", id))
		} else {
			c.log.Error("error loading product", zap.Int("id", id), zap.Error(err))
			c.view.Notify(MsgLoadFailed)
		}
		return nil, err
	}
	c.view.ShowProducts([]models.Product{*p})
	return p, nil
}

// Profile fetches the account behind the current token.
func (c *Controller) Profile(ctx context.Context) (*models.Profile, error) {
	p, err := c.client.Profile(ctx)
	if err != nil {
		c.log.Error("error loading profile", zap.Error(err))
		c.view.Alert("Could not load profile")
		return nil, err
	}
	return p, nil
}

// AddProduct submits a product with the cached token. It returns true iff
// the server answered 2xx; a 403 additionally alerts the user.
func (c *Controller) AddProduct(ctx context.Context, product any) bool {
	return c.written(ctx, "add", c.client.CreateProduct(ctx, product))
}

// UpdateProduct replaces a product; same reporting as AddProduct.
func (c *Controller) UpdateProduct(ctx context.Context, id int, product any) bool {
	return c.written(ctx, "update", c.client.UpdateProduct(ctx, id, product))
}

// DeleteProduct removes a product; same reporting as AddProduct.
func (c *Controller) DeleteProduct(ctx context.Context, id int) bool {
	return c.written(ctx, "delete", c.client.DeleteProduct(ctx, id))
}

func (c *Controller) written(ctx context.Context, op string, err error) bool {
	if err != nil {
		if errors.Is(err, api.ErrAdminRequired) {
			c.view.Alert(MsgAdminRequired)
		}
		c.log.Warn("product write failed", zap.String("op", op), zap.Error(err))
		return false
	}
	_ = c.LoadProducts(ctx)
	return true
}

// ExpireSession logs out when the token carries an expiry that has passed.
// It reports whether it did.
func (c *Controller) ExpireSession(now time.Time) bool {
	s := c.client.Session()
	if !s.Snapshot().Authenticated() || !s.Expired(now) {
		return false
	}
	c.log.Info("session expired")
	c.Logout()
	c.view.Notify("Session expired, please log in again")
	return true
}
