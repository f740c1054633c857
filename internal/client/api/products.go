package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	"github.com/atinyakov/productdesk/internal/models"
)

// Products lists all products. The token is attached only when one is
// cached; anonymous reads are allowed by the API.
func (c *Client) Products(ctx context.Context) ([]models.Product, error) {
	return c.list(ctx, PathProducts)
}

// ProductsByCategory lists the products of one category.
func (c *Client) ProductsByCategory(ctx context.Context, category string) ([]models.Product, error) {
	return c.list(ctx, PathProducts+"/category/"+url.PathEscape(category))
}

func (c *Client) list(ctx context.Context, path string) ([]models.Product, error) {
	resp, err := c.do(ctx, http.MethodGet, path, nil, authIfPresent)
	if err != nil {
		return nil, err
	}
	var products []models.Product
	if err := decode(resp, &products); err != nil {
		return nil, err
	}
	if products == nil {
		products = []models.Product{}
	}
	return products, nil
}

// Product fetches a single product by id.
func (c *Client) Product(ctx context.Context, id int) (*models.Product, error) {
	resp, err := c.do(ctx, http.MethodGet, productPath(id), nil, authIfPresent)
	if err != nil {
		if StatusCode(err) == http.StatusNotFound {
			return nil, errors.Join(ErrNotFound, err)
		}
		return nil, err
	}
	var p models.Product
	if err := decode(resp, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProduct submits a new product. The token is always attached, even
// when empty, and a 403 is reported as ErrAdminRequired. The payload is
// passed through unvalidated.
func (c *Client) CreateProduct(ctx context.Context, product any) error {
	return c.write(ctx, http.MethodPost, PathProducts, product)
}

// UpdateProduct replaces the product with the given id.
func (c *Client) UpdateProduct(ctx context.Context, id int, product any) error {
	return c.write(ctx, http.MethodPut, productPath(id), product)
}

// DeleteProduct removes the product with the given id.
func (c *Client) DeleteProduct(ctx context.Context, id int) error {
	return c.write(ctx, http.MethodDelete, productPath(id), nil)
}

func (c *Client) write(ctx context.Context, method, path string, body any) error {
	resp, err := c.do(ctx, method, path, body, authAlways)
	if err != nil {
		if StatusCode(err) == http.StatusForbidden {
			return errors.Join(ErrAdminRequired, err)
		}
		return err
	}
	discard(resp)
	return nil
}

func productPath(id int) string {
	return PathProducts + "/" + strconv.Itoa(id)
}
