package api

import (
	"context"
	"net/http"
	"net/url"

	"drift/internal/models"
)

// Resource provides typed access to one REST collection.
type Resource[T any] struct {
	client *Client
	path   string
}

func NewResource[T any](client *Client, path string) *Resource[T] {
	return &Resource[T]{client: client, path: path}
}

func (r *Resource[T]) List(ctx context.Context) ([]T, error) {
	var out []T
	if err := r.client.do(ctx, http.MethodGet, r.path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Resource[T]) Create(ctx context.Context, body any) (T, error) {
	var out T
	err := r.client.do(ctx, http.MethodPost, r.path, body, &out)
	return out, err
}

func (r *Resource[T]) Update(ctx context.Context, id string, patch any) (T, error) {
	var out T
	err := r.client.do(ctx, http.MethodPatch, r.path+"/"+url.PathEscape(id), patch, &out)
	return out, err
}

func (r *Resource[T]) Delete(ctx context.Context, id string) error {
	return r.client.do(ctx, http.MethodDelete, r.path+"/"+url.PathEscape(id), nil, nil)
}

func Tasks(client *Client) *Resource[models.Task] {
	return NewResource[models.Task](client, "/api/v1/tasks")
}

func Projects(client *Client) *Resource[models.Project] {
	return NewResource[models.Project](client, "/api/v1/projects")
}
