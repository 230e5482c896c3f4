package di

import (
	"testing"

	"go.uber.org/dig"
)

// Test fixtures.
type tagStore struct {
	Name string
}

type imageBuilder struct {
	Store *tagStore
	Env   string
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		env     string
		opts    []Option
		wantErr bool
	}{
		{
			name:    "creates container with no extra providers",
			env:     "dev",
			opts:    nil,
			wantErr: false,
		},
		{
			name: "creates container with extra providers",
			env:  "prod",
			opts: []Option{
				WithProviders(func() *tagStore {
					return &tagStore{Name: "runs"}
				}),
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			container, err := New(tt.env, tt.opts...)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if container == nil && !tt.wantErr {
				t.Error("New() returned nil container without error")
			}
		})
	}
}

func TestNew_DuplicateProvider(t *testing.T) {
	_, err := New("dev",
		WithProviders(
			func() *tagStore {
				return &tagStore{Name: "a"}
			},
			func() *tagStore {
				return &tagStore{Name: "b"}
			},
		),
	)

	if err == nil {
		t.Error("New() should return error when providing duplicate types")
	}
}

func TestNew_ProvidesEnvironment(t *testing.T) {
	container, err := New("staging")
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}

	var got string
	err = container.Invoke(func(env string) {
		got = env
	})
	if err != nil {
		t.Fatalf("Invoke() unexpected error: %v", err)
	}
	if got != "staging" {
		t.Errorf("env = %v, want %v", got, "staging")
	}
}

func TestMustGet(t *testing.T) {
	t.Run("retrieves dependency", func(t *testing.T) {
		container, err := New("dev",
			WithProviders(func() *tagStore {
				return &tagStore{Name: "runs"}
			}),
		)
		if err != nil {
			t.Fatalf("New() unexpected error: %v", err)
		}

		store := MustGet[*tagStore](container)
		if store == nil || store.Name != "runs" {
			t.Errorf("MustGet() = %+v, want Name=runs", store)
		}
	})

	t.Run("panics when dependency not found", func(t *testing.T) {
		container, err := New("dev")
		if err != nil {
			t.Fatalf("New() unexpected error: %v", err)
		}

		defer func() {
			if r := recover(); r == nil {
				t.Error("MustGet() did not panic")
			}
		}()

		_ = MustGet[*tagStore](container)
	})
}

func TestDependencyInjection(t *testing.T) {
	container, err := New("prod",
		WithProviders(
			func() *tagStore {
				return &tagStore{Name: "runs"}
			},
			func(store *tagStore, env string) *imageBuilder {
				return &imageBuilder{Store: store, Env: env}
			},
		),
	)
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}

	builder := MustGet[*imageBuilder](container)
	if builder.Store.Name != "runs" {
		t.Errorf("builder.Store.Name = %v, want %v", builder.Store.Name, "runs")
	}
	if builder.Env != "prod" {
		t.Errorf("builder.Env = %v, want %v", builder.Env, "prod")
	}
}

func TestContainer_Interface(t *testing.T) {
	var _ Container = (*dig.Container)(nil)
}
