package domain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHookRegistry_RunsInOrderAndStopsOnError(t *testing.T) {
	r := NewHookRegistry[*[]string]()
	boom := errors.New("boom")
	r.OnBeforeCreate(func(_ context.Context, log *[]string) error {
		*log = append(*log, "first")
		return nil
	})
	r.OnBeforeCreate(func(_ context.Context, log *[]string) error {
		*log = append(*log, "second")
		return boom
	})
	r.OnBeforeCreate(func(_ context.Context, log *[]string) error {
		*log = append(*log, "third")
		return nil
	})

	var log []string
	err := r.RunBeforeCreate(context.Background(), &log)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, []string{"first", "second"}, log)

	log = nil
	assert.NoError(t, r.RunAfterCreate(context.Background(), &log))
	assert.Empty(t, log)
}

func TestListFilter_Normalize(t *testing.T) {
	tests := []struct {
		name       string
		in         ListFilter
		wantLimit  int
		wantOffset int
	}{
		{"defaults", ListFilter{}, 50, 0},
		{"capped", ListFilter{Limit: 10_000}, MaxListLimit, 0},
		{"negative offset", ListFilter{Limit: 5, Offset: -3}, 5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := tt.in
			f.Normalize()
			assert.Equal(t, tt.wantLimit, f.Limit)
			assert.Equal(t, tt.wantOffset, f.Offset)
		})
	}
}
