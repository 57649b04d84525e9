package service

import (
	"context"
	"net/http"
	"testing"

	"snapfeed/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectoryService_Search(t *testing.T) {
	t.Parallel()

	users := []models.UserProfile{{ID: "1", Username: "Alice"}, {ID: "2", Username: "bob"}, {ID: "3", Username: "malice"}}
	auth := failingAuthGateway(t)
	auth.listUsersFn = func(context.Context) ([]models.UserProfile, error) { return users, nil }
	svc := NewDirectoryService(auth)

	tests := []struct {
		term string
		want []string
	}{
		{"", []string{"1", "2", "3"}},
		{"ALI", []string{"1", "3"}},
		{" bob ", []string{"2"}},
		{"zed", []string{}},
	}
	for _, tt := range tests {
		got, err := svc.Search(context.Background(), tt.term)
		require.NoError(t, err)
		ids := []string{}
		for _, u := range got {
			ids = append(ids, u.ID)
		}
		assert.Equal(t, tt.want, ids, tt.term)
	}
}

func TestDirectoryService_SearchFailure(t *testing.T) {
	t.Parallel()

	auth := failingAuthGateway(t)
	auth.listUsersFn = func(context.Context) ([]models.UserProfile, error) {
		return nil, models.NewGatewayError("Failed to fetch users", http.StatusInternalServerError, nil)
	}

	_, err := NewDirectoryService(auth).Search(context.Background(), "a")
	require.Error(t, err)
	assert.Equal(t, "Failed to fetch users", models.UserMessage(err))
}
