// Package testutil provides fixtures shared by package tests: gofakeit
// factories and an in-process fake of the REST backend.
package testutil

import (
	"fmt"

	"snapfeed/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
)

// NewID returns a backend-style opaque id.
func NewID() string {
	return uuid.NewString()
}

// UserProfile builds a random profile. Overrides run last.
func UserProfile(overrides ...func(*models.UserProfile)) models.UserProfile {
	u := models.UserProfile{
		ID:             NewID(),
		Username:       gofakeit.Username(),
		Email:          gofakeit.Email(),
		ProfilePicture: fmt.Sprintf("https://picsum.photos/seed/%s/200/200", gofakeit.UUID()),
	}
	for _, override := range overrides {
		override(&u)
	}
	return u
}

// CurrentUser wraps a random profile in a session record.
func CurrentUser(overrides ...func(*models.UserProfile)) models.CurrentUser {
	return models.CurrentUser{User: UserProfile(overrides...), Message: "Login successful"}
}

// Post builds a random post authored by author. Overrides run last.
func Post(author models.UserProfile, overrides ...func(*models.Post)) models.Post {
	p := models.Post{
		ID:       NewID(),
		Title:    gofakeit.Sentence(4),
		Caption:  gofakeit.Sentence(10),
		Image:    fmt.Sprintf("https://picsum.photos/seed/%s/800/800", gofakeit.UUID()),
		UserID:   models.RefProfile(author),
		Likes:    []models.LikeEntry{},
		Comments: []models.Comment{},
	}
	for _, override := range overrides {
		override(&p)
	}
	return p
}

// Comment builds a comment by author.
func Comment(author models.UserProfile) models.Comment {
	return models.Comment{
		ID:     NewID(),
		UserID: models.RefProfile(author),
		Text:   gofakeit.Sentence(6),
	}
}
