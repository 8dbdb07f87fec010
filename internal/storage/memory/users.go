package memory

import (
	"context"
	"strings"
	"time"

	"github.com/iliyamo/hotel-reservation/internal/booking"
	"github.com/iliyamo/hotel-reservation/internal/model"
)

func (db *DB) CreateUser(_ context.Context, email, passwordHash, role string) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	db.mu.Lock()
	defer db.mu.Unlock()

	if _, ok := db.emails[email]; ok {
		return 0, model.ErrEmailExists
	}

	db.nextUserID++
	now := db.now().UTC()
	u := &model.User{
		ID:           db.nextUserID,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	db.users[u.ID] = u
	db.emails[email] = u.ID

	return u.ID, nil
}

func (db *DB) GetUserByEmail(_ context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	db.mu.Lock()
	defer db.mu.Unlock()

	id, ok := db.emails[email]
	if !ok {
		return model.User{}, booking.ErrNotFound
	}

	return *db.users[id], nil
}

func (db *DB) GetUserByID(_ context.Context, id uint64) (model.User, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	u, ok := db.users[id]
	if !ok {
		return model.User{}, booking.ErrNotFound
	}

	return *u, nil
}

func (db *DB) StoreRefresh(_ context.Context, userID uint64, tokenHash string, exp time.Time) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.nextTokenID++
	db.tokens[tokenHash] = &model.RefreshToken{
		ID:        db.nextTokenID,
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: exp,
		CreatedAt: db.now().UTC(),
	}

	return nil
}

// ValidateRefresh returns the owner of a live token.
func (db *DB) ValidateRefresh(_ context.Context, tokenHash string) (uint64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	t, ok := db.tokens[tokenHash]
	if !ok || t.RevokedAt != nil || db.now().After(t.ExpiresAt) {
		return 0, booking.ErrNotFound
	}

	return t.UserID, nil
}

func (db *DB) RevokeByHash(_ context.Context, tokenHash string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	if t, ok := db.tokens[tokenHash]; ok && t.RevokedAt == nil {
		now := db.now().UTC()
		t.RevokedAt = &now
	}

	return nil
}

func (db *DB) RevokeAllForUser(_ context.Context, userID uint64) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	now := db.now().UTC()
	for _, t := range db.tokens {
		if t.UserID == userID && t.RevokedAt == nil {
			t.RevokedAt = &now
		}
	}

	return nil
}
