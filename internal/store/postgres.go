package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/hsabouri/the-social-network/internal/model"
)

// ErrUserNotFound is returned by lookups when no user matches.
var ErrUserNotFound = errors.New("user not found")

// RelationalError reports a failed PostgreSQL operation.
type RelationalError struct {
	Op  string
	Err error
}

func (e *RelationalError) Error() string {
	return fmt.Sprintf("relational store %s: %v", e.Op, e.Err)
}

func (e *RelationalError) Unwrap() error { return e.Err }

// UserStore reads and writes the users and friendships tables. A friendship
// is two directed rows written and removed as a unit, so every friend query
// is a single-column lookup.
type UserStore struct {
	pool *pgxpool.Pool
	log  zerolog.Logger
}

func NewUserStore(pool *pgxpool.Pool, log zerolog.Logger) *UserStore {
	return &UserStore{
		pool: pool,
		log:  log.With().Str("component", "users").Logger(),
	}
}

// InsertUser creates a user record. A duplicate name violates the unique
// constraint and surfaces as a RelationalError.
func (s *UserStore) InsertUser(ctx context.Context, u model.User) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (user_id, name) VALUES ($1::uuid, $2)`,
		u.ID.String(), u.Name,
	)
	if err != nil {
		return &RelationalError{Op: "insert user", Err: err}
	}
	return nil
}

// DeleteUser removes a user and every friendship edge touching them, in one
// transaction. Their authored messages stay in the column store.
func (s *UserStore) DeleteUser(ctx context.Context, id model.UserID) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM friendships WHERE user_id = $1::uuid OR friend_id = $1::uuid`,
			id.String(),
		); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `DELETE FROM users WHERE user_id = $1::uuid`, id.String())
		return err
	})
	if err != nil {
		return &RelationalError{Op: "delete user", Err: err}
	}
	return nil
}

// GetUser fetches a user by id.
func (s *UserStore) GetUser(ctx context.Context, id model.UserID) (model.User, error) {
	var name string
	err := s.pool.QueryRow(ctx,
		`SELECT name FROM users WHERE user_id = $1::uuid`, id.String(),
	).Scan(&name)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, ErrUserNotFound
	}
	if err != nil {
		return model.User{}, &RelationalError{Op: "get user", Err: err}
	}
	return model.User{ID: id, Name: name}, nil
}

// GetUserByName fetches a user by display name. Names are unique.
func (s *UserStore) GetUserByName(ctx context.Context, name string) (model.User, error) {
	var rawID string
	err := s.pool.QueryRow(ctx,
		`SELECT user_id::text FROM users WHERE name = $1`, name,
	).Scan(&rawID)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.User{}, ErrUserNotFound
	}
	if err != nil {
		return model.User{}, &RelationalError{Op: "get user by name", Err: err}
	}
	id, err := model.ParseUserID(rawID)
	if err != nil {
		return model.User{}, &RelationalError{Op: "get user by name", Err: err}
	}
	return model.User{ID: id, Name: name}, nil
}

// InsertFriendship writes both directed rows of the edge in one transaction.
// A duplicate edge violates the primary key and surfaces as a
// RelationalError.
func (s *UserStore) InsertFriendship(ctx context.Context, user, friend model.UserID) error {
	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO friendships (user_id, friend_id) VALUES ($1::uuid, $2::uuid), ($2::uuid, $1::uuid)`,
			user.String(), friend.String(),
		)
		return err
	})
	if err != nil {
		return &RelationalError{Op: "insert friendship", Err: err}
	}
	return nil
}

// RemoveFriendship deletes both directed rows of the edge. Removing an
// absent edge is a no-op.
func (s *UserStore) RemoveFriendship(ctx context.Context, user, friend model.UserID) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM friendships
		 WHERE (user_id = $1::uuid AND friend_id = $2::uuid)
		    OR (user_id = $2::uuid AND friend_id = $1::uuid)`,
		user.String(), friend.String(),
	)
	if err != nil {
		return &RelationalError{Op: "remove friendship", Err: err}
	}
	return nil
}

// FriendsOf returns the current friends of u. The two-row representation
// makes this a single-column lookup.
func (s *UserStore) FriendsOf(ctx context.Context, u model.UserID) ([]model.UserID, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT friend_id::text FROM friendships WHERE user_id = $1::uuid`, u.String(),
	)
	if err != nil {
		return nil, &RelationalError{Op: "friends of", Err: err}
	}
	defer rows.Close()

	var friends []model.UserID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, &RelationalError{Op: "friends of", Err: err}
		}
		id, err := model.ParseUserID(raw)
		if err != nil {
			return nil, &RelationalError{Op: "friends of", Err: err}
		}
		friends = append(friends, id)
	}
	if err := rows.Err(); err != nil {
		return nil, &RelationalError{Op: "friends of", Err: err}
	}
	return friends, nil
}
