// Package store holds the two persistence layers: messages and read tags in
// the ScyllaDB column store, users and friendships in PostgreSQL.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/rs/zerolog"

	"github.com/hsabouri/the-social-network/internal/bucket"
	"github.com/hsabouri/the-social-network/internal/model"
	"github.com/hsabouri/the-social-network/internal/stream"
)

// ColumnStoreError reports a failed ScyllaDB operation.
type ColumnStoreError struct {
	Op  string
	Err error
}

func (e *ColumnStoreError) Error() string {
	return fmt.Sprintf("column store %s: %v", e.Op, e.Err)
}

func (e *ColumnStoreError) Unwrap() error { return e.Err }

const (
	insertMessageCQL = `INSERT INTO messages (user_id, date_bucket, date, message_id, content) VALUES (?, ?, ?, ?, ?)`
	selectBucketCQL  = `SELECT message_id, date, content FROM messages WHERE user_id = ? AND date_bucket = ?`
	insertTagCQL     = `INSERT INTO read_tags (user_id, message_id) VALUES (?, ?)`
	deleteTagCQL     = `DELETE FROM read_tags WHERE user_id = ? AND message_id = ?`
)

// MessageStore reads and writes the messages and read_tags tables. Messages
// are partitioned by (author, week bucket) and clustered on date descending,
// so one partition query returns one author-week newest-first.
type MessageStore struct {
	session *gocql.Session
	log     zerolog.Logger
}

func NewMessageStore(session *gocql.Session, log zerolog.Logger) *MessageStore {
	return &MessageStore{
		session: session,
		log:     log.With().Str("component", "messages").Logger(),
	}
}

// InsertMessage persists m into its author-week partition.
func (s *MessageStore) InsertMessage(ctx context.Context, m model.Message) error {
	b := bucket.FromTime(m.Date)
	err := s.session.Query(insertMessageCQL,
		m.Author.String(), b.Unix(), m.Date, m.ID.String(), m.Content,
	).WithContext(ctx).Exec()
	if err != nil {
		return &ColumnStoreError{Op: "insert message", Err: err}
	}
	return nil
}

// MessagesOf streams u's messages from the from bucket back to (excluding)
// the to bucket, one point query per bucket, lazily as the consumer reads.
// Rows come newest-first within each bucket. A row that fails to decode
// surfaces as an error item and the walk continues with the remaining rows
// and buckets; only a query failure ends the stream. Earlier items stand.
func (s *MessageStore) MessagesOf(ctx context.Context, u model.UserID, from, to bucket.Bucket) <-chan stream.Result[model.Message] {
	out := make(chan stream.Result[model.Message])

	go func() {
		defer close(out)

		emit := func(r stream.Result[model.Message]) bool {
			select {
			case out <- r:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for _, b := range from.IterPastTo(to) {
			iter := s.session.Query(selectBucketCQL, u.String(), b.Unix()).WithContext(ctx).Iter()
			if !s.emitBucketRows(u, iter, emit) {
				return
			}
		}
	}()

	return out
}

// rowScanner is the part of gocql.Iter the bucket walk reads from.
type rowScanner interface {
	Scan(dest ...interface{}) bool
	Close() error
}

// emitBucketRows scans one bucket's rows into emit. An undecodable row
// becomes one error item and the scan moves on; a query error ends the walk.
// Returns false when the walk must stop, because the consumer is gone or the
// bucket query failed.
func (s *MessageStore) emitBucketRows(u model.UserID, iter rowScanner, emit func(stream.Result[model.Message]) bool) bool {
	var (
		rawID   string
		date    time.Time
		content string
	)
	for iter.Scan(&rawID, &date, &content) {
		id, err := model.ParseMessageID(rawID)
		if err != nil {
			s.log.Warn().Err(err).Stringer("user", u).Msg("skipping undecodable message row")
			if !emit(stream.Fail[model.Message](&ColumnStoreError{Op: "decode row", Err: err})) {
				iter.Close()
				return false
			}
			continue
		}
		ok := emit(stream.Ok(model.Message{
			ID:      id,
			Author:  u,
			Date:    date.UTC(),
			Content: content,
		}))
		if !ok {
			iter.Close()
			return false
		}
	}
	if err := iter.Close(); err != nil {
		emit(stream.Fail[model.Message](&ColumnStoreError{Op: "select bucket", Err: err}))
		return false
	}
	return true
}

// AddSeenTag marks a message read by user. Re-tagging is a no-op upsert.
func (s *MessageStore) AddSeenTag(ctx context.Context, user model.UserID, id model.MessageID) error {
	err := s.session.Query(insertTagCQL, user.String(), id.String()).WithContext(ctx).Exec()
	if err != nil {
		return &ColumnStoreError{Op: "insert tag", Err: err}
	}
	return nil
}

// RemoveSeenTag marks a message back unread. Removing an absent tag is a
// no-op.
func (s *MessageStore) RemoveSeenTag(ctx context.Context, user model.UserID, id model.MessageID) error {
	err := s.session.Query(deleteTagCQL, user.String(), id.String()).WithContext(ctx).Exec()
	if err != nil {
		return &ColumnStoreError{Op: "delete tag", Err: err}
	}
	return nil
}
