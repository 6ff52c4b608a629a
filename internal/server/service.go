package server

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/hsabouri/the-social-network/internal/model"
	"github.com/hsabouri/the-social-network/internal/rpc"
	"github.com/hsabouri/the-social-network/internal/store"
	"github.com/hsabouri/the-social-network/internal/stream"
	"github.com/hsabouri/the-social-network/internal/task"
	"github.com/hsabouri/the-social-network/internal/wire"
)

// timelineBatchSize caps how many messages ride in one historical timeline
// response frame.
const timelineBatchSize = 64

// Collaborator interfaces, satisfied by the store, event, and timeline
// packages. Narrow on purpose so tests can fake them.

type userDirectory interface {
	GetUserByName(ctx context.Context, name string) (model.User, error)
	InsertFriendship(ctx context.Context, user, friend model.UserID) error
	RemoveFriendship(ctx context.Context, user, friend model.UserID) error
}

type messageWriter interface {
	InsertMessage(ctx context.Context, m model.Message) error
	AddSeenTag(ctx context.Context, user model.UserID, id model.MessageID) error
	RemoveSeenTag(ctx context.Context, user model.UserID, id model.MessageID) error
}

type publisher interface {
	PublishMessage(m model.Message) error
	PublishFriendship(user, friend model.UserID) error
	PublishFriendshipRemoved(user, friend model.UserID) error
	PublishSeen(user model.UserID, id model.MessageID) error
	PublishUnseen(user model.UserID, id model.MessageID) error
}

type timelines interface {
	Historical(ctx context.Context, u model.UserID) (<-chan stream.Result[model.Message], error)
	RealTime(ctx context.Context, u model.UserID) (<-chan stream.Result[model.Message], error)
}

// Service implements rpc.SocialNetworkServer. Write paths run through the
// task manager: once a request is accepted the persist-then-publish sequence
// finishes even if the caller hangs up. A publish failure after successful
// persistence is logged and swallowed; a persistence failure is terminal.
type Service struct {
	users     userDirectory
	messages  messageWriter
	bus       publisher
	timelines timelines
	tasks     *task.Manager
	log       zerolog.Logger
}

func NewService(users userDirectory, messages messageWriter, bus publisher, tl timelines, tasks *task.Manager, log zerolog.Logger) *Service {
	return &Service{
		users:     users,
		messages:  messages,
		bus:       bus,
		timelines: tl,
		tasks:     tasks,
		log:       log.With().Str("component", "service").Logger(),
	}
}

var _ rpc.SocialNetworkServer = (*Service)(nil)

func (s *Service) GetUserByName(ctx context.Context, req *wire.UserByNameRequest) (*wire.UserResponse, error) {
	if req.Name == "" {
		return nil, status.Error(codes.InvalidArgument, "name must not be empty")
	}

	u, err := s.users.GetUserByName(ctx, req.Name)
	if errors.Is(err, store.ErrUserNotFound) {
		return nil, status.Errorf(codes.NotFound, "no user named %q", req.Name)
	}
	if err != nil {
		s.log.Error().Err(err).Str("name", req.Name).Msg("user lookup failed")
		return nil, status.Error(codes.Internal, "user lookup failed")
	}

	return &wire.UserResponse{UserID: u.ID.String(), Name: u.Name}, nil
}

func (s *Service) AddFriend(ctx context.Context, req *wire.FriendRequest) (*wire.FriendResponse, error) {
	user, friend, err := parseFriendPair(req.UserID, req.FriendID)
	if err != nil {
		return nil, err
	}

	err = s.tasks.SpawnAwait(ctx, func(ctx context.Context) error {
		if err := s.users.InsertFriendship(ctx, user, friend); err != nil {
			return err
		}
		if err := s.bus.PublishFriendship(user, friend); err != nil {
			s.log.Warn().Err(err).Msg("friendship persisted but publish failed")
		}
		return nil
	})
	if err != nil {
		return nil, writeStatus(err)
	}
	return &wire.FriendResponse{Success: true}, nil
}

func (s *Service) RemoveFriend(ctx context.Context, req *wire.FriendRequest) (*wire.FriendResponse, error) {
	user, friend, err := parseFriendPair(req.UserID, req.FriendID)
	if err != nil {
		return nil, err
	}

	err = s.tasks.SpawnAwait(ctx, func(ctx context.Context) error {
		if err := s.users.RemoveFriendship(ctx, user, friend); err != nil {
			return err
		}
		if err := s.bus.PublishFriendshipRemoved(user, friend); err != nil {
			s.log.Warn().Err(err).Msg("friendship removal persisted but publish failed")
		}
		return nil
	})
	if err != nil {
		return nil, writeStatus(err)
	}
	return &wire.FriendResponse{Success: true}, nil
}

func (s *Service) PostMessage(ctx context.Context, req *wire.PostMessageRequest) (*wire.MessageStatusResponse, error) {
	author, err := model.ParseUserID(req.UserID)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "bad user id: %v", err)
	}

	m := model.NewMessage(author, req.Content)
	s.log.Info().
		Stringer("author", author).
		Stringer("message", m.ID).
		Str("preview", preview(m.Content)).
		Msg("posting message")

	err = s.tasks.SpawnAwait(ctx, func(ctx context.Context) error {
		if err := s.messages.InsertMessage(ctx, m); err != nil {
			return err
		}
		if err := s.bus.PublishMessage(m); err != nil {
			s.log.Warn().Err(err).Stringer("message", m.ID).Msg("message persisted but publish failed")
		}
		return nil
	})
	if err != nil {
		return nil, writeStatus(err)
	}
	return &wire.MessageStatusResponse{Success: true}, nil
}

func (s *Service) TagReadMessage(ctx context.Context, req *wire.TagMessageRequest) (*wire.MessageStatusResponse, error) {
	return s.tagMessage(ctx, req, s.messages.AddSeenTag, s.bus.PublishSeen)
}

func (s *Service) TagUnreadMessage(ctx context.Context, req *wire.TagMessageRequest) (*wire.MessageStatusResponse, error) {
	return s.tagMessage(ctx, req, s.messages.RemoveSeenTag, s.bus.PublishUnseen)
}

func (s *Service) tagMessage(
	ctx context.Context,
	req *wire.TagMessageRequest,
	persist func(context.Context, model.UserID, model.MessageID) error,
	publish func(model.UserID, model.MessageID) error,
) (*wire.MessageStatusResponse, error) {
	user, err := model.ParseUserID(req.UserID)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "bad user id: %v", err)
	}
	id, err := model.ParseMessageID(req.MessageID)
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "bad message id: %v", err)
	}

	err = s.tasks.SpawnAwait(ctx, func(ctx context.Context) error {
		if err := persist(ctx, user, id); err != nil {
			return err
		}
		if err := publish(user, id); err != nil {
			s.log.Warn().Err(err).Stringer("message", id).Msg("tag persisted but publish failed")
		}
		return nil
	})
	if err != nil {
		return nil, writeStatus(err)
	}
	return &wire.MessageStatusResponse{Success: true}, nil
}

func (s *Service) Timeline(req *wire.TimelineRequest, out grpc.ServerStreamingServer[wire.TimelineResponse]) error {
	u, err := model.ParseUserID(req.UserID)
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "bad user id: %v", err)
	}

	ctx := out.Context()
	items, err := s.timelines.Historical(ctx, u)
	if err != nil {
		s.log.Error().Err(err).Stringer("user", u).Msg("historical timeline failed to open")
		return status.Error(codes.Internal, "timeline unavailable")
	}

	batch := make([]model.Message, 0, timelineBatchSize)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := out.Send(&wire.TimelineResponse{Messages: batch})
		batch = make([]model.Message, 0, timelineBatchSize)
		return err
	}

	for r := range items {
		if r.Err != nil {
			// One friend's walk died; the others keep streaming.
			s.log.Warn().Err(r.Err).Stringer("user", u).Msg("timeline sub-stream failed")
			continue
		}
		batch = append(batch, r.Val)
		if len(batch) == timelineBatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

func (s *Service) RealTimeNotifications(req *wire.NotificationsRequest, out grpc.ServerStreamingServer[wire.NotificationsResponse]) error {
	u, err := model.ParseUserID(req.UserID)
	if err != nil {
		return status.Errorf(codes.InvalidArgument, "bad user id: %v", err)
	}

	ctx := out.Context()
	items, err := s.timelines.RealTime(ctx, u)
	if err != nil {
		s.log.Error().Err(err).Stringer("user", u).Msg("real-time timeline failed to open")
		return status.Error(codes.Internal, "notifications unavailable")
	}

	for r := range items {
		if r.Err != nil {
			s.log.Warn().Err(r.Err).Stringer("user", u).Msg("notification item dropped")
			continue
		}
		m := r.Val
		if err := out.Send(&wire.NotificationsResponse{Message: &m}); err != nil {
			return err
		}
	}
	return nil
}

func parseFriendPair(rawUser, rawFriend string) (model.UserID, model.UserID, error) {
	user, err := model.ParseUserID(rawUser)
	if err != nil {
		return model.UserID{}, model.UserID{}, status.Errorf(codes.InvalidArgument, "bad user id: %v", err)
	}
	friend, err := model.ParseUserID(rawFriend)
	if err != nil {
		return model.UserID{}, model.UserID{}, status.Errorf(codes.InvalidArgument, "bad friend id: %v", err)
	}
	if user == friend {
		return model.UserID{}, model.UserID{}, status.Error(codes.InvalidArgument, "cannot befriend yourself")
	}
	return user, friend, nil
}

// writeStatus maps a write-path failure to an RPC status. Context errors
// keep their own codes so a cancelled caller is not reported as a backend
// fault; the detached task still runs.
func writeStatus(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, "request cancelled; write continues")
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, "request deadline exceeded; write continues")
	default:
		return status.Errorf(codes.Internal, "write failed: %v", err)
	}
}

func preview(content string) string {
	const max = 32
	if len(content) <= max {
		return content
	}
	return content[:max] + "…"
}
