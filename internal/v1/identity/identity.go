// Package identity implements the Identity Service (spec.md §4.3): the
// Ping contract that issues a new opaque user id and display name, or
// recognizes an existing one.
package identity

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/google/uuid"

	"github.com/onnwee/lobby/internal/v1/apperr"
	"github.com/onnwee/lobby/internal/v1/logging"
	"github.com/onnwee/lobby/internal/v1/store"
	"go.uber.org/zap"
)

// UserRepository is the subset of store.UserRepository the Service needs,
// kept as an interface so tests can swap in a fake.
type UserRepository interface {
	FindUser(ctx context.Context, userID string) (store.User, error)
	InsertUser(ctx context.Context, u store.User) (store.User, error)
}

// NameGenerator produces a display name for a freshly issued user.
// Swappable for tests that need deterministic names.
type NameGenerator func() string

// Service implements Ping over a UserRepository.
type Service struct {
	users   UserRepository
	newName NameGenerator
}

// New builds a Service with the default two-word fantasy name generator.
func New(users UserRepository) *Service {
	return &Service{users: users, newName: RandomFantasyName}
}

// NewWithNameGenerator is like New but lets callers override name generation.
func NewWithNameGenerator(users UserRepository, gen NameGenerator) *Service {
	return &Service{users: users, newName: gen}
}

// Ping implements spec.md §4.3: ping(optional user_id) -> {user_id, user_name}.
// An empty userID means "issue a new identity".
func (s *Service) Ping(ctx context.Context, userID string) (store.User, error) {
	if userID != "" {
		u, err := s.users.FindUser(ctx, userID)
		if err != nil {
			return store.User{}, err
		}
		return u, nil
	}

	id := uuid.NewString()
	ctx = logging.WithUser(ctx, id)

	u := store.User{
		UserID:   id,
		UserName: s.newName(),
	}

	saved, err := s.users.InsertUser(ctx, u)
	if err != nil {
		if apperr.Is(err, apperr.KindUserAlreadyExists) {
			logging.Warn(ctx, "identity: uuid collision on insert", zap.String("user_id", id))
		}
		return store.User{}, err
	}

	logging.Info(ctx, "identity: issued new user", zap.String("user_name", saved.UserName))
	return saved, nil
}

// fantasyAdjectives and fantasyNouns ground the two-word display name
// generator in the original implementation's rnglib Fantasy language list,
// trimmed to a small embedded set rather than pulling in a full wordlist dep.
var fantasyAdjectives = []string{
	"Shadow", "Crimson", "Silver", "Wild", "Ember",
	"Frost", "Gilded", "Bitter", "Lucky", "Hollow",
}

var fantasyNouns = []string{
	"Fox", "Raven", "Wolf", "Stag", "Serpent",
	"Falcon", "Badger", "Heron", "Lynx", "Otter",
}

// RandomFantasyName returns a random "Adjective Noun" pair, e.g. "Lucky Fox".
func RandomFantasyName() string {
	adj := fantasyAdjectives[rand.Intn(len(fantasyAdjectives))]
	noun := fantasyNouns[rand.Intn(len(fantasyNouns))]
	return fmt.Sprintf("%s %s", adj, noun)
}
