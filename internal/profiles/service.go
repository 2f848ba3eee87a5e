package profiles

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"freight-service/internal/domain"
	"freight-service/internal/events"
	"freight-service/internal/storage"
	"freight-service/pkg/filestore"
	"freight-service/pkg/kafka"
	"freight-service/pkg/logger"
	"freight-service/pkg/metrics"
)

// Service runs the verification workflow of driver and customer profiles.
type Service struct {
	store storage.IStorage
	files filestore.Store
	bus   events.Publisher
	log   logger.ILogger
	now   func() time.Time
}

func NewService(store storage.IStorage, files filestore.Store, bus events.Publisher, log logger.ILogger) *Service {
	return &Service{store: store, files: files, bus: bus, log: log, now: time.Now}
}

// Submit files a verification request inside an open transaction. The
// profile is created if absent and put back to pending whatever its prior
// state. References of stored files are appended to saved so the caller can
// discard them if the transaction rolls back.
func (s *Service) Submit(ctx context.Context, tx storage.IStorage, userID string, role domain.Role, docs []Upload, saved *[]string) (*domain.Profile, error) {
	if !role.Valid() {
		return nil, domain.ErrInvalidRole
	}
	if len(docs) == 0 {
		return nil, domain.NewError(domain.CodeMissingDocuments, "documents", "documents is required")
	}

	p, err := tx.Profile().GetOrCreate(ctx, userID, role)
	if err != nil {
		return nil, err
	}
	if err := tx.Profile().SetVerification(ctx, p.ID, nil); err != nil {
		return nil, err
	}
	p.IsVerified = nil

	for _, d := range docs {
		ref, err := s.files.Save(ctx, p.ID, string(role), d.Filename, d.Content)
		if err != nil {
			return nil, err
		}
		*saved = append(*saved, ref)

		doc := &domain.Document{
			ID:        uuid.NewString(),
			ProfileID: p.ID,
			Role:      role,
			FileRef:   ref,
			CreatedAt: s.now().UTC(),
		}
		if err := tx.Profile().AddDocument(ctx, doc); err != nil {
			return nil, err
		}
		p.Documents = append(p.Documents, *doc)
	}
	return p, nil
}

// Discard removes stored files of a request that did not commit.
func (s *Service) Discard(refs []string) {
	for _, ref := range refs {
		if err := s.files.Delete(context.Background(), ref); err != nil {
			s.log.Warning("failed to discard document", logger.String("ref", ref), logger.Error(err))
		}
	}
}

// RequestVerification is the standalone verification request of an existing
// user. rawRole is parsed by its first letter.
func (s *Service) RequestVerification(ctx context.Context, userID, rawRole string, docs []Upload) (*ProfileView, error) {
	role, err := domain.ParseRole(rawRole)
	if err != nil {
		return nil, err
	}

	var saved []string
	var p *domain.Profile
	err = s.store.WithTx(ctx, func(tx storage.IStorage) error {
		var err error
		p, err = s.Submit(ctx, tx, userID, role, docs, &saved)
		return err
	})
	if err != nil {
		s.Discard(saved)
		return nil, err
	}

	s.log.Info("verification requested",
		logger.String("user_id", userID),
		logger.String("role", string(role)),
		logger.Int("documents", len(p.Documents)))
	return newView(p), nil
}

// Approve marks a pending or rejected profile verified.
func (s *Service) Approve(ctx context.Context, by domain.Principal, role domain.Role, profileID string) (*ProfileView, error) {
	return s.decide(ctx, by, role, profileID, domain.VerificationVerified)
}

// Reject marks a profile rejected. The owner may submit again.
func (s *Service) Reject(ctx context.Context, by domain.Principal, role domain.Role, profileID string) (*ProfileView, error) {
	return s.decide(ctx, by, role, profileID, domain.VerificationRejected)
}

func (s *Service) decide(ctx context.Context, by domain.Principal, role domain.Role, profileID string, state domain.VerificationState) (*ProfileView, error) {
	if !by.IsStaff {
		return nil, domain.NewError(domain.CodeForbidden, "", "staff only")
	}

	var p *domain.Profile
	err := s.store.WithTx(ctx, func(tx storage.IStorage) error {
		var err error
		if p, err = tx.Profile().GetByID(ctx, profileID); err != nil {
			return err
		}
		if p.Role != role {
			return domain.NotFound(string(role))
		}
		p.IsVerified = state.Flag()
		return tx.Profile().SetVerification(ctx, p.ID, p.IsVerified)
	})
	if err != nil {
		return nil, err
	}

	metrics.VerificationDecisions.WithLabelValues(string(role), string(state)).Inc()
	s.log.Info("verification decided",
		logger.String("profile_id", p.ID),
		logger.String("role", string(role)),
		logger.String("state", string(state)),
		logger.String("staff_id", by.UserID))

	events.Emit(s.bus, s.log, kafka.TopicVerificationDecided, p.UserID, events.VerificationDecidedEvent{
		ProfileID: p.ID,
		UserID:    p.UserID,
		Role:      string(role),
		State:     string(state),
		DecidedAt: s.now().UTC(),
	})
	return newView(p), nil
}

// Get returns the caller's profile of a role with its documents.
func (s *Service) Get(ctx context.Context, userID string, role domain.Role) (*ProfileView, error) {
	p, err := s.store.Profile().Get(ctx, userID, role)
	if err != nil {
		return nil, err
	}
	if p.Documents, err = s.store.Profile().Documents(ctx, p.ID); err != nil {
		return nil, err
	}
	return newView(p), nil
}

// ListMine returns every role profile of a user.
func (s *Service) ListMine(ctx context.Context, userID string) ([]ProfileView, error) {
	ps, err := s.store.Profile().ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]ProfileView, 0, len(ps))
	for i := range ps {
		out = append(out, *newView(&ps[i]))
	}
	return out, nil
}

// RequireVerified returns the user's party of a role, failing NotVerified
// when the profile is missing or not in the verified state.
func RequireVerified(ctx context.Context, stg storage.IStorage, userID string, role domain.Role) (domain.Party, error) {
	p, err := stg.Profile().Get(ctx, userID, role)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.Party{}, domain.NewError(domain.CodeNotVerified, string(role), "no "+string(role)+" profile")
	}
	if err != nil {
		return domain.Party{}, err
	}
	if p.State() != domain.VerificationVerified {
		return domain.Party{}, domain.NewError(domain.CodeNotVerified, string(role), string(role)+" profile is not verified")
	}

	u, err := stg.User().GetByID(ctx, userID)
	if err != nil {
		return domain.Party{}, err
	}
	return domain.Party{ProfileID: p.ID, UserID: userID, FullName: u.FullName, Role: role}, nil
}
