package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"shortlink-be/internal/entities"
	"shortlink-be/internal/models"
	"shortlink-be/internal/repository"
)

// Hasher is the credential collaborator used for link passwords
type Hasher interface {
	PasswordVerifier
	Hash(plaintext string) (string, error)
}

// Resolution is a policy decision plus the visit recorded for it
type Resolution struct {
	Decision
	Code    string
	VisitID string
}

// LinkService defines the link lifecycle and resolution operations
type LinkService interface {
	CreateLink(ctx context.Context, req *models.CreateLinkRequest, ownerID *string) (*entities.Link, error)
	UpdateLink(ctx context.Context, id, callerID string, req *models.UpdateLinkRequest) (*entities.Link, error)
	DeleteLink(ctx context.Context, id, callerID string) error
	GetLink(ctx context.Context, id, callerID string) (*entities.Link, error)
	GetLinkByCode(ctx context.Context, code string) (*entities.Link, error)
	ListLinks(ctx context.Context, ownerID string) ([]*entities.Link, error)
	Resolve(ctx context.Context, code string, in ResolveInput, visit models.VisitInputs) (*Resolution, error)
	ValidateVisitPassword(ctx context.Context, visitID, password string, in ResolveInput) (*Resolution, error)
	DeleteVisit(ctx context.Context, visitID, callerID string) error
}

type LinkServiceOptions struct {
	CodeLength      int
	CodeMaxAttempts int
}

type linkService struct {
	links     repository.LinkRepository
	visits    repository.VisitRepository
	hasher    Hasher
	allocator *CodeAllocator
	evaluator *PolicyEvaluator
	recorder  *VisitRecorder
	validate  *validator.Validate
	log       zerolog.Logger
	now       func() time.Time
}

// NewLinkService creates a new link service
func NewLinkService(
	links repository.LinkRepository,
	visits repository.VisitRepository,
	hasher Hasher,
	recorder *VisitRecorder,
	opts LinkServiceOptions,
	log zerolog.Logger,
) LinkService {
	return &linkService{
		links:     links,
		visits:    visits,
		hasher:    hasher,
		allocator: NewCodeAllocator(links, opts.CodeLength, opts.CodeMaxAttempts),
		evaluator: NewPolicyEvaluator(hasher),
		recorder:  recorder,
		validate:  newValidator(),
		log:       log.With().Str("component", "link_service").Logger(),
		now:       time.Now,
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// CreateLink validates the destination and advanced options, then stores the
// link under a freshly allocated code
func (s *linkService) CreateLink(ctx context.Context, req *models.CreateLinkRequest, ownerID *string) (*entities.Link, error) {
	destination, err := s.validateDestination("destination", req.Destination)
	if err != nil {
		return nil, err
	}

	link := &entities.Link{
		Destination: destination,
		OwnerID:     ownerID,
	}
	if err := s.applyOptions(link, req.AdvancedOptions); err != nil {
		return nil, err
	}

	if err := s.allocator.Insert(ctx, link); err != nil {
		return nil, err
	}

	s.log.Info().Str("code", link.Code).Bool("anonymous", ownerID == nil).Msg("link created")
	return link, nil
}

// UpdateLink replaces the destination and/or the whole advanced options block.
// Owned links can only be changed by their owner.
func (s *linkService) UpdateLink(ctx context.Context, id, callerID string, req *models.UpdateLinkRequest) (*entities.Link, error) {
	link, err := s.findLink(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := canModify(link, callerID); err != nil {
		return nil, err
	}

	if req.Destination != nil {
		destination, err := s.validateDestination("destination", *req.Destination)
		if err != nil {
			return nil, err
		}
		link.Destination = destination
	}
	if req.AdvancedOptions != nil {
		if err := s.applyOptions(link, req.AdvancedOptions); err != nil {
			return nil, err
		}
	}

	if err := s.links.Update(ctx, link); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update link: %w", err)
	}
	return link, nil
}

// DeleteLink removes a link. Its visits are kept for reporting.
func (s *linkService) DeleteLink(ctx context.Context, id, callerID string) error {
	link, err := s.findLink(ctx, id)
	if err != nil {
		return err
	}
	if err := canModify(link, callerID); err != nil {
		return err
	}

	if err := s.links.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete link: %w", err)
	}
	return nil
}

// GetLink returns a link; owned links are only visible to their owner
func (s *linkService) GetLink(ctx context.Context, id, callerID string) (*entities.Link, error) {
	link, err := s.findLink(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := canModify(link, callerID); err != nil {
		return nil, err
	}
	return link, nil
}

func (s *linkService) GetLinkByCode(ctx context.Context, code string) (*entities.Link, error) {
	link, err := s.links.FindByCode(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find link: %w", err)
	}
	return link, nil
}

func (s *linkService) ListLinks(ctx context.Context, ownerID string) ([]*entities.Link, error) {
	links, err := s.links.List(ctx, &ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list links: %w", err)
	}
	return links, nil
}

// Resolve evaluates the link policies for code and records a visit whenever the
// link exists, whatever the outcome.
func (s *linkService) Resolve(ctx context.Context, code string, in ResolveInput, visit models.VisitInputs) (*Resolution, error) {
	link, err := s.links.FindByCode(ctx, code)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to find link: %w", err)
	}

	decision, evalErr := s.evaluator.Evaluate(link, in)

	res := &Resolution{Decision: decision, Code: code}
	if link != nil {
		res.VisitID = s.recorder.Record(ctx, link, visit).ID
	}

	if evalErr != nil {
		s.log.Warn().Err(evalErr).Str("code", code).Msg("stored destination is malformed")
		return nil, evalErr
	}
	return res, nil
}

// ValidateVisitPassword checks password against the policy snapshot taken when
// the visit was recorded, then runs the remaining checks against the current link.
func (s *linkService) ValidateVisitPassword(ctx context.Context, visitID, password string, in ResolveInput) (*Resolution, error) {
	visit, err := s.visits.FindByID(ctx, visitID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find visit: %w", err)
	}

	link, err := s.links.FindByID(ctx, visit.LinkID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to find link: %w", err)
	}

	res := &Resolution{VisitID: visit.ID}
	if link == nil {
		res.Status = StatusNotFound
		return res, nil
	}
	res.Code = link.Code

	snapshot := *link
	snapshot.Password = entities.PasswordPolicy{
		Enabled: visit.PasswordSnapshot.Enabled,
		Hash:    visit.PasswordSnapshot.Hash,
	}
	in.Password = &password

	res.Decision, err = s.evaluator.Evaluate(&snapshot, in)
	if err != nil {
		s.log.Warn().Err(err).Str("code", link.Code).Msg("stored destination is malformed")
		return nil, err
	}
	return res, nil
}

// DeleteVisit removes a visit; visits of an owned link can only be removed by the owner
func (s *linkService) DeleteVisit(ctx context.Context, visitID, callerID string) error {
	visit, err := s.visits.FindByID(ctx, visitID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to find visit: %w", err)
	}

	link, err := s.links.FindByID(ctx, visit.LinkID)
	switch {
	case err == nil:
		if err := canModify(link, callerID); err != nil {
			return err
		}
	case !errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("failed to find link: %w", err)
	}

	if err := s.visits.Delete(ctx, visitID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete visit: %w", err)
	}
	return nil
}

func (s *linkService) findLink(ctx context.Context, id string) (*entities.Link, error) {
	link, err := s.links.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find link: %w", err)
	}
	return link, nil
}

// canModify reports ErrForbidden when link has an owner other than callerID.
// It also guards reads that expose the destination.
func canModify(link *entities.Link, callerID string) error {
	if link.OwnerID != nil && *link.OwnerID != callerID {
		return ErrForbidden
	}
	return nil
}

// validateDestination accepts absolute http(s) URLs only
func (s *linkService) validateDestination(field, raw string) (string, error) {
	destination := strings.TrimSpace(raw)
	if destination == "" {
		return "", newValidationError(field, "is required")
	}
	if err := s.validate.Var(destination, "http_url"); err != nil {
		return "", newValidationError(field, "must be an absolute http(s) URL")
	}
	if u, err := url.Parse(destination); err != nil || u.Host == "" {
		return "", newValidationError(field, "must be an absolute http(s) URL")
	}
	return destination, nil
}

// applyOptions replaces the policy bundle of link with opts. A nil opts or a
// nil variant switches the feature off.
func (s *linkService) applyOptions(link *entities.Link, opts *models.AdvancedOptions) error {
	if opts == nil {
		opts = &models.AdvancedOptions{}
	}
	if err := s.validate.Struct(opts); err != nil {
		return toValidationError(err)
	}

	password, err := s.passwordPolicy(link.Password, opts.Password)
	if err != nil {
		return err
	}

	var expiresAt *time.Time
	if opts.Expiry != nil {
		// 2s buffer for clock skew between client and server
		if opts.Expiry.ExpiresAt.Before(s.now().Add(-2 * time.Second)) {
			return newValidationError("expires_at", "expiration time cannot be in the past")
		}
		t := opts.Expiry.ExpiresAt.UTC()
		expiresAt = &t
	}

	var targeting *entities.DeviceTargeting
	if dt := opts.DeviceTargeting; dt != nil {
		targeting = &entities.DeviceTargeting{Enabled: dt.Enabled}
		if dt.Enabled {
			if targeting.AndroidDestination, err = s.validateDestination("android_destination", dt.AndroidDestination); err != nil {
				return err
			}
			if targeting.IOSDestination, err = s.validateDestination("ios_destination", dt.IOSDestination); err != nil {
				return err
			}
		}
	}

	link.Password = password
	link.ExpiresAt = expiresAt
	link.DeviceTargeting = targeting
	return nil
}

// passwordPolicy hashes a new password. Enabling protection without a password
// keeps the current hash, which only works for an already protected link.
func (s *linkService) passwordPolicy(current entities.PasswordPolicy, opt *models.PasswordOption) (entities.PasswordPolicy, error) {
	if opt == nil || !opt.Enabled {
		return entities.PasswordPolicy{}, nil
	}
	if opt.Password == "" {
		if current.Enabled && current.Hash != "" {
			return current, nil
		}
		return entities.PasswordPolicy{}, newValidationError("password", "is required when password protection is enabled")
	}

	hash, err := s.hasher.Hash(opt.Password)
	if err != nil {
		return entities.PasswordPolicy{}, fmt.Errorf("failed to hash password: %w", err)
	}
	return entities.PasswordPolicy{Enabled: true, Hash: hash}, nil
}

func toValidationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		switch fe.Tag() {
		case "required", "required_if":
			return newValidationError(fe.Field(), "is required")
		default:
			return newValidationError(fe.Field(), "failed %s validation", fe.Tag())
		}
	}
	return &ValidationError{Message: err.Error()}
}
