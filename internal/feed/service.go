package feed

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ignite/drip-forwarder/internal/domain"
)

// MsgEmailRequired is shown when a feed is saved without an email mapping.
const MsgEmailRequired = "Email field is required."

// feedInput is the validated view of a feed being saved.
type feedInput struct {
	Name  string `json:"feed_name" validate:"required,max=255"`
	Email string `json:"email" validate:"required"`
	Tags  string `json:"tags" validate:"max=2000"`
}

var fieldMessages = map[string]string{
	"feed_name": "Name is required.",
	"email":     MsgEmailRequired,
	"tags":      "Tags are too long.",
}

var validate = func() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return jsonName(f.Tag.Get("json"))
	})
	return v
}()

// Service manages stored feeds.
type Service struct {
	repo Repository
}

// NewService creates a feed service backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Validate checks the settings an administrator must provide.
func Validate(f domain.FeedConfig) error {
	in := feedInput{
		Name:  strings.TrimSpace(f.Name),
		Email: f.EmailRef(),
		Tags:  f.Tags,
	}
	err := validate.Struct(in)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := &ValidationError{Fields: make(map[string]string, len(verrs))}
	for _, fe := range verrs {
		msg, ok := fieldMessages[fe.Field()]
		if !ok {
			msg = fmt.Sprintf("%s is invalid.", fe.Field())
		}
		out.Fields[fe.Field()] = msg
	}
	return out
}

// List returns the feeds of a form.
func (s *Service) List(ctx context.Context, formID int64) ([]domain.FeedConfig, error) {
	return s.repo.List(ctx, formID)
}

// Get returns one feed.
func (s *Service) Get(ctx context.Context, id int64) (*domain.FeedConfig, error) {
	return s.repo.Get(ctx, id)
}

// Create validates and stores a new feed for formID.
func (s *Service) Create(ctx context.Context, formID int64, f *domain.FeedConfig) error {
	f.ID = 0
	f.FormID = formID
	normalize(f)
	if err := Validate(*f); err != nil {
		return err
	}
	return s.repo.Create(ctx, f)
}

// Update validates and replaces a feed. The form binding cannot change.
func (s *Service) Update(ctx context.Context, id int64, f *domain.FeedConfig) error {
	existing, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	f.ID = existing.ID
	f.FormID = existing.FormID
	f.CreatedAt = existing.CreatedAt
	normalize(f)
	if err := Validate(*f); err != nil {
		return err
	}
	return s.repo.Update(ctx, f)
}

// SetActive toggles a feed.
func (s *Service) SetActive(ctx context.Context, id int64, active bool) (*domain.FeedConfig, error) {
	f, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	f.IsActive = active
	if err := s.repo.Update(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

// Delete removes a feed.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// Duplicate copies a feed under a new ID. The copy's name gets a " (copy)"
// suffix; a blank name stays blank.
func (s *Service) Duplicate(ctx context.Context, id int64) (*domain.FeedConfig, error) {
	src, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	dup := *src
	dup.ID = 0
	if name := strings.TrimSpace(src.Name); name != "" {
		dup.Name = name + " (copy)"
	}
	dup.StandardFields = maps.Clone(src.StandardFields)
	dup.FieldMap = maps.Clone(src.FieldMap)
	dup.CustomFields = append(domain.CustomFieldMap(nil), src.CustomFields...)
	dup.Condition.Rules = append([]domain.ConditionRule(nil), src.Condition.Rules...)

	if err := s.repo.Create(ctx, &dup); err != nil {
		return nil, err
	}
	return &dup, nil
}

// normalize moves a generic-map email binding to EmailField and trims refs.
func normalize(f *domain.FeedConfig) {
	f.Name = strings.TrimSpace(f.Name)
	f.EmailField = f.EmailRef()
	if f.FieldMap != nil {
		delete(f.FieldMap, "email")
		if len(f.FieldMap) == 0 {
			f.FieldMap = nil
		}
	}
	for k, v := range f.StandardFields {
		f.StandardFields[k] = strings.TrimSpace(v)
	}
}

func jsonName(tag string) string {
	name, _, _ := strings.Cut(tag, ",")
	return name
}
