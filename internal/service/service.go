package service

import (
	"context"
	"errors"
	"fmt"

	"marketplace/internal/models"
	"marketplace/internal/notify"
	"marketplace/internal/query"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Service struct {
	store   Store
	journal Journal
	bus     notify.Publisher
	log     logrus.FieldLogger

	defaultPageLimit  int
	rejectSiblingBids bool
}

type Option func(*Service)

// WithPublisher sets the bus job and chat events are published on.
func WithPublisher(bus notify.Publisher) Option {
	return func(s *Service) {
		s.bus = bus
	}
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Service) {
		s.log = log
	}
}

func WithPageLimit(limit int) Option {
	return func(s *Service) {
		if limit > 0 {
			s.defaultPageLimit = limit
		}
	}
}

// WithRejectSiblingBids makes accepting a bid reject every other open bid.
func WithRejectSiblingBids(reject bool) Option {
	return func(s *Service) {
		s.rejectSiblingBids = reject
	}
}

func NewService(store Store, journal Journal, opts ...Option) *Service {
	s := &Service{
		store:            store,
		journal:          journal,
		defaultPageLimit: query.DefaultLimit,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	s.bus = notify.Safe(s.bus, s.log)

	return s
}

// jobView re-reads a job with owner and bidder profiles joined.
func (s *Service) jobView(ctx context.Context, jobId primitive.ObjectID) (models.JobView, error) {
	page, err := s.store.ListJobs(ctx, query.Filter{ID: &jobId}, query.Plan{})
	if err != nil {
		return models.JobView{}, err
	}
	if len(page.Entries) == 0 {
		return models.JobView{}, models.ErrNoJob
	}
	return page.Entries[0], nil
}

func (s *Service) publishJob(view models.JobView) {
	s.bus.Publish(notify.JobUpdateTopic(view.Id.Hex()), view)
}

func (s *Service) plan(filter query.Filter) (query.Plan, error) {
	return filter.Plan(s.defaultPageLimit)
}

// stale reports whether err is a lost conditional write that needs classifying.
func stale(err error) bool {
	return errors.Is(err, models.ErrStaleWrite)
}

func currencyOrDefault(c models.Currency) (models.Currency, error) {
	if len(c) == 0 {
		return models.PKR, nil
	}
	if !models.ValidCurrency(c) {
		return c, fmt.Errorf("%w: %s", models.ErrInvalidCurrency, c)
	}
	return c, nil
}
