package routes

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/BearBump/FreshTrack/internal/broker/messages"
	"github.com/BearBump/FreshTrack/internal/metrics"
	"github.com/BearBump/FreshTrack/internal/models"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	routesmocks "github.com/BearBump/FreshTrack/internal/services/routes/mocks"
)

const workID = "9a3c1f5e-7b2d-4c1e-8f00-112233445566"

type ServiceSuite struct {
	suite.Suite

	works    *routesmocks.MockWorkStore
	producer *routesmocks.MockProducer
	resolver *scriptedResolver
	svc      *Service
}

func (s *ServiceSuite) SetupTest() {
	s.works = &routesmocks.MockWorkStore{}
	s.producer = &routesmocks.MockProducer{}
	s.resolver = &scriptedResolver{answers: map[int]string{0: "A", 250: "A", 500: "B"}}
	sampler, _ := newTestSampler(s.resolver)
	s.svc = New(sampler, s.works).
		WithSettings(250, time.Millisecond, time.Minute).
		WithProducer(s.producer, "route.derivation.requested").
		WithMetrics(metrics.New())
}

func (s *ServiceSuite) TearDownTest() {
	s.works.AssertExpectations(s.T())
	s.producer.AssertExpectations(s.T())
}

func (s *ServiceSuite) TestSubmitRoute_WritesDerivedRoute() {
	s.works.On("GetWork", mock.Anything, workID).Return(&models.Work{ID: workID}, nil).Once()
	updated := &models.Work{ID: workID, WorkRoute: []string{"A", "B"}}
	s.works.On("OverwriteRoute", mock.Anything, workID, []string{"A", "B"}).Return(updated, nil).Once()

	res, err := s.svc.SubmitRoute(context.Background(), RouteRequest{WorkID: workID, Polyline: polyline(600)})
	s.Require().NoError(err)
	s.Require().False(res.Empty)
	s.Require().Equal([]string{"A", "B"}, res.Districts)
	s.Require().Equal(updated, res.Work)
}

func (s *ServiceSuite) TestSubmitRoute_EmptyDerivationDoesNotWrite() {
	s.resolver.answers = map[int]string{}
	s.works.On("GetWork", mock.Anything, workID).Return(&models.Work{ID: workID}, nil).Once()

	res, err := s.svc.SubmitRoute(context.Background(), RouteRequest{WorkID: workID, Polyline: polyline(600)})
	s.Require().NoError(err)
	s.Require().True(res.Empty)
	s.Require().Empty(res.Districts)
	s.works.AssertNotCalled(s.T(), "OverwriteRoute", mock.Anything, mock.Anything, mock.Anything)
}

func (s *ServiceSuite) TestSubmitRoute_DeadlineDoesNotWritePartialRoute() {
	s.resolver.answers = map[int]string{0: "A", 1: "B", 2: "C", 3: "D"}
	svc := New(NewSampler(s.resolver), s.works).WithSettings(1, 40*time.Millisecond, 60*time.Millisecond)
	s.works.On("GetWork", mock.Anything, workID).Return(&models.Work{ID: workID}, nil).Once()

	res, err := svc.SubmitRoute(context.Background(), RouteRequest{WorkID: workID, Polyline: polyline(4)})
	s.Require().ErrorIs(err, models.ErrUpstreamUnavailable)
	s.Require().Nil(res)
	s.Require().Less(len(s.resolver.calls), 4)
	s.works.AssertNotCalled(s.T(), "OverwriteRoute", mock.Anything, mock.Anything, mock.Anything)
}

func (s *ServiceSuite) TestSubmitRoute_EmptyPolyline() {
	_, err := s.svc.SubmitRoute(context.Background(), RouteRequest{WorkID: workID})
	s.Require().ErrorIs(err, models.ErrInvalidInput)
}

func (s *ServiceSuite) TestSubmitRoute_UnknownWork() {
	s.works.On("GetWork", mock.Anything, workID).Return(nil, models.ErrNotFound).Once()
	_, err := s.svc.SubmitRoute(context.Background(), RouteRequest{WorkID: workID, Polyline: polyline(3)})
	s.Require().ErrorIs(err, models.ErrNotFound)
	s.Require().Empty(s.resolver.calls)
}

func (s *ServiceSuite) TestRequestDerivation_Publishes() {
	s.works.On("GetWork", mock.Anything, workID).Return(&models.Work{ID: workID}, nil).Once()
	var published messages.RouteDerivationRequested
	s.producer.On("Publish", mock.Anything, "route.derivation.requested", []byte(workID), mock.MatchedBy(func(b []byte) bool {
		return json.Unmarshal(b, &published) == nil
	})).Return(nil).Once()

	id, err := s.svc.RequestDerivation(context.Background(), RouteRequest{WorkID: workID, Polyline: polyline(2)})
	s.Require().NoError(err)
	s.Require().NotEmpty(id)
	s.Require().Equal(id, published.RequestID)
	s.Require().Len(published.Polyline, 2)
}

func (s *ServiceSuite) TestRequestDerivation_BrokerDown() {
	s.works.On("GetWork", mock.Anything, workID).Return(&models.Work{ID: workID}, nil).Once()
	s.producer.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("no brokers")).Once()

	_, err := s.svc.RequestDerivation(context.Background(), RouteRequest{WorkID: workID, Polyline: polyline(2)})
	s.Require().ErrorIs(err, models.ErrUpstreamUnavailable)
}

func (s *ServiceSuite) TestRequestDerivation_NotConfigured() {
	sampler, _ := newTestSampler(s.resolver)
	_, err := New(sampler, s.works).RequestDerivation(context.Background(), RouteRequest{WorkID: workID, Polyline: polyline(2)})
	s.Require().ErrorIs(err, models.ErrUpstreamUnavailable)
}

func (s *ServiceSuite) TestApplyDerived() {
	s.works.On("OverwriteRoute", mock.Anything, workID, []string{"A", "B"}).Return(&models.Work{ID: workID}, nil).Once()
	s.Require().NoError(s.svc.ApplyDerived(context.Background(), messages.WorkRouteDerived{WorkID: workID, Districts: []string{"A", "B"}}))
}

func (s *ServiceSuite) TestApplyDerived_EmptyOrFailedIsSkipped() {
	s.Require().NoError(s.svc.ApplyDerived(context.Background(), messages.WorkRouteDerived{WorkID: workID}))
	e := "boom"
	s.Require().NoError(s.svc.ApplyDerived(context.Background(), messages.WorkRouteDerived{WorkID: workID, Districts: []string{"A"}, Error: &e}))
	s.works.AssertNotCalled(s.T(), "OverwriteRoute", mock.Anything, mock.Anything, mock.Anything)
}

func (s *ServiceSuite) TestApplyDerived_PoisonDroppedServerErrorReturned() {
	s.works.On("OverwriteRoute", mock.Anything, "gone", []string{"A"}).Return(nil, models.ErrNotFound).Once()
	s.Require().NoError(s.svc.ApplyDerived(context.Background(), messages.WorkRouteDerived{WorkID: "gone", Districts: []string{"A"}}))

	s.works.On("OverwriteRoute", mock.Anything, workID, []string{"A"}).Return(nil, models.ErrServer).Once()
	s.Require().ErrorIs(s.svc.ApplyDerived(context.Background(), messages.WorkRouteDerived{WorkID: workID, Districts: []string{"A"}}), models.ErrServer)
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}
