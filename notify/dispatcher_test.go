package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/quizdrop/quizdrop/config"
	"github.com/quizdrop/quizdrop/db/dao"
	"github.com/quizdrop/quizdrop/metrics"
)

type relayRecorder struct {
	mtx      sync.Mutex
	payloads []relayPayload
	status   int
}

func (r *relayRecorder) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var p relayPayload
		if err := json.NewDecoder(req.Body).Decode(&p); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		r.mtx.Lock()
		r.payloads = append(r.payloads, p)
		status := r.status
		r.mtx.Unlock()
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
	}
}

func (r *relayRecorder) count() int {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	return len(r.payloads)
}

type dispatcherSuite struct {
	suite.Suite
	db         *dao.Database
	dispatcher *Dispatcher
	relay      *relayRecorder
	server     *httptest.Server
}

func TestDispatcherSuite(t *testing.T) {
	suite.Run(t, new(dispatcherSuite))
}

func (s *dispatcherSuite) SetupSuite() {
	db, err := dao.RunDB("dispatcher_test")
	s.Require().NoError(err)
	s.db = db

	metricService := metrics.NewMetricService(&config.Config{})
	daoManager := dao.NewDaoManager(
		dao.NewPollDao(db.DB), dao.NewQuizDao(db.DB), dao.NewClaimDao(db.DB), dao.NewTokenDao(db.DB))
	s.dispatcher = NewDispatcher(NewDataHandler(daoManager), NewLimiter(), metricService, "https://app.example/quiz")
}

func (s *dispatcherSuite) TearDownSuite() {
	s.Require().NoError(s.db.StopDB())
}

func (s *dispatcherSuite) SetupTest() {
	s.db.InitTables()
	s.relay = &relayRecorder{}
	s.server = httptest.NewServer(s.relay.handler())
	// fresh limiter per test so earlier sends do not bleed over
	s.dispatcher.limiter = NewLimiter()
}

func (s *dispatcherSuite) TearDownTest() {
	s.server.Close()
	s.Require().NoError(s.db.ClearDB())
}

func (s *dispatcherSuite) TestSendDeliversPayload() {
	s.Require().NoError(s.dispatcher.OptIn("user1", "tok1", s.server.URL))

	err := s.dispatcher.Send(context.Background(), "user1", Notification{
		Title:     "hello",
		Body:      "world",
		TargetURL: "https://app.example",
	})
	s.Require().NoError(err)

	s.Require().Equal(1, s.relay.count())
	p := s.relay.payloads[0]
	s.Equal("hello", p.Title)
	s.Equal("world", p.Body)
	s.Equal("https://app.example", p.TargetURL)
	s.Equal([]string{"tok1"}, p.Tokens)
	s.NotEmpty(p.NotificationId)
}

func (s *dispatcherSuite) TestSendUniqueNotificationIds() {
	s.Require().NoError(s.dispatcher.OptIn("user1", "tok1", s.server.URL))
	s.Require().NoError(s.dispatcher.OptIn("user2", "tok2", s.server.URL))

	s.Require().NoError(s.dispatcher.Send(context.Background(), "user1", Notification{Title: "a"}))
	s.Require().NoError(s.dispatcher.Send(context.Background(), "user2", Notification{Title: "b"}))

	s.Require().Equal(2, s.relay.count())
	s.NotEqual(s.relay.payloads[0].NotificationId, s.relay.payloads[1].NotificationId)
}

func (s *dispatcherSuite) TestSendRateLimited() {
	s.Require().NoError(s.dispatcher.OptIn("user1", "tok1", s.server.URL))

	s.Require().NoError(s.dispatcher.Send(context.Background(), "user1", Notification{Title: "first"}))

	err := s.dispatcher.Send(context.Background(), "user1", Notification{Title: "second"})
	s.Require().ErrorIs(err, ErrRateLimited)
	// the second send never reached the relay
	s.Equal(1, s.relay.count())
}

func (s *dispatcherSuite) TestSendRelayFailure() {
	s.Require().NoError(s.dispatcher.OptIn("user1", "tok1", s.server.URL))
	s.relay.status = http.StatusBadGateway

	err := s.dispatcher.Send(context.Background(), "user1", Notification{Title: "x"})
	s.Require().Error(err)

	// a failed delivery is not counted against the limiter
	s.relay.status = http.StatusOK
	s.NoError(s.dispatcher.Send(context.Background(), "user1", Notification{Title: "y"}))
}

func (s *dispatcherSuite) TestSendNoTokensIsNoop() {
	s.NoError(s.dispatcher.Send(context.Background(), "ghost", Notification{Title: "x"}))
	s.Equal(0, s.relay.count())
}

func (s *dispatcherSuite) TestOptOutStopsDelivery() {
	s.Require().NoError(s.dispatcher.OptIn("user1", "tok1", s.server.URL))
	s.Require().NoError(s.dispatcher.OptOut("user1", "tok1"))

	s.NoError(s.dispatcher.Send(context.Background(), "user1", Notification{Title: "x"}))
	s.Equal(0, s.relay.count())

	// opting back in re-enables the same token row
	s.Require().NoError(s.dispatcher.OptIn("user1", "tok1", s.server.URL))
	s.NoError(s.dispatcher.Send(context.Background(), "user1", Notification{Title: "y"}))
	s.Equal(1, s.relay.count())
}

func (s *dispatcherSuite) TestRemoveRecipientDeletesTokens() {
	s.Require().NoError(s.dispatcher.OptIn("user1", "tok1", s.server.URL))
	s.Require().NoError(s.dispatcher.OptIn("user1", "tok2", s.server.URL))
	s.Require().NoError(s.dispatcher.RemoveRecipient("user1"))

	s.NoError(s.dispatcher.Send(context.Background(), "user1", Notification{Title: "x"}))
	s.Equal(0, s.relay.count())
}

func (s *dispatcherSuite) TestBroadcast() {
	s.Require().NoError(s.dispatcher.OptIn("user1", "tok1", s.server.URL))
	s.Require().NoError(s.dispatcher.OptIn("user2", "tok2", s.server.URL))
	s.Require().NoError(s.dispatcher.OptIn("user3", "tok3", s.server.URL))
	s.Require().NoError(s.dispatcher.OptOut("user3", "tok3"))

	s.Require().NoError(s.dispatcher.Broadcast(context.Background(), Notification{Title: "announcement"}))
	s.Equal(2, s.relay.count())
}
