package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quizdrop/quizdrop/config"
)

const (
	// Voting ledger
	MetricVotesAccepted = "votes_accepted"
	MetricVotesRejected = "votes_rejected"
	// Winner registry
	MetricWinnersRegistered = "winners_registered"
	MetricWinnersRejected   = "winners_rejected"
	// Claim state machine
	MetricClaimsRecorded   = "claims_recorded"
	MetricClaimConflicts   = "claim_conflicts"
	MetricClaimsReconciled = "claims_reconciled"
	// Notification dispatcher
	MetricNotificationsSent    = "notifications_sent"
	MetricNotificationsLimited = "notifications_rate_limited"
	MetricNotificationsFailed  = "notifications_failed"
	MetricDispatchDuration     = "dispatch_duration"
)

type MetricService struct {
	MetricsMap map[string]prometheus.Metric
	cfg        *config.Config
}

func NewMetricService(config *config.Config) *MetricService {
	ms := make(map[string]prometheus.Metric, 0)

	votesAcceptedMetric := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricVotesAccepted,
		Help: "Ballots accepted and stored",
	})
	ms[MetricVotesAccepted] = votesAcceptedMetric
	prometheus.MustRegister(votesAcceptedMetric)

	votesRejectedMetric := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricVotesRejected,
		Help: "Ballots rejected by validation or the uniqueness constraint",
	})
	ms[MetricVotesRejected] = votesRejectedMetric
	prometheus.MustRegister(votesRejectedMetric)

	winnersRegisteredMetric := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricWinnersRegistered,
		Help: "Winner slots allocated",
	})
	ms[MetricWinnersRegistered] = winnersRegisteredMetric
	prometheus.MustRegister(winnersRegisteredMetric)

	winnersRejectedMetric := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricWinnersRejected,
		Help: "Winner registrations rejected (full quiz or duplicate wallet)",
	})
	ms[MetricWinnersRejected] = winnersRejectedMetric
	prometheus.MustRegister(winnersRejectedMetric)

	claimsRecordedMetric := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricClaimsRecorded,
		Help: "Reward claims advanced to claimed",
	})
	ms[MetricClaimsRecorded] = claimsRecordedMetric
	prometheus.MustRegister(claimsRecordedMetric)

	claimConflictsMetric := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricClaimConflicts,
		Help: "Claim replays with a mismatched tx hash",
	})
	ms[MetricClaimConflicts] = claimConflictsMetric
	prometheus.MustRegister(claimConflictsMetric)

	claimsReconciledMetric := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricClaimsReconciled,
		Help: "Legacy winner mirrors repaired by the reconciler",
	})
	ms[MetricClaimsReconciled] = claimsReconciledMetric
	prometheus.MustRegister(claimsReconciledMetric)

	notificationsSentMetric := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricNotificationsSent,
		Help: "Notifications delivered to the relay",
	})
	ms[MetricNotificationsSent] = notificationsSentMetric
	prometheus.MustRegister(notificationsSentMetric)

	notificationsLimitedMetric := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricNotificationsLimited,
		Help: "Notifications dropped by the rate limiter",
	})
	ms[MetricNotificationsLimited] = notificationsLimitedMetric
	prometheus.MustRegister(notificationsLimitedMetric)

	notificationsFailedMetric := prometheus.NewCounter(prometheus.CounterOpts{
		Name: MetricNotificationsFailed,
		Help: "Relay deliveries that returned a non-2xx response",
	})
	ms[MetricNotificationsFailed] = notificationsFailedMetric
	prometheus.MustRegister(notificationsFailedMetric)

	dispatchDurationMetric := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name: MetricDispatchDuration,
		Help: "Duration of one relay delivery",
	})
	ms[MetricDispatchDuration] = dispatchDurationMetric
	prometheus.MustRegister(dispatchDurationMetric)

	return &MetricService{
		MetricsMap: ms,
		cfg:        config,
	}
}

func (m *MetricService) Start() {
	http.Handle("/metrics", promhttp.Handler())
	err := http.ListenAndServe(fmt.Sprintf(":%d", m.cfg.ServiceConfig.MetricsPort), nil)
	if err != nil {
		panic(err)
	}
}

func (m *MetricService) IncVotesAccepted() {
	m.MetricsMap[MetricVotesAccepted].(prometheus.Counter).Inc()
}

func (m *MetricService) IncVotesRejected() {
	m.MetricsMap[MetricVotesRejected].(prometheus.Counter).Inc()
}

func (m *MetricService) IncWinnersRegistered() {
	m.MetricsMap[MetricWinnersRegistered].(prometheus.Counter).Inc()
}

func (m *MetricService) IncWinnersRejected() {
	m.MetricsMap[MetricWinnersRejected].(prometheus.Counter).Inc()
}

func (m *MetricService) IncClaimsRecorded() {
	m.MetricsMap[MetricClaimsRecorded].(prometheus.Counter).Inc()
}

func (m *MetricService) IncClaimConflicts() {
	m.MetricsMap[MetricClaimConflicts].(prometheus.Counter).Inc()
}

func (m *MetricService) IncClaimsReconciled() {
	m.MetricsMap[MetricClaimsReconciled].(prometheus.Counter).Inc()
}

func (m *MetricService) IncNotificationsSent() {
	m.MetricsMap[MetricNotificationsSent].(prometheus.Counter).Inc()
}

func (m *MetricService) IncNotificationsLimited() {
	m.MetricsMap[MetricNotificationsLimited].(prometheus.Counter).Inc()
}

func (m *MetricService) IncNotificationsFailed() {
	m.MetricsMap[MetricNotificationsFailed].(prometheus.Counter).Inc()
}

func (m *MetricService) ObserveDispatchDuration(duration time.Duration) {
	m.MetricsMap[MetricDispatchDuration].(prometheus.Histogram).Observe(duration.Seconds())
}
