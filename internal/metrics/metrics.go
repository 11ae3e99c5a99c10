// Package metrics holds the domain counters exported next to the HTTP
// metrics on /metrics.
package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	Signups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "yamdb",
			Subsystem: "auth",
			Name:      "signups_total",
			Help:      "Confirmation codes requested, by whether the user was new.",
		},
		[]string{"created"},
	)

	TokenExchanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "yamdb",
			Subsystem: "auth",
			Name:      "token_exchanges_total",
			Help:      "Confirmation code exchanges, by outcome.",
		},
		[]string{"outcome"},
	)

	ReviewsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "yamdb",
			Subsystem: "feedback",
			Name:      "reviews_created_total",
			Help:      "Reviews created.",
		},
	)

	CommentsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "yamdb",
			Subsystem: "feedback",
			Name:      "comments_created_total",
			Help:      "Comments created.",
		},
	)
)

// Register adds the domain collectors to reg.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{Signups, TokenExchanges, ReviewsCreated, CommentsCreated} {
		if err := reg.Register(c); err != nil {
			var already prometheus.AlreadyRegisteredError
			if errors.As(err, &already) {
				continue
			}
			return err
		}
	}
	return nil
}
