package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// sessionsIssued counts session tokens minted on successful logins.
	sessionsIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "accountd_sessions_issued_total",
		Help: "Total number of session tokens issued",
	})

	// sessionsPurged counts expired sessions removed by cleanup.
	sessionsPurged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "accountd_sessions_purged_total",
		Help: "Total number of expired sessions purged from the store",
	})

	// accountsCreated counts successful signups.
	accountsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "accountd_accounts_created_total",
		Help: "Total number of accounts created",
	})

	// accountsDeleted counts successful account deletions.
	accountsDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "accountd_accounts_deleted_total",
		Help: "Total number of accounts deleted",
	})
)
