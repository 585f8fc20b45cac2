// metrics.go — Prometheus-метрики жизненного цикла анкет и входа.
package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// formsSubmittedTotal — созданные анкеты.
	formsSubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ip_forms_submitted_total",
		Help: "Количество поданных анкет",
	})

	// formsUpdatedTotal — обновлённые анкеты.
	formsUpdatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ip_forms_updated_total",
		Help: "Количество обновлённых анкет",
	})

	// formsDeletedTotal — удалённые анкеты по роли удалившего.
	formsDeletedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ip_forms_deleted_total",
			Help: "Количество удалённых анкет",
		},
		[]string{"role"},
	)

	// validationFailuresTotal — отклонённые при валидации запросы по полю.
	validationFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ip_validation_failures_total",
			Help: "Количество ошибок валидации по полям",
		},
		[]string{"field"},
	)

	// exportRowsTotal — строки, выгруженные в CSV.
	exportRowsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ip_export_rows_total",
		Help: "Количество строк, выгруженных в CSV",
	})

	// loginAttemptsTotal — попытки входа по результату (success, failure).
	loginAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ip_login_attempts_total",
			Help: "Количество попыток входа",
		},
		[]string{"result"},
	)
)
