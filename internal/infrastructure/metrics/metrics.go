package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Recorder struct {
	transitions *prometheus.CounterVec
	rejected    *prometheus.CounterVec
	sideEffects *prometheus.CounterVec
	webhooks    *prometheus.CounterVec
	sweeps      *prometheus.CounterVec
}

// CreateRecorder registers the payment counters on reg. Pass
// prometheus.DefaultRegisterer to expose them next to the echo metrics.
func CreateRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payment_status_transitions_total",
			Help: "Applied payment status transitions.",
		}, []string{"from", "to", "source"}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payment_status_rejections_total",
			Help: "Candidate statuses the state machine refused.",
		}, []string{"reason", "source"}),
		sideEffects: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payment_side_effects_total",
			Help: "Side effect task runs by outcome.",
		}, []string{"task", "outcome"}),
		webhooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payment_webhooks_total",
			Help: "Gateway notifications received.",
		}, []string{"outcome"}),
		sweeps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payment_sweep_items_total",
			Help: "Transactions checked by the pending sweep.",
		}, []string{"result"}),
	}

	reg.MustRegister(r.transitions, r.rejected, r.sideEffects, r.webhooks, r.sweeps)

	return r
}

func (r *Recorder) Transition(from, to, source string) {
	r.transitions.WithLabelValues(from, to, source).Inc()
}

func (r *Recorder) Rejected(reason, source string) {
	r.rejected.WithLabelValues(reason, source).Inc()
}

func (r *Recorder) SideEffect(task, outcome string) {
	r.sideEffects.WithLabelValues(task, outcome).Inc()
}

func (r *Recorder) Webhook(outcome string) {
	r.webhooks.WithLabelValues(outcome).Inc()
}

func (r *Recorder) SweepItem(result string) {
	r.sweeps.WithLabelValues(result).Inc()
}
