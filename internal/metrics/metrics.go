// Copyright 2025 AxonFlow
// SPDX-License-Identifier: BUSL-1.1
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package metrics registers the process's Prometheus collectors,
// following the teacher's pattern of package-level vectors registered
// once in init() and exported through promhttp.Handler() (§4.12).
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// DecisionsTotal counts completed evaluations by the decision they
	// resolved to, e.g. "Allow", "RejectFatal".
	DecisionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "riskengine_decisions_total",
			Help: "Total number of decision evaluations, by resolved decision.",
		},
		[]string{"decision"},
	)

	// RequestErrorsTotal counts requests that failed before producing a
	// decision, by error kind.
	RequestErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "riskengine_request_errors_total",
			Help: "Total number of requests that failed before a decision was reached, by error kind.",
		},
		[]string{"kind"},
	)

	// EvaluationDurationMS is the end-to-end latency of one
	// Evaluate call, covering both phases and audit recording.
	EvaluationDurationMS = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "riskengine_evaluation_duration_milliseconds",
			Help:    "Decision evaluation latency in milliseconds.",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	// RefreshSuccessTotal and RefreshFailureTotal count background
	// policy/sanctions refresh ticks.
	RefreshSuccessTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "riskengine_refresh_success_total",
			Help: "Total number of successful policy/sanctions refresh ticks.",
		},
	)
	RefreshFailureTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "riskengine_refresh_failure_total",
			Help: "Total number of failed policy/sanctions refresh ticks.",
		},
	)

	// RuleSetInlineRules and RuleSetStreamingRules report the size of
	// the currently published snapshot, useful for noticing a policy
	// push that silently dropped rules.
	RuleSetInlineRules = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "riskengine_ruleset_inline_rules",
			Help: "Number of inline rules in the currently published snapshot.",
		},
	)
	RuleSetStreamingRules = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "riskengine_ruleset_streaming_rules",
			Help: "Number of streaming rules in the currently published snapshot.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		DecisionsTotal,
		RequestErrorsTotal,
		EvaluationDurationMS,
		RefreshSuccessTotal,
		RefreshFailureTotal,
		RuleSetInlineRules,
		RuleSetStreamingRules,
	)

	startedAt := time.Now()
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "riskengine_uptime_seconds",
			Help: "Seconds since the process registered its metrics.",
		},
		func() float64 { return time.Since(startedAt).Seconds() },
	))
}

// ObserveEvaluation records the outcome of one Evaluate call.
func ObserveEvaluation(decision string, duration time.Duration) {
	DecisionsTotal.WithLabelValues(decision).Inc()
	EvaluationDurationMS.Observe(float64(duration.Microseconds()) / 1000.0)
}

// ObserveRequestError records a request that failed before reaching a
// decision, labeled by error kind.
func ObserveRequestError(kind string) {
	RequestErrorsTotal.WithLabelValues(kind).Inc()
}

// ObserveRefresh records one background refresh tick's outcome and, on
// success, the current snapshot size.
func ObserveRefresh(ok bool, inlineRules, streamingRules int) {
	if ok {
		RefreshSuccessTotal.Inc()
		RuleSetInlineRules.Set(float64(inlineRules))
		RuleSetStreamingRules.Set(float64(streamingRules))
		return
	}
	RefreshFailureTotal.Inc()
}
