package metrics

import (
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetricsHandler(t *testing.T) {
	h := MetricsHandler()
	assert.NotNil(t, h)
	assert.Implements(t, (*http.Handler)(nil), h)
}

func TestCommandProcessed(t *testing.T) {
	before := testutil.ToFloat64(CommandsProcessed.WithLabelValues("send_notification", "true"))

	CommandProcessed("send_notification", true)
	CommandProcessed("send_notification", true)
	CommandProcessed("send_notification", false)

	assert.Equal(t, before+2, testutil.ToFloat64(CommandsProcessed.WithLabelValues("send_notification", "true")))
	assert.GreaterOrEqual(t, testutil.ToFloat64(CommandsProcessed.WithLabelValues("send_notification", "false")), 1.0)
}

func TestDeliveryCounters(t *testing.T) {
	before := testutil.ToFloat64(NotificationsSent.WithLabelValues("welcome"))
	NotificationsSent.WithLabelValues("welcome").Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(NotificationsSent.WithLabelValues("welcome")))

	beforeBlocked := testutil.ToFloat64(PreferenceBlocked.WithLabelValues("marketing"))
	PreferenceBlocked.WithLabelValues("marketing").Inc()
	assert.Equal(t, beforeBlocked+1, testutil.ToFloat64(PreferenceBlocked.WithLabelValues("marketing")))
}
