package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNewManager(t *testing.T) {
	Convey("Given a manager on a private registry", t, func() {
		reg := prometheus.NewRegistry()
		m := NewManager(WithPrometheusRegistry(reg))

		Convey("Then it registers without panicking", func() {
			So(m, ShouldNotBeNil)
		})

		Convey("And the registry gathers the armory metric families", func() {
			families, err := reg.Gather()
			So(err, ShouldBeNil)

			names := make(map[string]bool, len(families))
			for _, f := range families {
				names[f.GetName()] = true
			}
			So(names["armory_feedback_transaction_retries_total"], ShouldBeTrue)
			So(names["armory_feedback_subscribers"], ShouldBeTrue)
			So(names["armory_feedback_presence_online"], ShouldBeTrue)
			So(names["armory_feedback_resolve_duration_milliseconds"], ShouldBeTrue)
		})
	})

	Convey("Given a manager with a custom namespace", t, func() {
		reg := prometheus.NewRegistry()
		NewManager(
			WithPrometheusRegistry(reg),
			WithNamespace("shop"),
			WithSubsystem("crowd"),
		)

		families, err := reg.Gather()
		So(err, ShouldBeNil)

		found := false
		for _, f := range families {
			if f.GetName() == "shop_crowd_transaction_retries_total" {
				found = true
			}
		}
		So(found, ShouldBeTrue)
	})
}

func TestGlobalHelpers(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("Then the recording helpers do not panic", func() {
			So(func() {
				RecordSubmit("like")
				RecordSubmitError("vote")
				RecordTransactionRetry()
				RecordTransactionFailure()
				RecordStoreError("get")
				UpdateSubscriberCount(3)
				RecordHubPublish()
				RecordHubDrop()
				UpdatePresenceOnline(7)
				UpdateTotalVisits(1001)
				UpdateWSConnections(2)
				RecordResolveDuration(12.5)
				UpdateResolvedOffers(4)
				RecordDatasetLoad()
				RecordHTTPRequest("offers", "GET", "200")
				RecordHTTPRequestDuration("offers", "GET", "200", 3.2)
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(42)
				RecordSystemGCPauseTime(0.4)
			}, ShouldNotPanic)
		})

		Convey("And the custom registry gathers them", func() {
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)
			So(len(families), ShouldBeGreaterThan, 0)
		})
	})
}
