package hostapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gavv/httpexpect/v2"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabriqs/paywidget/checkout"
	"github.com/fabriqs/paywidget/intent"
	"github.com/fabriqs/paywidget/paylib"
	"github.com/fabriqs/paywidget/paylib/paylibtest"
	"github.com/fabriqs/paywidget/widget"
)

var invoice = map[string]any{"title": "Invoice #1", "amount": 1999, "currency": "usd"}

type fixture struct {
	e   *httpexpect.Expect
	w   *widget.Widget
	lib *paylibtest.Library
}

func intentBackend(t *testing.T, status int) string {
	t.Helper()
	e := echo.New()
	e.POST("/payment-intent", func(c echo.Context) error {
		if status != http.StatusOK {
			return c.JSON(status, echo.Map{"success": false, "message": "boom"})
		}
		return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"id": "pi_9", "clientSecret": "pi_9_secret_abc"}})
	})
	e.GET("/payment-intent/:id", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"success": true, "data": echo.Map{"id": c.Param("id"), "status": "processing"}})
	})
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv.URL
}

func newFixture(t *testing.T, status int) *fixture {
	t.Helper()
	log, _ := test.NewNullLogger()
	base := intentBackend(t, status)
	lib := &paylibtest.Library{Present: true}

	provider := intent.NewClient(base, time.Second, log)
	ctrl := checkout.NewController(checkout.Options{PublishableKey: "pk_test"}, provider, paylib.NewGuard(lib, "", log), nil, nil, log)
	w, err := widget.New(widget.Config{ShowButtonPay: true, BaseStripeAPI: base}, ctrl, nil, provider, widget.Defaults{}, log)
	require.NoError(t, err)
	require.NoError(t, w.Init(context.Background()))
	w.SetTrackInterval(time.Hour)
	t.Cleanup(w.Close)

	srv := httptest.NewServer(New(w, log))
	t.Cleanup(srv.Close)
	return &fixture{e: httpexpect.Default(t, srv.URL), w: w, lib: lib}
}

func TestViewDefaults(t *testing.T) {
	f := newFixture(t, http.StatusOK)

	obj := f.e.GET("/widget").Expect().Status(http.StatusOK).JSON().Object()
	obj.Value("success").Boolean().IsTrue()
	obj.Path("$.data.mode").String().IsEqual("payment")
	obj.Path("$.data.payButton.visible").Boolean().IsTrue()
	obj.Path("$.data.payButton.enabled").Boolean().IsFalse()
	obj.Path("$.data.checkout.state").String().IsEqual("Idle")
}

func TestPayThenCheckout(t *testing.T) {
	f := newFixture(t, http.StatusOK)

	f.e.PUT("/widget/payment").WithJSON(invoice).Expect().
		Status(http.StatusOK).JSON().Object().
		Path("$.data.payButton.enabled").Boolean().IsTrue()

	obj := f.e.POST("/widget/pay").Expect().Status(http.StatusOK).JSON().Object()
	obj.Path("$.data.checkout.state").String().IsEqual("FormReady")
	obj.Path("$.data.checkout.checkout.enabled").Boolean().IsTrue()
	obj.Path("$.data.checkout.amount").String().IsEqual("1,999.00 USD")

	out := f.e.POST("/widget/checkout").Expect().Status(http.StatusOK).JSON().Object()
	out.Path("$.data.kind").String().IsEqual("succeeded")
	out.Path("$.data.status").String().IsEqual("succeeded")

	assert.Len(t, f.lib.Snapshot().Confirms, 1)
}

func TestRejectsInvalidPayment(t *testing.T) {
	f := newFixture(t, http.StatusOK)

	obj := f.e.PUT("/widget/payment").
		WithJSON(map[string]any{"title": "x", "amount": -5, "currency": "usd"}).
		Expect().Status(http.StatusBadRequest).JSON().Object()
	obj.Value("success").Boolean().IsFalse()
	obj.Value("message").String().NotEmpty()

	_, ok := f.w.Payment()
	assert.False(t, ok)
}

func TestConflicts(t *testing.T) {
	f := newFixture(t, http.StatusOK)

	f.e.POST("/widget/pay").Expect().Status(http.StatusConflict)
	f.e.POST("/widget/checkout").Expect().Status(http.StatusConflict)
	f.e.POST("/widget/retry").Expect().Status(http.StatusConflict)
}

func TestIntentFailureThenRetry(t *testing.T) {
	f := newFixture(t, http.StatusInternalServerError)

	f.e.PUT("/widget/payment").WithJSON(invoice).Expect().Status(http.StatusOK)
	f.e.POST("/widget/pay").Expect().Status(http.StatusBadGateway).
		JSON().Object().Value("success").Boolean().IsFalse()

	obj := f.e.GET("/widget").Expect().Status(http.StatusOK).JSON().Object()
	obj.Path("$.data.checkout.state").String().IsEqual("Failed")
	obj.Path("$.data.checkout.retry.visible").Boolean().IsTrue()
	obj.Path("$.data.checkout.checkout.enabled").Boolean().IsFalse()

	f.e.POST("/widget/retry").Expect().Status(http.StatusBadGateway)
	assert.Empty(t, f.lib.Snapshot().Mounts)
}

func TestBack(t *testing.T) {
	f := newFixture(t, http.StatusOK)

	f.e.PUT("/widget/payment").WithJSON(invoice).Expect().Status(http.StatusOK)
	f.e.POST("/widget/pay").Expect().Status(http.StatusOK)

	f.e.POST("/widget/back").Expect().Status(http.StatusOK).
		JSON().Object().Path("$.data.kind").String().IsEqual("cancelled")
}

func TestModeAndTracking(t *testing.T) {
	f := newFixture(t, http.StatusOK)

	f.e.PUT("/widget/mode").WithJSON(map[string]string{"mode": "banner"}).
		Expect().Status(http.StatusBadRequest)

	obj := f.e.PUT("/widget/mode").WithJSON(map[string]string{"mode": "status"}).
		Expect().Status(http.StatusOK).JSON().Object()
	obj.Path("$.data.statusPanel.visible").Boolean().IsTrue()
	obj.Path("$.data.payButton.visible").Boolean().IsFalse()

	f.e.POST("/widget/track").WithJSON(map[string]string{}).
		Expect().Status(http.StatusBadRequest).
		JSON().Object().Value("message").String().IsEqual("intentId is required")

	f.e.POST("/widget/track").WithJSON(map[string]string{"intentId": "pi_9"}).
		Expect().Status(http.StatusOK).
		JSON().Object().Path("$.data.intentId").String().IsEqual("pi_9")

	require.Eventually(t, func() bool {
		return f.w.View().StatusPanel.Status == "processing"
	}, 2*time.Second, 5*time.Millisecond)
}
