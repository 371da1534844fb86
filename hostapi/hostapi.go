// Package hostapi exposes a widget instance over HTTP so a host page can drive it.
package hostapi

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/fabriqs/paywidget/checkout"
	"github.com/fabriqs/paywidget/payment"
	"github.com/fabriqs/paywidget/widget"
)

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

type paymentRequest struct {
	Title    string  `json:"title"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

type modeRequest struct {
	Mode widget.Mode `json:"mode"`
}

type trackRequest struct {
	IntentID string `json:"intentId"`
}

type Server struct {
	w   *widget.Widget
	log logrus.FieldLogger
}

// New returns an echo instance with the widget routes mounted under /widget.
func New(w *widget.Widget, log logrus.FieldLogger) *echo.Echo {
	if log == nil {
		log = logrus.StandardLogger()
	}
	s := &Server{w: w, log: log.WithField("component", "hostapi")}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.handleError

	g := e.Group("/widget")
	g.GET("", s.view)
	g.PUT("/payment", s.setPayment)
	g.POST("/pay", s.pay)
	g.POST("/checkout", s.checkout)
	g.POST("/back", s.back)
	g.POST("/retry", s.retry)
	g.PUT("/mode", s.setMode)
	g.POST("/track", s.track)
	return e
}

func ok(c echo.Context, data any) error {
	return c.JSON(http.StatusOK, envelope{Success: true, Data: data})
}

func (s *Server) view(c echo.Context) error {
	return ok(c, s.w.View())
}

func (s *Server) setPayment(c echo.Context) error {
	var req paymentRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	info := payment.Info{Title: req.Title, Amount: req.Amount, Currency: req.Currency}
	if err := s.w.SetPayment(info); err != nil {
		return err
	}
	return ok(c, s.w.View())
}

func (s *Server) pay(c echo.Context) error {
	if err := s.w.Pay(c.Request().Context()); err != nil {
		return err
	}
	return ok(c, s.w.View())
}

func (s *Server) checkout(c echo.Context) error {
	out, err := s.w.Checkout.Checkout(c.Request().Context())
	if err != nil {
		return err
	}
	return ok(c, out)
}

func (s *Server) back(c echo.Context) error {
	return ok(c, s.w.Checkout.Back())
}

func (s *Server) retry(c echo.Context) error {
	if err := s.w.Checkout.Retry(c.Request().Context()); err != nil {
		return err
	}
	return ok(c, s.w.View())
}

func (s *Server) setMode(c echo.Context) error {
	var req modeRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if err := s.w.SetMode(req.Mode); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return ok(c, s.w.View())
}

func (s *Server) track(c echo.Context) error {
	var req trackRequest
	if err := c.Bind(&req); err != nil {
		return err
	}
	if req.IntentID == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "intentId is required")
	}
	if err := s.w.TrackPayment(req.IntentID); err != nil {
		return err
	}
	return ok(c, s.w.View().StatusPanel)
}

func statusOf(err error) int {
	var he *echo.HTTPError
	switch {
	case errors.As(err, &he):
		return he.Code
	case errors.Is(err, payment.ErrInvalidInfo):
		return http.StatusBadRequest
	case errors.Is(err, widget.ErrNoPayment),
		errors.Is(err, checkout.ErrNotReady),
		errors.Is(err, checkout.ErrStaleSecret),
		errors.Is(err, checkout.ErrCancelled):
		return http.StatusConflict
	case errors.Is(err, payment.ErrNoSecret):
		return http.StatusBadGateway
	case errors.Is(err, checkout.ErrLibraryLoad):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := statusOf(err)
	msg := err.Error()
	var he *echo.HTTPError
	if errors.As(err, &he) {
		if m, isString := he.Message.(string); isString {
			msg = m
		}
	}
	if status >= http.StatusInternalServerError {
		s.log.WithError(err).WithField("path", c.Path()).Error("widget request failed")
	}
	if err := c.JSON(status, envelope{Message: msg}); err != nil {
		s.log.WithError(err).Warn("write error response")
	}
}
