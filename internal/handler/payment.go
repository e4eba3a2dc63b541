package handler

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/harborline/ferry-reservation/internal/gateway"
	"github.com/harborline/ferry-reservation/internal/model"
	"github.com/harborline/ferry-reservation/internal/service"
)

// PaymentHandler exposes payment initiation and the provider callback
// endpoint. Callbacks must be verified against the channel's shared
// secret before anything touches state; an unverifiable payload is
// rejected outright.
type PaymentHandler struct {
	Payments *service.PaymentService
	Gateways *gateway.Registry
}

func NewPaymentHandler(payments *service.PaymentService, gateways *gateway.Registry) *PaymentHandler {
	if payments == nil || gateways == nil {
		panic("nil dependency passed to NewPaymentHandler")
	}
	return &PaymentHandler{Payments: payments, Gateways: gateways}
}

// Initiate handles POST /v1/bookings/:order_id/payments. Repeating
// the call with the same channel returns the existing pending attempt;
// switching channels requires supersede=true so the old attempt is
// retired explicitly, never forgotten.
func (h *PaymentHandler) Initiate(c echo.Context) error {
	orderID := c.Param("order_id")
	if orderID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation_failed", "message": "order id is required"})
	}
	var body struct {
		Channel   string `json:"channel"`
		Supersede bool   `json:"supersede"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation_failed", "message": "invalid request body"})
	}

	txn, err := h.Payments.Initiate(c.Request().Context(), orderID, body.Channel, body.Supersede)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, transactionJSON(txn))
}

// Callback handles POST /v1/payments/:channel/callback. The raw body
// is read before any decoding because signature verification covers
// the exact bytes the provider sent.
func (h *PaymentHandler) Callback(c echo.Context) error {
	ch, err := h.Gateways.ByCode(c.Param("channel"))
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not_found", "message": "unknown payment channel"})
	}

	payload, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation_failed", "message": "unreadable body"})
	}
	notice, err := ch.VerifyCallback(payload, c.Request().Header.Get(ch.SignatureHeader()))
	if err != nil {
		c.Logger().Warnf("rejected %s callback: %v", ch.Name(), err)
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid_signature", "message": "callback verification failed"})
	}

	result, err := h.Payments.Reconcile(c.Request().Context(), notice)
	if err != nil {
		return writeError(c, err)
	}
	// Unknown references and stale attempts still answer 200 so the
	// provider stops retrying; the result field tells operators what
	// happened.
	return c.JSON(http.StatusOK, echo.Map{"result": string(result)})
}

func transactionJSON(t *model.PaymentTransaction) echo.Map {
	out := echo.Map{
		"reference":    t.Reference,
		"channel":      t.Channel,
		"amount_cents": t.AmountCents,
		"status":       t.Status,
	}
	if t.PayCode != "" {
		out["pay_code"] = t.PayCode
	}
	if t.PayURL != "" {
		out["pay_url"] = t.PayURL
	}
	if t.QRPayload != "" {
		out["qr_payload"] = t.QRPayload
	}
	return out
}
