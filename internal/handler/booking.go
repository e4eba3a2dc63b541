package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/harborline/ferry-reservation/internal/model"
	"github.com/harborline/ferry-reservation/internal/repository"
	"github.com/harborline/ferry-reservation/internal/service"
)

// BookingHandler exposes claim conversion and booking reads.
type BookingHandler struct {
	Bookings *service.BookingService
	Payments repository.PaymentStore
}

func NewBookingHandler(bookings *service.BookingService, payments repository.PaymentStore) *BookingHandler {
	if bookings == nil || payments == nil {
		panic("nil dependency passed to NewBookingHandler")
	}
	return &BookingHandler{Bookings: bookings, Payments: payments}
}

// Claim handles POST /v1/reservations/:token/claim. A still-valid
// hold plus contact and passenger details becomes a booking with
// tickets, exactly once; losers of the race get already_claimed.
func (h *BookingHandler) Claim(c echo.Context) error {
	var body struct {
		Customer struct {
			Name  string `json:"name"`
			Email string `json:"email"`
			Phone string `json:"phone"`
		} `json:"customer"`
		Tickets []struct {
			ClassID       uint64 `json:"class_id"`
			PassengerName string `json:"passenger_name"`
			IdentityNo    string `json:"identity_no"`
			PlateNo       string `json:"plate_no"`
		} `json:"tickets"`
	}
	if err := c.Bind(&body); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation_failed", "message": "invalid request body"})
	}

	customer := service.CustomerInfo{
		Name:  body.Customer.Name,
		Email: body.Customer.Email,
		Phone: body.Customer.Phone,
	}
	entries := make([]service.TicketEntry, 0, len(body.Tickets))
	for _, t := range body.Tickets {
		entries = append(entries, service.TicketEntry{
			ClassID:       t.ClassID,
			PassengerName: t.PassengerName,
			IdentityNo:    t.IdentityNo,
			PlateNo:       t.PlateNo,
		})
	}

	booking, err := h.Bookings.Claim(c.Request().Context(), c.Param("token"), customer, entries)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, bookingJSON(booking))
}

// Get handles GET /v1/bookings/:order_id.
func (h *BookingHandler) Get(c echo.Context) error {
	orderID := c.Param("order_id")
	if orderID == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation_failed", "message": "order id is required"})
	}
	booking, err := h.Bookings.ByOrderID(c.Request().Context(), orderID)
	if err != nil {
		return writeError(c, err)
	}
	out := bookingJSON(booking)
	// The polling surface shows the active payment attempt, when one
	// exists, so the client can resume a checkout.
	if txn, err := h.Payments.ActiveByBooking(c.Request().Context(), booking.ID); err == nil {
		out["payment"] = transactionJSON(txn)
	}
	return c.JSON(http.StatusOK, out)
}

func bookingJSON(b *model.Booking) echo.Map {
	tickets := make([]echo.Map, 0, len(b.Tickets))
	for _, t := range b.Tickets {
		entry := echo.Map{
			"id":          t.ID,
			"class_id":    t.ClassID,
			"kind":        t.Kind,
			"price_cents": t.PriceCents,
			"status":      t.Status,
		}
		switch t.Kind {
		case model.TicketKindVehicle:
			entry["plate_no"] = t.PlateNo
		default:
			entry["passenger_name"] = t.PassengerName
			entry["identity_no"] = t.IdentityNo
		}
		tickets = append(tickets, entry)
	}
	return echo.Map{
		"order_id":         b.OrderID,
		"schedule_id":      b.ScheduleID,
		"status":           b.Status,
		"contact_name":     b.ContactName,
		"contact_email":    b.ContactEmail,
		"contact_phone":    b.ContactPhone,
		"total_cents":      b.TotalCents(),
		"payment_deadline": b.PaymentDeadline,
		"tickets":          tickets,
	}
}
