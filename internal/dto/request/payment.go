package request

type CreateOrderRequest struct {
	BookingCode string `json:"booking_code" validate:"required,max=32"`
}

type VerifyPaymentRequest struct {
	OrderID     string `json:"order_id" validate:"required,max=64"`
	BookingCode string `json:"booking_code" validate:"required,max=32"`
}
