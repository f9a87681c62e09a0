package service

import (
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"

	"github.com/oklog/ulid/v2"

	"grocery_store/model"
	"grocery_store/utils"
)

const (
	minQRSize       = 300
	upiCurrency     = "INR"
	maxPayeeLength  = 256
	minPayeeLocal   = 2
	minPayeeHandle  = 2
	qrDataURLPrefix = "data:image/png;base64,"
)

// PaymentDetails is the buyer supplied part of a manual payment.
type PaymentDetails struct {
	UpiID string
}

// Preparation is what the payment path contributes to a new order.
type Preparation struct {
	QRPayload string
	QRCode    string
}

type PaymentResolverConfig struct {
	MerchantUPIID string
	MerchantName  string
	QRSize        int
	// Render draws content as a PNG; defaults to utils.GenerateQRCode.
	Render func(content string, size int) ([]byte, error)
	// NewNote returns a time-unique transaction note suffix; defaults to a ULID.
	NewNote func() string
}

// PaymentPathResolver knows what each payment method needs.
type PaymentPathResolver struct {
	merchantUPIID string
	merchantName  string
	qrSize        int
	render        func(string, int) ([]byte, error)
	newNote       func() string
}

func NewPaymentPathResolver(cfg PaymentResolverConfig) *PaymentPathResolver {
	size := cfg.QRSize
	if size < minQRSize {
		size = minQRSize
	}
	render := cfg.Render
	if render == nil {
		render = utils.GenerateQRCode
	}
	newNote := cfg.NewNote
	if newNote == nil {
		newNote = func() string { return ulid.Make().String() }
	}
	return &PaymentPathResolver{
		merchantUPIID: strings.TrimSpace(cfg.MerchantUPIID),
		merchantName:  strings.TrimSpace(cfg.MerchantName),
		qrSize:        size,
		render:        render,
		newNote:       newNote,
	}
}

// Prepare returns the QR payload for manual payments. A non-nil error is advisory:
// order creation proceeds without a QR.
func (r *PaymentPathResolver) Prepare(method model.PaymentMethod, total float64, details PaymentDetails, publicCode string) (Preparation, error) {
	if method != model.PaymentMethodManual {
		return Preparation{}, nil
	}

	payee := strings.TrimSpace(details.UpiID)
	if payee == "" {
		payee = r.merchantUPIID
	}
	if payee == "" {
		return Preparation{}, validationError(ErrMissingPayee, "A UPI id is required for manual payment")
	}
	if err := ValidatePayee(payee); err != nil {
		return Preparation{}, err
	}

	payload := BuildUPIIntent(payee, r.merchantName, total, publicCode+"-"+r.newNote())
	png, err := r.render(payload, r.qrSize)
	if err != nil {
		return Preparation{}, dependencyError(err, "QR generation failed")
	}
	return Preparation{
		QRPayload: payload,
		QRCode:    qrDataURLPrefix + base64.StdEncoding.EncodeToString(png),
	}, nil
}

// SupportsScreenshot gates payment proof uploads.
func (r *PaymentPathResolver) SupportsScreenshot(order model.Order) error {
	if order.PaymentMethod != model.PaymentMethodManual {
		return validationError(ErrWrongPaymentMethod, "Payment screenshot is only accepted for manual payment orders")
	}
	if order.OrderStatus == model.OrderStatusCancelled {
		return conflictError(ErrIllegalTransition, "Cannot upload a payment screenshot for a cancelled order")
	}
	return nil
}

// BuildUPIIntent renders the upi://pay deep link understood by UPI apps.
func BuildUPIIntent(payee, payeeName string, amount float64, note string) string {
	var b strings.Builder
	b.WriteString("upi://pay?pa=")
	b.WriteString(payee)
	if payeeName != "" {
		b.WriteString("&pn=")
		b.WriteString(url.PathEscape(payeeName))
	}
	b.WriteString("&am=")
	b.WriteString(fmt.Sprintf("%.2f", model.RoundMoney(amount)))
	b.WriteString("&cu=")
	b.WriteString(upiCurrency)
	if note != "" {
		b.WriteString("&tn=")
		b.WriteString(url.PathEscape(note))
	}
	return b.String()
}

// ValidatePayee checks the handle@provider shape of a UPI id.
func ValidatePayee(payee string) error {
	if len(payee) > maxPayeeLength {
		return validationError(ErrInvalidPayee, "UPI id is too long")
	}
	if strings.Count(payee, "@") != 1 {
		return validationError(ErrInvalidPayee, "UPI id must contain exactly one @")
	}
	local, handle, _ := strings.Cut(payee, "@")
	if len(local) < minPayeeLocal || len(handle) < minPayeeHandle {
		return validationError(ErrInvalidPayee, "UPI id %q is too short", payee)
	}
	for _, r := range local {
		if !isPayeeLocalRune(r) {
			return validationError(ErrInvalidPayee, "UPI id %q contains an invalid character", payee)
		}
	}
	for _, r := range handle {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return validationError(ErrInvalidPayee, "UPI handle %q must contain letters only", handle)
		}
	}
	return nil
}

func isPayeeLocalRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '.', r == '_', r == '-':
		return true
	}
	return false
}
