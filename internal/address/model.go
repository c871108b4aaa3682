package address

import (
	"strings"
	"time"

	"github.com/MikeMC777/storefront/internal/validate"
)

type Address struct {
	ID                   string    `json:"id"`
	UserID               string    `json:"user_id"`
	Label                string    `json:"label,omitempty"`
	Recipient            string    `json:"recipient"`
	Phone                string    `json:"phone"`
	Line1                string    `json:"line1"`
	Line2                string    `json:"line2,omitempty"`
	City                 string    `json:"city"`
	State                string    `json:"state"`
	PostalCode           string    `json:"postal_code"`
	Country              string    `json:"country"`
	IsDefault            bool      `json:"is_default"`
	DeliveryInstructions string    `json:"delivery_instructions,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// Input is the create/update payload; it also serves as the new-address
// draft of a checkout session.
// swagger:model AddressInput
type Input struct {
	Label                string `json:"label"                 binding:"max=40"          example:"Home"`
	Recipient            string `json:"recipient"             binding:"required,max=120" example:"Asha Rao"`
	Phone                string `json:"phone"                 binding:"required,phone"   example:"+919800000000"`
	Line1                string `json:"line1"                 binding:"required"         example:"12 MG Road"`
	Line2                string `json:"line2"`
	City                 string `json:"city"                  binding:"required"         example:"Bengaluru"`
	State                string `json:"state"                 binding:"required"         example:"KA"`
	PostalCode           string `json:"postal_code"           binding:"required"         example:"560001"`
	Country              string `json:"country"               binding:"required"         example:"IN"`
	IsDefault            bool   `json:"is_default"`
	DeliveryInstructions string `json:"delivery_instructions" binding:"max=500"`
}

// Validate checks the binding rules on the trimmed input and reports the
// first offending field, in form order, as a *validate.FieldError.
func (in Input) Validate() error {
	return validate.Struct(in.trimmed())
}

func (in Input) trimmed() Input {
	for _, f := range []*string{&in.Label, &in.Recipient, &in.Phone, &in.Line1, &in.Line2, &in.City,
		&in.State, &in.PostalCode, &in.Country, &in.DeliveryInstructions} {
		*f = strings.TrimSpace(*f)
	}
	return in
}

func (in Input) apply(a *Address) {
	in = in.trimmed()
	a.Label = in.Label
	a.Recipient = in.Recipient
	a.Phone = in.Phone
	a.Line1 = in.Line1
	a.Line2 = in.Line2
	a.City = in.City
	a.State = in.State
	a.PostalCode = in.PostalCode
	a.Country = in.Country
	a.IsDefault = in.IsDefault
	a.DeliveryInstructions = in.DeliveryInstructions
}

// OneLine renders the address for confirmations and logs.
func (a Address) OneLine() string {
	parts := []string{a.Line1, a.Line2, a.City, a.State, a.PostalCode, a.Country}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}
