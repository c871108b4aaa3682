package checkout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContactValidate(t *testing.T) {
	cases := []struct {
		name    string
		in      Contact
		field   string
		message string
	}{
		{"ok", contact, "", ""},
		{"blank name", Contact{Name: "   ", Email: "a@b.co", Phone: "9876543"}, "contact.name", "name is required"},
		{"bad email", Contact{Name: "A", Email: "asha@", Phone: "9876543"}, "contact.email", "email must be a valid email address"},
		{"padded email", Contact{Name: "A", Email: " a@b.co ", Phone: "9876543"}, "", ""},
		{"few digits", Contact{Name: "A", Email: "a@b.co", Phone: "+91-12"}, "contact.phone", "phone must be a valid phone number"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.in.Validate()
			if tc.field == "" {
				assert.NoError(t, err)
				return
			}
			var ce *Error
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tc.field, ce.Field)
			assert.Equal(t, []string{tc.message}, ce.Messages)
		})
	}
}
