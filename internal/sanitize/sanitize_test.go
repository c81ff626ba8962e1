package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	tests := []struct {
		name, in, want string
	}{
		{"plain", "Jane Doe", "Jane Doe"},
		{"trims", "  Acme A/S \n", "Acme A/S"},
		{"ampersand survives", "AT&T", "AT&T"},
		{"strips tags", "<b>Jane</b>", "Jane"},
		{"drops script", `Jane<script>alert(1)</script>`, "Jane"},
		{"drops attributes", `<a href="javascript:x()">Acme</a>`, "Acme"},
		{"collapses line breaks", "Acme\n\tA/S", "Acme A/S"},
		{"collapses inner spaces", "Jane    Doe", "Jane Doe"},
		{"empty", "", ""},
		{"only markup", "<br><hr>", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Text(tt.in))
		})
	}
}
