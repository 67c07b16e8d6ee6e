package odm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeEmail(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{in: "a@b.pl", want: "a@b.pl"},
		{in: "mailto:Jo@Example.COM", want: "Jo@example.com"},
		{in: "jane@bücher.de", want: "jane@xn--bcher-kva.de"},
		{in: "Jane <jane@Example.COM>", want: "jane@example.com"},
		{in: "nope", wantErr: true},
		{in: "a b@c.pl", wantErr: true},
		{in: "a@localhost", wantErr: true},
		{in: "a@-bad.pl", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := normalizeEmail(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizePhone(t *testing.T) {
	got, err := normalizePhone("+48 600 700 800")
	assert.NoError(t, err)
	assert.Equal(t, "+48600700800", got)

	_, err = normalizePhone("12")
	assert.Error(t, err)
}
