package odm

import (
	"errors"
	"fmt"
	"net/mail"
	"regexp"
	"strings"

	phonenumbers "github.com/nyaruka/phonenumbers"
	"golang.org/x/net/idna"
)

// formatFunc normalizes a string value, or reports why it is not valid.
type formatFunc func(value string) (string, error)

var formats = map[string]formatFunc{
	"email": normalizeEmail,
	"phone": normalizePhone,
}

var (
	errNoAt        = errors.New("missing @")
	errLocalPart   = errors.New("bad local part")
	errSingleLabel = errors.New("domain needs a dot")
)

// localPartRe rejects the characters an unquoted local part may not carry.
var localPartRe = regexp.MustCompile(`^[^\s<>()\[\]\\,;:"@]{1,64}$`)

// normalizeEmail reduces an address (optionally with a display name or a
// mailto: prefix) to local@domain with the domain lowercased and punycoded.
func normalizeEmail(value string) (string, error) {
	s := strings.TrimPrefix(strings.TrimSpace(value), "mailto:")
	if addr, err := mail.ParseAddress(s); err == nil {
		s = addr.Address
	}
	at := strings.LastIndexByte(s, '@')
	if at < 0 {
		return "", errNoAt
	}
	local, domain := s[:at], strings.TrimSuffix(s[at+1:], ".")
	if !localPartRe.MatchString(local) {
		return "", errLocalPart
	}
	ascii, err := idna.Lookup.ToASCII(domain)
	if err != nil {
		return "", fmt.Errorf("domain: %w", err)
	}
	labels := strings.Split(ascii, ".")
	if len(labels) < 2 {
		return "", errSingleLabel
	}
	for _, l := range labels {
		if l == "" || len(l) > 63 {
			return "", fmt.Errorf("domain label %q", l)
		}
	}
	return local + "@" + ascii, nil
}

// normalizePhone formats an international number as E.164.
func normalizePhone(value string) (string, error) {
	n, err := phonenumbers.Parse(strings.TrimSpace(value), "")
	if err != nil {
		return "", err
	}
	if !phonenumbers.IsValidNumber(n) {
		return "", errors.New("not a valid number")
	}
	return phonenumbers.Format(n, phonenumbers.E164), nil
}
