package onboarding

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	minPasswordLength = 8
	maxPasswordLength = 128
	maxNameLength     = 50
	defaultCountry    = "India"
	dateLayout        = "2006-01-02"
)

var (
	panPattern     = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)
	pincodePattern = regexp.MustCompile(`^\d{6}$`)
	pinPattern     = regexp.MustCompile(`^\d{4,6}$`)
)

var genders = map[string]bool{"male": true, "female": true, "other": true}

// DocumentTypes lists the accepted KYC document kinds.
var DocumentTypes = map[string]bool{
	"aadhaar":         true,
	"pan":             true,
	"passport":        true,
	"voter_id":        true,
	"driving_license": true,
}

// ProfileInput is the raw profile submitted by the client.
type ProfileInput struct {
	FirstName    string
	LastName     string
	DateOfBirth  string
	Gender       string
	PAN          string
	AddressLine1 string
	AddressLine2 string
	City         string
	Region       string
	Pincode      string
	Country      string
}

// toProfile validates input and returns the normalized profile.
func (in ProfileInput) toProfile(now time.Time) (Profile, error) {
	first := strings.TrimSpace(in.FirstName)
	last := strings.TrimSpace(in.LastName)
	if err := checkName("first_name", first); err != nil {
		return Profile{}, err
	}
	if err := checkName("last_name", last); err != nil {
		return Profile{}, err
	}

	dob, err := time.Parse(dateLayout, strings.TrimSpace(in.DateOfBirth))
	if err != nil {
		return Profile{}, invalid("date_of_birth", "must be YYYY-MM-DD")
	}
	if !dob.Before(now) {
		return Profile{}, invalid("date_of_birth", "must be in the past")
	}

	gender := strings.ToLower(strings.TrimSpace(in.Gender))
	if !genders[gender] {
		return Profile{}, invalid("gender", "must be male, female or other")
	}

	pan := strings.ToUpper(strings.TrimSpace(in.PAN))
	if !panPattern.MatchString(pan) {
		return Profile{}, invalid("pan_number", "invalid format")
	}

	addr1 := strings.TrimSpace(in.AddressLine1)
	if addr1 == "" {
		return Profile{}, invalid("address_line1", "required")
	}
	city := strings.TrimSpace(in.City)
	if city == "" {
		return Profile{}, invalid("city", "required")
	}
	region := strings.TrimSpace(in.Region)
	if region == "" {
		return Profile{}, invalid("state", "required")
	}
	pincode := strings.TrimSpace(in.Pincode)
	if !pincodePattern.MatchString(pincode) {
		return Profile{}, invalid("pincode", "must be 6 digits")
	}

	country := strings.TrimSpace(in.Country)
	if country == "" {
		country = defaultCountry
	}
	if !strings.EqualFold(country, defaultCountry) {
		return Profile{}, invalid("country", "only India is supported")
	}

	return Profile{
		FirstName:    first,
		LastName:     last,
		DateOfBirth:  dob.UTC(),
		Gender:       gender,
		PAN:          pan,
		AddressLine1: addr1,
		AddressLine2: strings.TrimSpace(in.AddressLine2),
		City:         city,
		Region:       region,
		Pincode:      pincode,
		Country:      defaultCountry,
		CompletedAt:  now.UTC(),
	}, nil
}

func checkName(field, v string) error {
	n := utf8.RuneCountInString(v)
	if n == 0 {
		return invalid(field, "required")
	}
	if n > maxNameLength {
		return invalid(field, "too long")
	}
	return nil
}

func checkPassword(password string) error {
	n := utf8.RuneCountInString(password)
	if n < minPasswordLength {
		return invalid("password", "must be at least 8 characters")
	}
	if n > maxPasswordLength {
		return invalid("password", "must be at most 128 characters")
	}
	return nil
}

func checkPIN(pin string) error {
	if !pinPattern.MatchString(pin) {
		return invalid("pin", "must be 4 to 6 digits")
	}
	return nil
}

// age returns whole years between dob and now.
func age(dob, now time.Time) int {
	years := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		years--
	}
	return years
}
