// internal/profile/profile.go
// Package profile loads the per-guest registration details. A profile is a
// dotenv file named after the profile (env/<name>.env) holding the property,
// guest code and vehicle.
package profile

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/joho/godotenv"
)

// Profile keys as they appear in the dotenv file.
const (
	KeyPropertyName = "PROPERTY_NAME"
	KeyGuestCode    = "GUEST_CODE"
	KeyVehicleMake  = "VEHICLE_MAKE"
	KeyVehicleModel = "VEHICLE_MODEL"
	KeyLicensePlate = "LICENSE_PLATE"
	KeyEmailAddress = "EMAIL_ADDRESS"
)

// requiredKeys lists the keys that must be present, in report order.
var requiredKeys = []string{
	KeyPropertyName,
	KeyGuestCode,
	KeyVehicleMake,
	KeyVehicleModel,
	KeyLicensePlate,
}

// Profile is the immutable set of values typed into the registration form.
type Profile struct {
	Name         string
	PropertyName string
	GuestCode    string
	VehicleMake  string
	VehicleModel string
	LicensePlate string
	EmailAddress string
}

// DisplayName is the profile name with its first letter upper-cased.
func (p Profile) DisplayName() string {
	if p.Name == "" {
		return ""
	}
	r, size := utf8.DecodeRuneInString(p.Name)
	return string(unicode.ToUpper(r)) + p.Name[size:]
}

// ProfileNotFoundError means the profile file is missing, unreadable or empty.
type ProfileNotFoundError struct {
	Name string
	Path string
	Err  error
}

func (e *ProfileNotFoundError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("profile %q not found at %s: %v", e.Name, e.Path, e.Err)
	}
	return fmt.Sprintf("profile %q not found at %s: file is empty", e.Name, e.Path)
}

func (e *ProfileNotFoundError) Unwrap() error { return e.Err }

// MissingFieldError means a required key is absent or blank.
type MissingFieldError struct {
	Name string
	Path string
	Key  string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("profile %q (%s) is missing required key %s", e.Name, e.Path, e.Key)
}

// Loader reads profiles from a directory.
type Loader struct {
	dir          string
	defaultEmail string
}

// NewLoader creates a Loader for dir. defaultEmail is used when a profile has
// no EMAIL_ADDRESS.
func NewLoader(dir, defaultEmail string) *Loader {
	return &Loader{dir: dir, defaultEmail: defaultEmail}
}

// Path returns the file a profile name maps to.
func (l *Loader) Path(name string) string {
	return filepath.Join(l.dir, name+".env")
}

// Load reads and validates the named profile.
func (l *Loader) Load(name string) (Profile, error) {
	path := l.Path(name)
	if name == "" || strings.ContainsAny(name, `/\`) {
		return Profile{}, &ProfileNotFoundError{Name: name, Path: path, Err: errors.New("invalid profile name")}
	}

	vals, err := godotenv.Read(path)
	if err != nil {
		return Profile{}, &ProfileNotFoundError{Name: name, Path: path, Err: err}
	}
	if len(vals) == 0 {
		return Profile{}, &ProfileNotFoundError{Name: name, Path: path}
	}

	for _, key := range requiredKeys {
		if strings.TrimSpace(vals[key]) == "" {
			return Profile{}, &MissingFieldError{Name: name, Path: path, Key: key}
		}
	}

	email := strings.TrimSpace(vals[KeyEmailAddress])
	if email == "" {
		email = l.defaultEmail
	}

	return Profile{
		Name:         name,
		PropertyName: vals[KeyPropertyName],
		GuestCode:    vals[KeyGuestCode],
		VehicleMake:  vals[KeyVehicleMake],
		VehicleModel: vals[KeyVehicleModel],
		LicensePlate: vals[KeyLicensePlate],
		EmailAddress: email,
	}, nil
}

// IsNotFound reports whether err is a ProfileNotFoundError.
func IsNotFound(err error) bool {
	var nf *ProfileNotFoundError
	return errors.As(err, &nf)
}

// Available lists the profile names found in the loader's directory, sorted.
func (l *Loader) Available() ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(l.dir, "*.env"))
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, strings.TrimSuffix(filepath.Base(m), ".env"))
	}
	sort.Strings(names)
	return names, nil
}
