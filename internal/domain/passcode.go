package domain

import "fmt"

const (
	minOTPLength      = 4
	maxOTPLength      = 10
	maxPasscodeLength = 128
)

// ValidateOTPCode shape-checks a one-time code before any storage lookup.
// Rejecting malformed input here keeps garbage out of the code store path.
func ValidateOTPCode(code string) error {
	if len(code) < minOTPLength || len(code) > maxOTPLength {
		return fmt.Errorf("%w: code must be %d-%d digits", ErrInvalidInput, minOTPLength, maxOTPLength)
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return fmt.Errorf("%w: code must be numeric", ErrInvalidInput)
		}
	}
	return nil
}

// ValidateSharePasscode bounds a supplied share passcode.
func ValidateSharePasscode(passcode string) error {
	if passcode == "" {
		return fmt.Errorf("%w: passcode is required", ErrInvalidInput)
	}
	if len(passcode) > maxPasscodeLength {
		return fmt.Errorf("%w: passcode must be <= %d characters", ErrInvalidInput, maxPasscodeLength)
	}
	return nil
}
