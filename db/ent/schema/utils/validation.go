package utils

import "errors"

var errValidation = errors.New("validation failed")

func EnumValidator(allowed ...string) func(string) error {
	set := map[string]struct{}{}
	for _, a := range allowed {
		set[a] = struct{}{}
	}
	return func(s string) error {
		if _, ok := set[s]; ok {
			return nil
		}
		return errValidation
	}
}

// HexValidator accepts lowercase hex strings of exactly n characters, the
// shape hex.EncodeToString gives a digest.
func HexValidator(n int) func(string) error {
	return func(s string) error {
		if len(s) != n {
			return errValidation
		}
		for i := 0; i < len(s); i++ {
			c := s[i]
			if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
				return errValidation
			}
		}
		return nil
	}
}
