package garage

import (
	"fmt"
	"regexp"
	"strings"

	"lifo-parking/internal/parking"
)

const minPlateLen = 5

// One regional glyph, one uppercase letter, then at least five uppercase
// letters or digits, e.g. 京A12345.
var platePattern = regexp.MustCompile(`^[^\x00-\x7F][A-Z][A-Z0-9]{5,}$`)

func ValidatePlate(plate string, strict bool) error {
	if plate == "" {
		return fmt.Errorf("%w: plate is required", parking.ErrInvalidPlate)
	}
	if len(plate) > parking.MaxPlateLen {
		return fmt.Errorf("%w: longer than %d bytes", parking.ErrInvalidPlate, parking.MaxPlateLen)
	}

	if strict {
		if !platePattern.MatchString(plate) {
			return fmt.Errorf("%w: %q does not match the regional format (e.g. 京A12345)", parking.ErrInvalidPlate, plate)
		}
		return nil
	}

	if len(plate) < minPlateLen || strings.ContainsAny(plate, " \t\r\n") {
		return fmt.Errorf("%w: %q", parking.ErrInvalidPlate, plate)
	}
	return nil
}
