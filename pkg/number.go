package ember

import (
	"errors"
	"fmt"
	"math"
)

// maxFractionDigits is the number of significant fraction digits kept when
// decoding a float literal. Further digits are ignored.
const maxFractionDigits = 18

// maxExponent clamps the exponent magnitude; anything beyond it is already
// out of range for a float64.
const maxExponent = 100000

var errIntegerOverflow = errors.New("integer literal overflows 64 bits")

type numberLiteral struct {
	isFloat bool
	Int     uint64
	Float   float64
}

type numberSection int

const (
	sectionInteger numberSection = iota
	sectionFraction
	sectionExponent
)

func radixName(radix int) string {
	switch radix {
	case 16:
		return "hexadecimal"
	case 8:
		return "octal"
	case 2:
		return "binary"
	default:
		return "decimal"
	}
}

func digitValue(c byte, radix int) (uint64, bool) {
	var d uint64
	switch {
	case '0' <= c && c <= '9':
		d = uint64(c - '0')
	case 'a' <= c && c <= 'f':
		d = uint64(c-'a') + 10
	case 'A' <= c && c <= 'F':
		d = uint64(c-'A') + 10
	default:
		return 0, false
	}

	return d, d < uint64(radix)
}

func isExponentMarker(c byte, radix int) bool {
	switch radix {
	case 10:
		return c == 'e' || c == 'E'
	case 16:
		return c == 'p' || c == 'P'
	}

	return false
}

func radixPrefix(text string) int {
	if len(text) < 2 || text[0] != '0' {
		return 10
	}

	switch text[1] {
	case 'x', 'X':
		return 16
	case 'o', 'O':
		return 8
	case 'b', 'B':
		return 2
	}

	return 10
}

// parseNumber validates and decodes the full text of a numeric literal.
func parseNumber(text string) (numberLiteral, error) {
	radix := radixPrefix(text)
	i := 0
	if radix != 10 {
		i = 2
	}

	var intDigits, fracDigits, expDigits []uint64
	section := sectionInteger
	negativeExp := false
	prevDigit := false
	sawDot, sawExp := false, false

	sectionRadix := func() int {
		if section == sectionExponent {
			return 10
		}
		return radix
	}

	for ; i < len(text); i++ {
		c := text[i]

		switch {
		case c == '\'':
			if !prevDigit || i+1 >= len(text) {
				return numberLiteral{}, errors.New("digit separator must appear between two digits")
			}
			if _, ok := digitValue(text[i+1], sectionRadix()); !ok {
				return numberLiteral{}, errors.New("digit separator must appear between two digits")
			}

			prevDigit = false
		case c == '.':
			if radix == 8 || radix == 2 {
				return numberLiteral{}, fmt.Errorf("%s literal cannot have a fraction", radixName(radix))
			}
			if sawDot {
				return numberLiteral{}, errors.New("numeric literal has more than one decimal point")
			}
			if sawExp {
				return numberLiteral{}, errors.New("decimal point inside exponent")
			}

			sawDot = true
			section = sectionFraction
			prevDigit = false
		case isExponentMarker(c, radix):
			if sawExp {
				return numberLiteral{}, errors.New("numeric literal has more than one exponent")
			}
			if sawDot && len(fracDigits) == 0 {
				return numberLiteral{}, errors.New("missing digits between decimal point and exponent")
			}

			sawExp = true
			section = sectionExponent
			prevDigit = false

			if i+1 < len(text) && (text[i+1] == '+' || text[i+1] == '-') {
				negativeExp = text[i+1] == '-'
				i++
			}
		default:
			d, ok := digitValue(c, sectionRadix())
			if !ok {
				return numberLiteral{}, fmt.Errorf("invalid digit %q in %s literal", c, radixName(sectionRadix()))
			}

			switch section {
			case sectionInteger:
				intDigits = append(intDigits, d)
			case sectionFraction:
				fracDigits = append(fracDigits, d)
			case sectionExponent:
				expDigits = append(expDigits, d)
			}
			prevDigit = true
		}
	}

	if len(intDigits) == 0 {
		return numberLiteral{}, fmt.Errorf("missing digits in %s literal", radixName(radix))
	}
	if sawDot && len(fracDigits) == 0 {
		return numberLiteral{}, errors.New("missing digits after decimal point")
	}
	if sawExp && len(expDigits) == 0 {
		return numberLiteral{}, errors.New("missing exponent digits")
	}

	if !sawDot && !sawExp {
		v, err := accumulateInt(intDigits, radix)
		if err != nil {
			return numberLiteral{}, err
		}

		return numberLiteral{Int: v}, nil
	}

	f, err := composeFloat(intDigits, fracDigits, expDigits, negativeExp, radix)
	if err != nil {
		return numberLiteral{}, err
	}

	return numberLiteral{isFloat: true, Float: f}, nil
}

// accumulateInt builds the magnitude of an integer literal, failing instead
// of wrapping around.
func accumulateInt(digits []uint64, radix int) (uint64, error) {
	var shift uint
	switch radix {
	case 16:
		shift = 4
	case 8:
		shift = 3
	case 2:
		shift = 1
	}

	var v uint64
	for _, d := range digits {
		if shift > 0 {
			if v>>(64-shift) != 0 {
				return 0, errIntegerOverflow
			}
			v = v<<shift | d
			continue
		}

		if v > (math.MaxUint64-d)/uint64(radix) {
			return 0, errIntegerOverflow
		}
		v = v*uint64(radix) + d
	}

	return v, nil
}

func composeFloat(intDigits, fracDigits, expDigits []uint64, negativeExp bool, radix int) (float64, error) {
	r := float64(radix)

	var whole float64
	for _, d := range intDigits {
		whole = whole*r + float64(d)
	}

	var frac uint64
	count := 0
	for _, d := range fracDigits {
		if count == maxFractionDigits || frac > (math.MaxUint64-d)/uint64(radix) {
			break
		}
		frac = frac*uint64(radix) + d
		count++
	}

	exp := 0
	for _, d := range expDigits {
		if exp < maxExponent {
			exp = exp*10 + int(d)
		}
	}
	if negativeExp {
		exp = -exp
	}

	base := 10.0
	if radix == 16 {
		base = 2
	}

	v := (whole + float64(frac)/math.Pow(r, float64(count))) * math.Pow(base, float64(exp))
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, errors.New("float literal out of range")
	}

	return v, nil
}
