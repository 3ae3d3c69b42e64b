package engine

import "bytes"

// KeyRange is a contiguous interval of keys. A missing bound is unbounded.
type KeyRange struct {
	lower, upper         any
	lowerEnc, upperEnc   []byte
	hasLower, hasUpper   bool
	lowerOpen, upperOpen bool
}

// Only matches exactly one key.
func Only(key any) (KeyRange, error) {
	return Bound(key, key, false, false)
}

// LowerBound matches every key above key (or equal unless open).
func LowerBound(key any, open bool) (KeyRange, error) {
	enc, err := EncodeKey(key)
	if err != nil {
		return KeyRange{}, err
	}

	n, _ := NormalizeKey(key)

	return KeyRange{lower: n, lowerEnc: enc, hasLower: true, lowerOpen: open}, nil
}

// UpperBound matches every key below key (or equal unless open).
func UpperBound(key any, open bool) (KeyRange, error) {
	enc, err := EncodeKey(key)
	if err != nil {
		return KeyRange{}, err
	}

	n, _ := NormalizeKey(key)

	return KeyRange{upper: n, upperEnc: enc, hasUpper: true, upperOpen: open}, nil
}

// Bound matches keys between lower and upper.
func Bound(lower, upper any, lowerOpen, upperOpen bool) (KeyRange, error) {
	lr, err := LowerBound(lower, lowerOpen)
	if err != nil {
		return KeyRange{}, err
	}

	ur, err := UpperBound(upper, upperOpen)
	if err != nil {
		return KeyRange{}, err
	}

	cmp := bytes.Compare(lr.lowerEnc, ur.upperEnc)
	if cmp > 0 {
		return KeyRange{}, newError(NameData, "lower bound is greater than upper bound")
	}

	if cmp == 0 && (lowerOpen || upperOpen) {
		return KeyRange{}, newError(NameData, "open bound on an empty range")
	}

	lr.upper, lr.upperEnc, lr.hasUpper, lr.upperOpen = ur.upper, ur.upperEnc, true, upperOpen

	return lr, nil
}

func (r KeyRange) Lower() (any, bool) { return r.lower, r.hasLower }
func (r KeyRange) Upper() (any, bool) { return r.upper, r.hasUpper }
func (r KeyRange) LowerOpen() bool { return r.lowerOpen }
func (r KeyRange) UpperOpen() bool { return r.upperOpen }

// Includes reports whether key lies inside the range.
func (r KeyRange) Includes(key any) (bool, error) {
	enc, err := EncodeKey(key)
	if err != nil {
		return false, err
	}

	return r.includesEncoded(enc), nil
}

func (r KeyRange) includesEncoded(enc []byte) bool {
	return !r.belowLower(enc) && !r.aboveUpper(enc)
}

func (r KeyRange) belowLower(enc []byte) bool {
	if !r.hasLower {
		return false
	}

	cmp := bytes.Compare(enc, r.lowerEnc)

	return cmp < 0 || (cmp == 0 && r.lowerOpen)
}

func (r KeyRange) aboveUpper(enc []byte) bool {
	if !r.hasUpper {
		return false
	}

	cmp := bytes.Compare(enc, r.upperEnc)

	return cmp > 0 || (cmp == 0 && r.upperOpen)
}
