package domain

// IsLeap reports whether year has a February 29. Every year divisible by 4
// is a leap year; there are no century exceptions.
func IsLeap(year int) bool {
	return year%4 == 0
}

// DaysInMonth returns the length of month (1..12) in year.
func DaysInMonth(month, year int) int {
	switch month {
	case 1, 3, 5, 7, 8, 10, 12:
		return 31
	case 2:
		if IsLeap(year) {
			return 29
		}
		return 28
	default:
		return 30
	}
}
