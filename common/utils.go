package common

// CeilDiv returns the ceiling of a/b, used to derive dispatch grids from
// output dimensions and workgroup sizes. Returns 0 when b is 0.
//
// Parameters:
//   - a: the dividend
//   - b: the divisor
//
// Returns:
//   - T: the smallest integer greater than or equal to a/b
func CeilDiv[T ~uint32 | ~uint64 | ~int](a, b T) T {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}
