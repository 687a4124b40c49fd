package vectorindex

import (
	"math"
	"strconv"
)

func itoa(n int) string {
	return strconv.Itoa(n)
}

func sqrt(f float64) float64 {
	return math.Sqrt(f)
}
