package errors

import (
	"fmt"
	"math"

	"github.com/cockroachdb/errors"
)

// NumericalInstabilityError is returned when a computation produced NaN or
// Inf values, for example a prediction matrix fed with non-finite inputs.
type NumericalInstabilityError struct {
	Operation string    // e.g. "RandomForestRegressor.Predict"
	Values    []float64 // offending values, truncated
	Row       int       // first offending row, -1 when unknown
}

func (e *NumericalInstabilityError) Error() string {
	valStr := ""
	for i, v := range e.Values {
		if i > 0 {
			valStr += ", "
		}
		if i >= 5 {
			valStr += "..."
			break
		}
		valStr += fmt.Sprintf("%.6g", v)
	}
	return fmt.Sprintf("bacpanel: numerical instability detected in %s at row %d. Values: [%s]",
		e.Operation, e.Row, valStr)
}

// NewNumericalInstabilityError creates a NumericalInstabilityError with a stack trace.
func NewNumericalInstabilityError(operation string, values []float64, row int) error {
	return errors.WithStack(&NumericalInstabilityError{
		Operation: operation,
		Values:    values,
		Row:       row,
	})
}

// CheckNumericalStability returns a NumericalInstabilityError carrying the
// non-finite entries of values (at most 10). row is reported as-is; pass -1
// when the values are not a matrix row.
func CheckNumericalStability(operation string, values []float64, row int) error {
	var unstable []float64
	for _, v := range values {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			unstable = append(unstable, v)
			if len(unstable) >= 10 {
				break
			}
		}
	}
	if len(unstable) > 0 {
		return NewNumericalInstabilityError(operation, unstable, row)
	}
	return nil
}

// CheckMatrix checks every row of a matrix and reports the first unstable one.
func CheckMatrix(operation string, matrix interface{ At(int, int) float64 }, rows, cols int) error {
	row := make([]float64, cols)
	for i := 0; i < rows; i++ {
		for j := range row {
			row[j] = matrix.At(i, j)
		}
		if err := CheckNumericalStability(operation, row, i); err != nil {
			return err
		}
	}
	return nil
}
