package tracker

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
)

var (
	ErrInvalidArgument = errors.New("invalid argument")
	ErrNotFound        = errors.New("tracking configuration not found")
)

// InvalidSortError rejects a sort_by value outside the known set.
type InvalidSortError struct {
	Value string
}

func (e *InvalidSortError) Error() string {
	valid := lo.Map(SortOptions(), func(o SortOption, _ int) string { return o.String() })
	return fmt.Sprintf("invalid sort option %q; valid options: %s", e.Value, strings.Join(valid, ", "))
}

// Valid lists the accepted values.
func (e *InvalidSortError) Valid() []SortOption { return SortOptions() }

func (e *InvalidSortError) Unwrap() error { return ErrInvalidArgument }
