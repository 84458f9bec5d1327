package entity

import (
	"database/sql/driver"
	"fmt"
	"strconv"
)

// Limit is a plan quota that is either a finite number or unlimited.
// Admission checks must go through Allows so that an unlimited quota can
// never be exhausted by comparison against a real count.
type Limit struct {
	N         int64
	Unlimited bool
}

func LimitOf(n int64) Limit {
	return Limit{N: n}
}

func Unlimited() Limit {
	return Limit{Unlimited: true}
}

// Allows reports whether one more item may be added to count items.
func (l Limit) Allows(count int64) bool {
	return l.Unlimited || count < l.N
}

func (l Limit) String() string {
	if l.Unlimited {
		return "∞"
	}
	return strconv.FormatInt(l.N, 10)
}

// Value stores the limit as a single integer column, negative meaning
// unlimited. The encoding stays private to the storage layer: it is decoded
// back into the tag on Scan and never compared against counts directly.
func (l Limit) Value() (driver.Value, error) {
	if l.Unlimited {
		return int64(-1), nil
	}
	return l.N, nil
}

func (l *Limit) Scan(src interface{}) error {
	switch v := src.(type) {
	case int64:
		if v < 0 {
			*l = Unlimited()
		} else {
			*l = LimitOf(v)
		}
		return nil
	case nil:
		*l = Unlimited()
		return nil
	default:
		return fmt.Errorf("unsupported limit column type %T", src)
	}
}
