package util

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// DateLayout is the format used for match days, everything about a match is
// keyed on its civil date rather than an instant.
const DateLayout = "2006-01-02"

// TimeAsDate is stored as a `YYYY-MM-DD` string but used as a time.Time
// truncated to midnight UTC.
type TimeAsDate time.Time

func NewTimeAsDate(t time.Time) TimeAsDate {
	y, m, d := t.UTC().Date()
	return TimeAsDate(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

func (t TimeAsDate) Value() (driver.Value, error) {
	return driver.Value(time.Time(t).Format(DateLayout)), nil
}

func (t TimeAsDate) Time() time.Time {
	return time.Time(t)
}

func (t TimeAsDate) String() string {
	return time.Time(t).Format(DateLayout)
}

func (t *TimeAsDate) Scan(src interface{}) error {
	var str string
	switch src := src.(type) {
	case []byte:
		str = string(src)
	case string:
		str = src
	default:
		return fmt.Errorf("expected []byte or string, got %T", src)
	}

	tmp, err := time.ParseInLocation(DateLayout, str, time.UTC)
	if err != nil {
		return err
	}

	*t = TimeAsDate(tmp)

	return nil
}

func (t TimeAsDate) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}
