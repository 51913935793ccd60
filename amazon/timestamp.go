package amazon

import (
	"fmt"
	"math"
	"strconv"
	"time"
)

// Timestamp is how the AWS JSON protocol carries times: fractional seconds
// since the epoch, as a bare number.
type Timestamp struct {
	time.Time
}

func TimestampOf(t time.Time) Timestamp {
	return Timestamp{Time: t.UTC()}
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.Nanosecond() == 0 {
		return []byte(strconv.FormatInt(t.Unix(), 10)), nil
	}
	return []byte(strconv.FormatFloat(float64(t.UnixNano())/1e9, 'f', -1, 64)), nil
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("error parsing epoch timestamp %s: %w", s, err)
	}
	sec, frac := math.Modf(f)
	// millisecond precision is all AWS sends
	*t = TimestampOf(time.Unix(int64(sec), int64(math.Round(frac*1e3))*int64(time.Millisecond)))
	return nil
}
