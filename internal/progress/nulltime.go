package progress

import (
	"bytes"
	"encoding/json"
	"time"

	"course_progress_backend/pkg/logger"

	"go.uber.org/zap"
)

// Sentinel 可信时间的下限，早于它的时间视为损坏，改用父节点的时间
var Sentinel = time.Date(2000, time.January, 1, 0, 0, 0, 0, time.UTC)

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// NullTime 可为空的时间，无法解析的输入解码为 null
type NullTime struct {
	Time  time.Time
	Valid bool
}

func At(t time.Time) NullTime {
	if t.IsZero() {
		return NullTime{}
	}
	return NullTime{Time: t, Valid: true}
}

func FromPtr(t *time.Time) NullTime {
	if t == nil {
		return NullTime{}
	}
	return At(*t)
}

func (n NullTime) Ptr() *time.Time {
	if !n.Valid {
		return nil
	}
	t := n.Time
	return &t
}

// Trusted 时间已设置且不早于 Sentinel
func (n NullTime) Trusted() bool {
	return n.Valid && !n.Time.Before(Sentinel)
}

func (n NullTime) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Time.UTC().Format(time.RFC3339Nano))
}

func (n *NullTime) UnmarshalJSON(data []byte) error {
	*n = NullTime{}
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		logger.Log.Warn("progress timestamp is not a string, treating as null", zap.ByteString("value", data))
		return nil
	}
	if raw == "" {
		return nil
	}
	t, ok := ParseTime(raw)
	if !ok {
		logger.Log.Warn("unparseable progress timestamp, treating as null", zap.String("value", raw))
		return nil
	}
	*n = At(t)
	return nil
}

// ParseTime 依次尝试支持的时间格式
func ParseTime(raw string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t, !t.IsZero()
		}
	}
	return time.Time{}, false
}

// firstValid 返回第一个已设置的时间
func firstValid(ts ...NullTime) NullTime {
	for _, t := range ts {
		if t.Valid {
			return t
		}
	}
	return NullTime{}
}

func later(a, b NullTime) NullTime {
	if !a.Valid {
		return b
	}
	if b.Valid && b.Time.After(a.Time) {
		return b
	}
	return a
}

// fill 仅在 dst 为空时赋值
func fill(dst *NullTime, t NullTime) {
	if !dst.Valid && t.Valid {
		*dst = t
	}
}
