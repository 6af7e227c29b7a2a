package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type sample struct {
	Nickname string `json:"nickname" validate:"required,nickname,min=4,max=20"`
	Opens    string `json:"opens" validate:"omitempty,hhmm"`
	Text     string `json:"text" validate:"omitempty,notblank"`
}

func TestCustomRules(t *testing.T) {
	v := New()

	require.NoError(t, v.Struct(sample{Nickname: "dr_house", Opens: "08:30", Text: "hi"}))
	require.Error(t, v.Struct(sample{Nickname: "dr house"}))
	require.Error(t, v.Struct(sample{Nickname: "dr_house", Opens: "25:00"}))
	require.Error(t, v.Struct(sample{Nickname: "dr_house", Text: "   "}))

	err := v.Struct(sample{Nickname: "ab"})
	require.Error(t, err)
	require.Contains(t, err.Error(), "nickname")
}

func TestParseClock(t *testing.T) {
	offset, err := ParseClock("09:15")
	require.NoError(t, err)
	require.Equal(t, 9*time.Hour+15*time.Minute, offset)

	_, err = ParseClock("9am")
	require.Error(t, err)
}
