package panel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFloat(t *testing.T) {
	tests := []struct {
		text    string
		want    float64
		message string
	}{
		{"1.5", 1.5, ""},
		{" -2 ", -2, ""},
		{"abc", 0, MsgNotNumber},
		{"NaN", 0, MsgNotNumber},
		{"", 0, MsgNotNumber},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			v, herr := ParseFloat("amount", tt.text)
			if tt.message == "" {
				require.Nil(t, herr)
				assert.Equal(t, tt.want, v)
				return
			}
			require.NotNil(t, herr)
			assert.Equal(t, tt.message, herr.Message)
			assert.Equal(t, "amount", herr.Field)
		})
	}
}

func TestParsePositiveFloat(t *testing.T) {
	v, herr := ParsePositiveFloat("speed", "300")
	require.Nil(t, herr)
	assert.Equal(t, 300.0, v)

	_, herr = ParsePositiveFloat("speed", "0")
	require.NotNil(t, herr)
	assert.Equal(t, MsgNotPositive, herr.Message)

	_, herr = ParsePositiveFloat("speed", "fast")
	require.NotNil(t, herr)
	assert.Equal(t, MsgNotNumber, herr.Message)
}

func TestParseInt(t *testing.T) {
	v, herr := ParseInt("fan", " 128")
	require.Nil(t, herr)
	assert.Equal(t, 128, v)

	_, herr = ParseInt("fan", "12.5")
	require.NotNil(t, herr)
	assert.Equal(t, MsgNotInteger, herr.Message)
}

func TestLabels(t *testing.T) {
	assert.Equal(t, "Output 0.0%", FanOutputLabel(0))
	assert.Equal(t, "Output 100.0%", FanOutputLabel(255))
	assert.Equal(t, []string{"0.1 mm", "10 mm", ""}, PresetLabels([]float64{0.1, 10, 0}))
}
