package strings

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeAndTrim(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{name: "nil slice", input: nil, expected: nil},
		{name: "empty slice", input: []string{}, expected: []string{}},
		{
			name:     "trims and keeps order",
			input:    []string{" PERFIL_USUARIO ", "PERFIL_ADMIN"},
			expected: []string{"PERFIL_USUARIO", "PERFIL_ADMIN"},
		},
		{
			name:     "drops repeats and blanks",
			input:    []string{"PERFIL_ADMIN", "", "  ", "PERFIL_ADMIN "},
			expected: []string{"PERFIL_ADMIN"},
		},
		{
			name:     "case is significant",
			input:    []string{"perfil_admin", "PERFIL_ADMIN"},
			expected: []string{"perfil_admin", "PERFIL_ADMIN"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DedupeAndTrim(tt.input))
		})
	}
}

func TestSplitList(t *testing.T) {
	assert.Nil(t, SplitList(""))
	assert.Nil(t, SplitList("   "))
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, SplitList("kafka-1:9092, kafka-2:9092,,kafka-1:9092"))
}
