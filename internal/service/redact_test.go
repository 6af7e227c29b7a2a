package service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMaskEmail(t *testing.T) {
	require.Equal(t, "j***e@example.com", maskEmail(" Jane@Example.com "))
	require.Equal(t, "a***@clinic.de", maskEmail("ab@clinic.de"))
	require.Equal(t, "***", maskEmail("not-an-email"))
	require.Equal(t, "***", maskEmail("@example.com"))
	require.Empty(t, maskEmail(""))
}

func TestMaskPhone(t *testing.T) {
	require.Equal(t, "********56", maskPhone("+49 30 1234 56"))
	require.Equal(t, "***", maskPhone("1"))
}
