package vulkan

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSpirvWordsLittleEndian(t *testing.T) {
	code := []byte{0x03, 0x02, 0x23, 0x07, 0x00, 0x00, 0x01, 0x00}

	words, err := spirvWords(code)
	require.NoError(t, err)
	require.Equal(t, []uint32{0x07230203, 0x00010000}, words)
}

func TestSpirvWordsRejectsEmpty(t *testing.T) {
	_, err := spirvWords(nil)
	require.Error(t, err)
}

func TestSpirvWordsRejectsTruncated(t *testing.T) {
	_, err := spirvWords([]byte{0x03, 0x02, 0x23})
	require.Error(t, err)
	require.Contains(t, err.Error(), "3 bytes")
}
